// Package worker runs the node's background loops: auto mining of pending
// transfers and keeping connections to the known peers alive.
package worker

import (
	"sync"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/state"
)

// peerUpdateInterval is how often known peers are polled for their status
// and reconnected when their connection dropped.
const peerUpdateInterval = time.Minute

// =============================================================================

// Worker owns the mining loop and the peer loop of a node. The state calls
// back into it through the state.Worker interface when a transfer is queued
// or a peer block makes the current mining attempt stale.
type Worker struct {
	state     *state.State
	evHandler state.EventHandler

	wg     sync.WaitGroup
	ticker *time.Ticker
	shut   chan struct{}

	// Both channels hold at most one signal. A signal sent while another
	// is pending is dropped since it asks for the same thing.
	startMining  chan struct{}
	cancelMining chan struct{}
}

// Run registers a new worker as the state's worker, catches the node up
// with its peers and starts the loops. It returns once every loop is running.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	w := Worker{
		state:        st,
		evHandler:    evHandler,
		ticker:       time.NewTicker(peerUpdateInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan struct{}, 1),
		cancelMining: make(chan struct{}, 1),
	}
	st.Worker = &w

	w.Sync()
	w.start(w.peerOperations, w.miningOperations)

	return &w
}

// start launches each loop on its own goroutine and waits until all of
// them are scheduled.
func (w *Worker) start(loops ...func()) {
	running := make(chan struct{})

	w.wg.Add(len(loops))
	for _, loop := range loops {
		go func(loop func()) {
			defer w.wg.Done()
			running <- struct{}{}
			loop()
		}(loop)
	}

	for range loops {
		<-running
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown stops the peer ticker, aborts a running proof of work and waits
// for both loops to return.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	w.SignalCancelMining()

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining asks the mining loop for a new block. It does nothing
// when auto mining is off.
func (w *Worker) SignalStartMining() {
	if !w.state.AutoMine() {
		return
	}

	select {
	case w.startMining <- struct{}{}:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// SignalCancelMining makes the block being mined, if any, stop its proof
// of work. A signal left over when no block is mined is drained before the
// next attempt starts.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- struct{}{}:
		w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
	default:
	}
}

// =============================================================================

func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
