package worker

import (
	"context"
	"time"
)

// dialTimeout bounds the time spent connecting to a single peer.
const dialTimeout = 5 * time.Second

// peerOperations handles finding new peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation updates the peer list and connects to the known peers
// that have no live connection.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer. New peers it knows are added
		// to this node's list.
		if _, err := w.state.NetRequestPeerStatus(peer); err != nil {
			w.evHandler("worker: runPeersOperation: queryPeerStatus: %s: ERROR: %s", peer.Host, err)
		}
	}

	connected := make(map[string]bool)
	for _, host := range w.state.RetrieveConnections() {
		connected[host] = true
	}

	for _, peer := range w.state.RetrieveKnownPeers() {
		if connected[peer.Host] {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		err := w.state.ConnectPeer(ctx, peer.Host)
		cancel()

		if err != nil {
			w.evHandler("worker: runPeersOperation: connectPeer: %s: ERROR: %s", peer.Host, err)
		}
	}
}
