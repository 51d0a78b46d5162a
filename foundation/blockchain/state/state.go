// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"crypto/ecdsa"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
	"github.com/HamaKinger/blockchain/foundation/blockchain/mempool"
	"github.com/HamaKinger/blockchain/foundation/blockchain/peer"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining and peer maintenance.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// KeyStore interface represents the wallet the node signs with.
type KeyStore interface {
	Addresses() []string
	Lookup(address string) (*ecdsa.PrivateKey, error)
	Generate() (string, error)
}

// Storage interface represents the persistence of the chain and the
// ledger snapshot.
type Storage interface {
	database.Serializer
	database.Snapshotter
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress   string
	Host           string
	Genesis        genesis.Genesis
	Storage        Storage
	KeyStore       KeyStore
	SelectStrategy string
	KnownPeers     *peer.PeerSet
	AutoMine       bool
	ReplayLedger   bool // Apply peer blocks to the ledger and rebuild it on chain replacement.
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu     sync.Mutex // Serializes validate-then-append and ledger updates.
	syncMu sync.Mutex // Serializes RespondLatest and RespondChain handling.
	txMu   sync.Mutex // Serializes input selection against the mempool.
	dialMu sync.Mutex // Guards dialing.

	minerAddress atomic.Value
	difficulty   atomic.Uint64
	host         string
	genesis      genesis.Genesis
	autoMine     bool
	replayLedger bool
	evHandler    EventHandler

	db         *database.Database
	ledger     *database.Ledger
	mempool    *mempool.Mempool
	storage    Storage
	keyStore   KeyStore
	knownPeers *peer.PeerSet
	conns      *peer.ConnSet
	dialing    map[string]struct{}

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}

	gen := cfg.Genesis
	if gen.ChainID == 0 {
		gen = genesis.Default()
	}

	if cfg.MinerAddress != "" {
		if _, err := signature.DecodeAddress(cfg.MinerAddress); err != nil {
			return nil, fmt.Errorf("miner address: %w", err)
		}
	}

	// Load all existing blocks from storage into memory for processing.
	db := database.New(cfg.Storage, ev)

	// Restore the ledger from its snapshot. A snapshot that can't be read
	// means the ledger starts empty.
	ledger := database.NewLedger()
	entries, err := cfg.Storage.LoadLedger()
	if err != nil {
		ev("state: New: ERROR: reading ledger snapshot, starting empty: %s", err)
	}
	ledger.Restore(entries)

	// Construct a mempool with the specified sort strategy.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = "priority"
	}
	mp, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		host:         cfg.Host,
		genesis:      gen,
		autoMine:     cfg.AutoMine,
		replayLedger: cfg.ReplayLedger,
		evHandler:    ev,

		db:         db,
		ledger:     ledger,
		mempool:    mp,
		storage:    cfg.Storage,
		keyStore:   cfg.KeyStore,
		knownPeers: knownPeers,
		conns:      peer.NewConnSet(),
		dialing:    make(map[string]struct{}),

		Worker: nopWorker{},
	}
	state.difficulty.Store(uint64(gen.Difficulty))
	state.minerAddress.Store(cfg.MinerAddress)

	// Without a configured miner, use the first key in the wallet.
	if cfg.MinerAddress == "" && cfg.KeyStore != nil {
		if addrs := cfg.KeyStore.Addresses(); len(addrs) > 0 {
			state.minerAddress.Store(addrs[0])
		}
	}

	blocks := db.All()
	if len(blocks) > 0 {
		if err := database.ValidateChain(blocks, gen.Difficulty); err != nil {
			ev("state: New: WARNING: loaded chain does not validate: %s", err)
		}

		// The snapshot is missing, rebuild the ledger from the chain.
		if ledger.Len() == 0 {
			ev("state: New: rebuilding ledger from blocks[%d]", len(blocks))
			if err := state.rebuildLedger(blocks); err != nil {
				ev("state: New: WARNING: ledger not rebuilt: %s", err)
			}
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	for _, conn := range s.conns.Copy() {
		conn.Close()
	}

	// Flush a final ledger snapshot before the storage is closed.
	s.mu.Lock()
	s.persistLedger()
	s.mu.Unlock()

	return s.db.Close()
}

// =============================================================================

// persistLedger writes the ledger snapshot. A failure is reported and
// the in-memory ledger is kept.
func (s *State) persistLedger() {
	if err := s.storage.SaveLedger(s.ledger.Entries()); err != nil {
		s.evHandler("state: persistLedger: ERROR: %s", err)
	}
}

// nopWorker is used until a worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()           {}
func (nopWorker) SignalStartMining()  {}
func (nopWorker) SignalCancelMining() {}
