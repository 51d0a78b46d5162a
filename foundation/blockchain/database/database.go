// Package database maintains the blockchain data model: transactions, blocks,
// the UTXO ledger and the in-memory chain backed by a storage serializer.
package database

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(block Block) error
	ReadAll() ([]Block, error)
	Replace(blocks []Block) error
	Close() error
}

// Snapshotter interface represents the behavior required to be implemented by
// any package providing support for storing and reading the ledger snapshot.
type Snapshotter interface {
	SaveLedger(entries []LedgerEntry) error
	LoadLedger() ([]LedgerEntry, error)
}

// =============================================================================

// Database is the append-only chain of blocks along with the set of every
// transaction those blocks carry. It performs no validation.
type Database struct {
	mu     sync.RWMutex
	blocks []Block
	known  []Tx
	height atomic.Uint64

	serializer Serializer
}

// New constructs the database and loads the chain from the serializer. A
// chain that can't be read is reported and the database starts empty.
func New(serializer Serializer, evHandler func(v string, args ...any)) *Database {
	db := Database{
		serializer: serializer,
	}

	blocks, err := serializer.ReadAll()
	if err != nil {
		evHandler("database: New: ERROR: reading chain, starting empty: %s", err)
		return &db
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})
	db.set(blocks)

	evHandler("database: New: loaded blocks[%d]", len(blocks))

	return &db
}

// Close closes the underlying serializer.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Latest returns the last block of the chain.
func (db *Database) Latest() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, false
	}
	return db.blocks[len(db.blocks)-1], true
}

// Height returns the number of blocks in the chain. It is safe to call
// from a hot loop.
func (db *Database) Height() uint64 {
	return db.height.Load()
}

// Append adds the block to the end of the chain and persists it. The block
// stays in memory even when the write fails.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	db.blocks = append(db.blocks, block)
	db.known = append(db.known, block.Transactions...)
	db.height.Store(uint64(len(db.blocks)))
	db.mu.Unlock()

	return db.serializer.Write(block)
}

// Replace swaps the whole chain and persists it. The known transaction set
// is rebuilt from the new blocks.
func (db *Database) Replace(blocks []Block) error {
	cp := make([]Block, len(blocks))
	copy(cp, blocks)

	db.mu.Lock()
	db.set(cp)
	db.mu.Unlock()

	return db.serializer.Replace(cp)
}

// All returns a copy of the chain in order.
func (db *Database) All() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)
	return blocks
}

// KnownTransactions returns every transaction carried by the chain.
func (db *Database) KnownTransactions() []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	txs := make([]Tx, len(db.known))
	copy(txs, db.known)
	return txs
}

// set must be called with the lock held or before the value is shared.
func (db *Database) set(blocks []Block) {
	db.blocks = blocks
	db.known = nil
	for _, b := range blocks {
		db.known = append(db.known, b.Transactions...)
	}
	db.height.Store(uint64(len(blocks)))
}
