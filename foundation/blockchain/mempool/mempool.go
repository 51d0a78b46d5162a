// Package mempool maintains the pool of transactions waiting to be mined.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/mempool/selector"
)

// ErrMissingHash is returned when a transaction without a hash is added.
var ErrMissingHash = errors.New("transaction hash missing")

// Mempool represents a cache of pending transactions keyed by hash.
type Mempool struct {
	pool     map[string]database.Tx
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyPriority)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if tx.TxHash == "" {
		return 0, ErrMissingHash
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.TxHash] = tx

	return len(mp.pool), nil
}

// Delete removes the transactions from the mempool.
func (mp *Mempool) Delete(txs ...database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, tx := range txs {
		delete(mp.pool, tx.TxHash)
	}
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
}

// Copy returns the pending transactions ordered by submission time.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	txs := make([]database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}
	mp.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].TxHash < txs[j].TxHash
	})

	return txs
}

// Reserved returns the outputs already consumed by pending transactions.
func (mp *Mempool) Reserved() map[database.Outpoint]struct{} {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	reserved := make(map[database.Outpoint]struct{})
	for _, tx := range mp.pool {
		for _, in := range tx.Inputs {
			reserved[database.Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex}] = struct{}{}
		}
	}
	return reserved
}

// PickBest drops the transactions the verify function rejects, ranks the
// rest with the configured strategy and packs them in order until the next
// one would push the total encoded size past maxSize. A transaction spending
// an output already spent by a picked transaction is skipped.
func (mp *Mempool) PickBest(maxSize int, now time.Time, verify func(database.Tx) error) []database.Tx {
	var candidates []database.Tx
	for _, tx := range mp.Copy() {
		if verify != nil && verify(tx) != nil {
			continue
		}
		candidates = append(candidates, tx)
	}

	spent := make(map[database.Outpoint]struct{})
	var size int
	var final []database.Tx

next:
	for _, tx := range mp.selectFn(candidates, now) {
		for _, in := range tx.Inputs {
			if _, exists := spent[database.Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex}]; exists {
				continue next
			}
		}

		txSize := tx.Size()
		if size+txSize > maxSize {
			break
		}
		size += txSize

		for _, in := range tx.Inputs {
			spent[database.Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex}] = struct{}{}
		}
		final = append(final, tx)
	}

	return final
}
