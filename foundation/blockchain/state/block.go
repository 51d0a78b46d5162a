package state

import (
	"errors"
	"fmt"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// ErrBlockRejected is returned when a block does not extend the local chain.
var ErrBlockRejected = errors.New("block rejected")

// =============================================================================

// AddBlock validates the block against the latest local block and, on
// success, appends it to the chain.
func (s *State) AddBlock(block database.Block) error {
	s.evHandler("state: AddBlock: started: blk[%d]: hash[%s]", block.Index, block.Hash)
	defer s.evHandler("state: AddBlock: completed")

	return s.acceptBlock(block)
}

// =============================================================================

// acceptBlock appends a block received from outside the local miner. Any
// running mining operation is told to stop since its work is now stale.
func (s *State) acceptBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replayLedger {
		if err := s.ledger.CanApplyBlock(block); err != nil {
			s.evHandler("state: acceptBlock: REJECTED: %s", err)
			return fmt.Errorf("%w: %w", ErrBlockRejected, err)
		}
	}

	if err := s.addBlock(block); err != nil {
		return err
	}

	// Transactions packed by another miner are no longer pending.
	s.mempool.Delete(block.Transactions...)

	if s.replayLedger {
		if err := s.ledger.ApplyBlock(block); err != nil {
			s.evHandler("state: acceptBlock: WARNING: ledger out of sync: blk[%d]: %s", block.Index, err)
		}
		s.pruneMempool()
		s.persistLedger()
	}

	s.Worker.SignalCancelMining()

	return nil
}

// addBlock checks the block can follow the latest block and appends it.
// The caller must hold s.mu. A failure to persist the block is reported
// and the block is kept in memory.
func (s *State) addBlock(block database.Block) error {
	var latest *database.Block
	if b, exists := s.db.Latest(); exists {
		latest = &b
	}

	if err := block.ValidateSuccessor(latest, s.Difficulty()); err != nil {
		s.evHandler("state: addBlock: REJECTED: %s", err)
		return fmt.Errorf("%w: %w", ErrBlockRejected, err)
	}

	if err := s.db.Append(block); err != nil {
		s.evHandler("state: addBlock: ERROR: persisting blk[%d]: %s", block.Index, err)
	}

	s.evHandler("state: addBlock: blk[%d]: hash[%s]: txs[%d]", block.Index, block.Hash, len(block.Transactions))

	return nil
}

// pruneMempool removes pending transactions whose inputs the ledger can
// no longer satisfy. The caller must hold s.mu.
func (s *State) pruneMempool() {
	for _, tx := range s.mempool.Copy() {
		if err := s.ledger.CanApply([]database.Tx{tx}); err != nil {
			s.evHandler("state: pruneMempool: tx[%s]: removed: %s", tx.TxHash, err)
			s.mempool.Delete(tx)
		}
	}
}
