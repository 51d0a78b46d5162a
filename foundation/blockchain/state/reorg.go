package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// ErrChainRejected is returned when a candidate chain does not replace the
// local chain.
var ErrChainRejected = errors.New("chain rejected")

// =============================================================================

// ReplaceChain swaps the local chain for the candidate when the candidate
// is valid and strictly longer. Mining is cancelled on replacement since
// its predecessor may no longer be on the chain.
func (s *State) ReplaceChain(candidate []database.Block) error {
	s.evHandler("state: ReplaceChain: started: blocks[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	blocks := make([]database.Block, len(candidate))
	copy(blocks, candidate)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := database.ValidateChain(blocks, s.Difficulty()); err != nil {
		s.evHandler("state: ReplaceChain: REJECTED: invalid chain: %s", err)
		return fmt.Errorf("%w: %w", ErrChainRejected, err)
	}

	if local := s.db.Height(); uint64(len(blocks)) <= local {
		s.evHandler("state: ReplaceChain: REJECTED: candidate blocks[%d] not longer than local blocks[%d]", len(blocks), local)
		return fmt.Errorf("%w: candidate is not longer", ErrChainRejected)
	}

	// Without a replay the ledger keeps the outputs of the old chain.
	var ledger *database.Ledger
	if s.replayLedger {
		var err error
		if ledger, err = database.ReplayBlocks(blocks); err != nil {
			s.evHandler("state: ReplaceChain: REJECTED: ledger: %s", err)
			return fmt.Errorf("%w: %w", ErrChainRejected, err)
		}
	}

	if err := s.db.Replace(blocks); err != nil {
		s.evHandler("state: ReplaceChain: ERROR: persisting chain: %s", err)
	}

	if ledger != nil {
		s.ledger.Restore(ledger.Entries())
		s.evHandler("state: ReplaceChain: ledger rebuilt: entries[%d]", s.ledger.Len())
		s.persistLedger()
		s.pruneMempool()
	}

	for _, b := range blocks {
		s.mempool.Delete(b.Transactions...)
	}

	s.Worker.SignalCancelMining()

	return nil
}

// =============================================================================

// rebuildLedger replaces the ledger with one replayed from the blocks. The
// ledger is left untouched when a block does not verify.
func (s *State) rebuildLedger(blocks []database.Block) error {
	ledger, err := database.ReplayBlocks(blocks)
	if err != nil {
		return err
	}

	s.ledger.Restore(ledger.Entries())
	s.evHandler("state: rebuildLedger: blocks[%d]: entries[%d]", len(blocks), s.ledger.Len())
	s.persistLedger()

	return nil
}
