package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The block always carries a coinbase paying the
// miner, followed by the best pending transactions that fit.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	miner := s.MinerAddress()
	if miner == "" {
		return database.Block{}, ErrNoMiningKey
	}

	latest, exists := s.db.Latest()
	if !exists {
		return database.Block{}, ErrNoGenesis
	}

	s.evHandler("state: MineNewBlock: MINING: adjust difficulty")

	difficulty := database.AdjustDifficulty(s.db.All(), s.Difficulty(), s.genesis.AdjustWindow, s.genesis.TargetInterval())
	if difficulty != s.Difficulty() {
		s.evHandler("state: MineNewBlock: MINING: difficulty changed: %d -> %d", s.Difficulty(), difficulty)
		s.difficulty.Store(uint64(difficulty))
	}

	s.evHandler("state: MineNewBlock: MINING: select transactions")

	height := latest.Index + 1
	now := time.Now()

	coinbase, err := database.NewCoinbaseTx(miner, height, s.genesis.ChainID, now.UnixMilli())
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	verify := func(tx database.Tx) error {
		return tx.Verify(s.ledger)
	}
	picked := s.mempool.PickBest(s.genesis.MaxBlockSize-coinbase.Size(), now, verify)

	txs := make([]database.Tx, 0, len(picked)+1)
	txs = append(txs, coinbase)
	for _, tx := range picked {
		tx.Status = database.StatusConfirmed
		txs = append(txs, tx)
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: txs[%d]", len(txs))

	// Attempt to create a new block by solving the POW puzzle. This can be
	// cancelled or aborted when a peer block arrives first.
	args := database.POWArgs{
		Index:        height,
		PreviousHash: latest.Hash,
		Timestamp:    now.UnixMilli(),
		Transactions: txs,
		Difficulty:   difficulty,
		Height:       s.db.Height,
		EvHandler:    s.evHandler,
	}

	block, err := database.POW(ctx, args)
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, ctx.Err())
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := s.updateLocalState(block); err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	s.broadcastLatest(block)

	return block, nil
}

// IsMiningFailure reports whether the error means mining yielded no block.
func IsMiningFailure(err error) bool {
	return errors.Is(err, ErrMiningFailed)
}

// =============================================================================

// updateLocalState appends the mined block, applies its transactions to the
// ledger, removes them from the mempool and persists the ledger snapshot.
func (s *State) updateLocalState(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the ledger first so a block that loses a race leaves no trace.
	if err := s.ledger.CanApplyBlock(block); err != nil {
		return err
	}

	if err := s.addBlock(block); err != nil {
		return err
	}

	s.evHandler("state: updateLocalState: update ledger and remove from mempool")

	if err := s.ledger.ApplyBlock(block); err != nil {
		s.evHandler("state: updateLocalState: WARNING: %s", err)
	}
	s.mempool.Delete(block.Transactions...)
	s.pruneMempool()
	s.persistLedger()

	return nil
}
