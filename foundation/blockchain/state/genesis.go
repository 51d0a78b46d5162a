package state

import (
	"context"
	"fmt"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// CreateGenesis mines the first block of the chain paying the subsidy to
// the miner. A second call fails with ErrGenesisExists and leaves the
// chain untouched.
func (s *State) CreateGenesis(ctx context.Context) (database.Block, error) {
	s.evHandler("state: CreateGenesis: started")
	defer s.evHandler("state: CreateGenesis: completed")

	if s.db.Height() > 0 {
		return database.Block{}, ErrGenesisExists
	}

	miner, err := s.ensureMiner()
	if err != nil {
		return database.Block{}, err
	}

	coinbase, err := database.NewCoinbaseTx(miner, 1, s.genesis.ChainID, time.Now().UnixMilli())
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	args := database.POWArgs{
		Index:        1,
		Timestamp:    time.Now().UnixMilli(),
		Transactions: []database.Tx{coinbase},
		Difficulty:   s.Difficulty(),
		Height:       s.db.Height,
		EvHandler:    s.evHandler,
	}

	// No lock is held during the search so peer messages keep flowing.
	block, err := database.POW(ctx, args)
	if err != nil {
		if s.db.Height() > 0 {
			return database.Block{}, ErrGenesisExists
		}
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	if err := s.commitGenesis(block); err != nil {
		return database.Block{}, err
	}

	s.broadcastLatest(block)

	return block, nil
}

// =============================================================================

// commitGenesis appends the genesis block unless a peer supplied one while
// the search was running.
func (s *State) commitGenesis(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.Height() > 0 {
		return ErrGenesisExists
	}

	if err := s.addBlock(block); err != nil {
		return fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	if err := s.ledger.ApplyBlock(block); err != nil {
		s.evHandler("state: commitGenesis: WARNING: ledger: %s", err)
	}
	s.persistLedger()

	return nil
}

// ensureMiner returns the miner address, creating a wallet key for it when
// no address is configured yet.
func (s *State) ensureMiner() (string, error) {
	if miner := s.MinerAddress(); miner != "" {
		return miner, nil
	}

	if s.keyStore == nil {
		return "", ErrNoMiningKey
	}

	if addrs := s.keyStore.Addresses(); len(addrs) > 0 {
		s.minerAddress.Store(addrs[0])
		return addrs[0], nil
	}

	address, err := s.keyStore.Generate()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoMiningKey, err)
	}

	s.evHandler("state: ensureMiner: generated miner address[%s]", address)
	s.minerAddress.Store(address)

	return address, nil
}
