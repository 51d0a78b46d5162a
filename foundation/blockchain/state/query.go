package state

import (
	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
)

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryKnownTransactions returns every transaction packed into the chain.
func (s *State) QueryKnownTransactions() []database.Tx {
	return s.db.KnownTransactions()
}

// QueryLatestTransactions returns the transactions of the latest block.
func (s *State) QueryLatestTransactions() []database.Tx {
	latest, exists := s.db.Latest()
	if !exists {
		return nil
	}
	return latest.Transactions
}

// QueryBalance returns the unspent balance of the address.
func (s *State) QueryBalance(address string) (database.Amount, error) {
	if _, err := signature.DecodeAddress(address); err != nil {
		return database.Amount{}, ErrInvalidAddress
	}

	return s.ledger.BalanceOf(address)
}

// QueryUtxos returns the unspent outputs owned by the address.
func (s *State) QueryUtxos(address string) ([]database.LedgerEntry, error) {
	if _, err := signature.DecodeAddress(address); err != nil {
		return nil, ErrInvalidAddress
	}

	return s.ledger.UtxosOf(address), nil
}

// QueryMinerBalance returns the miner's balance rendered in coins with
// eight fractional digits.
func (s *State) QueryMinerBalance() (string, error) {
	miner := s.MinerAddress()
	if miner == "" {
		return "", ErrNoMiningKey
	}

	balance, err := s.ledger.BalanceOf(miner)
	if err != nil {
		return "", err
	}

	return balance.Coins(), nil
}

// QueryBlockByIndex returns the block at the specified index.
func (s *State) QueryBlockByIndex(index uint64) (database.Block, bool) {
	blocks := s.db.All()
	if index == 0 || index > uint64(len(blocks)) {
		return database.Block{}, false
	}

	block := blocks[index-1]
	if block.Index != index {
		for _, b := range blocks {
			if b.Index == index {
				return b, true
			}
		}
		return database.Block{}, false
	}

	return block, true
}
