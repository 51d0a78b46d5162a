package state

import (
	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
	"github.com/HamaKinger/blockchain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block. The bool is
// false when the chain is empty.
func (s *State) RetrieveLatestBlock() (database.Block, bool) {
	return s.db.Latest()
}

// RetrieveChain returns a copy of the chain in index order.
func (s *State) RetrieveChain() []database.Block {
	return s.db.All()
}

// RetrieveMempool returns a copy of the pending transactions.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveLedger returns a copy of every ledger entry.
func (s *State) RetrieveLedger() []database.LedgerEntry {
	return s.ledger.Entries()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveConnections returns the hosts of the live peer connections.
func (s *State) RetrieveConnections() []string {
	return s.conns.Hosts()
}

// RetrieveStatus returns the view of this node shared with its peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	status := peer.PeerStatus{
		Difficulty:  s.Difficulty(),
		KnownPeers:  s.RetrieveKnownPeers(),
		Connections: s.RetrieveConnections(),
	}

	if latest, exists := s.db.Latest(); exists {
		status.LatestBlockHash = latest.Hash
		status.LatestBlockIndex = latest.Index
	}

	return status
}

// Difficulty returns the difficulty blocks are currently validated and
// mined with.
func (s *State) Difficulty() uint {
	return uint(s.difficulty.Load())
}

// MinerAddress returns the address mining rewards are paid to. It is empty
// until a key is configured or generated.
func (s *State) MinerAddress() string {
	v, _ := s.minerAddress.Load().(string)
	return v
}

// AutoMine reports whether the worker mines whenever transactions are
// pending.
func (s *State) AutoMine() bool {
	return s.autoMine
}
