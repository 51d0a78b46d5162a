package state

import (
	"sort"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/peer"
)

// HandleMessage decodes and processes a raw message read from a peer
// connection. Failures are logged and never propagate to the connection.
func (s *State) HandleMessage(conn peer.Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.evHandler("state: HandleMessage: PANIC: peer[%s]: %v", conn.Host(), r)
		}
	}()

	msg, err := peer.Decode(data)
	if err != nil {
		s.evHandler("state: HandleMessage: ERROR: peer[%s]: %s", conn.Host(), err)
		return
	}

	s.ProcessMessage(conn, msg)
}

// ProcessMessage runs the sync protocol for a decoded message.
func (s *State) ProcessMessage(conn peer.Conn, msg peer.Message) {
	s.evHandler("state: ProcessMessage: peer[%s]: type[%s]", conn.Host(), msg.Type)

	switch msg.Type {
	case peer.QueryLatest:
		s.respondLatest(conn)

	case peer.RespondLatest:
		block, exists, err := msg.Block()
		if err != nil {
			s.evHandler("state: ProcessMessage: ERROR: peer[%s]: %s", conn.Host(), err)
			return
		}
		if !exists {
			return
		}
		s.handleRespondLatest(block)

	case peer.QueryChain:
		s.respondChain(conn)

	case peer.RespondChain:
		blocks, err := msg.Blocks()
		if err != nil {
			s.evHandler("state: ProcessMessage: ERROR: peer[%s]: %s", conn.Host(), err)
			return
		}
		s.handleRespondChain(blocks)
	}
}

// =============================================================================

func (s *State) respondLatest(conn peer.Conn) {
	var latest *database.Block
	if b, exists := s.db.Latest(); exists {
		latest = &b
	}

	msg, err := peer.NewRespondLatest(latest)
	if err != nil {
		s.evHandler("state: respondLatest: ERROR: %s", err)
		return
	}

	if err := conn.Send(msg); err != nil {
		s.evHandler("state: respondLatest: ERROR: peer[%s]: %s", conn.Host(), err)
	}
}

func (s *State) respondChain(conn peer.Conn) {
	msg, err := peer.NewRespondChain(s.db.All())
	if err != nil {
		s.evHandler("state: respondChain: ERROR: %s", err)
		return
	}

	if err := conn.Send(msg); err != nil {
		s.evHandler("state: respondChain: ERROR: peer[%s]: %s", conn.Host(), err)
	}
}

// handleRespondLatest catches up by one block when the received block
// extends the local chain and asks for the full chain when local is too
// far behind.
func (s *State) handleRespondLatest(received database.Block) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	latest, exists := s.db.Latest()

	if !exists {
		if err := s.acceptBlock(received); err == nil {
			s.broadcastLatest(received)
		}
		s.Broadcast(peer.NewQueryChain())
		return
	}

	switch {
	case received.Index > latest.Index+1:
		s.evHandler("state: handleRespondLatest: behind: local[%d]: received[%d]", latest.Index, received.Index)
		s.Broadcast(peer.NewQueryChain())

	case received.Index > latest.Index && received.PreviousHash == latest.Hash:
		if err := s.acceptBlock(received); err == nil {
			s.broadcastLatest(received)
		}

	default:
		s.evHandler("state: handleRespondLatest: ignored: local[%d]: received[%d]", latest.Index, received.Index)
	}
}

// handleRespondChain applies a received chain: one new block is appended
// directly and anything else goes through the fork choice.
func (s *State) handleRespondChain(received []database.Block) {
	if len(received) == 0 {
		return
	}

	blocks := make([]database.Block, len(received))
	copy(blocks, received)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	if err := database.ValidateChain(blocks, s.Difficulty()); err != nil {
		s.evHandler("state: handleRespondChain: ignored: %s", err)
		return
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	latest, exists := s.db.Latest()
	if !exists {
		s.ReplaceChain(blocks)
		return
	}

	receivedLatest := blocks[len(blocks)-1]

	switch {
	case receivedLatest.Index <= latest.Index:
		s.evHandler("state: handleRespondChain: ignored: local[%d]: received[%d]", latest.Index, receivedLatest.Index)

	case receivedLatest.PreviousHash == latest.Hash:
		if err := s.acceptBlock(receivedLatest); err == nil {
			s.broadcastLatest(receivedLatest)
		}

	default:
		s.ReplaceChain(blocks)
	}
}

// =============================================================================

// Broadcast sends the message to every connected peer. A failed send is
// logged and not retried.
func (s *State) Broadcast(msg peer.Message) int {
	return s.conns.Broadcast(msg, func(conn peer.Conn, err error) {
		s.evHandler("state: Broadcast: ERROR: peer[%s]: type[%s]: %s", conn.Host(), msg.Type, err)
	})
}

// broadcastLatest announces a newly accepted block.
func (s *State) broadcastLatest(block database.Block) {
	msg, err := peer.NewRespondLatest(&block)
	if err != nil {
		s.evHandler("state: broadcastLatest: ERROR: %s", err)
		return
	}

	n := s.Broadcast(msg)
	s.evHandler("state: broadcastLatest: blk[%d]: peers[%d]", block.Index, n)
}
