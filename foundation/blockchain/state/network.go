package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/HamaKinger/blockchain/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node"

// PeerConn is a peer connection the node can read messages from.
type PeerConn interface {
	peer.Conn
	Serve(fn func(data []byte)) error
}

// =============================================================================

// ConnectPeer dials the peer, starts reading its messages and asks it for
// its latest block. The peer is remembered so the worker can reconnect.
func (s *State) ConnectPeer(ctx context.Context, address string) error {
	s.evHandler("state: ConnectPeer: started: %s", address)
	defer s.evHandler("state: ConnectPeer: completed: %s", address)

	s.knownPeers.Add(peer.New(address))

	if !s.startDial(address) {
		s.evHandler("state: ConnectPeer: already connected: %s", address)
		return nil
	}
	defer s.endDial(address)

	conn, err := peer.Dial(ctx, address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}

	// Track the connection before the dial is released so no other call
	// dials the same host in between.
	if !s.conns.Add(conn) {
		conn.Close()
		return nil
	}

	if err := conn.Send(peer.NewQueryLatest()); err != nil {
		s.conns.Remove(conn)
		conn.Close()
		return fmt.Errorf("query %s: %w", address, err)
	}

	go s.servePeer(conn)

	return nil
}

// ServePeer tracks the connection and processes its messages until the
// connection fails. It blocks, so inbound handlers call it directly. A
// second connection from a host already connected is closed.
func (s *State) ServePeer(conn PeerConn) {
	if !s.conns.Add(conn) {
		s.evHandler("state: ServePeer: duplicate: peer[%s]", conn.Host())
		conn.Close()
		return
	}

	s.servePeer(conn)
}

// startDial claims the address for one ConnectPeer call. It fails while
// the host is connected or another call is dialing it.
func (s *State) startDial(address string) bool {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	if _, exists := s.dialing[address]; exists || s.conns.Has(address) {
		return false
	}
	s.dialing[address] = struct{}{}

	return true
}

func (s *State) endDial(address string) {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	delete(s.dialing, address)
}

// servePeer processes the messages of a tracked connection.
func (s *State) servePeer(conn PeerConn) {
	s.evHandler("state: ServePeer: connected: peer[%s]: conns[%d]", conn.Host(), s.conns.Count())

	defer func() {
		s.conns.Remove(conn)
		conn.Close()
		s.evHandler("state: ServePeer: disconnected: peer[%s]", conn.Host())
	}()

	err := conn.Serve(func(data []byte) {
		s.HandleMessage(conn, data)
	})
	if err != nil {
		s.evHandler("state: ServePeer: peer[%s]: %s", conn.Host(), err)
	}
}

// NetRequestPeerStatus asks a known node for its status. The peers it knows
// about are added to the local set.
func (s *State) NetRequestPeerStatus(pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr.Host)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr.Host)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var ps peer.PeerStatus
	if err := send(http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	for _, known := range ps.KnownPeers {
		if !known.Match(s.host) && s.knownPeers.Add(known) {
			s.evHandler("state: NetRequestPeerStatus: add peer[%s]", known.Host)
		}
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: latest-blk[%d]: peer-list[%v]", pr.Host, ps.LatestBlockIndex, ps.KnownPeers)

	return ps, nil
}

// =============================================================================

// send is a helper function to send an HTTP request to a node.
func send(method string, url string, dataSend any, dataRecv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		req, err = http.NewRequest(method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}

	default:
		var err error
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return err
		}
	}

	var client http.Client
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
