package peer

import (
	"sort"
	"sync"
)

// Conn is a live, message oriented connection to a peer.
type Conn interface {
	Host() string
	Send(msg Message) error
	Close() error
}

// ConnSet tracks the live connections the node broadcasts to.
type ConnSet struct {
	mu  sync.RWMutex
	set map[Conn]struct{}
}

// NewConnSet constructs an empty connection set.
func NewConnSet() *ConnSet {
	return &ConnSet{
		set: make(map[Conn]struct{}),
	}
}

// Add tracks the connection. It returns false when a connection to the
// same host is already tracked.
func (cs *ConnSet) Add(conn Conn) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for tracked := range cs.set {
		if tracked == conn || tracked.Host() == conn.Host() {
			return false
		}
	}
	cs.set[conn] = struct{}{}
	return true
}

// Remove stops tracking the connection.
func (cs *ConnSet) Remove(conn Conn) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.set, conn)
}

// Count returns the number of tracked connections.
func (cs *ConnSet) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.set)
}

// Copy returns the tracked connections ordered by host.
func (cs *ConnSet) Copy() []Conn {
	cs.mu.RLock()
	conns := make([]Conn, 0, len(cs.set))
	for conn := range cs.set {
		conns = append(conns, conn)
	}
	cs.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].Host() < conns[j].Host() })
	return conns
}

// Hosts returns the hosts of the tracked connections.
func (cs *ConnSet) Hosts() []string {
	conns := cs.Copy()

	hosts := make([]string, len(conns))
	for i, conn := range conns {
		hosts[i] = conn.Host()
	}
	return hosts
}

// Has reports whether a connection to the host is tracked.
func (cs *ConnSet) Has(host string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for conn := range cs.set {
		if conn.Host() == host {
			return true
		}
	}
	return false
}

// Broadcast sends the message to every tracked connection one at a time.
// A failed send is reported to the error func and not retried.
func (cs *ConnSet) Broadcast(msg Message, onError func(conn Conn, err error)) int {
	var sent int
	for _, conn := range cs.Copy() {
		if err := conn.Send(msg); err != nil {
			if onError != nil {
				onError(conn, err)
			}
			continue
		}
		sent++
	}
	return sent
}
