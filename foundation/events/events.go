// Package events fans the node's event messages out to subscribers such as
// websocket clients. A subscriber can limit itself to the messages of a set
// of sources, the text before the first colon of a message.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of messages a slow subscriber can fall
// behind before messages to it are dropped.
const messageBuffer = 100

// Subscription is a registered receiver of events.
type Subscription struct {
	C       <-chan string
	ch      chan string
	sources map[string]struct{}
	dropped int
}

func (sub *Subscription) wants(msg string) bool {
	if len(sub.sources) == 0 {
		return true
	}

	source, _, _ := strings.Cut(msg, ":")
	_, exists := sub.sources[source]
	return exists
}

// =============================================================================

// Events maintains the set of subscriptions by unique id.
type Events struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// New constructs an events value for registering and receiving events.
func New() *Events {
	return &Events{
		subs: make(map[string]*Subscription),
	}
}

// Shutdown closes and removes every subscription.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Acquire registers a subscription for the id, receiving only messages
// from the specified sources or every message when none are given.
// Acquiring an id twice returns the existing subscription.
func (evt *Events) Acquire(id string, sources ...string) *Subscription {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub
	}

	ch := make(chan string, messageBuffer)
	sub := Subscription{
		C:       ch,
		ch:      ch,
		sources: make(map[string]struct{}, len(sources)),
	}
	for _, source := range sources {
		if source = strings.TrimSpace(source); source != "" {
			sub.sources[source] = struct{}{}
		}
	}

	evt.subs[id] = &sub
	return &sub
}

// Release closes and removes the subscription for the id. It returns the
// number of messages the subscriber missed.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return 0, fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return sub.dropped, nil
}

// Count returns the number of subscriptions.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send delivers the message to every interested subscription. Send never
// blocks, a subscriber with a full buffer misses the message.
func (evt *Events) Send(msg string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, sub := range evt.subs {
		if !sub.wants(msg) {
			continue
		}

		select {
		case sub.ch <- msg:
		default:
			sub.dropped++
		}
	}
}
