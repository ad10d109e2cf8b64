// Package bus fans realtime events out to subscribers. Each subscriber
// owns a buffered channel; when a subscriber falls behind, its events are
// dropped rather than ever blocking the game engines. Private events ride
// on per-agent topics so hole cards never cross a public channel.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
)

// Topic names. Tables and agents each get their own channel; every duel
// event shares one global feed.
const DuelsTopic = "duels"

func TableTopic(id string) string { return "table:" + id }
func AgentTopic(id string) string { return "agent:" + id }

// Event is one published occurrence. Data marshals to the event payload
// on the stream; it must be safe to read concurrently after publishing.
type Event struct {
	Topic string    `json:"topic"`
	Type  string    `json:"type"`
	At    time.Time `json:"at"`
	Data  any       `json:"data,omitempty"`
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	bus     *Bus
	topics  map[string]bool
	ch      chan Event
	dropped atomic.Uint64
	once    sync.Once
}

// C is the subscriber's event channel. It closes when the subscription
// or the bus closes.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped counts events lost to backpressure.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Add subscribes to one more topic.
func (s *Subscription) Add(topic string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.topics[topic] = true
}

// Remove unsubscribes from a topic.
func (s *Subscription) Remove(topic string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.topics, topic)
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}

// Bus is the fan-out hub.
type Bus struct {
	logger log.Logger

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New returns an empty bus.
func New(logger log.Logger) *Bus {
	return &Bus{
		logger: logger.With("module", "bus"),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe attaches a subscriber to the given topics with the given
// channel buffer. A non-positive buffer gets a sane default.
func (b *Bus) Subscribe(buffer int, topics ...string) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	s := &Subscription{
		bus:    b,
		topics: make(map[string]bool, len(topics)),
		ch:     make(chan Event, buffer),
	}
	for _, t := range topics {
		s.topics[t] = true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers an event to every subscriber of its topic. Slow
// subscribers lose the event; the publisher never blocks.
func (b *Bus) Publish(topic, typ string, data any) {
	ev := Event{Topic: topic, Type: typ, At: time.Now().UTC(), Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		if !s.topics[topic] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			b.logger.Debug("event dropped", "topic", topic, "type", typ)
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.once.Do(func() { close(s.ch) })
		delete(b.subs, s)
	}
}
