// Package broker is the authoritative registry of topics to subscribers
// and subscribers to pending messages. It is the Manager component of
// spec.md §4.C, generalized here from the teacher's channel-driven hub
// actor (go-server/pkg/websocket/hub.go) into a directly locked map: the
// spec requires wake signals to fire inside the same critical section as
// the enqueue (§5), which a register/unregister/broadcast channel actor
// cannot guarantee without a second round trip through the actor loop.
package broker

import (
	"encoding/json"
	"sync"

	"github.com/mjc-gh/esper/internal/identifiers"
	"github.com/mjc-gh/esper/internal/metrics"
	"github.com/rs/zerolog"
)

// Waker is the wake handle a connection hands the broker at subscribe
// time: an opaque, idempotent "there are new messages" signal. Signal
// must never block.
type Waker interface {
	Signal()
}

type subscriberEntry struct {
	client identifiers.Client
	wake   Waker
}

// Broker holds the two mappings described in spec.md §3 behind a single
// mutex. Every exported method is atomic with respect to every other.
type Broker struct {
	mu     sync.Mutex
	queues map[identifiers.Client][]identifiers.Message
	topics map[identifiers.Topic][]subscriberEntry

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New constructs an empty Broker.
func New(m *metrics.Metrics, log zerolog.Logger) *Broker {
	return &Broker{
		queues:  make(map[identifiers.Client][]identifiers.Message),
		topics:  make(map[identifiers.Topic][]subscriberEntry),
		metrics: m,
		log:     log,
	}
}

// Subscribe registers client as a subscriber of topic, with wake as its
// wake handle. Creating the queue is idempotent: an existing queue for
// client is kept as it is. The (client, wake) entry is appended to topic's
// subscriber list on every call.
func (b *Broker) Subscribe(client identifiers.Client, topic identifiers.Topic, wake Waker) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[client]; !ok {
		b.queues[client] = nil
	}
	b.topics[topic] = append(b.topics[topic], subscriberEntry{client: client, wake: wake})

	b.metrics.SetActiveClients(len(b.queues))
	b.metrics.SetActiveTopics(len(b.topics))
}

// Unsubscribe removes client's queue and its entry in topic's subscriber
// list. No-op if client is not present. Safe to call from on_error,
// on_remove, or both.
func (b *Broker) Unsubscribe(client identifiers.Client, topic identifiers.Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.queues, client)

	entries := b.topics[topic]
	for i, e := range entries {
		if e.client == client {
			b.topics[topic] = append(entries[:i], entries[i+1:]...)
			break
		}
	}

	b.metrics.SetActiveClients(len(b.queues))
	b.metrics.SetActiveTopics(len(b.topics))
}

// Publish frames payload into a Message and fans it out to every current
// subscriber of topic, waking each one while still holding the lock so
// that by the time Publish returns, every target connection has been
// informed. A no-op if topic has no subscribers.
func (b *Broker) Publish(topic identifiers.Topic, payload []byte) {
	msg := identifiers.NewMessage(payload)

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[topic]
	if len(entries) == 0 {
		return
	}

	for _, e := range entries {
		if _, ok := b.queues[e.client]; !ok {
			// I1 violation: a topic entry with no queue. Tolerate it by
			// reinstating the queue rather than dropping the message.
			b.log.Warn().Str("client", e.client.String()).Msg("broker: topic entry missing queue, reinstating")
		}
		b.queues[e.client] = append(b.queues[e.client], msg)
		e.wake.Signal()
	}

	b.metrics.IncPublished()
	b.metrics.AddDelivered(len(entries))
}

// MessagesFor atomically detaches and returns client's full pending
// queue, leaving an empty queue in place. Returns nil if client is
// absent. The caller owns the returned slice.
func (b *Broker) MessagesFor(client identifiers.Client) []identifiers.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs, ok := b.queues[client]
	if !ok || len(msgs) == 0 {
		return nil
	}
	b.queues[client] = nil
	return msgs
}

// Stats is a derived, uncached snapshot of broker size.
type Stats struct {
	Clients int `json:"clients"`
	Topics  int `json:"topics"`
}

// StatsSnapshot returns the current Stats.
func (b *Broker) StatsSnapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Clients: len(b.queues), Topics: len(b.topics)}
}

// StatsJSON serializes StatsSnapshot for the /stats endpoint.
func (b *Broker) StatsJSON() ([]byte, error) {
	return json.Marshal(b.StatsSnapshot())
}
