package distributor

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

// Subscriber is a live client connection. Send must not block; it reports
// whether the event was accepted.
type Subscriber interface {
	ID() string
	Send(event domain.Event) bool
}

// Distributor fans events out to subscribers by topic. Delivery is
// best-effort: a subscriber that cannot keep up has events dropped rather
// than stalling the publisher. Nothing is retained for offline subscribers;
// the persisted notification is the durable fallback.
type Distributor struct {
	mu     sync.RWMutex
	topics map[string]map[string]Subscriber

	dropped atomic.Int64
}

func New() *Distributor {
	return &Distributor{
		topics: make(map[string]map[string]Subscriber),
	}
}

func (d *Distributor) Join(topic string, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs, ok := d.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		d.topics[topic] = subs
	}
	subs[sub.ID()] = sub
}

func (d *Distributor) Leave(topic, subscriberID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if subs, ok := d.topics[topic]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(d.topics, topic)
		}
	}
}

// LeaveAll removes the subscriber from every topic.
func (d *Distributor) LeaveAll(subscriberID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for topic, subs := range d.topics {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(d.topics, topic)
		}
	}
}

// Publish delivers the event to every subscriber of the given topics. A
// subscriber joined to more than one matching topic receives the event once.
func (d *Distributor) Publish(event domain.Event, topics ...string) {
	d.mu.RLock()
	targets := make(map[string]Subscriber)
	for _, topic := range topics {
		for id, sub := range d.topics[topic] {
			targets[id] = sub
		}
	}
	d.mu.RUnlock()

	for id, sub := range targets {
		if !sub.Send(event) {
			d.dropped.Add(1)
			log.Printf("distributor: dropped %s event for slow subscriber %s", event.Type, id)
		}
	}
}

// Dropped reports how many sends were discarded due to backpressure.
func (d *Distributor) Dropped() int64 {
	return d.dropped.Load()
}

// SubscriberCount reports the current membership of a topic.
func (d *Distributor) SubscriberCount(topic string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.topics[topic])
}
