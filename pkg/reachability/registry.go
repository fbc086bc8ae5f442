package reachability

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/runtime"
)

// ChangeTopic is the topic every Monitor publishes to unless configured
// otherwise.
const ChangeTopic = "reachd.reachability.changed"

// subscriberBuffer is the channel buffer of each subscription. Events beyond
// it wait in the subscription's queue, never in the publisher.
const subscriberBuffer = 8

// Event describes one observed reachability transition.
type Event struct {
	Topic     string    `json:"topic"`
	Status    Status    `json:"status"`
	Reachable bool      `json:"reachable"`
	Host      string    `json:"host,omitempty"`
	Monitor   uuid.UUID `json:"monitor"`
	Time      time.Time `json:"time"`
}

// Subscription is a registration on one topic of a Registry.
type Subscription struct {
	id    uuid.UUID
	topic string
	queue *runtime.SubQueue[Event]
}

func (s *Subscription) ID() uuid.UUID { return s.id }

func (s *Subscription) Topic() string { return s.topic }

// C returns the channel events are delivered on. It is closed once the
// subscription is removed or the registry is closed.
func (s *Subscription) C() <-chan Event { return s.queue.Chan() }

// Registry is a topic-based publish/subscribe hub. Publishing never blocks
// on subscribers: each subscription has its own ordered queue.
type Registry struct {
	mu     sync.Mutex
	topics map[string]map[uuid.UUID]*Subscription
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]map[uuid.UUID]*Subscription),
	}
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// DefaultRegistry returns the process-wide registry Monitors publish to by
// default. It is created on first use and lives until the process exits.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

func (r *Registry) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		id:    uuid.New(),
		topic: topic,
		queue: runtime.NewSubQueue[Event](subscriberBuffer),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		sub.queue.Close()
		return sub
	}
	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[uuid.UUID]*Subscription)
		r.topics[topic] = subs
	}
	subs[sub.id] = sub

	log.WithFields(log.Fields{
		"topic":        topic,
		"subscription": sub.id,
	}).Trace("Subscribed")
	return sub
}

// SubscribeFunc subscribes to topic and calls fn for each event on a
// dedicated goroutine until the subscription is removed.
func (r *Registry) SubscribeFunc(topic string, fn func(Event)) *Subscription {
	sub := r.Subscribe(topic)
	go func() {
		for ev := range sub.C() {
			fn(ev)
		}
	}()
	return sub
}

// Unsubscribe removes sub and closes its channel. Removing a subscription
// twice is a no-op.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	if subs, ok := r.topics[sub.topic]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(r.topics, sub.topic)
		}
	}
	r.mu.Unlock()

	sub.queue.Close()
}

// Publish delivers ev to every current subscriber of topic and returns how
// many subscribers it was queued for. Subscribers added while a publish is
// in progress may miss that event.
func (r *Registry) Publish(topic string, ev Event) int {
	ev.Topic = topic

	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.topics[topic]))
	for _, sub := range r.topics[topic] {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if sub.queue.Enqueue(ev) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of subscriptions on topic.
func (r *Registry) Subscribers(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// Close removes every subscription. Later subscriptions are returned
// already closed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	topics := r.topics
	r.topics = make(map[string]map[uuid.UUID]*Subscription)
	r.mu.Unlock()

	for _, subs := range topics {
		for _, sub := range subs {
			sub.queue.Close()
		}
	}
}
