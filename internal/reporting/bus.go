package reporting

import (
	"fmt"
	"sync"
	"time"
)

// Filter decides whether a subscription should see an event.
type Filter func(ProgressEvent) bool

// Handler processes an event delivered to a func subscription. Handlers are
// called synchronously in publish order for a given publisher; they must not
// block.
type Handler func(ProgressEvent)

// Subscription is one scoped registration on the Bus. Each subscriber gets
// its own Subscription and tears it down explicitly with Close (or
// Bus.Unsubscribe); there is no shared, filter-it-yourself stream.
type Subscription struct {
	id      string
	filter  Filter
	handler Handler
	ch      chan ProgressEvent
	closed  bool
	mu      sync.Mutex
}

// Events returns the subscription's channel. Nil for func subscriptions.
func (s *Subscription) Events() <-chan ProgressEvent {
	return s.ch
}

// Close closes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.ch != nil {
		close(s.ch)
	}
}

// IsClosed reports whether the subscription has been closed.
func (s *Subscription) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// BusMetrics tracks bus activity.
type BusMetrics struct {
	TotalSubscriptions  int
	ActiveSubscriptions int
	EventsPublished     int64
	EventsDelivered     int64
	EventsDropped       int64
	LastEventTime       time.Time
}

// Bus is the progress event stream between the process supervisor and
// whoever is listening (progress relays, the interactive surface).
// Channel deliveries never block: a full subscriber buffer drops the event
// and counts it.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	metrics       BusMetrics
	nextID        int64
	closed        bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscriptions: make(map[string]*Subscription)}
}

// Publish delivers the event to every live subscription whose filter
// matches.
func (b *Bus) Publish(event ProgressEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for id, sub := range b.subscriptions {
		if sub.IsClosed() {
			delete(b.subscriptions, id)
			b.metrics.ActiveSubscriptions--
			continue
		}
		subs = append(subs, sub)
	}
	b.metrics.EventsPublished++
	b.metrics.LastEventTime = event.Timestamp
	b.mu.Unlock()

	var delivered, dropped int64
	for _, sub := range subs {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		if sub.handler != nil {
			sub.handler(event)
			delivered++
			continue
		}
		select {
		case sub.ch <- event:
			delivered++
		default:
			dropped++
		}
	}

	b.mu.Lock()
	b.metrics.EventsDelivered += delivered
	b.metrics.EventsDropped += dropped
	b.mu.Unlock()
}

// Subscribe registers a channel subscription with the given buffer size.
// Returns nil once the bus is closed.
func (b *Bus) Subscribe(filter Filter, bufferSize int) *Subscription {
	return b.register(&Subscription{
		filter: filter,
		ch:     make(chan ProgressEvent, bufferSize),
	})
}

// SubscribeFunc registers a handler subscription. The handler runs inline on
// the publisher's goroutine, so per-service event ordering is preserved.
func (b *Bus) SubscribeFunc(filter Filter, handler Handler) *Subscription {
	return b.register(&Subscription{filter: filter, handler: handler})
}

func (b *Bus) register(sub *Subscription) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.nextID++
	sub.id = fmt.Sprintf("sub-%d", b.nextID)
	b.subscriptions[sub.id] = sub
	b.metrics.TotalSubscriptions++
	b.metrics.ActiveSubscriptions++
	return sub
}

// Unsubscribe closes and removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscriptions[sub.id]; ok {
		sub.Close()
		delete(b.subscriptions, sub.id)
		b.metrics.ActiveSubscriptions--
	}
}

// Metrics returns a snapshot of bus counters.
func (b *Bus) Metrics() BusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// Close shuts the bus down and closes every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, sub := range b.subscriptions {
		sub.Close()
	}
	b.subscriptions = make(map[string]*Subscription)
	b.metrics.ActiveSubscriptions = 0
}

// FilterByService matches events for one service name. This is the scoped
// subscription a progress relay uses for a single descriptor's window.
func FilterByService(name string) Filter {
	return func(event ProgressEvent) bool {
		return event.ServiceName == name
	}
}

// FilterByStatus matches events carrying any of the given phases.
func FilterByStatus(statuses ...Status) Filter {
	set := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return func(event ProgressEvent) bool {
		return set[event.Status]
	}
}

// CombineFilters combines filters with AND logic.
func CombineFilters(filters ...Filter) Filter {
	return func(event ProgressEvent) bool {
		for _, f := range filters {
			if !f(event) {
				return false
			}
		}
		return true
	}
}
