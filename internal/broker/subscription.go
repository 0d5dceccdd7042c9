package broker

import (
	"sync"
	"sync/atomic"
)

// Subscription tracks one active destination consumer. Each adapter supplies
// its own worker strategy (native callback or explicit poll loop) behind
// this shape; the cancel hook releases the native consumer resource.
type Subscription struct {
	Destination string
	Handler     Handler

	running atomic.Bool
	cancel  func()
	once    sync.Once
}

// NewSubscription creates a running subscription whose cancel hook releases
// the native consumer when the subscription stops.
func NewSubscription(destination string, handler Handler, cancel func()) *Subscription {
	s := &Subscription{
		Destination: destination,
		Handler:     handler,
		cancel:      cancel,
	}
	s.running.Store(true)
	return s
}

// Running reports whether the subscription is still active. Poll-loop
// workers check this every iteration so cancellation is observed within
// one poll timeout.
func (s *Subscription) Running() bool {
	return s.running.Load()
}

// Stop flips the running flag and releases the native consumer exactly
// once. It does not wait for the worker to exit.
func (s *Subscription) Stop() {
	s.running.Store(false)
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// SubscriptionSet is the per-adapter table of active subscriptions,
// at most one per destination.
type SubscriptionSet struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewSubscriptionSet creates an empty subscription table
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{subs: make(map[string]*Subscription)}
}

// Add inserts the subscription unless the destination is already taken.
// Returns false when a subscription for the destination exists.
func (ss *SubscriptionSet) Add(sub *Subscription) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, exists := ss.subs[sub.Destination]; exists {
		return false
	}
	ss.subs[sub.Destination] = sub
	return true
}

// Has reports whether the destination has an active subscription
func (ss *SubscriptionSet) Has(destination string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	_, ok := ss.subs[destination]
	return ok
}

// Get returns the destination's subscription, or nil
func (ss *SubscriptionSet) Get(destination string) *Subscription {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.subs[destination]
}

// Remove deletes and returns the destination's subscription, or nil
func (ss *SubscriptionSet) Remove(destination string) *Subscription {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sub, ok := ss.subs[destination]
	if !ok {
		return nil
	}
	delete(ss.subs, destination)
	return sub
}

// Drain removes and returns every subscription
func (ss *SubscriptionSet) Drain() []*Subscription {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	drained := make([]*Subscription, 0, len(ss.subs))
	for _, sub := range ss.subs {
		drained = append(drained, sub)
	}
	ss.subs = make(map[string]*Subscription)
	return drained
}

// Len returns the number of active subscriptions
func (ss *SubscriptionSet) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.subs)
}
