package session

import (
	"sync"

	"github.com/google/uuid"
)

// Identity is the manager's read-only projection of an authenticated account.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
}

// Snapshot is one observed session state: either a present identity or none.
type Snapshot struct {
	Authenticated bool      `json:"authenticated"`
	Identity      *Identity `json:"identity,omitempty"`
}

// Hub fans session-state snapshots out to subscribers. Streams are keyed by
// session token hash; every subscriber receives its own ordered sequence.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	metrics Metrics
}

// NewHub creates a Hub. metrics may be nil.
func NewHub(metrics Metrics) *Hub {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		metrics: metrics,
	}
}

// Subscription is a live, cancellable stream of session snapshots.
// The initial snapshot is delivered exactly once, before any pushed change.
type Subscription struct {
	// C delivers snapshots in publish order. It is closed after Unsubscribe.
	C <-chan Snapshot

	hub  *Hub
	key  string
	once sync.Once

	mu      sync.Mutex
	pending []Snapshot
	wake    chan struct{}
	done    chan struct{}
	out     chan Snapshot
}

// Subscribe registers a new subscriber for the given stream key. The provided
// snapshot is queued immediately so the first receive never blocks on a state
// change.
func (h *Hub) Subscribe(key string, initial Snapshot) *Subscription {
	out := make(chan Snapshot)
	sub := &Subscription{
		C:       out,
		hub:     h,
		key:     key,
		pending: []Snapshot{initial},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     out,
	}

	h.mu.Lock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.SubscriptionOpened()
	go sub.dispatch()
	return sub
}

// Publish pushes a snapshot to every subscriber of the given stream key.
// Slow subscribers queue; publishers never block.
func (h *Hub) Publish(key string, snapshot Snapshot) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[key]))
	for sub := range h.subs[key] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.enqueue(snapshot)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.key)
		}
	}
	h.mu.Unlock()

	h.metrics.SubscriptionClosed()
}

// Unsubscribe halts delivery and releases the subscriber. It is idempotent.
// At most one snapshot already offered to a concurrent receiver can still
// arrive; everything else queued is dropped.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

func (s *Subscription) enqueue(snapshot Snapshot) {
	s.mu.Lock()
	s.pending = append(s.pending, snapshot)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) dispatch() {
	defer close(s.out)
	for {
		s.mu.Lock()
		queue := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, snapshot := range queue {
			// Checked separately first: a combined select could pick the
			// send over an already-closed done when a receiver is ready.
			select {
			case <-s.done:
				return
			default:
			}
			select {
			case s.out <- snapshot:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
