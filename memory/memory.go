// Package memory implements flowagent.Store in process memory with a bounded
// number of sessions. The least recently used session is evicted once the
// capacity is reached.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/meikuraledutech/flowagent"
)

// DefaultCapacity is the session limit used when Options.Capacity is not positive.
const DefaultCapacity = 1000

// Options bound the store.
type Options struct {
	Capacity int // maximum sessions kept
	// MaxEntries caps entries per session, oldest dropped first. 0 means unbounded.
	MaxEntries int
}

type session struct {
	id      string
	entries []flowagent.SessionEntry
}

// Store is an LRU-bounded in-memory session store safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	capacity   int
	maxEntries int
	order      *list.List // front = most recently used
	sessions   map[string]*list.Element
	pins       map[string]int // sessions kept regardless of recency
}

var _ flowagent.Store = (*Store)(nil)

// New creates an empty Store.
func New(opts Options) *Store {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity:   capacity,
		maxEntries: opts.MaxEntries,
		order:      list.New(),
		sessions:   make(map[string]*list.Element),
		pins:       make(map[string]int),
	}
}

// Append implements flowagent.Store.
func (s *Store) Append(_ context.Context, sessionID string, entry flowagent.SessionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[sessionID]
	if !ok {
		el = s.order.PushFront(&session{id: sessionID, entries: []flowagent.SessionEntry{}})
		s.sessions[sessionID] = el
		s.evict(sessionID)
	} else {
		s.order.MoveToFront(el)
	}

	sess := el.Value.(*session)
	sess.entries = append(sess.entries, entry)
	if s.maxEntries > 0 && len(sess.entries) > s.maxEntries {
		trimmed := make([]flowagent.SessionEntry, s.maxEntries)
		copy(trimmed, sess.entries[len(sess.entries)-s.maxEntries:])
		sess.entries = trimmed
	}
	return nil
}

// Get implements flowagent.Store. The returned slice is a copy.
func (s *Store) Get(_ context.Context, sessionID string) ([]flowagent.SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[sessionID]
	if !ok {
		return nil, flowagent.ErrSessionNotFound
	}
	s.order.MoveToFront(el)

	entries := el.Value.(*session).entries
	out := make([]flowagent.SessionEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Clear implements flowagent.Store.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[sessionID]
	if !ok {
		return flowagent.ErrSessionNotFound
	}
	s.order.MoveToFront(el)
	el.Value.(*session).entries = []flowagent.SessionEntry{}
	return nil
}

// Len returns the number of sessions currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Pin keeps sessionID from being evicted until unpin is called. Pins nest.
// While pinned sessions fill the store it may hold more than Capacity sessions.
func (s *Store) Pin(sessionID string) (unpin func()) {
	s.mu.Lock()
	s.pins[sessionID]++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.pins[sessionID]--
			if s.pins[sessionID] <= 0 {
				delete(s.pins, sessionID)
			}
			s.evict("")
		})
	}
}

// evict drops least recently used unpinned sessions beyond capacity, never
// keep. Caller holds mu.
func (s *Store) evict(keep string) {
	el := s.order.Back()
	for s.order.Len() > s.capacity && el != nil {
		prev := el.Prev()
		id := el.Value.(*session).id
		if _, pinned := s.pins[id]; !pinned && id != keep {
			s.order.Remove(el)
			delete(s.sessions, id)
		}
		el = prev
	}
}
