// Package store fans scenario collection changes out to daemon clients.
package store

import (
	"sync"

	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/scenarios"
)

// subscriberBuffer bounds each client's queue. A full queue drops the
// update; the next change carries the complete list again.
const subscriberBuffer = 16

// Store bridges the synchronous collection observers to per-client channels.
// It is thread-safe.
type Store struct {
	coll *scenarios.Collection

	mu          sync.RWMutex
	subscribers map[chan models.StreamUpdate]struct{}
	unsubscribe func()
	closed      bool

	// latest is the newest list received from the collection.
	latest  []models.SearchScenario
	version uint64
	seeded  bool
}

// New creates a Store that follows coll until Close.
func New(coll *scenarios.Collection) *Store {
	s := &Store{
		coll:        coll,
		subscribers: make(map[chan models.StreamUpdate]struct{}),
	}
	s.unsubscribe = coll.SubscribeVersioned(func(version uint64, list []models.SearchScenario) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// The collection hands over its current value on subscribe; clients
		// get that through Subscribe instead.
		if !s.seeded {
			s.seeded = true
			s.latest, s.version = list, version
			return
		}
		if version <= s.version {
			return
		}
		s.latest, s.version = list, version
		s.sendLocked(models.StreamUpdate{
			Type:      models.UpdateScenarios,
			Version:   version,
			Scenarios: list,
		})
	})
	return s
}

// Collection returns the collection the store follows.
func (s *Store) Collection() *scenarios.Collection {
	return s.coll
}

// Subscribe registers a client and returns its channel together with an
// "initial" update holding the current list.
func (s *Store) Subscribe() (chan models.StreamUpdate, models.StreamUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan models.StreamUpdate, subscriberBuffer)
	if s.closed {
		close(ch)
	} else {
		s.subscribers[ch] = struct{}{}
	}
	initial := models.StreamUpdate{
		Type:      models.UpdateInitial,
		Version:   s.version,
		Scenarios: cloneList(s.latest),
	}
	return ch, initial
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan models.StreamUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of connected clients.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// BroadcastConfigReload tells clients that a configuration file changed.
func (s *Store) BroadcastConfigReload(file string) {
	s.broadcast(models.StreamUpdate{
		Type:       models.UpdateConfigReload,
		ConfigFile: file,
	})
}

// BroadcastSearch tells clients that a search finished.
func (s *Store) BroadcastSearch(summary models.SearchSummary) {
	s.broadcast(models.StreamUpdate{
		Type:   models.UpdateSearch,
		Search: &summary,
	})
}

// Close stops following the collection and closes every subscriber.
func (s *Store) Close() {
	s.unsubscribe()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Store) broadcast(u models.StreamUpdate) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.sendLocked(u)
}

// sendLocked must be called with s.mu held.
func (s *Store) sendLocked(u models.StreamUpdate) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling mutations
		}
	}
}

func cloneList(in []models.SearchScenario) []models.SearchScenario {
	out := make([]models.SearchScenario, len(in))
	copy(out, in)
	return out
}
