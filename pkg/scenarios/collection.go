// Package scenarios holds the ordered, observable list of saved search
// scenarios.
//
// A Collection is created explicitly and passed to whoever needs it; there
// is no package-level instance. Every mutation computes a new sequence and
// hands it to each observer in registration order, exactly once. Values
// are delivered in version order: the goroutine that finds no delivery in
// progress drains the queue, and a mutation made meanwhile (by another
// goroutine or by an observer) is queued behind it. Observers run without
// the internal lock held, so they may read from or mutate the collection.
package scenarios

import (
	"sync"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/models"
	"github.com/sirupsen/logrus"
)

// Collection is an ordered list of SearchScenario values with change
// notification. The zero value is not usable; call New.
type Collection struct {
	mu        sync.RWMutex
	items     []models.SearchScenario
	version   uint64
	observers observerList
	logger    *logrus.Entry

	pending    []publication
	delivering bool
}

// publication is one value waiting to be handed to regs.
type publication struct {
	version uint64
	value   []models.SearchScenario
	regs    []registration
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger used to report observer panics.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// New creates an empty collection.
func New(opts ...Option) *Collection {
	c := &Collection{items: []models.SearchScenario{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger("scenarios")
	}
	return c
}

// Reset replaces the contents with an empty sequence.
func (c *Collection) Reset() {
	c.mu.Lock()
	c.items = []models.SearchScenario{}
	c.publishLocked()
}

// SetAll replaces the contents with a copy of scenarios.
func (c *Collection) SetAll(scenarios []models.SearchScenario) {
	c.mu.Lock()
	c.items = clone(scenarios)
	c.publishLocked()
}

// Add appends a scenario.
func (c *Collection) Add(scenario models.SearchScenario) {
	c.mu.Lock()
	next := make([]models.SearchScenario, len(c.items), len(c.items)+1)
	copy(next, c.items)
	c.items = append(next, scenario)
	c.publishLocked()
}

// UpdateAt replaces the scenario at index. An out-of-range index returns an
// INDEX_OUT_OF_RANGE error and leaves the collection untouched.
func (c *Collection) UpdateAt(index int, scenario models.SearchScenario) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		n := len(c.items)
		c.mu.Unlock()
		return errors.IndexOutOfRange(index, n)
	}
	next := clone(c.items)
	next[index] = scenario
	c.items = next
	c.publishLocked()
	return nil
}

// RemoveAt deletes the scenario at index; later scenarios shift down by one.
// An out-of-range index returns an INDEX_OUT_OF_RANGE error and leaves the
// collection untouched.
func (c *Collection) RemoveAt(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		n := len(c.items)
		c.mu.Unlock()
		return errors.IndexOutOfRange(index, n)
	}
	next := make([]models.SearchScenario, 0, len(c.items)-1)
	next = append(next, c.items[:index]...)
	next = append(next, c.items[index+1:]...)
	c.items = next
	c.publishLocked()
	return nil
}

// Subscribe registers observer and calls it with the current sequence
// before any later value. The returned function unregisters it; calling it
// more than once is a no-op.
func (c *Collection) Subscribe(observer Observer) (unsubscribe func()) {
	return c.SubscribeVersioned(func(_ uint64, value []models.SearchScenario) {
		observer(value)
	})
}

// SubscribeVersioned is Subscribe for observers that also want the version
// each value corresponds to.
func (c *Collection) SubscribeVersioned(observer VersionedObserver) (unsubscribe func()) {
	c.mu.Lock()
	id := c.observers.register(observer)
	c.pending = append(c.pending, publication{
		version: c.version,
		value:   c.items,
		regs:    []registration{{id: id, fn: observer}},
	})
	c.flushLocked()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.observers.unregister(id)
			c.mu.Unlock()
		})
	}
}

// Scenarios returns a copy of the current sequence.
func (c *Collection) Scenarios() []models.SearchScenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.items)
}

// At returns the scenario at index.
func (c *Collection) At(index int) (models.SearchScenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.items) {
		return models.SearchScenario{}, errors.IndexOutOfRange(index, len(c.items))
	}
	return c.items[index], nil
}

// Len returns the number of scenarios.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Version is incremented once per mutation.
func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// ObserverCount returns the number of registered observers.
func (c *Collection) ObserverCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.observers.len()
}

// publishLocked must be called with c.mu held; it releases the lock.
func (c *Collection) publishLocked() {
	c.version++
	c.pending = append(c.pending, publication{
		version: c.version,
		value:   c.items,
		regs:    c.observers.snapshot(),
	})
	c.flushLocked()
}

// flushLocked must be called with c.mu held; it releases the lock. If
// another call is already delivering, the queued values are left to it.
func (c *Collection) flushLocked() {
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.pending) > 0 {
		p := c.pending[0]
		c.pending[0] = publication{}
		c.pending = c.pending[1:]
		regs := c.observers.live(p.regs)
		c.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"version":   p.version,
			"count":     len(p.value),
			"observers": len(regs),
		}).Debug("Scenarios changed")
		notify(regs, p.version, p.value, c.logger)

		c.mu.Lock()
	}
	c.pending = nil
	c.delivering = false
	c.mu.Unlock()
}

func clone(in []models.SearchScenario) []models.SearchScenario {
	out := make([]models.SearchScenario, len(in))
	copy(out, in)
	return out
}
