package scenarios

import (
	"github.com/grovetools/finder/pkg/models"
	"github.com/sirupsen/logrus"
)

// Observer receives every new value of a Collection.
type Observer func([]models.SearchScenario)

// VersionedObserver receives every new value together with its version.
type VersionedObserver func(version uint64, value []models.SearchScenario)

type registration struct {
	id uint64
	fn VersionedObserver
}

// observerList keeps observers in registration order. It is not safe for
// concurrent use; Collection guards it with its own mutex.
type observerList struct {
	nextID  uint64
	entries []registration
}

func (l *observerList) register(fn VersionedObserver) uint64 {
	l.nextID++
	l.entries = append(l.entries, registration{id: l.nextID, fn: fn})
	return l.nextID
}

// unregister removes the observer with the given id. Unknown ids are ignored.
func (l *observerList) unregister(id uint64) bool {
	for i, r := range l.entries {
		if r.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *observerList) len() int {
	return len(l.entries)
}

// live filters regs down to those still registered.
func (l *observerList) live(regs []registration) []registration {
	out := regs[:0:0]
	for _, r := range regs {
		for _, e := range l.entries {
			if e.id == r.id {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// snapshot returns the current registrations so they can be notified
// without holding the collection lock.
func (l *observerList) snapshot() []registration {
	out := make([]registration, len(l.entries))
	copy(out, l.entries)
	return out
}

// notify calls each observer in order with its own copy of value. A
// panicking observer is logged and does not stop delivery to the rest.
func notify(regs []registration, version uint64, value []models.SearchScenario, logger *logrus.Entry) {
	for _, r := range regs {
		deliver(r, version, clone(value), logger)
	}
}

func deliver(r registration, version uint64, value []models.SearchScenario, logger *logrus.Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(logrus.Fields{
				"observer": r.id,
				"panic":    rec,
			}).Error("Scenario observer panicked")
		}
	}()
	r.fn(version, value)
}
