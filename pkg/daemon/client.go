// Package daemon provides a client for finderd.
// It implements a transparent fallback pattern: if the daemon is running,
// requests go over its socket; if not, the scenario file is used directly.
package daemon

import (
	"context"

	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/models"
)

// Client defines the operations available on the scenario collection and
// the search executor. Both RemoteClient and LocalClient implement it.
type Client interface {
	// Scenarios returns the current list.
	Scenarios(ctx context.Context) ([]models.SearchScenario, error)

	// Reset empties the list.
	Reset(ctx context.Context) error

	// SetAll replaces the list.
	SetAll(ctx context.Context, scenarios []models.SearchScenario) error

	// Add appends a scenario.
	Add(ctx context.Context, scenario models.SearchScenario) error

	// UpdateAt replaces the scenario at index.
	UpdateAt(ctx context.Context, index int, scenario models.SearchScenario) error

	// RemoveAt deletes the scenario at index.
	RemoveAt(ctx context.Context, index int) error

	// Search runs a stored or ad-hoc scenario.
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)

	// CancelSearch stops in-flight searches and returns how many were stopped.
	CancelSearch(ctx context.Context) (int, error)

	// StreamScenarios delivers an "initial" update followed by one update
	// per change until ctx is cancelled.
	StreamScenarios(ctx context.Context) (<-chan models.StreamUpdate, error)

	// History returns recent searches, newest first.
	History(ctx context.Context, limit int) ([]history.Entry, error)

	// ClearHistory deletes all recorded searches.
	ClearHistory(ctx context.Context) (int64, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}
