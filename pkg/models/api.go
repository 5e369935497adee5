package models

// UpdateType identifies a message on the daemon's update stream.
type UpdateType string

const (
	UpdateInitial      UpdateType = "initial"
	UpdateScenarios    UpdateType = "scenarios"
	UpdateConfigReload UpdateType = "config_reload"
	UpdateSearch       UpdateType = "search"
)

// StreamUpdate is pushed to stream and websocket subscribers.
type StreamUpdate struct {
	Type       UpdateType       `json:"update_type"`
	Version    uint64           `json:"version,omitempty"`
	Scenarios  []SearchScenario `json:"scenarios,omitempty"`
	ConfigFile string           `json:"config_file,omitempty"`
	Search     *SearchSummary   `json:"search,omitempty"`
}

// SearchSummary describes a finished search without its results.
type SearchSummary struct {
	RunID        string `json:"run_id"`
	Term         string `json:"term"`
	ScenarioName string `json:"scenario_name"`
	ScenarioPath string `json:"scenario_path"`
	Results      int    `json:"results"`
	DurationMs   int64  `json:"duration_ms"`
	Status       string `json:"status"`
}

// SearchRequest selects a stored scenario by Index or carries an ad-hoc
// Scenario. Exactly one of them must be set.
type SearchRequest struct {
	Term     string          `json:"term"`
	Index    *int            `json:"index,omitempty"`
	Scenario *SearchScenario `json:"scenario,omitempty"`
}

// SearchResponse is the result of a search run.
type SearchResponse struct {
	RunID      string         `json:"run_id"`
	Term       string         `json:"term"`
	Scenario   SearchScenario `json:"scenario"`
	Results    []SearchResult `json:"results"`
	DurationMs int64          `json:"duration_ms"`
}

// CancelResponse reports how many runs a cancel request stopped.
type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}
