package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/models"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
	baseURL    string
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) *RemoteClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &RemoteClient{
		// No client timeout: searches are bounded by the daemon's own
		// timeout and callers pass contexts.
		httpClient: &http.Client{Transport: transport},
		socketPath: socketPath,
		baseURL:    baseURL,
	}
}

// newHTTPRemoteClient talks to a daemon over plain HTTP; used in tests.
func newHTTPRemoteClient(url string, client *http.Client) *RemoteClient {
	return &RemoteClient{httpClient: client, baseURL: url}
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Error responses are turned back into *errors.GroveError.
func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.SearchCancelled()
		}
		return errors.DaemonUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}
	return &errors.GroveError{
		Code:    errors.ErrorCode(body.Code),
		Message: body.Message,
		Details: body.Details,
	}
}

// Scenarios returns the daemon's list.
func (c *RemoteClient) Scenarios(ctx context.Context) ([]models.SearchScenario, error) {
	var list []models.SearchScenario
	if err := c.do(ctx, http.MethodGet, "/api/scenarios", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Reset empties the daemon's list.
func (c *RemoteClient) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/scenarios", nil, nil)
}

// SetAll replaces the daemon's list.
func (c *RemoteClient) SetAll(ctx context.Context, list []models.SearchScenario) error {
	if list == nil {
		list = []models.SearchScenario{}
	}
	return c.do(ctx, http.MethodPut, "/api/scenarios", list, nil)
}

// Add appends a scenario.
func (c *RemoteClient) Add(ctx context.Context, scenario models.SearchScenario) error {
	return c.do(ctx, http.MethodPost, "/api/scenarios", scenario, nil)
}

// UpdateAt replaces the scenario at index.
func (c *RemoteClient) UpdateAt(ctx context.Context, index int, scenario models.SearchScenario) error {
	return c.do(ctx, http.MethodPut, "/api/scenarios/"+strconv.Itoa(index), scenario, nil)
}

// RemoveAt deletes the scenario at index.
func (c *RemoteClient) RemoveAt(ctx context.Context, index int) error {
	return c.do(ctx, http.MethodDelete, "/api/scenarios/"+strconv.Itoa(index), nil, nil)
}

// Search runs a search in the daemon.
func (c *RemoteClient) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelSearch cancels every search running in the daemon.
func (c *RemoteClient) CancelSearch(ctx context.Context) (int, error) {
	var resp models.CancelResponse
	if err := c.do(ctx, http.MethodPost, "/api/search/cancel", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Cancelled, nil
}

// History returns recent searches recorded by the daemon.
func (c *RemoteClient) History(ctx context.Context, limit int) ([]history.Entry, error) {
	var entries []history.Entry
	if err := c.do(ctx, http.MethodGet, "/api/history?limit="+strconv.Itoa(limit), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearHistory deletes the daemon's search history.
func (c *RemoteClient) ClearHistory(ctx context.Context) (int64, error) {
	var resp map[string]int64
	if err := c.do(ctx, http.MethodDelete, "/api/history", nil, &resp); err != nil {
		return 0, err
	}
	return resp["deleted"], nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamScenarios subscribes to updates via Server-Sent Events (SSE).
// The channel is closed when the context is cancelled or the connection
// is lost.
func (c *RemoteClient) StreamScenarios(ctx context.Context) (<-chan models.StreamUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.DaemonUnavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	ch := make(chan models.StreamUpdate, 10)
	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		// Large scenario lists exceed the default 64KB line limit.
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			update, ok := parseEvent(scanner.Text())
			if !ok {
				continue
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// parseEvent decodes an SSE "data:" line. Comments, event names and
// malformed payloads are skipped.
func parseEvent(line string) (models.StreamUpdate, bool) {
	var update models.StreamUpdate
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return update, false
	}
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		return update, false
	}
	return update, true
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
