// Package supabase is a small client for the hosted auth (GoTrue) and row
// (PostgREST) APIs the console depends on. It keeps the current session in
// memory, persists it through a SessionStore and broadcasts every session
// change to subscribers.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivalora-gadget/console/internal/account"
)

const (
	authPrefix = "/auth/v1"
	restPrefix = "/rest/v1"
)

// Config identifies a hosted project
type Config struct {
	URL     string
	AnonKey string
}

// Client represents a connection to one hosted project
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	store      SessionStore
	logger     zerolog.Logger
	now        func() time.Time

	// mu is the session lock. It is held while listeners run.
	mu       sync.Mutex
	session  *account.Session
	loaded   bool
	recovery bool

	lmu       sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// New creates a new client for the project
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:     NewMemoryStore(),
		logger:    zerolog.Nop(),
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetStore sets where sessions are persisted between runs
func (c *Client) SetStore(store SessionStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
	c.loaded = false
}

// SetLogger sets the logger used for best-effort failures
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger.With().Str("component", "supabase").Logger()
}

// SetClock overrides the time source (used by tests)
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// request describes one call against the hosted API
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string
	header http.Header
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, values := range r.header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
