// Package apiclient talks to the camera backend over JSON/HTTP.
//
// Every call takes a context. When the context carries no deadline the
// client's default timeout is applied, except for the download progress
// stream which lives until the caller cancels it or closes the body.
package apiclient

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

	"camdash/internal/model"
)

const (
	// DefaultTimeout is applied to calls whose context has no deadline.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "camdash"
)

// Outcomes reported to the observer.
const (
	OutcomeOK          = "ok"
	OutcomeBackend     = "backend_error"
	OutcomeUnavailable = "unavailable"
)

// Backend is the set of backend operations the dashboard relies on.
type Backend interface {
	Cameras(ctx context.Context) ([]model.Camera, error)
	Stores(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (model.Stats, error)
	Mark(ctx context.Context, id, note string) error
	Unmark(ctx context.Context, id string) error
	StartDownload(ctx context.Context) error
	DownloadStream(ctx context.Context) (io.ReadCloser, error)
	ExportMarked(ctx context.Context) ([]model.MarkedExport, error)
	VisionStatus(ctx context.Context) (model.VisionStatus, error)
	VisionCache(ctx context.Context) (model.ScoreCache, error)
	AutoLearn(ctx context.Context) (int, error)
	AnalyzeAll(ctx context.Context, mode model.AnalysisMode) (model.AnalysisSummary, error)
	Compare(ctx context.Context, loja string, position model.Position, imagePath string) (model.Comparison, error)
	SetReference(ctx context.Context, loja string, position model.Position, imagePath string) error
	DeleteReference(ctx context.Context, loja string, position model.Position) error
	References(ctx context.Context) (model.ReferenceIndex, error)
	ClearReferences(ctx context.Context) (int, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:5000.
	BaseURL string
	// DefaultTimeout is applied when the request context has no deadline.
	DefaultTimeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// HTTPClient overrides the underlying client. Nil uses a client on
	// http.DefaultTransport.
	HTTPClient *http.Client
}

// Observer receives one call per finished backend request.
type Observer func(endpoint, outcome string, elapsed time.Duration)

// Client implements Backend over HTTP. Safe for concurrent use.
type Client struct {
	base           *url.URL
	http           *http.Client
	defaultTimeout time.Duration
	userAgent      string

	mu       sync.RWMutex
	observer Observer
}

var _ Backend = (*Client)(nil)

// New creates a client for the backend at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("backend url %q has no host", cfg.BaseURL)
	}

	c := &Client{
		base:           base,
		http:           cfg.HTTPClient,
		defaultTimeout: cfg.DefaultTimeout,
		userAgent:      cfg.UserAgent,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.defaultTimeout <= 0 {
		c.defaultTimeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c, nil
}

// SetObserver installs a hook called after every request.
func (c *Client) SetObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// BaseURL returns the backend root the client was configured with.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	c.mu.RLock()
	fn := c.observer
	c.mu.RUnlock()
	if fn != nil {
		fn(endpoint, outcome, time.Since(start))
	}
}

func (c *Client) endpointURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.base.String(), "/") + "/" + strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// envelope is the common shape of every backend answer.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// call performs one JSON round trip. endpoint is the metrics label; out, when
// non-nil, receives the full decoded body after the envelope check.
func (c *Client) call(ctx context.Context, endpoint, method string, segments []string, body, out any) error {
	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, c.endpointURL(segments...), body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, OutcomeUnavailable, start)
		return unavailable("call "+endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, OutcomeUnavailable, start)
		return unavailable("read "+endpoint+" response", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.observe(endpoint, OutcomeUnavailable, start)
		return unavailable("decode "+endpoint+" response", err)
	}
	if !env.Success {
		c.observe(endpoint, OutcomeBackend, start)
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &BackendError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			c.observe(endpoint, OutcomeUnavailable, start)
			return unavailable("decode "+endpoint+" payload", err)
		}
	}
	c.observe(endpoint, OutcomeOK, start)
	return nil
}

// Cameras lists every camera snapshot version.
func (c *Client) Cameras(ctx context.Context) ([]model.Camera, error) {
	var out struct {
		Cameras []model.Camera `json:"cameras"`
	}
	if err := c.call(ctx, "cameras", http.MethodGet, []string{"api", "cameras"}, nil, &out); err != nil {
		return nil, err
	}
	return out.Cameras, nil
}

// Stores lists the distinct store names.
func (c *Client) Stores(ctx context.Context) ([]string, error) {
	var out struct {
		Stores []string `json:"stores"`
	}
	if err := c.call(ctx, "stores", http.MethodGet, []string{"api", "stores"}, nil, &out); err != nil {
		return nil, err
	}
	return out.Stores, nil
}

// Stats returns the aggregate counters.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var out struct {
		Stats model.Stats `json:"stats"`
	}
	if err := c.call(ctx, "stats", http.MethodGet, []string{"api", "stats"}, nil, &out); err != nil {
		return model.Stats{}, err
	}
	return out.Stats, nil
}

// Mark flags a camera as bad.
func (c *Client) Mark(ctx context.Context, id, note string) error {
	body := map[string]string{"note": note}
	return c.call(ctx, "mark", http.MethodPost, []string{"api", "cameras", id, "mark"}, body, nil)
}

// Unmark clears the bad flag.
func (c *Client) Unmark(ctx context.Context, id string) error {
	return c.call(ctx, "unmark", http.MethodPost, []string{"api", "cameras", id, "unmark"}, nil, nil)
}

// StartDownload begins a bulk image refresh on the backend.
func (c *Client) StartDownload(ctx context.Context) error {
	return c.call(ctx, "download_start", http.MethodPost, []string{"api", "download", "start"}, nil, nil)
}

// DownloadStream opens the progress event stream. No default timeout is
// applied; the caller owns the returned body and must close it.
func (c *Client) DownloadStream(ctx context.Context) (io.ReadCloser, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, http.MethodGet, c.endpointURL("api", "download", "status-stream"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("download_stream", OutcomeUnavailable, start)
		return nil, unavailable("open download stream", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var env envelope
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env)
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		c.observe("download_stream", OutcomeBackend, start)
		return nil, &BackendError{Status: resp.StatusCode, Message: msg}
	}

	c.observe("download_stream", OutcomeOK, start)
	return resp.Body, nil
}

// ExportMarked lists marked cameras for the CSV export.
func (c *Client) ExportMarked(ctx context.Context) ([]model.MarkedExport, error) {
	var out struct {
		Cameras []model.MarkedExport `json:"cameras"`
	}
	if err := c.call(ctx, "export_marked", http.MethodGet, []string{"api", "export", "marked"}, nil, &out); err != nil {
		return nil, err
	}
	return out.Cameras, nil
}

// VisionStatus reports whether image comparison is available.
func (c *Client) VisionStatus(ctx context.Context) (model.VisionStatus, error) {
	var out model.VisionStatus
	if err := c.call(ctx, "vision_status", http.MethodGet, []string{"api", "vision", "status"}, nil, &out); err != nil {
		return model.VisionStatus{}, err
	}
	return out, nil
}

// VisionCache fetches the backend's score cache keyed by base id.
func (c *Client) VisionCache(ctx context.Context) (model.ScoreCache, error) {
	var out struct {
		Cache model.ScoreCache `json:"cache"`
	}
	if err := c.call(ctx, "vision_cache", http.MethodGet, []string{"api", "vision", "cache"}, nil, &out); err != nil {
		return nil, err
	}
	if out.Cache == nil {
		out.Cache = model.ScoreCache{}
	}
	return out.Cache, nil
}

// AutoLearn saves the latest image of every slot as its reference and
// returns how many references were learned.
func (c *Client) AutoLearn(ctx context.Context) (int, error) {
	var out struct {
		Learned []json.RawMessage `json:"learned"`
	}
	if err := c.call(ctx, "auto_learn", http.MethodPost, []string{"api", "vision", "auto-learn"}, nil, &out); err != nil {
		return 0, err
	}
	return len(out.Learned), nil
}

// AnalyzeAll scores every latest camera against its reference.
func (c *Client) AnalyzeAll(ctx context.Context, mode model.AnalysisMode) (model.AnalysisSummary, error) {
	body := map[string]string{"analysis_mode": string(mode)}
	var out model.AnalysisSummary
	if err := c.call(ctx, "analyze_all", http.MethodPost, []string{"api", "vision", "analyze-all"}, body, &out); err != nil {
		return model.AnalysisSummary{}, err
	}
	return out, nil
}

// Compare scores one image against the reference of its slot.
func (c *Client) Compare(ctx context.Context, loja string, position model.Position, imagePath string) (model.Comparison, error) {
	body := map[string]string{
		"loja":       loja,
		"position":   string(position),
		"image_path": imagePath,
	}
	var out struct {
		Result model.Comparison `json:"result"`
	}
	if err := c.call(ctx, "compare", http.MethodPost, []string{"api", "vision", "compare"}, body, &out); err != nil {
		return model.Comparison{}, err
	}
	return out.Result, nil
}

// SetReference saves imagePath as the reference of a slot.
func (c *Client) SetReference(ctx context.Context, loja string, position model.Position, imagePath string) error {
	body := map[string]string{"image_path": imagePath}
	return c.call(ctx, "reference_set", http.MethodPost,
		[]string{"api", "vision", "reference", loja, string(position)}, body, nil)
}

// DeleteReference removes the reference of a slot.
func (c *Client) DeleteReference(ctx context.Context, loja string, position model.Position) error {
	return c.call(ctx, "reference_delete", http.MethodDelete,
		[]string{"api", "vision", "reference", loja, string(position)}, nil, nil)
}

// References lists the saved references nested by store and position.
func (c *Client) References(ctx context.Context) (model.ReferenceIndex, error) {
	var out struct {
		References model.ReferenceIndex `json:"references"`
	}
	if err := c.call(ctx, "references", http.MethodGet, []string{"api", "vision", "references"}, nil, &out); err != nil {
		return nil, err
	}
	if out.References == nil {
		out.References = model.ReferenceIndex{}
	}
	return out.References, nil
}

// ClearReferences removes every reference and returns how many were deleted.
func (c *Client) ClearReferences(ctx context.Context) (int, error) {
	var out struct {
		Deleted int `json:"deleted_count"`
	}
	if err := c.call(ctx, "references_clear", http.MethodDelete, []string{"api", "vision", "references", "clear"}, nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}
