package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Cross-encoder defaults.
const (
	DefaultRerankTimeout = 10 * time.Second
)

// RerankScore pairs an input position with its cross-encoder relevance.
type RerankScore struct {
	// Index is the position in the input documents slice.
	Index int
	// Score is the raw relevance score. Higher is more relevant; the
	// scale is model-specific.
	Score float64
}

// CrossEncoder scores (query, document) pairs jointly. It is an optional
// external capability: when absent or failing, the engine orders results
// by fused score alone.
type CrossEncoder interface {
	// Score returns one relevance score per document, aligned with the
	// input order.
	Score(ctx context.Context, query string, documents []string) ([]RerankScore, error)

	// Available checks if the cross-encoder service is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// HTTPCrossEncoderConfig configures the cross-encoder service client.
type HTTPCrossEncoderConfig struct {
	// Endpoint is the service base URL (required).
	Endpoint string
	// Model is an optional model alias forwarded to the service.
	Model string
	// Timeout bounds each request (default: 10s).
	Timeout time.Duration
	// SkipHealthCheck skips the startup health probe (for testing).
	SkipHealthCheck bool
}

// HTTPCrossEncoder calls an external cross-encoder service over HTTP.
type HTTPCrossEncoder struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

var _ CrossEncoder = (*HTTPCrossEncoder)(nil)

// NewHTTPCrossEncoder creates a cross-encoder client and probes the
// service health unless skipped.
func NewHTTPCrossEncoder(ctx context.Context, cfg HTTPCrossEncoderConfig) (*HTTPCrossEncoder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cross-encoder endpoint is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRerankTimeout
	}

	c := &HTTPCrossEncoder{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := c.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("cross-encoder health check failed: %w", err)
		}
	}

	return c, nil
}

func (c *HTTPCrossEncoder) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cross-encoder unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Score sends the query and documents to the rerank endpoint and returns
// one score per document.
func (c *HTTPCrossEncoder) Score(ctx context.Context, query string, documents []string) ([]RerankScore, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, fmt.Errorf("cross-encoder is closed")
	}
	c.mu.RUnlock()

	if len(documents) == 0 {
		return []RerankScore{}, nil
	}

	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank request failed (status %d): %s", resp.StatusCode, string(data))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]RerankScore, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores = append(scores, RerankScore{Index: r.Index, Score: r.Score})
	}
	return scores, nil
}

// Available probes the service health endpoint.
func (c *HTTPCrossEncoder) Available(ctx context.Context) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.healthCheck(checkCtx) == nil
}

// Close marks the client closed.
func (c *HTTPCrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
