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

// Paraphrase service defaults.
const (
	DefaultParaphraseTimeout = 3 * time.Second
)

// HTTPParaphraserConfig configures the paraphrase service client.
type HTTPParaphraserConfig struct {
	// Endpoint is the paraphrase service base URL (required).
	Endpoint string
	// Timeout bounds each request (default: 3s).
	Timeout time.Duration
	// SkipHealthCheck skips the startup health probe (for testing).
	SkipHealthCheck bool
}

// HTTPParaphraser calls an external paraphrase service over HTTP.
type HTTPParaphraser struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

var _ Paraphraser = (*HTTPParaphraser)(nil)

// NewHTTPParaphraser creates a paraphrase client and probes the service
// health unless skipped.
func NewHTTPParaphraser(ctx context.Context, cfg HTTPParaphraserConfig) (*HTTPParaphraser, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("paraphraser endpoint is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultParaphraseTimeout
	}

	p := &HTTPParaphraser{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := p.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("paraphrase service health check failed: %w", err)
		}
	}

	return p, nil
}

func (p *HTTPParaphraser) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paraphrase service unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type paraphraseRequest struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

type paraphraseResponse struct {
	Paraphrases []string `json:"paraphrases"`
}

// Paraphrase requests up to count alternate phrasings of text.
func (p *HTTPParaphraser) Paraphrase(ctx context.Context, text string, count int) ([]string, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("paraphraser is closed")
	}
	p.mu.RUnlock()

	if text == "" || count <= 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(paraphraseRequest{Text: text, Count: count})
	if err != nil {
		return nil, fmt.Errorf("marshal paraphrase request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint+"/paraphrase", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create paraphrase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paraphrase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paraphrase request failed (status %d): %s", resp.StatusCode, string(data))
	}

	var parsed paraphraseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode paraphrase response: %w", err)
	}

	if len(parsed.Paraphrases) > count {
		parsed.Paraphrases = parsed.Paraphrases[:count]
	}
	return parsed.Paraphrases, nil
}

// Available probes the service health endpoint.
func (p *HTTPParaphraser) Available(ctx context.Context) bool {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false
	}
	p.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.healthCheck(checkCtx) == nil
}

// Close marks the client closed.
func (p *HTTPParaphraser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
