// Package generation calls a llama.cpp-style completion endpoint.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const adapterName = "generation"

// Client posts {prompt, n_predict} to a completion URL and returns the JSON
// response body as received.
type Client struct {
	url     string
	headers map[string]string
	http    *http.Client
	logger  *zap.Logger
}

var _ port.Generator = (*Client)(nil)

type completionRequest struct {
	Prompt   string `json:"prompt"`
	NPredict int    `json:"n_predict"`
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders adds request headers. Content-Type defaults to application/json.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("generation: api url is required")
	}
	c := &Client{
		url:     url,
		headers: map[string]string{"Content-Type": "application/json"},
		http:    &http.Client{Timeout: 120 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, nPredict int) (json.RawMessage, error) {
	payload, err := json.Marshal(completionRequest{Prompt: prompt, NPredict: nPredict})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("posting prompt", zap.String("url", c.url), zap.Int("n_predict", nPredict), zap.Int("prompt_chars", len(prompt)))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapTimeout(adapterName, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapTimeout(adapterName, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("generation endpoint returned status %d: %s", resp.StatusCode, preview(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("generation endpoint returned invalid JSON: %s", preview(body))
	}

	c.logger.Debug("generation complete", zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(body)))
	return json.RawMessage(body), nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
