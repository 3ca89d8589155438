// Package embedding provides port.Embedder implementations.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const adapterName = "embedding"

// Known OpenAI-compatible endpoints.
const (
	OpenAIBaseURL   = "https://api.openai.com/v1"
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	JinaBaseURL     = "https://api.jina.ai/v1"
	OllamaBaseURL   = "http://localhost:11434/v1"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Requests are
// paced by a rate limiter and retried with exponential backoff on 429 and 5xx
// responses.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	batchSize  int
	maxRetries int
	limiter    *rate.Limiter
	client     *http.Client
	logger     *zap.Logger
}

var _ port.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIOptions configures an OpenAIEmbedder.
type OpenAIOptions struct {
	APIKey         string
	Model          string
	BaseURL        string
	Dimension      int
	BatchSize      int
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     int
	Logger         *zap.Logger
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Dimension <= 0 {
		opts.Dimension = knownDimension(opts.Model)
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIEmbedder{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		dimension:  opts.Dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(limit, 1),
		client:     &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// NewOpenAICompatibleEmbedder reads the API key from apiKeyEnv.
func NewOpenAICompatibleEmbedder(apiKeyEnv string, opts OpenAIOptions) (*OpenAIEmbedder, error) {
	opts.APIKey = os.Getenv(apiKeyEnv)
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return NewOpenAIEmbedder(opts), nil
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "jina-embeddings-v3", "mxbai-embed-large":
		return 1024
	case "jina-embeddings-v4":
		return 2048
	case "nomic-embed-text":
		return 768
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		vectors, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, domain.WrapTimeout(adapterName, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// retryableError marks a response worth retrying.
type retryableError struct {
	status int
	body   string
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	op := func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		v, err := e.embedBatch(ctx, texts)
		if err != nil {
			if _, ok := err.(*retryableError); ok {
				return err
			}
			return backoff.Permanent(err)
		}
		vectors = v
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(e.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("embedding request failed, retrying",
			zap.Error(err), zap.Duration("wait", wait), zap.Int("batch", len(texts)))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retryableError{status: resp.StatusCode, body: preview(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("API response missing embedding %d of %d", i, len(texts))
		}
	}
	return vectors, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
