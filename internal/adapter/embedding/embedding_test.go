package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/domain"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(64, true)
	assert.Equal(t, 64, e.Dimension())
	assert.Equal(t, "hashing", e.ModelName())

	vecs, err := e.Embed(context.Background(), []string{
		"Body text about cats.",
		"cats",
		"Quarterly revenue figures",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	for _, v := range vecs[:3] {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Zero(t, norm(vecs[3]))
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[2], vecs[1]))

	again, err := e.Embed(context.Background(), []string{"Body text about cats."})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again[0])
}

func TestHashingEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashingEmbedder(8, false).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeAPI struct {
	calls    atomic.Int32
	failures int32
	status   int
	delay    time.Duration
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if n <= f.failures {
			w.WriteHeader(f.status)
			w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embeddingResponse{}
		// Reverse order to check results are placed by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 1},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestEmbedder(url string, batch, retries int, timeout time.Duration) *OpenAIEmbedder {
	return NewOpenAIEmbedder(OpenAIOptions{
		APIKey:     "secret",
		Model:      "test-model",
		BaseURL:    url + "/",
		Dimension:  2,
		BatchSize:  batch,
		Timeout:    timeout,
		MaxRetries: retries,
	})
}

func TestOpenAIEmbedder_Batches(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	e := newTestEmbedder(srv.URL, 2, 0, time.Second)
	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), api.calls.Load())
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
	assert.Equal(t, "test-model", e.ModelName())
	assert.Equal(t, 2, e.Dimension())
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e := newTestEmbedder("http://127.0.0.1:0", 2, 0, time.Second)
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOpenAIEmbedder_RetriesTransientFailures(t *testing.T) {
	api := &fakeAPI{failures: 2, status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	vecs, err := newTestEmbedder(srv.URL, 10, 3, time.Second).Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestOpenAIEmbedder_ClientErrorNotRetried(t *testing.T) {
	api := &fakeAPI{failures: 5, status: http.StatusBadRequest}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, 10, 3, time.Second).Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestOpenAIEmbedder_Timeout(t *testing.T) {
	api := &fakeAPI{delay: 200 * time.Millisecond}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, 10, 0, 20*time.Millisecond).Embed(context.Background(), []string{"x"})
	var terr *domain.AdapterTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "embedding", terr.Adapter)
}

func TestNew_Providers(t *testing.T) {
	cfg := config.DefaultConfig()
	e, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &HashingEmbedder{}, e)

	cfg.Embedding.Provider = "ollama"
	e, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, OllamaBaseURL, e.(*OpenAIEmbedder).baseURL)

	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKeyEnv = "DOCRAG_TEST_MISSING_KEY"
	t.Setenv("DOCRAG_TEST_MISSING_KEY", "")
	_, err = New(cfg, nil)
	assert.Error(t, err)

	t.Setenv("DOCRAG_TEST_MISSING_KEY", "k")
	e, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, OpenAIBaseURL, e.(*OpenAIEmbedder).baseURL)

	cfg.Embedding.Provider = "word2vec"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
