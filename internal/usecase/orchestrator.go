package usecase

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const (
	DefaultTopK     = 3
	DefaultNPredict = 256
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

type promptData struct {
	Documents []domain.Document
	Query     string
}

// Searcher retrieves documents from a named store.
type Searcher interface {
	Search(ctx context.Context, key, query string, topK int) ([]domain.ScoredDocument, error)
}

// Orchestrator turns a question into a grounded prompt and, optionally, a
// completion from the generation endpoint. Nothing is cached or retried.
type Orchestrator struct {
	searcher  Searcher
	generator port.Generator
	topK      int
	nPredict  int
	logger    *zap.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithGenerator(g port.Generator) OrchestratorOption {
	return func(o *Orchestrator) { o.generator = g }
}

// WithDefaults overrides the topK and n_predict used when a call passes 0.
func WithDefaults(topK, nPredict int) OrchestratorOption {
	return func(o *Orchestrator) {
		if topK > 0 {
			o.topK = topK
		}
		if nPredict > 0 {
			o.nPredict = nPredict
		}
	}
}

func WithOrchestratorLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewOrchestrator(searcher Searcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		searcher: searcher,
		topK:     DefaultTopK,
		nPredict: DefaultNPredict,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildPrompt retrieves topK documents from store key and wraps their text,
// in retrieval order, with the instruction preamble and the question. topK 0
// selects the default. Search errors are returned unchanged.
func (o *Orchestrator) BuildPrompt(ctx context.Context, query, key string, topK int) (string, error) {
	if topK == 0 {
		topK = o.topK
	}
	results, err := o.searcher.Search(ctx, key, query, topK)
	if err != nil {
		return "", err
	}

	docs := make([]domain.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return RenderPrompt(query, docs)
}

// RenderPrompt fills the prompt template.
func RenderPrompt(query string, docs []domain.Document) (string, error) {
	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, promptData{Documents: docs, Query: query}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// AnswerOptions tunes a single Answer call. Zero values select the defaults.
type AnswerOptions struct {
	TopK     int
	NPredict int
}

// Answer builds the prompt for query and posts it to the generation endpoint,
// returning the endpoint's JSON payload unmodified. No endpoint call is made
// when the prompt cannot be built.
func (o *Orchestrator) Answer(ctx context.Context, query, key string, opts AnswerOptions) (json.RawMessage, error) {
	if o.generator == nil {
		return nil, errors.New("no generation endpoint configured")
	}
	prompt, err := o.BuildPrompt(ctx, query, key, opts.TopK)
	if err != nil {
		return nil, err
	}

	nPredict := opts.NPredict
	if nPredict == 0 {
		nPredict = o.nPredict
	}
	o.logger.Debug("generating answer", zap.String("key", key), zap.String("query", query), zap.Int("n_predict", nPredict))
	return o.generator.Generate(ctx, prompt, nPredict)
}
