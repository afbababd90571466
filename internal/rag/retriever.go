// Package rag implements context retrieval and grounding-prompt
// assembly over the chunk store.
package rag

import (
	"context"
	"log"
	"strings"
	"unicode"

	"github.com/helmsley-labs/docqa/internal/domain"
	"github.com/helmsley-labs/docqa/internal/telemetry"
)

const (
	// DefaultLimit caps how many context chunks a retrieval returns.
	DefaultLimit = 5
	// DefaultThreshold is the minimum cosine similarity for the vector
	// strategy.
	DefaultThreshold = 0.7
)

// Context is the retrieval projection of a chunk handed to the prompt
// composer. It lives only for the duration of a request.
type Context struct {
	Content string
	Title   string
	Section string
	Slug    string
}

// Mode selects the leading retrieval strategy.
type Mode string

const (
	ModeLexical Mode = "lexical"
	ModeVector  Mode = "vector"
)

// NormalizeMode maps arbitrary input onto a supported mode, defaulting
// to lexical.
func NormalizeMode(mode string) Mode {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeVector):
		return ModeVector
	default:
		return ModeLexical
	}
}

// Store is the subset of the store gateway the retriever queries.
type Store interface {
	VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.DocumentChunk, error)
	KeywordSearch(ctx context.Context, tokens []string, limit int) ([]domain.DocumentChunk, error)
	ListAll(ctx context.Context, limit int) ([]domain.DocumentChunk, error)
}

// Embedder produces the query embedding for the vector strategy.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Config tunes a Retriever.
type Config struct {
	Mode      Mode
	Limit     int
	Threshold float64
}

// Retriever fetches ranked grounding context through an ordered
// strategy chain: vector (when selected and an embedder is wired),
// lexical keyword scoring, then a generic head-of-store fallback. The
// chain never yields an empty result for a non-empty store; it may
// yield irrelevant context instead, which the composer frames for the
// generator.
type Retriever struct {
	store    Store
	embedder Embedder
	cfg      Config
}

func NewRetriever(store Store, embedder Embedder, cfg Config) *Retriever {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLexical
	}
	return &Retriever{store: store, embedder: embedder, cfg: cfg}
}

// Retrieve returns grounding context for a query, most relevant first.
// Store failures degrade to an empty result: a missing knowledge base
// must produce a generic answer, not an error page.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Context {
	type strategy struct {
		name string
		run  func() ([]domain.DocumentChunk, error)
	}

	chain := make([]strategy, 0, 3)
	if r.cfg.Mode == ModeVector && r.embedder != nil {
		chain = append(chain, strategy{"vector", func() ([]domain.DocumentChunk, error) {
			return r.vectorSearch(ctx, query)
		}})
	}
	chain = append(chain,
		strategy{"lexical", func() ([]domain.DocumentChunk, error) {
			return r.lexicalSearch(ctx, query)
		}},
		strategy{"generic", func() ([]domain.DocumentChunk, error) {
			return r.store.ListAll(ctx, r.cfg.Limit)
		}},
	)

	var lastErr error
	for _, s := range chain {
		chunks, err := s.run()
		if err != nil {
			log.Printf("rag: %s retrieval failed, trying next strategy: %v", s.name, err)
			lastErr = err
			continue
		}
		if len(chunks) > 0 {
			return toContexts(chunks)
		}
	}

	if lastErr != nil {
		telemetry.CaptureError(ctx, lastErr)
	}
	return nil
}

func (r *Retriever) vectorSearch(ctx context.Context, query string) ([]domain.DocumentChunk, error) {
	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.VectorSearch(ctx, embedding, r.cfg.Threshold, r.cfg.Limit)
}

func (r *Retriever) lexicalSearch(ctx context.Context, query string) ([]domain.DocumentChunk, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		// Nothing to match on; the generic strategy supplies context.
		return nil, nil
	}
	return r.store.KeywordSearch(ctx, tokens, r.cfg.Limit)
}

// Tokenize normalizes a query for keyword scoring: lowercase, strip
// non-alphanumerics, split on whitespace, drop single-character tokens.
func Tokenize(query string) []string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if unicode.IsLower(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	var tokens []string
	for _, field := range strings.Fields(b.String()) {
		if len([]rune(field)) > 1 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func toContexts(chunks []domain.DocumentChunk) []Context {
	contexts := make([]Context, 0, len(chunks))
	for _, c := range chunks {
		contexts = append(contexts, Context{
			Content: c.Content,
			Title:   c.Title,
			Section: c.Section,
			Slug:    c.Slug,
		})
	}
	return contexts
}
