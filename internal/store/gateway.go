// Package store wraps the chunk repository in the retry policy every
// query to the document store must go through.
package store

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"github.com/helmsley-labs/docqa/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// ChunkStore is the query contract the retrieval core requires of the
// document store.
type ChunkStore interface {
	Insert(ctx context.Context, c *domain.DocumentChunk) error
	DeleteByPrefix(ctx context.Context, slugPrefix string) (int64, error)
	VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.DocumentChunk, error)
	KeywordSearch(ctx context.Context, tokens []string, limit int) ([]domain.DocumentChunk, error)
	ListAll(ctx context.Context, limit int) ([]domain.DocumentChunk, error)
	ListDistinctMetadata(ctx context.Context) ([]domain.DocumentMetadata, error)
	GetBySlug(ctx context.Context, slug string) ([]domain.DocumentChunk, error)
}

// RetryPolicy controls how transient store failures are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultRetryPolicy matches the store's observed recovery behavior:
// delay = base * multiplier^attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  5 * time.Second,
		Multiplier: 1.5,
	}
}

// Gateway issues retry-wrapped queries against a ChunkStore. Transient
// failures (timeout signatures) are retried with exponential backoff;
// everything else propagates immediately.
type Gateway struct {
	store  ChunkStore
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewGateway(store ChunkStore, policy RetryPolicy) *Gateway {
	if policy.MaxRetries <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Gateway{store: store, policy: policy, sleep: sleepCtx}
}

// IsTransient reports whether an error carries a timeout signature and
// is therefore worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused")
}

func retry[T any](ctx context.Context, g *Gateway, op string, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) || attempt >= g.policy.MaxRetries {
			return zero, err
		}

		delay := backoff(g.policy, attempt)
		log.Printf("store: %s timed out, retrying in %v (attempt %d/%d)", op, delay, attempt+1, g.policy.MaxRetries)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}

func backoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.Multiplier
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Gateway) Insert(ctx context.Context, c *domain.DocumentChunk) error {
	_, err := retry(ctx, g, "insert", func() (struct{}, error) {
		return struct{}{}, g.store.Insert(ctx, c)
	})
	return err
}

func (g *Gateway) DeleteByPrefix(ctx context.Context, slugPrefix string) (int64, error) {
	return retry(ctx, g, "delete_by_prefix", func() (int64, error) {
		return g.store.DeleteByPrefix(ctx, slugPrefix)
	})
}

// VectorSearch refuses an all-zero query embedding: cosine distance
// against the zero vector is undefined, so the ranking would be
// meaningless.
func (g *Gateway) VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.DocumentChunk, error) {
	if isZeroVector(embedding) {
		return nil, domain.ErrZeroVector
	}
	return retry(ctx, g, "vector_search", func() ([]domain.DocumentChunk, error) {
		return g.store.VectorSearch(ctx, embedding, threshold, limit)
	})
}

func (g *Gateway) KeywordSearch(ctx context.Context, tokens []string, limit int) ([]domain.DocumentChunk, error) {
	return retry(ctx, g, "keyword_search", func() ([]domain.DocumentChunk, error) {
		return g.store.KeywordSearch(ctx, tokens, limit)
	})
}

func (g *Gateway) ListAll(ctx context.Context, limit int) ([]domain.DocumentChunk, error) {
	return retry(ctx, g, "list_all", func() ([]domain.DocumentChunk, error) {
		return g.store.ListAll(ctx, limit)
	})
}

func (g *Gateway) ListDistinctMetadata(ctx context.Context) ([]domain.DocumentMetadata, error) {
	return retry(ctx, g, "list_distinct_metadata", func() ([]domain.DocumentMetadata, error) {
		return g.store.ListDistinctMetadata(ctx)
	})
}

func (g *Gateway) GetBySlug(ctx context.Context, slug string) ([]domain.DocumentChunk, error) {
	return retry(ctx, g, "get_by_slug", func() ([]domain.DocumentChunk, error) {
		return g.store.GetBySlug(ctx, slug)
	})
}

func isZeroVector(embedding []float32) bool {
	for _, v := range embedding {
		if v != 0 {
			return false
		}
	}
	return true
}

var _ ChunkStore = (*Gateway)(nil)
