package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/helmsley-labs/docqa/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// dbtx is the subset of pgx used by repositories, satisfied by both a
// pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository persists and queries document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Insert stores a chunk, zero-padding a short embedding to the schema
// dimensionality. The store assigns id and created_at.
func (r *ChunkRepository) Insert(ctx context.Context, c *domain.DocumentChunk) error {
	if err := domain.ValidateChunk(c); err != nil {
		return err
	}

	embedding := c.Embedding
	if len(embedding) < domain.EmbeddingDimensions {
		padded := make([]float32, domain.EmbeddingDimensions)
		copy(padded, embedding)
		embedding = padded
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO document_chunks (title, content, slug, section, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.Title, c.Content, c.Slug, c.Section, pgvector.NewVector(embedding),
	).Scan(&c.ID, &c.CreatedAt)
}

// DeleteByPrefix removes every chunk whose slug starts with the given
// prefix. Import clears a document's previous chunks this way, making
// re-import idempotent per source document.
func (r *ChunkRepository) DeleteByPrefix(ctx context.Context, slugPrefix string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE slug LIKE $1 || '%'`,
		slugPrefix,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// VectorSearch returns chunks whose cosine similarity to the query
// embedding exceeds threshold, most similar first. Similarity is
// computed by the store as 1 - cosine_distance.
func (r *ChunkRepository) VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.DocumentChunk, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, title, content, slug, section
		 FROM document_chunks
		 WHERE 1 - (embedding <=> $1) > $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// KeywordSearch returns chunks whose content or title contains any of
// the tokens, ranked by the number of tokens present in the content
// (descending), ties broken by ascending id.
func (r *ChunkRepository) KeywordSearch(ctx context.Context, tokens []string, limit int) ([]domain.DocumentChunk, error) {
	if len(tokens) == 0 {
		return r.ListAll(ctx, limit)
	}

	conditions := make([]string, len(tokens))
	relevance := make([]string, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	for i, token := range tokens {
		placeholder := fmt.Sprintf("$%d", i+1)
		conditions[i] = fmt.Sprintf("(content ILIKE %s OR title ILIKE %s)", placeholder, placeholder)
		relevance[i] = fmt.Sprintf("(CASE WHEN content ILIKE %s THEN 1 ELSE 0 END)", placeholder)
		args = append(args, "%"+token+"%")
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, title, content, slug, section
		 FROM document_chunks
		 WHERE %s
		 ORDER BY %s DESC, id
		 LIMIT $%d`,
		strings.Join(conditions, " OR "),
		strings.Join(relevance, " + "),
		len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListAll returns chunks in insertion order, used as the generic
// retrieval fallback.
func (r *ChunkRepository) ListAll(ctx context.Context, limit int) ([]domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, content, slug, section
		 FROM document_chunks
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListDistinctMetadata returns the navigation projection, grouped for
// display by section then title.
func (r *ChunkRepository) ListDistinctMetadata(ctx context.Context) ([]domain.DocumentMetadata, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT title, slug, section
		 FROM document_chunks
		 ORDER BY section, title`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DocumentMetadata
	for rows.Next() {
		var m domain.DocumentMetadata
		if err := rows.Scan(&m.Title, &m.Slug, &m.Section); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// GetBySlug returns all chunks stored under a slug in id order, so the
// caller can reconstruct a full document.
func (r *ChunkRepository) GetBySlug(ctx context.Context, slug string) ([]domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, content, slug, section
		 FROM document_chunks
		 WHERE slug = $1
		 ORDER BY id`,
		slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func scanChunkRows(rows pgx.Rows) ([]domain.DocumentChunk, error) {
	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &c.Slug, &c.Section); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
