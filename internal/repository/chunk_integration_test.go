//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/helmsley-labs/docqa/internal/domain"
	"github.com/helmsley-labs/docqa/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChunkRepo(t *testing.T) (context.Context, *ChunkRepository, *pgxpool.Pool, func()) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	repo := NewChunkRepository(pool)

	cleanup := func() {
		pool.Close()
		pc.Terminate(ctx)
	}
	return ctx, repo, pool, cleanup
}

func insertChunk(ctx context.Context, t *testing.T, repo *ChunkRepository, title, content, slug, section string, embedding []float32) *domain.DocumentChunk {
	t.Helper()
	c := &domain.DocumentChunk{
		Title:     title,
		Content:   content,
		Slug:      slug,
		Section:   section,
		Embedding: embedding,
	}
	require.NoError(t, repo.Insert(ctx, c))
	return c
}

// fullVector builds a schema-dimensional embedding with the leading
// components set.
func fullVector(lead ...float32) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	copy(v, lead)
	return v
}

func TestChunkRepository_InsertAndGetBySlug(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	first := insertChunk(ctx, t, repo, "guide", "# Intro\n\nWelcome.", "guide", "main", nil)
	second := insertChunk(ctx, t, repo, "guide - Setup", "# Setup\n\nRun it.", "guide", "Setup", nil)

	assert.Greater(t, first.ID, int64(0))
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	chunks, err := repo.GetBySlug(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, first.ID, chunks[0].ID)
	assert.Equal(t, "# Intro\n\nWelcome.", chunks[0].Content)
	assert.Equal(t, second.ID, chunks[1].ID)
}

func TestChunkRepository_Insert_RejectsInvalid(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	err := repo.Insert(ctx, &domain.DocumentChunk{Title: "x", Slug: "x", Section: "main"})
	require.Error(t, err)
}

func TestChunkRepository_DeleteByPrefix(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "guide", "Welcome to the guide.", "guide", "main", nil)
	insertChunk(ctx, t, repo, "guide - Setup", "Setup steps here.", "guide-setup", "Setup", nil)
	insertChunk(ctx, t, repo, "reference", "Reference material.", "reference", "main", nil)

	deleted, err := repo.DeleteByPrefix(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Re-running is a no-op
	deleted, err = repo.DeleteByPrefix(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	remaining, err := repo.ListAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "reference", remaining[0].Slug)
}

func TestChunkRepository_KeywordSearch_RanksByContentMatches(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "install guide", "Install the binary and configure it.", "install-guide", "main", nil)
	insertChunk(ctx, t, repo, "faq", "To install, first download, then install again.", "faq", "main", nil)
	insertChunk(ctx, t, repo, "configure", "Configure the service.", "configure", "main", nil)

	chunks, err := repo.KeywordSearch(ctx, []string{"install", "configure"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	// Both tokens match the first chunk's content; ties fall back to id order.
	assert.Equal(t, "install-guide", chunks[0].Slug)
	assert.Equal(t, "faq", chunks[1].Slug)
	assert.Equal(t, "configure", chunks[2].Slug)
}

func TestChunkRepository_KeywordSearch_TitleOnlyMatchStillReturned(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "troubleshooting", "Common problems and fixes.", "troubleshooting", "main", nil)

	chunks, err := repo.KeywordSearch(ctx, []string{"troubleshooting"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "troubleshooting", chunks[0].Slug)
}

func TestChunkRepository_KeywordSearch_NoTokensListsAll(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "b", "second doc", "b", "main", nil)
	insertChunk(ctx, t, repo, "a", "first doc", "a", "main", nil)

	chunks, err := repo.KeywordSearch(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "b", chunks[0].Slug)
	assert.Equal(t, "a", chunks[1].Slug)
}

func TestChunkRepository_VectorSearch(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "aligned", "Points the same way.", "aligned", "main", fullVector(1, 0))
	insertChunk(ctx, t, repo, "orthogonal", "Points sideways.", "orthogonal", "main", fullVector(0, 1))

	chunks, err := repo.VectorSearch(ctx, fullVector(1, 0), 0.7, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "aligned", chunks[0].Slug)

	// A permissive threshold admits both, most similar first.
	chunks, err = repo.VectorSearch(ctx, fullVector(1, 0), -1, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aligned", chunks[0].Slug)
}

func TestChunkRepository_ListDistinctMetadata(t *testing.T) {
	ctx, repo, _, cleanup := setupChunkRepo(t)
	defer cleanup()

	insertChunk(ctx, t, repo, "guide", "Intro text for the guide.", "guide", "main", nil)
	insertChunk(ctx, t, repo, "guide", "More intro text.", "guide", "main", nil)
	insertChunk(ctx, t, repo, "guide - Setup", "Setup text.", "guide", "Setup", nil)

	items, err := repo.ListDistinctMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Setup", items[0].Section)
	assert.Equal(t, "main", items[1].Section)
	assert.Equal(t, "guide", items[1].Title)
}

func TestChunkRepository_WithTx_RollsBack(t *testing.T) {
	ctx, repo, pool, cleanup := setupChunkRepo(t)
	defer cleanup()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	txRepo := NewChunkRepositoryWithTx(tx)
	insertChunk(ctx, t, txRepo, "ephemeral", "Gone on rollback.", "ephemeral", "main", nil)
	require.NoError(t, tx.Rollback(ctx))

	chunks, err := repo.GetBySlug(ctx, "ephemeral")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
