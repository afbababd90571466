package store

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/helmsley-labs/docqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChunkStore is a mock implementation of ChunkStore
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Insert(ctx context.Context, c *domain.DocumentChunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChunkStore) DeleteByPrefix(ctx context.Context, slugPrefix string) (int64, error) {
	args := m.Called(ctx, slugPrefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkStore) VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, embedding, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkStore) KeywordSearch(ctx context.Context, tokens []string, limit int) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, tokens, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkStore) ListAll(ctx context.Context, limit int) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkStore) ListDistinctMetadata(ctx context.Context) ([]domain.DocumentMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentMetadata), args.Error(1)
}

func (m *MockChunkStore) GetBySlug(ctx context.Context, slug string) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestGateway(store ChunkStore) (*Gateway, *[]time.Duration) {
	g := NewGateway(store, RetryPolicy{MaxRetries: 3, BaseDelay: 5 * time.Second, Multiplier: 1.5})
	delays := &[]time.Duration{}
	g.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return g, delays
}

func TestGateway_RetriesTimeoutThenSucceeds(t *testing.T) {
	ctx := context.Background()
	mockStore := new(MockChunkStore)
	chunks := []domain.DocumentChunk{{ID: 1, Title: "Guide", Content: "text", Slug: "guide", Section: "main"}}

	mockStore.On("ListAll", ctx, 5).Return(nil, timeoutErr{}).Twice()
	mockStore.On("ListAll", ctx, 5).Return(chunks, nil).Once()

	g, delays := newTestGateway(mockStore)

	result, err := g.ListAll(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, chunks, result)

	// Two failed attempts mean exactly two inter-attempt delays.
	require.Len(t, *delays, 2)
	assert.Equal(t, 5*time.Second, (*delays)[0])
	assert.Equal(t, 7500*time.Millisecond, (*delays)[1])
	mockStore.AssertExpectations(t)
}

func TestGateway_ExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	mockStore := new(MockChunkStore)
	mockStore.On("KeywordSearch", ctx, []string{"foo"}, 5).Return(nil, timeoutErr{}).Times(4)

	g, delays := newTestGateway(mockStore)

	_, err := g.KeywordSearch(ctx, []string{"foo"}, 5)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Len(t, *delays, 3)
	mockStore.AssertExpectations(t)
}

func TestGateway_PermanentErrorNotRetried(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("column \"slug\" does not exist")

	mockStore := new(MockChunkStore)
	mockStore.On("GetBySlug", ctx, "guide").Return(nil, permanent).Once()

	g, delays := newTestGateway(mockStore)

	_, err := g.GetBySlug(ctx, "guide")
	assert.ErrorIs(t, err, permanent)
	assert.Empty(t, *delays)
	mockStore.AssertExpectations(t)
}

func TestGateway_VectorSearchRejectsZeroVector(t *testing.T) {
	mockStore := new(MockChunkStore)
	g, _ := newTestGateway(mockStore)

	_, err := g.VectorSearch(context.Background(), make([]float32, domain.EmbeddingDimensions), 0.7, 5)
	assert.ErrorIs(t, err, domain.ErrZeroVector)
	mockStore.AssertNotCalled(t, "VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(timeoutErr{}))
	assert.True(t, IsTransient(errors.New("dial tcp: connection refused")))
	assert.True(t, IsTransient(&net.OpError{Op: "dial", Err: timeoutErr{}}))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("duplicate key value violates unique constraint")))
}

func TestBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 5*time.Second, backoff(policy, 0))
	assert.Equal(t, 7500*time.Millisecond, backoff(policy, 1))
	assert.Equal(t, 11250*time.Millisecond, backoff(policy, 2))
}
