// Package llm wraps the OpenAI-compatible embedding and generation
// endpoints. The base URL is configurable so any provider exposing the
// same API (Groq, OpenRouter) can serve generation.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultGenerationModel is the chat model used for grounded answers
	DefaultGenerationModel = "llama-3.1-8b-instant"

	generationMaxTokens   = 1000
	generationTemperature = 0.7
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoMessages is returned when a completion is requested without messages
	ErrNoMessages = errors.New("messages cannot be empty")
)

// Message is one conversation turn sent to the generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenStream is a lazy, finite, forward-only sequence of text
// fragments. Recv returns io.EOF after the final fragment.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// API is the provider surface the client depends on.
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	StreamChatCompletion(ctx context.Context, messages []Message) (TokenStream, error)
}

// Client validates and adapts provider responses.
type Client struct {
	api        API
	dimensions int
}

// Config configures the provider adapter.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	GenerationModel     string
	EmbeddingDimensions int
}

// NewClient creates a client for an OpenAI-compatible endpoint.
func NewClient(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        newOpenAIAdapter(cfg),
		dimensions: dimensions,
	}
}

// NewClientWithAPI creates a client over an explicit API implementation.
func NewClientWithAPI(api API, dimensions int) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{api: api, dimensions: dimensions}
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// StreamCompletion starts a streamed chat completion. The caller owns
// the returned stream and must Close it.
func (c *Client) StreamCompletion(ctx context.Context, messages []Message) (TokenStream, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	return c.api.StreamChatCompletion(ctx, messages)
}

type openAIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	generationModel string
}

func newOpenAIAdapter(cfg Config) *openAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	embeddingModel := openai.EmbeddingModel(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	generationModel := cfg.GenerationModel
	if generationModel == "" {
		generationModel = DefaultGenerationModel
	}

	return &openAIAdapter{
		client:          openai.NewClientWithConfig(clientCfg),
		embeddingModel:  embeddingModel,
		generationModel: generationModel,
	}
}

// CreateEmbeddings calls the provider API to create embeddings
func (a *openAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// StreamChatCompletion opens a streamed chat completion against the
// provider.
func (a *openAIAdapter) StreamChatCompletion(ctx context.Context, messages []Message) (TokenStream, error) {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.generationModel,
		Messages:    converted,
		MaxTokens:   generationMaxTokens,
		Temperature: generationTemperature,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}

	return &openAIStream{inner: stream}, nil
}

type openAIStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		// io.EOF marks a clean end of stream.
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	return s.inner.Close()
}

var _ TokenStream = (*openAIStream)(nil)
