package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/helmsley-labs/docqa/internal/api"
	"github.com/helmsley-labs/docqa/internal/llm"
	"github.com/helmsley-labs/docqa/internal/rag"
	"github.com/helmsley-labs/docqa/internal/telemetry"
)

// Retriever fetches grounding context for a user query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []rag.Context
}

// Generator streams a completion for a composed message list.
type Generator interface {
	StreamCompletion(ctx context.Context, messages []llm.Message) (llm.TokenStream, error)
}

type ChatHandler struct {
	retriever Retriever
	generator Generator
}

func NewChatHandler(retriever Retriever, generator Generator) *ChatHandler {
	return &ChatHandler{retriever: retriever, generator: generator}
}

type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// Chat answers the conversation's latest user message grounded in
// retrieved corpus context, streaming the response as plain text.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		api.Error(w, http.StatusBadRequest, "messages cannot be empty")
		return
	}

	query := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if query == "" {
		api.Error(w, http.StatusBadRequest, "message content cannot be empty")
		return
	}

	ctx := r.Context()

	spanCtx, span := telemetry.StartSpan(ctx, "chat.retrieve")
	contexts := h.retriever.Retrieve(spanCtx, query)
	span.End()
	log.Printf("chat: retrieved %d context chunks for query", len(contexts))

	prompt := rag.ComposePrompt(contexts)
	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{Role: "system", Content: prompt})
	messages = append(messages, req.Messages...)

	stream, err := h.generator.StreamCompletion(ctx, messages)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		api.Error(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Fragments already written stay delivered; the stream just
			// ends early.
			log.Printf("chat: generation stream error: %v", err)
			telemetry.CaptureError(ctx, err)
			return
		}
		if fragment == "" {
			continue
		}
		if _, err := w.Write([]byte(fragment)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
