package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helmsley-labs/docqa/internal/api"
	"github.com/helmsley-labs/docqa/internal/domain"
)

// DocsStore is the subset of the store gateway backing the docs
// navigation surface.
type DocsStore interface {
	ListDistinctMetadata(ctx context.Context) ([]domain.DocumentMetadata, error)
	GetBySlug(ctx context.Context, slug string) ([]domain.DocumentChunk, error)
}

type DocsHandler struct {
	store DocsStore
}

func NewDocsHandler(store DocsStore) *DocsHandler {
	return &DocsHandler{store: store}
}

type DocLink struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type SectionGroup struct {
	Section   string    `json:"section"`
	Documents []DocLink `json:"documents"`
}

// List returns the corpus navigation: distinct document metadata
// grouped by section.
func (h *DocsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListDistinctMetadata(r.Context())
	if err != nil {
		api.HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to list documents", err))
		return
	}

	// Items arrive ordered by section then title; grouping preserves
	// that order.
	groups := make([]SectionGroup, 0)
	for _, item := range items {
		link := DocLink{Title: item.Title, Slug: item.Slug}
		if n := len(groups); n > 0 && groups[n-1].Section == item.Section {
			groups[n-1].Documents = append(groups[n-1].Documents, link)
			continue
		}
		groups = append(groups, SectionGroup{Section: item.Section, Documents: []DocLink{link}})
	}

	api.Success(w, http.StatusOK, groups)
}

type DocumentResponse struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Section string `json:"section"`
	Content string `json:"content"`
}

// Get reconstructs a document from its chunks: id order, blank-line
// separated.
func (h *DocsHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	chunks, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		api.HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to load document", err))
		return
	}
	if len(chunks) == 0 {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		contents = append(contents, c.Content)
	}

	api.Success(w, http.StatusOK, DocumentResponse{
		Slug:    slug,
		Title:   chunks[0].Title,
		Section: chunks[0].Section,
		Content: strings.Join(contents, "\n\n"),
	})
}
