package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helmsley-labs/docqa/internal/domain"
)

// ChunkConfig controls how documents are split into sections.
type ChunkConfig struct {
	// MinIntroChars is the minimum trimmed length for the text before the
	// first header to be kept as an introduction chunk.
	MinIntroChars int
	// MinSectionChars is the minimum trimmed length for a header section;
	// shorter spans are dropped as noise.
	MinSectionChars int
	// MaxSlugChars truncates the header-derived slug component.
	MaxSlugChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MinIntroChars:   50,
		MinSectionChars: 30,
		MaxSlugChars:    50,
	}
}

// Section headers at markdown depth 2-3. Header text is required non-empty.
var headerPattern = regexp.MustCompile(`(?m)^#{2,3}[ \t]+(.+)$`)

// ChunkDocument splits raw document text into addressable chunks. The
// document identifier (typically the source filename without extension)
// yields the base slug and the document title. The result is empty only
// for empty input.
func ChunkDocument(docID, text string, cfg ChunkConfig) []domain.DocumentChunk {
	if cfg.MinSectionChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	title := TitleFromID(docID)
	baseSlug := Slugify(docID)

	matches := headerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		content := strings.TrimSpace(text)
		if content == "" {
			return nil
		}
		return []domain.DocumentChunk{{
			Title:   title,
			Content: content,
			Slug:    baseSlug,
			Section: domain.SectionMain,
		}}
	}

	chunks := make([]domain.DocumentChunk, 0, len(matches)+1)

	if intro := strings.TrimSpace(text[:matches[0][0]]); utf8.RuneCountInString(intro) > cfg.MinIntroChars {
		chunks = append(chunks, domain.DocumentChunk{
			Title:   title,
			Content: intro,
			Slug:    baseSlug,
			Section: domain.SectionIntroduction,
		})
	}

	for i, m := range matches {
		headerText := strings.TrimSpace(text[m[2]:m[3]])

		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		content := strings.TrimSpace(text[start:end])
		if utf8.RuneCountInString(content) < cfg.MinSectionChars {
			continue
		}

		chunks = append(chunks, domain.DocumentChunk{
			Title: title + " - " + headerText,
			// Re-prefix the header so the chunk is self-describing when
			// read standalone.
			Content: "# " + headerText + "\n\n" + content,
			Slug:    baseSlug + "-" + headerSlug(headerText, cfg.MaxSlugChars),
			Section: headerText,
		})
	}

	return chunks
}

// Slugify derives the base slug from a document identifier: lowercase
// with non-alphanumeric runs collapsed to a single dash. Deterministic so
// re-imports of the same source address the same slug prefix.
func Slugify(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	pendingDash := false
	for _, r := range strings.ToLower(id) {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		} else {
			pendingDash = true
		}
	}
	return b.String()
}

// headerSlug lowercases the header text, strips non-alphanumerics,
// collapses whitespace to dashes, and truncates to maxChars.
func headerSlug(header string, maxChars int) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range strings.ToLower(header) {
		if unicode.IsLower(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")

	runes := []rune(slug)
	if maxChars > 0 && len(runes) > maxChars {
		slug = string(runes[:maxChars])
	}
	return slug
}

// TitleFromID turns a document identifier into a human-readable title by
// replacing underscores and dashes with spaces.
func TitleFromID(docID string) string {
	title := strings.ReplaceAll(docID, "_", " ")
	return strings.ReplaceAll(title, "-", " ")
}
