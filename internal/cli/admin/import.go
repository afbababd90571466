package admin

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/helmsley-labs/docqa/internal/config"
	"github.com/helmsley-labs/docqa/internal/database"
	"github.com/helmsley-labs/docqa/internal/ingest"
	"github.com/helmsley-labs/docqa/internal/llm"
	"github.com/helmsley-labs/docqa/internal/repository"
	"github.com/helmsley-labs/docqa/internal/storage"
	"github.com/helmsley-labs/docqa/internal/store"
	"github.com/spf13/cobra"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import markdown documents into the corpus",
		Long: `Chunk markdown documents and load them into the document store.

The path may be a single .md file or a directory of .md files. With
--s3, documents are fetched from the configured S3 bucket instead and
the path argument is treated as a key prefix.

Re-importing a document first removes its previous chunks, so imports
are idempotent per source document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("s3", false, "Fetch documents from the configured S3 bucket")
	cmd.Flags().Bool("embed", false, "Generate embeddings for each chunk (requires LLM provider)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fromS3, _ := cmd.Flags().GetBool("s3")
	embed, _ := cmd.Flags().GetBool("embed")

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" && !fromS3 {
		return fmt.Errorf("path required unless --s3 is set")
	}

	var embedder *llm.Client
	if embed {
		if !cfg.HasOpenAI() {
			return fmt.Errorf("--embed requires DOCQA_OPENAI_API_KEY")
		}
		embedder = llm.NewClient(llm.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: cfg.EmbeddingModel,
		})
	}

	docs, err := loadDocuments(ctx, cfg, path, fromS3)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no markdown documents found")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	gateway := store.NewGateway(repository.NewChunkRepository(pool), store.DefaultRetryPolicy())

	chunkCfg := ingest.DefaultChunkConfig()
	totalChunks := 0
	for _, doc := range docs {
		chunks := ingest.ChunkDocument(doc.ID, doc.Text, chunkCfg)
		if len(chunks) == 0 {
			log.Printf("import: %s produced no chunks, skipping", doc.ID)
			continue
		}

		deleted, err := gateway.DeleteByPrefix(ctx, ingest.Slugify(doc.ID))
		if err != nil {
			return fmt.Errorf("failed to clear previous chunks for %s: %w", doc.ID, err)
		}
		if deleted > 0 {
			log.Printf("import: %s replaced %d existing chunks", doc.ID, deleted)
		}

		for i := range chunks {
			if embedder != nil {
				embedding, err := embedder.GenerateEmbedding(ctx, chunks[i].Content)
				if err != nil {
					return fmt.Errorf("failed to embed chunk %s: %w", chunks[i].Slug, err)
				}
				chunks[i].Embedding = embedding
			}
			if err := gateway.Insert(ctx, &chunks[i]); err != nil {
				return fmt.Errorf("failed to insert chunk %s: %w", chunks[i].Slug, err)
			}
		}

		totalChunks += len(chunks)
		log.Printf("import: %s -> %d chunks", doc.ID, len(chunks))
	}

	log.Printf("import: %d documents, %d chunks", len(docs), totalChunks)
	return nil
}

func loadDocuments(ctx context.Context, cfg *config.Config, path string, fromS3 bool) ([]ingest.Document, error) {
	if fromS3 {
		if !cfg.HasS3() {
			return nil, fmt.Errorf("--s3 requires DOCQA_S3_ENDPOINT, DOCQA_S3_ACCESS_KEY_ID and DOCQA_S3_SECRET_ACCESS_KEY")
		}

		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}

		keys, err := s3Client.ListMarkdownKeys(ctx, path)
		if err != nil {
			return nil, err
		}

		docs := make([]ingest.Document, 0, len(keys))
		for _, key := range keys {
			data, err := s3Client.GetObject(ctx, key)
			if err != nil {
				return nil, err
			}
			docs = append(docs, ingest.Document{ID: ingest.DocumentID(key), Text: string(data)})
		}
		return docs, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return ingest.ReadDir(path)
	}

	doc, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []ingest.Document{doc}, nil
}
