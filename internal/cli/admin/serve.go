package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/helmsley-labs/docqa/internal/api/handlers"
	"github.com/helmsley-labs/docqa/internal/config"
	"github.com/helmsley-labs/docqa/internal/database"
	"github.com/helmsley-labs/docqa/internal/jobs"
	"github.com/helmsley-labs/docqa/internal/llm"
	"github.com/helmsley-labs/docqa/internal/rag"
	"github.com/helmsley-labs/docqa/internal/ratelimit"
	"github.com/helmsley-labs/docqa/internal/repository"
	"github.com/helmsley-labs/docqa/internal/server"
	"github.com/helmsley-labs/docqa/internal/store"
	"github.com/helmsley-labs/docqa/internal/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docqa API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	gateway := store.NewGateway(chunkRepo, store.DefaultRetryPolicy())

	var embedder rag.Embedder
	var generator handlers.Generator
	if cfg.HasOpenAI() {
		llmClient := llm.NewClient(llm.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
		})
		embedder = llmClient
		generator = llmClient
	} else {
		generator = &noopGenerator{}
		log.Println("no LLM provider configured, chat will return errors")
	}

	retriever := rag.NewRetriever(gateway, embedder, rag.Config{
		Mode:      rag.NormalizeMode(cfg.RetrievalMode),
		Limit:     cfg.RetrievalLimit,
		Threshold: cfg.VectorThreshold,
	})

	limiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow())

	var sweepWorker *jobs.Worker
	if cfg.RateLimitSweepTick > 0 {
		sweepWorker = jobs.NewWorker(ratelimit.NewSweeper(limiter), cfg.RateLimitSweepTick)
		go sweepWorker.Start(ctx)
		log.Println("rate-limit sweep worker started")
	}

	routerCfg := server.RouterConfig{
		ChatHandler: handlers.NewChatHandler(retriever, generator),
		DocsHandler: handlers.NewDocsHandler(gateway),
		Limiter:     limiter,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if sweepWorker != nil {
		sweepWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noopGenerator struct{}

func (g *noopGenerator) StreamCompletion(ctx context.Context, messages []llm.Message) (llm.TokenStream, error) {
	return nil, fmt.Errorf("generation not configured: DOCQA_OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
