package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"llama-3.1-8b-instant"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL"`

	RetrievalMode   string  `envconfig:"RETRIEVAL_MODE" default:"lexical"`
	RetrievalLimit  int     `envconfig:"RETRIEVAL_LIMIT" default:"5"`
	VectorThreshold float64 `envconfig:"VECTOR_THRESHOLD" default:"0.7"`

	RateLimitRequests  int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindowMS  int           `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000"`
	RateLimitSweepTick time.Duration `envconfig:"RATE_LIMIT_SWEEP_INTERVAL" default:"0"`

	// Optional corpus source: markdown documents fetched from S3 on import.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-corpus"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// RateLimitWindow returns the rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}
