package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"arxiv_papers"`
	DBUser     string `envconfig:"DB_USER" default:"arxiv_user"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"arxiv_password"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4280"`

	ArxivBaseURL  string `envconfig:"ARXIV_BASE_URL" default:"http://export.arxiv.org/api/query"`
	ArxivPageSize int    `envconfig:"ARXIV_PAGE_SIZE" default:"100"`

	// Embedding endpoint (Ollama-compatible). EMBEDDING_API_ENDPOINT selects
	// between the newer "embed" and the legacy "embeddings" payload shape.
	EmbeddingBaseURL  string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"bge-m3"`
	EmbeddingEndpoint string `envconfig:"EMBEDDING_API_ENDPOINT" default:"embed"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"30 2 * * *"`

	ImportFlushSize int `envconfig:"IMPORT_FLUSH_SIZE" default:"100"`

	PDFOutputDir  string `envconfig:"PDF_OUTPUT_DIR" default:"pdfs"`
	PDFWorkers    int    `envconfig:"PDF_WORKERS" default:"5"`
	PDFMaxRetries int    `envconfig:"PDF_MAX_RETRIES" default:"3"`

	// Optional S3 mirror for downloaded PDFs. Leave the bucket empty to keep
	// downloads local-only.
	PDFS3Bucket string `envconfig:"PDF_S3_BUCKET"`
	PDFS3URL    string `envconfig:"PDF_S3_URL"`
	PDFS3Region string `envconfig:"PDF_S3_REGION"`
	PDFS3Key    string `envconfig:"PDF_S3_KEY"`
	PDFS3Secret string `envconfig:"PDF_S3_SECRET"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment, honoring a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
