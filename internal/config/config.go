package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Telegram  TelegramConfig
	Worker    WorkerConfig
	Assistant AssistantConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	EmbedModel        string
	GenerationTimeout time.Duration
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type TelegramConfig struct {
	BotToken      string
	WebhookSecret string
	PublicBaseURL string
	Mode          string
	SendTimeout   time.Duration
	FileTimeout   time.Duration
	PollTimeout   time.Duration
}

type WorkerConfig struct {
	Concurrency int
	LockBackend string
}

type AssistantConfig struct {
	Name         string
	Organization string
}

const (
	TelegramModeWebhook = "webhook"
	TelegramModePolling = "polling"

	LockBackendPostgres = "postgres"
	LockBackendMemory   = "memory"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "traqcheck"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "candidate_resumes"),
		},
		Gemini: GeminiConfig{
			APIKey:            getEnv("GEMINI_API_KEY", ""),
			Model:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel:        getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", "25s"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Telegram: TelegramConfig{
			BotToken:      getEnv("TELEGRAM_API_TOKEN", getEnv("TELEGRAM_API_KEY", "")),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
			Mode:          strings.ToLower(getEnv("TELEGRAM_MODE", TelegramModeWebhook)),
			SendTimeout:   getEnvAsDuration("TELEGRAM_SEND_TIMEOUT", "20s"),
			FileTimeout:   getEnvAsDuration("TELEGRAM_FILE_TIMEOUT", "30s"),
			PollTimeout:   getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", "30s"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 4),
			LockBackend: strings.ToLower(getEnv("CHAT_LOCK_BACKEND", LockBackendPostgres)),
		},
		Assistant: AssistantConfig{
			Name:         getEnv("ASSISTANT_NAME", "Mr Traqchecker"),
			Organization: getEnv("ASSISTANT_ORG", "Traqcheckjobs.com"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GenerationEnabled reports whether a Gemini backend is configured.
func (c *Config) GenerationEnabled() bool {
	return c.Gemini.APIKey != ""
}

// ResumeIndexEnabled reports whether resumes can be embedded and searched.
func (c *Config) ResumeIndexEnabled() bool {
	return c.Qdrant.URL != "" && c.GenerationEnabled()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
