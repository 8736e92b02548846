package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Gemini (text, structured JSON, images, TTS)
	GeminiKey string

	// OpenAI (alternate text provider for the script writer)
	OpenAIKey string

	// Veo video generation
	VeoModel        string        // Veo model identifier (default: veo-3.1-fast-generate-preview)
	VeoPollInterval time.Duration // Interval between operation status polls

	// Defaults applied when a request leaves them unset
	DefaultAspectRatio string
	DefaultVoice       string // Gemini TTS prebuilt voice name
	DefaultLocale      string // Locale for user-facing error messages ("vi" or "en")

	// Batches
	MaxParallelTasks int           // Cap on concurrently running tasks within a parallel batch
	BatchRetention   time.Duration // How long finished batches stay retrievable
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		VeoModel:           getEnv("VEO_MODEL", "veo-3.1-fast-generate-preview"),
		VeoPollInterval:    getEnvDuration("VEO_POLL_INTERVAL", 10*time.Second),
		DefaultAspectRatio: getEnv("DEFAULT_ASPECT_RATIO", "16:9"),
		DefaultVoice:       getEnv("DEFAULT_TTS_VOICE", "Kore"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "vi"),
		MaxParallelTasks:   getEnvInt("MAX_PARALLEL_TASKS", 4),
		BatchRetention:     getEnvDuration("BATCH_RETENTION", 2*time.Hour),
	}

	// Validate required fields
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	// OpenAI is optional — the script writer falls back to Gemini when unset

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
