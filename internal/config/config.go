package config

import (
	"os"
	"strconv"
	"strings"

	"dropoutpredictor/internal/apperr"

	"github.com/joho/godotenv"
)

const (
	DefaultPort        = "8080"
	DefaultModelPath   = "models/dropout_model.json"
	DefaultMaxUploadMB = 100
	DefaultPreviewRows = 5
)

// Config holds the service settings.
type Config struct {
	Port           string
	ModelPath      string
	MaxUploadBytes int64
	PreviewRows    int
	AllowedOrigins []string
	LogLevel       string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	maxMB, err := getEnvInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)
	if err != nil {
		return nil, err
	}
	previewRows, err := getEnvInt("PREVIEW_ROWS", DefaultPreviewRows)
	if err != nil {
		return nil, err
	}
	if maxMB < 1 {
		return nil, apperr.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if previewRows < 0 {
		return nil, apperr.ConfigInvalid("PREVIEW_ROWS must not be negative")
	}

	return &Config{
		Port:           getEnv("PORT", DefaultPort),
		ModelPath:      getEnv("MODEL_PATH", DefaultModelPath),
		MaxUploadBytes: int64(maxMB) << 20,
		PreviewRows:    previewRows,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
	}, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.ConfigInvalid(key + " must be an integer, got " + strconv.Quote(v))
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
