package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Optional bcrypt hash gating session creation
	AccessCodeHash string

	// Gemini AI. An empty API key is allowed: generation jobs then fail
	// with a credential error instead of blocking startup.
	GeminiAPIKey         string
	GeminiModel          string
	GeminiFlashModel     string
	GeminiConcurrentReqs int

	// Analysis
	MaxChunks           int
	WarnTranscriptChars int

	// PDF rendering
	FontsPath string

	// Storage
	StoragePath string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		Env:            getEnvOrDefault("ENV", "development"),
		DatabaseURL:    mustGetEnv("DATABASE_URL"),
		RedisURL:       mustGetEnv("REDIS_URL"),
		JWTSecret:      mustGetEnv("JWT_SECRET"),
		AccessCodeHash: getEnvOrDefault("ACCESS_CODE_HASH", ""),

		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-pro"),
		GeminiFlashModel:     getEnvOrDefault("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),

		MaxChunks:           getEnvAsIntOrDefault("MAX_CHUNKS", 10),
		WarnTranscriptChars: getEnvAsIntOrDefault("WARN_TRANSCRIPT_CHARS", 300000),

		FontsPath:   getEnvOrDefault("FONTS_PATH", "./fonts"),
		StoragePath: getEnvOrDefault("STORAGE_PATH", "./uploads"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
