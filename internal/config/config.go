package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	DatabaseDSN     string
	JWTSecret       string
	JWTTTLHours     int
	CORSOrigins     string
	LogLevel        string
	UploadPath      string // local object store root, also served under /uploads
	PublicBaseURL   string
	StorageProvider string // "local" or "gcs"
	GCSBucket       string
	GCSCredentials  string
	RedisAddress    string // empty disables distributed dispatch locks
	DBMaxOpenConns  int
	DBMaxIdleConns  int
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=solar_inventory port=5432 sslmode=disable"

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTLHours:     getEnvInt("JWT_TTL_HOURS", 24),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		UploadPath:      getEnv("UPLOAD_PATH", "./uploads"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		StorageProvider: getEnv("STORAGE_PROVIDER", "local"),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		GCSCredentials:  getEnv("GCS_CREDENTIALS_JSON", ""),
		RedisAddress:    getEnv("REDIS_ADDRESS", ""),
		DBMaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres DSN for production.")
	}
	if cfg.StorageProvider == "gcs" && cfg.GCSBucket == "" {
		log.Fatal("[FATAL] STORAGE_PROVIDER=gcs requires GCS_BUCKET")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}
