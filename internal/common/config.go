package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreBackendFirestore = "firestore"
	StoreBackendPostgres  = "postgres"
)

type Config struct {
	ServiceName     string
	HTTPPort        int
	MetricsPort     int
	CredentialsFile string
	ProjectID       string
	StoreBackend    string
	DatabaseURL     string
	FanOutLimit     int
	AllowedOrigins  []string
	OTLPEndpoint    string
}

func LoadConfig(service string) (*Config, error) {
	// Local development convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{ServiceName: service}

	httpPort, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	cfg.HTTPPort = httpPort

	metricsPort, err := getEnvInt("METRICS_PORT", httpPort+1000)
	if err != nil {
		return nil, err
	}
	cfg.MetricsPort = metricsPort

	fanOutLimit, err := getEnvInt("FANOUT_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	if fanOutLimit < 0 {
		return nil, fmt.Errorf("FANOUT_LIMIT must not be negative, got %d", fanOutLimit)
	}
	cfg.FanOutLimit = fanOutLimit

	cfg.CredentialsFile = getEnv("SERVICE_ACCOUNT_FILE", "serviceAccountKey.json")
	cfg.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.StoreBackend = getEnv("STORE_BACKEND", StoreBackendFirestore)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	origins := getEnv("ALLOWED_ORIGINS", "*")
	cfg.AllowedOrigins = strings.Split(origins, ",")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
