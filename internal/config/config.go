package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr             string
	DatabaseURL      string
	DatabaseMaxConns int32
	JWTSecret        string
	StartupSeedData  bool
	SweepEvery       time.Duration
	GameIdleTimeout  time.Duration
	IdempotencyKeep  time.Duration
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadAPIFromEnv reads API configuration from the environment. A .env file
// in the working directory is loaded first when present.
func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("WAXTRADE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:             addr,
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseMaxConns: envInt32Default("WAXTRADE_DB_MAX_CONNS", 16),
		JWTSecret:        strings.TrimSpace(os.Getenv("WAXTRADE_JWT_SECRET")),
		StartupSeedData:  envBoolDefault("WAXTRADE_STARTUP_SEED_CATALOG", true),
		SweepEvery:       envDurationDefault("WAXTRADE_SWEEP_EVERY", 5*time.Minute),
		GameIdleTimeout:  envDurationDefault("WAXTRADE_GAME_IDLE_TIMEOUT", 48*time.Hour),
		IdempotencyKeep:  envDurationDefault("WAXTRADE_IDEMPOTENCY_KEEP", 7*24*time.Hour),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("WAXTRADE_JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("WAX_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt32Default(key string, fallback int32) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n <= 0 {
		return fallback
	}
	return int32(n)
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
