package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port               int
	DatabaseURL        string
	StoreDriver        string
	JWTSecret          string
	LogLevel           string
	AllowAnonymousDebt bool
	RequestTimeout     time.Duration
}

func Load() (Config, error) {
	return LoadFile(filepath.Join(".", ".env"))
}

// LoadFile reads configuration from the environment, falling back to the
// values in envPath. A missing file is not an error.
func LoadFile(envPath string) (Config, error) {
	values := map[string]string{}
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err := godotenv.Read(envPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envPath, err)
		}
		values = fileValues
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", envPath, err)
	}
	lookup := func(key string) string {
		return firstNonEmpty(os.Getenv(key), values[key])
	}

	cfg := Config{
		Port:           8080,
		StoreDriver:    DriverPostgres,
		LogLevel:       "info",
		RequestTimeout: 60 * time.Second,
	}

	if portRaw := lookup("PORT"); portRaw != "" {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid PORT: %q", portRaw)
		}
		cfg.Port = port
	}

	if driver := strings.ToLower(lookup("STORE_DRIVER")); driver != "" {
		if driver != DriverPostgres && driver != DriverMemory {
			return Config{}, fmt.Errorf("invalid STORE_DRIVER: %q (want postgres or memory)", driver)
		}
		cfg.StoreDriver = driver
	}

	cfg.DatabaseURL = lookup("DATABASE_URL")
	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required (environment variable or .env)")
	}

	cfg.JWTSecret = lookup("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required (environment variable or .env)")
	}

	if level := lookup("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if raw := lookup("ALLOW_ANONYMOUS_DEBT"); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ALLOW_ANONYMOUS_DEBT: %q", raw)
		}
		cfg.AllowAnonymousDebt = allow
	}

	if raw := lookup("REQUEST_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %q", raw)
		}
		cfg.RequestTimeout = timeout
	}

	return cfg, nil
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}
