package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver indica qué adapter de persistencia usa el servidor.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
)

const (
	defaultPort     = "8080"
	defaultTokenTTL = 24 * time.Hour
	devJWTSecret    = "dev-only-secret-change-me"
)

// Config agrupa todo lo que el servidor lee del entorno.
type Config struct {
	Addr string

	Storage    StorageDriver
	DBDSN      string
	SQLitePath string

	// Pool de Postgres; cero => default del adapter.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration

	JWTSecret string
	TokenTTL  time.Duration
	// DevAuth habilita el header X-Debug-User-ID (solo desarrollo).
	DevAuth bool

	EmergencyUnlockMode string

	LogLevel  string
	LogFormat string
	AppName   string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load lee la configuración desde variables de entorno.
// - PORT (default 8080)
// - DB_DSN => postgres; SQLITE_PATH => sqlite; ninguno => memoria
// - JWT_SECRET (obligatorio salvo DEV_AUTH=true)
// - TOKEN_TTL (duración Go, default 24h)
// - DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME, DB_PING_TIMEOUT
// - EMERGENCY_UNLOCK_MODE=pin|password|either (default either)
// - LOG_LEVEL, LOG_FORMAT, APP_NAME
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom permite inyectar el lookup (tests).
func LoadFrom(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:                ":" + get("PORT", defaultPort),
		DBDSN:               get("DB_DSN", ""),
		SQLitePath:          get("SQLITE_PATH", ""),
		JWTSecret:           get("JWT_SECRET", ""),
		TokenTTL:            defaultTokenTTL,
		EmergencyUnlockMode: strings.ToLower(get("EMERGENCY_UNLOCK_MODE", "either")),
		LogLevel:            get("LOG_LEVEL", "info"),
		LogFormat:           get("LOG_FORMAT", "json"),
		AppName:             get("APP_NAME", "caregiver-support"),
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        10 * time.Second,
		ShutdownTimeout:     10 * time.Second,
	}

	devAuth, err := parseBool(get("DEV_AUTH", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("DEV_AUTH: %w", err)
	}
	cfg.DevAuth = devAuth

	if v := get("TOKEN_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", v)
		}
		cfg.TokenTTL = d
	}

	if cfg.DBMaxOpenConns, err = parseCount(get("DB_MAX_OPEN_CONNS", "")); err != nil {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.DBMaxIdleConns, err = parseCount(get("DB_MAX_IDLE_CONNS", "")); err != nil {
		return Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.DBConnMaxLifetime, err = parseDuration(get("DB_CONN_MAX_LIFETIME", "")); err != nil {
		return Config{}, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
	}
	if cfg.DBPingTimeout, err = parseDuration(get("DB_PING_TIMEOUT", "")); err != nil {
		return Config{}, fmt.Errorf("DB_PING_TIMEOUT: %w", err)
	}

	switch {
	case cfg.DBDSN != "":
		cfg.Storage = StoragePostgres
	case cfg.SQLitePath != "":
		cfg.Storage = StorageSQLite
	default:
		cfg.Storage = StorageMemory
	}

	switch cfg.EmergencyUnlockMode {
	case "pin", "password", "either":
	default:
		return Config{}, fmt.Errorf("EMERGENCY_UNLOCK_MODE must be pin|password|either, got %q", cfg.EmergencyUnlockMode)
	}

	if cfg.JWTSecret == "" {
		if !cfg.DevAuth {
			return Config{}, errors.New("JWT_SECRET is required unless DEV_AUTH=true")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer, got %q", s)
	}
	return n, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("must be a positive duration, got %q", s)
	}
	return d, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, nil
	default:
		return strconv.ParseBool(s)
	}
}
