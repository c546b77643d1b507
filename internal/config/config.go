// Package config resolves runtime settings from the environment, an optional
// .env file, and built-in defaults.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexanderramin/routinebuzz/internal/remote"
)

const envPrefix = "ROUTINEBUZZ_"

// Config holds all settings shared by the CLI and the server.
type Config struct {
	DBPath         string
	APIURL         string
	HTTPTimeoutMs  int
	HTTPMaxRetries int
	RedisAddr      string
	RedisPassword  string
	PushDelayMs    int
	RefreshDelayMs int
	LogLevel       slog.Level
	ServerAddr     string
	ServerDBPath   string
	CatalogPath    string
	RateLimit      int
	PublicURL      string
	Timezone       string
}

// Default returns the configuration used when nothing is set. Realtime is
// disabled until a Redis address is provided.
func Default() Config {
	dir := dataDir()
	return Config{
		DBPath:         filepath.Join(dir, "routinebuzz.db"),
		APIURL:         "http://localhost:8080",
		HTTPTimeoutMs:  10000,
		HTTPMaxRetries: 2,
		PushDelayMs:    2000,
		RefreshDelayMs: 500,
		LogLevel:       slog.LevelInfo,
		ServerAddr:     ":8080",
		ServerDBPath:   filepath.Join(dir, "server.db"),
		RateLimit:      120,
		Timezone:       "Asia/Dhaka",
	}
}

// Load reads .env (if present) and then the process environment, falling
// back to defaults for unset or invalid values. Variables already set in the
// environment win over .env entries.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) Config {
	cfg := Default()
	get := func(key string) string {
		v, _ := lookup(envPrefix + key)
		return strings.TrimSpace(v)
	}

	if v := get("DB"); v != "" {
		cfg.DBPath = expandHome(v)
	}
	if v := get("API_URL"); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if n, ok := positiveInt(get("HTTP_TIMEOUT_MS")); ok {
		cfg.HTTPTimeoutMs = n
	}
	if v := get("HTTP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HTTPMaxRetries = n
		}
	}
	cfg.RedisAddr = get("REDIS_ADDR")
	cfg.RedisPassword = get("REDIS_PASSWORD")
	if n, ok := positiveInt(get("PUSH_DELAY_MS")); ok {
		cfg.PushDelayMs = n
	}
	if n, ok := positiveInt(get("REFRESH_DELAY_MS")); ok {
		cfg.RefreshDelayMs = n
	}
	if lvl, ok := parseLevel(get("LOG_LEVEL")); ok {
		cfg.LogLevel = lvl
	}
	if v := get("SERVER_ADDR"); v != "" {
		cfg.ServerAddr = v
	}
	if v := get("SERVER_DB"); v != "" {
		cfg.ServerDBPath = expandHome(v)
	}
	if v := get("CATALOG"); v != "" {
		cfg.CatalogPath = expandHome(v)
	}
	if n, ok := positiveInt(get("RATE_LIMIT")); ok {
		cfg.RateLimit = n
	}
	if v := get("PUBLIC_URL"); v != "" {
		cfg.PublicURL = strings.TrimRight(v, "/")
	}
	if v := get("TIMEZONE"); v != "" {
		if _, err := time.LoadLocation(v); err == nil {
			cfg.Timezone = v
		}
	}
	return cfg
}

// Remote returns the HTTP client settings.
func (c Config) Remote() remote.Config {
	return remote.Config{
		Endpoint:   c.APIURL,
		TimeoutMs:  c.HTTPTimeoutMs,
		MaxRetries: c.HTTPMaxRetries,
	}
}

// RealtimeEnabled reports whether a notifier should be wired.
func (c Config) RealtimeEnabled() bool {
	return c.RedisAddr != ""
}

func (c Config) PushDelay() time.Duration {
	return time.Duration(c.PushDelayMs) * time.Millisecond
}

func (c Config) RefreshDelay() time.Duration {
	return time.Duration(c.RefreshDelayMs) * time.Millisecond
}

// ShareBaseURL is the prefix of share links. It defaults to the API URL.
func (c Config) ShareBaseURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return c.APIURL
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func positiveInt(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseLevel(v string) (slog.Level, bool) {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".routinebuzz"
	}
	return filepath.Join(home, ".routinebuzz")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
