// Package config assembles the trace service configuration from .env files,
// environment variables and a couple of command-line flags, in that
// precedence order (flags lowest, environment highest).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pipetrace/internal/pointer"
)

type Config struct {
	Addr     string
	Env      string
	LogLevel string

	// ManifestDir holds dataset manifest files; blank disables dataset
	// endpoints that resolve by name.
	ManifestDir string

	// WatchSources toggles the fsnotify invalidation watcher.
	WatchSources  bool
	WatchDebounce time.Duration

	Cache   CacheConfig
	Remote  RemoteConfig
	Pointer PointerConfig
}

// CacheConfig shapes the managed local graph cache and the in-memory
// decoded-graph LRU.
type CacheConfig struct {
	// LocalDir is the service-owned cache directory; blank disables the
	// managed local candidate.
	LocalDir   string
	MaxEntries int
	TTL        time.Duration

	// MemoryEntries bounds the decoded-graph LRU; MemoryTTL expires entries
	// that sit unused.
	MemoryEntries int
	MemoryTTL     time.Duration
}

// RemoteConfig describes the optional shared MinIO bucket.
type RemoteConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// PointerConfig selects the pointer registry backend: Postgres when DSN is
// set, a JSON file otherwise.
type PointerConfig struct {
	DSN  string
	File string
}

// Load parses flags and the environment. Call it once, from main.
func Load() (*Config, error) {
	_ = godotenv.Load()

	addr := flag.String("port", ":8080", "server port")
	manifests := flag.String("manifests", "", "dataset manifest directory")
	flag.Parse()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = normalizeAddr(*addr)
	}
	if cfg.ManifestDir == "" {
		cfg.ManifestDir = strings.TrimSpace(*manifests)
	}
	return cfg, nil
}

// FromEnv assembles configuration from the environment alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:          normalizeAddr(os.Getenv("PORT")),
		Env:           firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local"),
		LogLevel:      firstNonEmpty(strings.TrimSpace(os.Getenv("PIPETRACE_LOG_LEVEL")), "info"),
		ManifestDir:   strings.TrimSpace(os.Getenv("PIPETRACE_MANIFEST_DIR")),
		WatchSources:  envBool("PIPETRACE_WATCH", true),
		WatchDebounce: envDuration("PIPETRACE_WATCH_DEBOUNCE", 500*time.Millisecond),
		Cache: CacheConfig{
			LocalDir:      strings.TrimSpace(os.Getenv("PIPETRACE_CACHE_DIR")),
			MaxEntries:    envInt("PIPETRACE_CACHE_MAX_ENTRIES", 32),
			TTL:           envDuration("PIPETRACE_CACHE_TTL", 0),
			MemoryEntries: envInt("PIPETRACE_MEMORY_ENTRIES", 16),
			MemoryTTL:     envDuration("PIPETRACE_MEMORY_TTL", 15*time.Minute),
		},
		Remote:  loadRemote(),
		Pointer: loadPointer(),
	}

	if cfg.Cache.MaxEntries <= 0 {
		return nil, fmt.Errorf("PIPETRACE_CACHE_MAX_ENTRIES must be positive")
	}
	if cfg.Cache.MemoryEntries <= 0 {
		return nil, fmt.Errorf("PIPETRACE_MEMORY_ENTRIES must be positive")
	}
	if cfg.Remote.Enabled && (cfg.Remote.AccessKey == "" || cfg.Remote.SecretKey == "") {
		return nil, fmt.Errorf("remote cache endpoint %s configured without credentials", cfg.Remote.Endpoint)
	}
	return cfg, nil
}

func loadRemote() RemoteConfig {
	endpoint := strings.TrimSpace(os.Getenv("PIPETRACE_REMOTE_ENDPOINT"))
	return RemoteConfig{
		Enabled:  endpoint != "",
		Endpoint: endpoint,
		Region:   firstNonEmpty(strings.TrimSpace(os.Getenv("PIPETRACE_REMOTE_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(
			strings.TrimSpace(os.Getenv("PIPETRACE_REMOTE_ACCESS_KEY")),
			strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")),
		),
		SecretKey: firstNonEmpty(
			strings.TrimSpace(os.Getenv("PIPETRACE_REMOTE_SECRET_KEY")),
			strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")),
		),
		Bucket: firstNonEmpty(strings.TrimSpace(os.Getenv("PIPETRACE_REMOTE_BUCKET")), "pipetrace-graphs"),
		UseSSL: envBool("PIPETRACE_REMOTE_USE_SSL", false),
	}
}

func loadPointer() PointerConfig {
	return PointerConfig{
		DSN:  strings.TrimSpace(os.Getenv(pointer.EnvPointerDSN)),
		File: strings.TrimSpace(os.Getenv(pointer.EnvPointerFile)),
	}
}

func normalizeAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, ":") || strings.Contains(raw, ":") {
		return raw
	}
	return ":" + raw
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
