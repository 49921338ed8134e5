// Package config loads the plannerd settings from the environment, after applying an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	LogMode string

	DatabaseURL         string
	DBMaxConns          int32
	DBAcquireTimeout    time.Duration
	RateDatabaseURL     string
	RedisAddr           string
	RedisPassword       string
	RateCacheTTL        time.Duration
	QdrantURL           string
	QdrantAPIKey        string
	QdrantPrefix        string
	QdrantVectorDim     int
	GeminiAPIKey        string
	EmbeddingModel      string
	CollaboratorTimeout time.Duration
	MaxDSR              float64
	DefaultRate         float64
	LocationAliases     string
	LLMModel            string
	ToolTimeout         time.Duration
	MaxConcurrency      int
}

// Problem is one rejected setting.
type Problem struct {
	Key    string
	Value  string
	Reason string
}

// Error lists every setting that failed to parse or validate.
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid configuration"
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Value == "" {
			parts[i] = fmt.Sprintf("%s: %s", p.Key, p.Reason)
		} else {
			parts[i] = fmt.Sprintf("%s=%q: %s", p.Key, p.Value, p.Reason)
		}
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Keys returns the names of the rejected settings.
func (e *Error) Keys() []string {
	keys := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		keys[i] = p.Key
	}
	return keys
}

// Load reads .env (a missing file is fine) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv without touching .env files.
func FromEnv(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}
	cfg := Config{
		Addr:                r.str("PLAN_ADDR", ":8000"),
		LogMode:             r.str("PLAN_LOG_MODE", "dev"),
		DatabaseURL:         r.str("DATABASE_URL", ""),
		DBMaxConns:          int32(r.integer("PLAN_DB_MAX_CONNS", 10, 1)),
		DBAcquireTimeout:    r.duration("PLAN_DB_ACQUIRE_TIMEOUT", 5*time.Second),
		RedisAddr:           r.str("REDIS_ADDR", ""),
		RedisPassword:       r.str("REDIS_PASSWORD", ""),
		RateCacheTTL:        r.duration("PLAN_RATE_CACHE_TTL", 10*time.Minute),
		QdrantURL:           r.str("QDRANT_URL", ""),
		QdrantAPIKey:        r.str("QDRANT_API_KEY", ""),
		QdrantPrefix:        r.str("QDRANT_COLLECTION_PREFIX", "products"),
		QdrantVectorDim:     r.integer("QDRANT_VECTOR_DIM", 768, 1),
		GeminiAPIKey:        r.str("GEMINI_API_KEY", r.str("GOOGLE_API_KEY", "")),
		EmbeddingModel:      r.str("PLAN_EMBEDDING_MODEL", "text-embedding-004"),
		CollaboratorTimeout: r.duration("PLAN_COLLABORATOR_TIMEOUT", 30*time.Second),
		MaxDSR:              r.float("PLAN_MAX_DSR", 40),
		DefaultRate:         r.float("PLAN_DEFAULT_RATE", 4.5),
		LocationAliases:     r.str("PLAN_LOCATION_ALIASES", ""),
		LLMModel:            r.str("PLAN_LLM", "qwen3:8b"),
		ToolTimeout:         r.duration("PLAN_TOOL_TIMEOUT", 60*time.Second),
		MaxConcurrency:      r.integer("PLAN_MAX_CONCURRENCY", 32, 0),
	}
	cfg.RateDatabaseURL = r.str("RATE_DATABASE_URL", cfg.DatabaseURL)

	if !slices.Contains([]string{"dev", "development", "prod", "production"}, strings.ToLower(cfg.LogMode)) {
		r.fail("PLAN_LOG_MODE", cfg.LogMode, "expected dev or prod")
	}
	if cfg.MaxDSR <= 0 || cfg.MaxDSR > 100 {
		r.fail("PLAN_MAX_DSR", r.getenv("PLAN_MAX_DSR"), "expected a percentage in (0, 100]")
	}
	if cfg.DefaultRate < 0 {
		r.fail("PLAN_DEFAULT_RATE", r.getenv("PLAN_DEFAULT_RATE"), "must not be negative")
	}
	if cfg.QdrantURL != "" {
		u, err := url.Parse(cfg.QdrantURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			r.fail("QDRANT_URL", cfg.QdrantURL, "expected absolute URL like http://qdrant:6333")
		}
	}
	if len(r.problems) > 0 {
		return Config{}, &Error{Problems: r.problems}
	}
	return cfg, nil
}

type reader struct {
	getenv   func(string) string
	problems []Problem
}

func (r *reader) fail(key, value, reason string) {
	r.problems = append(r.problems, Problem{Key: key, Value: value, Reason: reason})
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def, minimum int) int {
	raw := strings.TrimSpace(r.getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minimum {
		r.fail(key, raw, fmt.Sprintf("expected integer >= %d", minimum))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	raw := strings.TrimSpace(r.getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, raw, "expected a number")
		return def
	}
	return f
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(r.getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		r.fail(key, raw, "expected a positive duration like 30s")
		return def
	}
	return d
}
