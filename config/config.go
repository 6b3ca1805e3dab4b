// Package config loads the agent settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/meikuraledutech/flowagent/capability"
	"github.com/meikuraledutech/flowagent/instruct"
	"github.com/meikuraledutech/flowagent/memory"
	"github.com/meikuraledutech/flowagent/n8n"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Defaults.
const (
	DefaultPort            = 3000
	DefaultUpstreamTimeout = 30 * time.Second
)

// Config is the full set of runtime settings.
type Config struct {
	Port int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	N8NURL          string
	N8NAPIKey       string
	N8NWorkflowName string

	Providers         capability.Providers
	FetchConcurrency  int
	UpstreamTimeout   time.Duration
	SessionBackend    string
	SessionCapacity   int
	SessionMaxEntries int
	SessionTTL        time.Duration
	RedisURL          string
	DatabaseURL       string
	LogLevel          slog.Level
	LogFormat         string
}

// Load reads every setting through lookup, usually os.LookupEnv.
func Load(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Port:              r.int("PORT", DefaultPort),
		OpenAIAPIKey:      r.str("OPENAI_API_KEY", ""),
		OpenAIModel:       r.str("OPENAI_MODEL", instruct.DefaultModel),
		OpenAIBaseURL:     r.str("OPENAI_BASE_URL", ""),
		N8NURL:            r.str("N8N_URL", n8n.DefaultURL),
		N8NAPIKey:         r.str("N8N_API_KEY", ""),
		N8NWorkflowName:   r.str("N8N_WORKFLOW_NAME", n8n.DefaultName),
		Providers:         capability.LoadProviders(lookup),
		FetchConcurrency:  r.int("MCP_FETCH_CONCURRENCY", 1),
		UpstreamTimeout:   r.duration("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		SessionBackend:    strings.ToLower(r.str("SESSION_BACKEND", BackendMemory)),
		SessionCapacity:   r.int("SESSION_CAPACITY", memory.DefaultCapacity),
		SessionMaxEntries: r.int("SESSION_MAX_ENTRIES", 0),
		SessionTTL:        r.duration("SESSION_TTL", 0),
		RedisURL:          r.str("REDIS_URL", ""),
		DatabaseURL:       r.str("DATABASE_URL", ""),
		LogFormat:         strings.ToLower(r.str("LOG_FORMAT", "text")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(r.str("LOG_LEVEL", "info"))); err != nil {
		r.errs = append(r.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if len(r.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", r.errs[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load calls it; callers that
// override fields afterwards (e.g. from flags) should call it again.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("config: MCP_FETCH_CONCURRENCY must be at least 1")
	}
	if c.SessionCapacity < 1 {
		return fmt.Errorf("config: SESSION_CAPACITY must be at least 1")
	}
	if c.SessionMaxEntries < 0 {
		return fmt.Errorf("config: SESSION_MAX_ENTRIES must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for the redis session backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres session backend")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
