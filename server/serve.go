package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowagent"
	"github.com/meikuraledutech/flowagent/api"
	"github.com/meikuraledutech/flowagent/capability"
	"github.com/meikuraledutech/flowagent/config"
	"github.com/meikuraledutech/flowagent/instruct"
	"github.com/meikuraledutech/flowagent/memory"
	"github.com/meikuraledutech/flowagent/metrics"
	"github.com/meikuraledutech/flowagent/n8n"
	"github.com/meikuraledutech/flowagent/pipeline"
	"github.com/meikuraledutech/flowagent/postgres"
	"github.com/meikuraledutech/flowagent/redis"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	port    int
	backend string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.port, "port", 0, "Listen port (overrides PORT)")
	cmd.Flags().StringVar(&o.backend, "session-backend", "", "Session store: memory, redis or postgres (overrides SESSION_BACKEND)")
}

// apply overrides cfg with the flags that were set and revalidates it.
func (o *serveOptions) apply(cfg *config.Config) error {
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.backend != "" {
		cfg.SessionBackend = strings.ToLower(strings.TrimSpace(o.backend))
	}
	return cfg.Validate()
}

func serveCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

Environment:
  PORT, OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL,
  N8N_URL, N8N_API_KEY, N8N_WORKFLOW_NAME,
  MCP_SERVERS, MCP_SERVER_<KEY>_URL, MCP_FETCH_CONCURRENCY,
  UPSTREAM_TIMEOUT, SESSION_BACKEND, SESSION_CAPACITY, SESSION_MAX_ENTRIES,
  SESSION_TTL, REDIS_URL, DATABASE_URL, LOG_LEVEL, LOG_FORMAT`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return err
	}
	if err := opts.apply(&cfg); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	svc := pipeline.New(pipeline.Config{
		Store: store,
		Interpreter: instruct.New(instruct.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.UpstreamTimeout,
		}, logger),
		Enhancer: capability.New(cfg.Providers, capability.Options{
			Timeout:     cfg.UpstreamTimeout,
			Concurrency: cfg.FetchConcurrency,
			Recorder:    m,
			Logger:      logger,
		}),
		Emitter: n8n.NewClient(n8n.Config{
			BaseURL:      cfg.N8NURL,
			APIKey:       cfg.N8NAPIKey,
			WorkflowName: cfg.N8NWorkflowName,
			Timeout:      cfg.UpstreamTimeout,
		}, logger),
		Recorder: m,
		Logger:   logger,
	})

	app := api.New(svc, m, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("flowagent listening",
			"addr", cfg.Addr(),
			"session_backend", cfg.SessionBackend,
			"providers", cfg.Providers.Keys(),
		)
		errCh <- app.Listen(cfg.Addr(), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore builds the configured session backend and a func that releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (flowagent.Store, func(), error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store := redis.New(client, redis.Options{TTL: cfg.SessionTTL, MaxEntries: cfg.SessionMaxEntries})
		return store, func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		store := postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.BackendMemory:
		return memory.New(memory.Options{
			Capacity:   cfg.SessionCapacity,
			MaxEntries: cfg.SessionMaxEntries,
		}), func() {}, nil
	}

	logger.Error("unknown session backend", "backend", cfg.SessionBackend)
	return nil, nil, errors.New("unknown session backend " + cfg.SessionBackend)
}
