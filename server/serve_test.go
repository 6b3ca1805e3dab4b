package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowagent"
	"github.com/meikuraledutech/flowagent/config"
	"github.com/meikuraledutech/flowagent/memory"
	"github.com/meikuraledutech/flowagent/redis"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Config
		want flowagent.Store
	}{
		{"memory", config.Config{SessionBackend: config.BackendMemory, SessionCapacity: 10}, &memory.Store{}},
		{"redis", config.Config{SessionBackend: config.BackendRedis, RedisURL: "redis://" + mr.Addr()}, &redis.Store{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openStore(ctx, tt.cfg, logger)
			require.NoError(t, err)
			defer closeStore()
			assert.IsType(t, tt.want, store)

			require.NoError(t, store.Append(ctx, "s", flowagent.SessionEntry{ID: "1", Role: flowagent.RoleUser, Content: "hi"}))
			got, err := store.Get(ctx, "s")
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}

	_, _, err := openStore(ctx, config.Config{SessionBackend: config.BackendRedis, RedisURL: "redis://127.0.0.1:1"}, logger)
	assert.Error(t, err)
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.Config{LogFormat: "json"}).Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	newLogger(&buf, config.Config{LogFormat: "text", LogLevel: slog.LevelWarn}).Info("hidden")
	assert.Empty(t, buf.String())
}

func TestServeOptionsApply(t *testing.T) {
	cfg, err := config.Load(func(string) (string, bool) { return "", false })
	require.NoError(t, err)

	opts := &serveOptions{port: 8080, backend: "Memory"}
	require.NoError(t, opts.apply(&cfg))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.BackendMemory, cfg.SessionBackend)

	opts = &serveOptions{backend: "REDIS"}
	assert.ErrorContains(t, opts.apply(&cfg), "REDIS_URL")
	assert.Equal(t, config.BackendRedis, cfg.SessionBackend)

	opts = &serveOptions{backend: "etcd"}
	assert.Error(t, opts.apply(&cfg))
}
