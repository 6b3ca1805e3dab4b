// Package redis implements flowagent.Store on Redis. Each session is a marker
// key plus a list of JSON-encoded entries, so a cleared session still exists.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/meikuraledutech/flowagent"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "flowagent:"

// Options tune key layout and retention.
type Options struct {
	Prefix string
	// TTL is refreshed on every append. 0 keeps sessions forever.
	TTL time.Duration
	// MaxEntries caps entries per session, oldest dropped first. 0 means unbounded.
	MaxEntries int
}

// Store implements flowagent.Store using go-redis.
type Store struct {
	client goredis.Cmdable
	opts   Options
}

var _ flowagent.Store = (*Store)(nil)

// New creates a Store on an existing client.
func New(client goredis.Cmdable, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Store{client: client, opts: opts}
}

// Connect parses a redis:// URL, opens a client and verifies it with PING.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (s *Store) metaKey(id string) string    { return s.opts.Prefix + "session:" + id + ":meta" }
func (s *Store) entriesKey(id string) string { return s.opts.Prefix + "session:" + id + ":entries" }

// Append implements flowagent.Store.
func (s *Store) Append(ctx context.Context, sessionID string, entry flowagent.SessionEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: encode entry: %w", err)
	}

	meta, entries := s.metaKey(sessionID), s.entriesKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SetNX(ctx, meta, time.Now().UTC().Format(time.RFC3339Nano), 0)
		p.RPush(ctx, entries, data)
		if s.opts.MaxEntries > 0 {
			p.LTrim(ctx, entries, int64(-s.opts.MaxEntries), -1)
		}
		if s.opts.TTL > 0 {
			p.Expire(ctx, meta, s.opts.TTL)
			p.Expire(ctx, entries, s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: append: %w", err)
	}
	return nil
}

// Get implements flowagent.Store.
func (s *Store) Get(ctx context.Context, sessionID string) ([]flowagent.SessionEntry, error) {
	var exists *goredis.IntCmd
	var items *goredis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		exists = p.Exists(ctx, s.metaKey(sessionID))
		items = p.LRange(ctx, s.entriesKey(sessionID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	if exists.Val() == 0 {
		return nil, flowagent.ErrSessionNotFound
	}

	raw := items.Val()
	out := make([]flowagent.SessionEntry, 0, len(raw))
	for _, r := range raw {
		var e flowagent.SessionEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("redis: decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear implements flowagent.Store.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	n, err := s.client.Exists(ctx, s.metaKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	if n == 0 {
		return flowagent.ErrSessionNotFound
	}
	if err := s.client.Del(ctx, s.entriesKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}
