package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

const (
	keyPrefix = "rollup:draft:"
	indexKey  = "rollup:drafts"
)

// envelope is the stored value.
type envelope struct {
	State     wizard.State `json:"state"`
	UpdatedAt int64        `json:"updated_at"`
}

// RedisStore keeps drafts in Redis with a TTL. A sorted set indexes the
// ids by last update; members whose key expired are pruned on List.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, ttl: ttl, now: time.Now}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func draftKey(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, state wizard.State) error {
	now := s.now()
	data, err := json.Marshal(envelope{State: state, UpdatedAt: now.UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, draftKey(state.ID), data, s.ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: state.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (wizard.State, error) {
	data, err := s.redis.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return wizard.State{}, ErrNotFound
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("failed to get draft: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return wizard.State{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return env.State, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, draftKey(id))
	pipe.ZRem(ctx, indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.redis.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = draftKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}

	out := make([]Summary, 0, len(ids))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft %s: %w", ids[i], err)
		}
		out = append(out, summarize(env.State, time.UnixMilli(env.UpdatedAt)))
	}

	if len(stale) > 0 {
		if err := s.redis.ZRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune drafts: %w", err)
		}
	}

	sortSummaries(out)
	return out, nil
}

// Stats reports how many drafts are indexed and their TTL.
func (s *RedisStore) Stats(ctx context.Context) (map[string]string, error) {
	n, err := s.redis.ZCard(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	return map[string]string{"drafts": strconv.FormatInt(n, 10), "ttl": s.ttl.String()}, nil
}
