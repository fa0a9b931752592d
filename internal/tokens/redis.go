package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/techsite/pkg/log"
)

// DefaultRedisPrefix — префикс ключей сессий, если в конфигурации пусто.
const DefaultRedisPrefix = "techsite:sess:"

// RedisProvider хранит каждую сессию как Redis Hash с полями
// access_token / refresh_token / user. TTL ключа продлевается при каждой записи.
type RedisProvider struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Provider = (*RedisProvider)(nil)

// NewRedisProvider создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение на старте.
func NewRedisProvider(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisProvider, error) {
	const op = "tokens.NewRedisProvider"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return newRedisProvider(rdb, prefix, ttl), nil
}

func newRedisProvider(rdb *redis.Client, prefix string, ttl time.Duration) *RedisProvider {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisProvider{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (p *RedisProvider) Session(id string) Store {
	return &redisStore{rdb: p.rdb, key: p.prefix + id, ttl: p.ttl}
}

func (p *RedisProvider) Close() error { return p.rdb.Close() }

type redisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func (s *redisStore) Get(ctx context.Context, field string) (string, bool) {
	v, err := s.rdb.HGet(ctx, s.key, field).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.From(ctx).Warn("session_store_get_failed", slog.String("field", field), slog.String("err", err.Error()))
		}

		return "", false
	}

	return v, true
}

func (s *redisStore) Set(ctx context.Context, field, value string) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.From(ctx).Warn("session_store_set_failed", slog.String("field", field), slog.String("err", err.Error()))
	}
}

// Clear — один DEL: все три поля исчезают одновременно.
func (s *redisStore) Clear(ctx context.Context) {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		log.From(ctx).Warn("session_store_clear_failed", slog.String("err", err.Error()))
	}
}
