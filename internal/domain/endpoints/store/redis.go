package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"liveness-playground/internal/platform/errors"
)

const defaultRedisPrefix = "playground:endpoint:"

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis keeps each record as JSON under prefix+tag and the tag order in a
// sorted set scored by Position.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, errors.New(errors.KindConfig, "endpoint_store.redis", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.KindStorage, "endpoint_store.redis", "redis ping failed", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(tag string) string {
	return s.prefix + tag
}

func (s *redisStore) orderKey() string {
	return s.prefix + "_order"
}

func (s *redisStore) Put(ctx context.Context, rec Record) error {
	if rec.Tag == "" {
		return errors.New(errors.KindValidation, "endpoint_store.put", "tag required")
	}
	now := time.Now()
	if existing, err := s.Get(ctx, rec.Tag); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := sonic.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "endpoint_store.put", "encode endpoint", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.Tag), data, 0)
		pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(rec.Position), Member: rec.Tag})
		return nil
	})
	return errors.Wrap(errors.KindStorage, "endpoint_store.put", "save endpoint "+rec.Tag, err)
}

func (s *redisStore) Get(ctx context.Context, tag string) (Record, error) {
	raw, err := s.client.Get(ctx, s.key(tag)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, "endpoint_store.get", "load endpoint "+tag, err)
	}
	var rec Record
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, "endpoint_store.get", "decode endpoint "+tag, err)
	}
	return rec, nil
}

func (s *redisStore) Remove(ctx context.Context, tag string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(tag))
		pipe.ZRem(ctx, s.orderKey(), tag)
		return nil
	})
	return errors.Wrap(errors.KindStorage, "endpoint_store.remove", "delete endpoint "+tag, err)
}

func (s *redisStore) List(ctx context.Context) ([]Record, error) {
	tags, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "endpoint_store.list", "list endpoint order", err)
	}
	out := make([]Record, 0, len(tags))
	for _, tag := range tags {
		rec, err := s.Get(ctx, tag)
		if stderrors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
