package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gold-rate/internal/rates"
)

// RedisStore shares the cache between several clients on one host.
type RedisStore struct {
	client *redis.Client
}

func OpenRedis(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Get(ctx context.Context, location string) (*rates.PricePayload, error) {
	data, err := r.client.Get(ctx, Key(location)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payload from redis: %w", err)
	}
	p, err := rates.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	return p, nil
}

func (r *RedisStore) Put(ctx context.Context, p *rates.PricePayload) error {
	data, err := rates.Encode(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := r.client.Set(ctx, Key(p.Location), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set payload in redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Meta(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, "gold:meta:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *RedisStore) SetMeta(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, "gold:meta:"+key, value, 0).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
