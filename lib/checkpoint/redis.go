// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces checkpoint keys in a shared redis.
const RedisKeyPrefix = "botwire:checkpoint:"

const redisDialTimeout = 5 * time.Second

// Redis keeps the record under RedisKeyPrefix+key.
type Redis struct {
	client *redis.Client
	key    string
	closed atomic.Bool
}

// NewRedis connects to addr and checks the connection with PING.
func NewRedis(ctx context.Context, addr, key string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("checkpoint: redis backend requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("checkpoint: connecting to redis at %s: %w", addr, err)
	}

	return NewRedisWithClient(client, key), nil
}

// NewRedisWithClient wraps an existing client. The store closes the
// client on Close.
func NewRedisWithClient(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) (int64, bool, error) {
	if r.closed.Load() {
		return 0, false, ErrClosed
	}

	data, err := r.client.Get(ctx, RedisKeyPrefix+r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: redis get: %w", err)
	}

	offset, err := decodeRecord(r.key, data)
	if err != nil {
		return 0, false, err
	}
	return offset, true, nil
}

func (r *Redis) Save(ctx context.Context, offset int64) error {
	if r.closed.Load() {
		return ErrClosed
	}

	data, err := encodeRecord(r.key, offset)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, RedisKeyPrefix+r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("checkpoint: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.client.Close()
}
