// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"profile-card/pkg/config"
	pkgerrors "profile-card/pkg/errors"
)

const defaultKeyPrefix = "profile-card:"

// RedisStore 基于 Redis 的缓存实现，所有键带统一前缀
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 缓存并探活
func NewRedisStore(cfg config.CacheConfig) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewRedisStoreWithClient(client, defaultKeyPrefix), nil
}

// NewRedisStoreWithClient 使用已有客户端创建 Redis 缓存
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Set 设置缓存，expiration 为 0 表示不过期
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, expiration).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", pkgerrors.ErrIO, key, err)
	}
	return nil
}

// Get 获取缓存
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: cache key %s", pkgerrors.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("%w: redis get %s: %v", pkgerrors.ErrIO, key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Close 关闭缓存连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
