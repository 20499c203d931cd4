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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-card/pkg/config"
	pkgerrors "profile-card/pkg/errors"
)

// 需要本地 Redis：PROFILE_CARD_TEST_REDIS=localhost:6379 go test ./internal/storage/cache/...
func newTestRedis(t *testing.T) *RedisStore {
	addr := os.Getenv("PROFILE_CARD_TEST_REDIS")
	if addr == "" {
		t.Skip("PROFILE_CARD_TEST_REDIS not set")
	}
	s, err := NewRedisStore(config.CacheConfig{Addr: addr})
	require.NoError(t, err)
	s.prefix = "profile-card-test:" + t.Name() + ":"
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), s.key("recency")).Err()
		_ = s.Close()
	})
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "recency", []int64{3, 4}, 0))
	var got []int64
	require.NoError(t, s.Get(ctx, "recency", &got))
	assert.Equal(t, []int64{3, 4}, got)

	err := s.Get(ctx, "missing", &got)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrNotFound))
}

func TestNewCache_UnknownType(t *testing.T) {
	_, err := NewCache(config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}
