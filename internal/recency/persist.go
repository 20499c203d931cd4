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

package recency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"profile-card/internal/storage/cache"
	"profile-card/pkg/config"
	pkgerrors "profile-card/pkg/errors"
)

// Persister 最近查询列表的持久化后端
type Persister interface {
	// Load 读取列表；从未写入过时返回 nil, nil
	Load(ctx context.Context) ([]int64, error)
	// Save 整体替换列表
	Save(ctx context.Context, ids []int64) error
}

// NewPersister 根据配置创建持久化后端：file 写 JSON 文件，memory/redis 走 cache.Store
func NewPersister(cfg config.CacheConfig) (Persister, error) {
	switch cfg.Type {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "query_history.json"
		}
		return NewFilePersister(path), nil
	case "memory", "redis":
		store, err := cache.NewCache(cfg)
		if err != nil {
			return nil, err
		}
		return NewStorePersister(store, cfg.Key), nil
	default:
		return nil, fmt.Errorf("不支持的最近查询列表存储类型: %s", cfg.Type)
	}
}

// FilePersister 以单个 JSON 数组文件保存列表，格式为 [2, 3, 4]
type FilePersister struct {
	path string
}

// NewFilePersister 创建文件持久化后端
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load 读取列表；兼容元素为数字或数字字符串的旧文件
func (p *FilePersister) Load(ctx context.Context) ([]int64, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", pkgerrors.ErrIO, p.path, err)
	}
	return decodeIDs(data)
}

func decodeIDs(data []byte) ([]int64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: parse recency list: %v", pkgerrors.ErrIO, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after recency list", pkgerrors.ErrIO)
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		var s string
		switch t := v.(type) {
		case json.Number:
			s = t.String()
		case string:
			s = t
		default:
			return nil, fmt.Errorf("%w: unexpected recency entry %v", pkgerrors.ErrIO, v)
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("%w: invalid recency entry %q", pkgerrors.ErrIO, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Save 先写临时文件再 rename 替换；rename 失败时直接覆盖写
func (p *FilePersister) Save(ctx context.Context, ids []int64) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	data := []byte("[" + strings.Join(parts, ", ") + "]")

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
		}
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", pkgerrors.ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		if werr := os.WriteFile(p.path, data, 0644); werr != nil {
			return fmt.Errorf("%w: write %s: %v", pkgerrors.ErrIO, p.path, werr)
		}
	}
	return nil
}

// StorePersister 把列表存到 cache.Store 的单个键下（memory 或 redis）
type StorePersister struct {
	store cache.Store
	key   string
}

// NewStorePersister 创建基于缓存存储的持久化后端
func NewStorePersister(store cache.Store, key string) *StorePersister {
	if key == "" {
		key = "recency"
	}
	return &StorePersister{store: store, key: key}
}

// Load 读取列表
func (p *StorePersister) Load(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := p.store.Get(ctx, p.key, &ids); err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// Save 整体替换列表，不过期
func (p *StorePersister) Save(ctx context.Context, ids []int64) error {
	return p.store.Set(ctx, p.key, ids, 0)
}

// Close 关闭底层存储
func (p *StorePersister) Close() error {
	return p.store.Close()
}
