// Copyright 2026 fanjia1024
// In-memory secret store

package secrets

import (
	"context"
	"fmt"
	"maps"

	pkgerrors "profile-card/pkg/errors"
)

// memoryStore 构造时给定固定的键值，适合测试与本地演示
type memoryStore struct {
	values map[string]string
}

// NewMemoryStore 创建内存 secret store，values 会被复制
func NewMemoryStore(values map[string]string) Store {
	m := make(map[string]string, len(values))
	maps.Copy(m, values)
	return &memoryStore{values: m}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: secret %s", pkgerrors.ErrNotFound, key)
	}
	return value, nil
}
