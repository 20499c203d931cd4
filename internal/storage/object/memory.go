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

package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	pkgerrors "profile-card/pkg/errors"
)

// MemoryStore 内存对象存储实现
type MemoryStore struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore 创建新的内存对象存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

// Put 写入对象
func (s *MemoryStore) Put(ctx context.Context, path string, data io.Reader, size int64) error {
	// 读取数据
	buffer := &bytes.Buffer{}
	if size > 0 {
		buffer.Grow(int(size))
	}
	if _, err := io.Copy(buffer, data); err != nil {
		return fmt.Errorf("%w: failed to read object data: %v", pkgerrors.ErrIO, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = buffer.Bytes()
	return nil
}

// Get 读取对象
func (s *MemoryStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[path]
	if !exists {
		return nil, fmt.Errorf("%w: object %s", pkgerrors.ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete 删除对象
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[path]; !exists {
		return fmt.Errorf("%w: object %s", pkgerrors.ErrNotFound, path)
	}
	delete(s.objects, path)
	return nil
}

// Exists 检查对象是否存在
func (s *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.objects[path]
	return exists, nil
}

// Len 当前对象数量，测试用
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
