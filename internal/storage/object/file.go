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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "profile-card/pkg/errors"
)

// FileStore 以本地目录为根的对象存储；写入先落临时文件再 rename，读者不会看到半截文件
type FileStore struct {
	root string
}

// NewFileStore 创建本地文件对象存储，root 为空时使用当前目录
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析存储根目录失败: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("%w: 创建存储根目录失败: %v", pkgerrors.ErrIO, err)
	}
	return &FileStore{root: abs}, nil
}

// Root 返回存储根目录的绝对路径
func (s *FileStore) Root() string {
	return s.root
}

// resolve 将对象路径映射为根目录下的文件路径，拒绝逃逸出根目录的路径
func (s *FileStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid object path %q", pkgerrors.ErrInvalidArg, path)
	}
	return filepath.Join(s.root, clean), nil
}

// Put 写入对象
func (s *FileStore) Put(ctx context.Context, path string, data io.Reader, size int64) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}
	tmpName := tmp.Name()
	// CreateTemp 默认 0600，产物需要对其他进程可读
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod %s: %v", pkgerrors.ErrIO, path, err)
	}
	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", pkgerrors.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", pkgerrors.ErrIO, path, err)
	}
	return nil
}

// Get 读取对象
func (s *FileStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: object %s", pkgerrors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}
	return f, nil
}

// Delete 删除对象
func (s *FileStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: object %s", pkgerrors.ErrNotFound, path)
		}
		return fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *FileStore) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", pkgerrors.ErrIO, err)
	}
	return !info.IsDir(), nil
}

// Close 关闭存储连接
func (s *FileStore) Close() error {
	return nil
}
