// Copyright 2026 fanjia1024
// Single-value file secret store

package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	pkgerrors "profile-card/pkg/errors"
)

// fileStore 以单个文件保存唯一的 secret（如浏览器导出的 Cookie 串），任意 key 均读取该文件
type fileStore struct {
	path string
}

// NewFileStore 创建单值文件 secret store
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (f *fileStore) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: secret file %s", pkgerrors.ErrNotFound, f.path)
		}
		return "", fmt.Errorf("read secret file: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: secret file %s is empty", pkgerrors.ErrNotFound, f.path)
	}
	return value, nil
}
