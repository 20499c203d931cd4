// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	pkgerrors "profile-card/pkg/errors"
)

// envStore 从环境变量读取 secret，值两端空白会被去掉
type envStore struct{}

// NewEnvStore 创建环境变量 secret store
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(ctx context.Context, key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s", pkgerrors.ErrNotFound, key)
	}
	return value, nil
}
