// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"fmt"
)

// Store 只读的 secret 来源，上游 Cookie 等凭据从这里取
type Store interface {
	// Get 获取 secret 值；不存在时返回的错误包裹 errors.ErrNotFound
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      // env | file | vault | memory
	File     string      // file 时的单值文件路径
	Vault    VaultConfig // vault 时的连接参数
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "memory":
		return NewMemoryStore(nil), nil
	case "env", "":
		return NewEnvStore(), nil
	case "file":
		return NewFileStore(config.File), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
