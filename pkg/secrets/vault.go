// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"path"

	vault "github.com/hashicorp/vault/api"

	pkgerrors "profile-card/pkg/errors"
)

// vaultValueField Cookie 等单值 secret 存放的字段名
const vaultValueField = "value"

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string
	PathPrefix string // KV 挂载点，默认 secret
}

type vaultStore struct {
	client *vault.Client
	mount  string
}

// NewVaultStore 创建 Vault secret store，创建时做一次健康检查
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	mount := config.PathPrefix
	if mount == "" {
		mount = "secret"
	}
	return &vaultStore{client: client, mount: mount}, nil
}

// Get 先按 KV v2 读取 <mount>/data/<key>，读不到再按 KV v1 读取 <mount>/<key>
func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	for _, p := range []string{path.Join(v.mount, "data", key), path.Join(v.mount, key)} {
		secret, err := v.client.Logical().ReadWithContext(ctx, p)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from vault: %w", err)
		}
		if secret == nil || secret.Data == nil {
			continue
		}
		data := secret.Data
		// KV v2 的实际键值嵌在 data.data 下
		if nested, ok := data["data"].(map[string]interface{}); ok {
			data = nested
		}
		if value, ok := data[vaultValueField].(string); ok && value != "" {
			return value, nil
		}
		return "", fmt.Errorf("%w: vault secret %s has no %q field", pkgerrors.ErrNotFound, key, vaultValueField)
	}
	return "", fmt.Errorf("%w: vault secret %s", pkgerrors.ErrNotFound, key)
}
