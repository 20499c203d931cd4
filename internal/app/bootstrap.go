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

package app

import (
	"context"
	"fmt"
	"io"

	"profile-card/internal/artifact"
	"profile-card/internal/recency"
	"profile-card/internal/render"
	"profile-card/internal/storage/object"
	"profile-card/internal/upstream"
	"profile-card/pkg/config"
	"profile-card/pkg/log"
	"profile-card/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 cli 复用，避免在 cmd 内拼装存储与上游
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Objects   object.Store
	Artifacts *artifact.Store
	Recency   *recency.Cache
	Service   *CardService

	persister recency.Persister
}

// NewBootstrap 根据配置创建 Bootstrap（日志/产物存储/最近查询列表/上游/绘制）
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	objects, err := object.NewStore(cfg.Storage.Object)
	if err != nil {
		return nil, fmt.Errorf("初始化产物存储失败: %w", err)
	}
	artifacts := artifact.NewStore(objects, logger)

	persister, err := recency.NewPersister(cfg.Storage.Cache)
	if err != nil {
		_ = objects.Close()
		return nil, fmt.Errorf("初始化最近查询列表存储失败: %w", err)
	}
	rc := recency.New(ctx, persister, artifacts,
		recency.WithCapacity(cfg.Recency.Capacity),
		recency.WithLogger(logger),
	)

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		File:     cfg.Secrets.File,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		closePersister(persister)
		_ = objects.Close()
		return nil, fmt.Errorf("初始化 Secret 存储失败: %w", err)
	}
	client := upstream.NewClientFromSecrets(ctx, cfg.Upstream, secretStore, logger)

	fonts := render.LoadFontSet(cfg.Render.Fonts, logger)
	compositor := render.NewCompositor(fonts, render.WithLogger(logger))

	logger.Info("初始化完成",
		"object_store", cfg.Storage.Object.Type,
		"recency_store", cfg.Storage.Cache.Type,
		"capacity", rc.Capacity(),
		"history", rc.List(),
		"font", fonts.Source(),
	)

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Objects:   objects,
		Artifacts: artifacts,
		Recency:   rc,
		Service:   NewCardService(rc, artifacts, compositor, client, logger),
		persister: persister,
	}, nil
}

// Close 释放最近查询列表存储与产物存储
func (b *Bootstrap) Close() error {
	closePersister(b.persister)
	if b.Objects != nil {
		return b.Objects.Close()
	}
	return nil
}

func closePersister(p recency.Persister) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
