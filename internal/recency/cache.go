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

// Package recency 维护固定容量、按最近访问排序的活跃主体列表。
// 新主体在列表满时挤出最久未访问者，并级联删除其全部产物。
package recency

import (
	"context"
	"slices"
	"sync"

	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
	"profile-card/pkg/utils"
)

// DefaultCapacity 默认容量
const DefaultCapacity = 3

// Evictor 被挤出的主体由它清理产物；实现不返回错误，失败自行记录
type Evictor interface {
	CascadeDelete(ctx context.Context, id int64)
}

// Cache 最近查询列表，队首最旧、队尾最新。全进程共享一把锁，
// 读取、修改、持久化以及被挤出主体的级联删除都在锁内完成。
type Cache struct {
	mu        sync.Mutex
	ids       []int64
	capacity  int
	durable   bool
	persister Persister
	evictor   Evictor
	logger    *log.Logger
}

// Option 配置 Cache
type Option func(*Cache)

// WithCapacity 设置容量，小于 1 时使用默认值
func WithCapacity(n int) Option {
	return func(c *Cache) {
		c.capacity = utils.DefaultInt(n, DefaultCapacity)
	}
}

// WithLogger 注入 logger
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New 创建 Cache 并加载一次持久化的列表。列表缺失或损坏时记告警并从空列表开始；
// 加载到的条目超过容量时，多出的最旧条目按正常淘汰流程清理。
func New(ctx context.Context, persister Persister, evictor Evictor, opts ...Option) *Cache {
	c := &Cache{
		capacity:  DefaultCapacity,
		durable:   true,
		persister: persister,
		evictor:   evictor,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrNop(c.logger)
	c.load(ctx)
	return c
}

func (c *Cache) load(ctx context.Context) {
	if c.persister == nil {
		c.durable = false
		return
	}
	ids, err := c.persister.Load(ctx)
	if err != nil {
		c.logger.Warn("加载最近查询列表失败，使用空列表", "error", err)
		return
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c.ids = append(c.ids, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ids) <= c.capacity && len(c.ids) == len(ids) {
		return
	}
	for len(c.ids) > c.capacity {
		c.evictHead(ctx)
	}
	c.persist(ctx)
}

// Touch 记录一次对 id 的访问，返回因此被挤出的主体（通常为空或一个）。
// 已在列表中的 id 只调整顺序，不触发淘汰。
func (c *Cache) Touch(ctx context.Context, id int64) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []int64
	if i := slices.Index(c.ids, id); i >= 0 {
		c.ids = slices.Delete(c.ids, i, i+1)
	} else if len(c.ids) >= c.capacity {
		evicted = append(evicted, c.evictHead(ctx))
	}
	c.ids = append(c.ids, id)
	c.persist(ctx)

	c.logger.Debug("更新最近查询列表", "subject", id, "list", c.ids, "evicted", evicted)
	return evicted
}

// evictHead 弹出队首并级联删除，调用方持锁
func (c *Cache) evictHead(ctx context.Context) int64 {
	oldest := c.ids[0]
	c.ids = slices.Delete(c.ids, 0, 1)
	c.logger.Info("最近查询列表已满，淘汰最早的主体", "subject", oldest)
	metrics.EvictionTotal.Inc()
	if c.evictor != nil {
		c.evictor.CascadeDelete(ctx, oldest)
	}
	return oldest
}

// persist 调用方持锁；失败时进入非持久模式，下次写成功后恢复
func (c *Cache) persist(ctx context.Context) {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(ctx, slices.Clone(c.ids)); err != nil {
		if c.durable {
			c.logger.Error("保存最近查询列表失败，进入非持久模式", "error", err)
		}
		metrics.RecencyPersistFailures.Inc()
		c.durable = false
		return
	}
	if !c.durable {
		c.logger.Info("最近查询列表恢复持久化")
	}
	c.durable = true
}

// List 返回列表副本，最旧在前
func (c *Cache) List() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ids)
}

// Contains 判断 id 是否在列表中
func (c *Cache) Contains(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.ids, id)
}

// Capacity 容量
func (c *Cache) Capacity() int {
	return c.capacity
}

// Durable 最近一次持久化是否成功
func (c *Cache) Durable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durable
}
