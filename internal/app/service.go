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
	"strconv"

	"golang.org/x/sync/errgroup"

	"profile-card/internal/artifact"
	"profile-card/internal/recency"
	"profile-card/internal/render"
	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
	"profile-card/pkg/tracing"
)

// Fetcher 上游协作方：三个资料接口各返回一份字段映射，任一失败即整体失败
type Fetcher interface {
	FetchProfile(ctx context.Context, id int64) (map[string]any, error)
	FetchRelation(ctx context.Context, id int64) (map[string]any, error)
	FetchEngagement(ctx context.Context, id int64) (map[string]any, error)
	// FetchAsset 下载素材图，返回内容与扩展名
	FetchAsset(ctx context.Context, url string) ([]byte, string, error)
}

// assetURLFields 字段记录中素材地址到素材角色的对应
var assetURLFields = []struct {
	field string
	role  artifact.Role
}{
	{"face_url", artifact.RoleAvatar},
	{"pendant_url", artifact.RoleFrame},
	{"nameplate_url", artifact.RoleBadge},
}

// CardService 查询编排：更新最近查询列表、拉取并合并字段、保存、下载素材、绘制卡片
type CardService struct {
	recency    *recency.Cache
	artifacts  *artifact.Store
	compositor *render.Compositor
	fetcher    Fetcher
	logger     *log.Logger
}

// NewCardService 创建查询编排服务
func NewCardService(rc *recency.Cache, artifacts *artifact.Store, compositor *render.Compositor, fetcher Fetcher, logger *log.Logger) *CardService {
	return &CardService{
		recency:    rc,
		artifacts:  artifacts,
		compositor: compositor,
		fetcher:    fetcher,
		logger:     log.OrNop(logger),
	}
}

// ParseSubjectID 解析主体 ID，只接受十进制非负整数
func ParseSubjectID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty subject id", pkgerrors.ErrInvalidArg)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: subject id must be digits: %q", pkgerrors.ErrInvalidArg, s)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject id out of range: %q", pkgerrors.ErrInvalidArg, s)
	}
	return id, nil
}

// Merge 按顺序合并多份字段映射，后出现的键覆盖先出现的
func Merge(parts ...map[string]any) artifact.FieldRecord {
	record := artifact.FieldRecord{}
	for _, part := range parts {
		for k, v := range part {
			record[k] = v
		}
	}
	return record
}

// Query 完整查询：先计入最近查询列表（可能淘汰最旧主体），再拉取三份数据；
// 任一拉取失败则不落盘。成功时记录与卡片均已存在。
func (s *CardService) Query(ctx context.Context, id int64) (record artifact.FieldRecord, err error) {
	ctx, span := tracing.StartQuerySpan(ctx, id)
	defer func() {
		tracing.EndSpan(span, err)
		metrics.QueryTotal.WithLabelValues(queryStatus(err)).Inc()
	}()

	if evicted := s.recency.Touch(ctx, id); len(evicted) > 0 {
		s.logger.Info("查询触发淘汰", "subject", id, "evicted", evicted)
	}

	record, err = s.fetchAll(ctx, id)
	if err != nil {
		s.logger.Warn("上游拉取失败，本次不保存", "subject", id, "stage", pkgerrors.StageOf(err), "error", err)
		return nil, err
	}

	if err := s.artifacts.SaveRecord(ctx, id, record); err != nil {
		return nil, pkgerrors.NewStageError(pkgerrors.StageSaveRecord, id, pkgerrors.ErrIO, err)
	}

	s.downloadAssets(ctx, id, record)

	if err := s.RenderCard(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("查询完成", "subject", id)
	return record, nil
}

func (s *CardService) fetchAll(ctx context.Context, id int64) (artifact.FieldRecord, error) {
	steps := []struct {
		stage pkgerrors.Stage
		fetch func(context.Context, int64) (map[string]any, error)
	}{
		{pkgerrors.StageFetchProfile, s.fetcher.FetchProfile},
		{pkgerrors.StageFetchRelation, s.fetcher.FetchRelation},
		{pkgerrors.StageFetchEngagement, s.fetcher.FetchEngagement},
	}
	parts := make([]map[string]any, 0, len(steps))
	for _, step := range steps {
		part, err := step.fetch(ctx, id)
		if err != nil {
			return nil, pkgerrors.NewStageError(step.stage, id, pkgerrors.ErrFetch, err)
		}
		parts = append(parts, part)
	}
	return Merge(parts...), nil
}

// downloadAssets 并发下载记录中的素材图；失败只记日志
func (s *CardService) downloadAssets(ctx context.Context, id int64, record artifact.FieldRecord) {
	var g errgroup.Group
	for _, a := range assetURLFields {
		url, _ := record[a.field].(string)
		if url == "" {
			continue
		}
		role := a.role
		g.Go(func() error {
			data, ext, err := s.fetcher.FetchAsset(ctx, url)
			if err != nil {
				s.logger.Warn("下载素材失败", "subject", id, "role", role, "url", url, "error", err)
				return nil
			}
			if err := s.artifacts.SaveAsset(ctx, id, role, ext, data); err != nil {
				s.logger.Warn("保存素材失败", "subject", id, "role", role, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// RenderCard 依据已保存的记录与素材重新绘制卡片；记录不存在时返回 render 阶段错误且不写卡片
func (s *CardService) RenderCard(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.StartRenderSpan(ctx, id)
	defer func() { tracing.EndSpan(span, err) }()

	record, err := s.artifacts.LoadRecord(ctx, id)
	if err != nil {
		return pkgerrors.NewStageError(pkgerrors.StageRender, id, pkgerrors.ErrRender, err)
	}
	assets := s.artifacts.LoadAssets(ctx, id)

	png, _, err := s.compositor.Render(id, record, assets)
	if err != nil {
		return pkgerrors.NewStageError(pkgerrors.StageRender, id, pkgerrors.ErrRender, err)
	}
	if err := s.artifacts.SaveCard(ctx, id, png); err != nil {
		return pkgerrors.NewStageError(pkgerrors.StageSaveCard, id, pkgerrors.ErrIO, err)
	}
	s.logger.Info("卡片已生成", "subject", id, "path", s.artifacts.Layout().CardPath(id))
	return nil
}

// Record 返回已保存的记录，不存在或无法解析时执行完整查询；并保证卡片存在
func (s *CardService) Record(ctx context.Context, id int64) (artifact.FieldRecord, error) {
	record, err := s.artifacts.LoadRecord(ctx, id)
	if err != nil {
		if !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			s.logger.Warn("记录无法读取，重新查询", "subject", id, "error", err)
		}
		return s.Query(ctx, id)
	}
	hasCard, err := s.artifacts.HasCard(ctx, id)
	if err != nil || !hasCard {
		if err := s.RenderCard(ctx, id); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Card 返回卡片 PNG：已有卡片直接读取；只有记录时补绘；都没有时完整查询
func (s *CardService) Card(ctx context.Context, id int64) ([]byte, error) {
	hasCard, _ := s.artifacts.HasCard(ctx, id)
	if !hasCard {
		hasRecord, _ := s.artifacts.HasRecord(ctx, id)
		if hasRecord {
			if err := s.RenderCard(ctx, id); err != nil {
				return nil, err
			}
		} else if _, err := s.Query(ctx, id); err != nil {
			return nil, err
		}
	}
	png, err := s.artifacts.LoadCard(ctx, id)
	if err != nil {
		return nil, pkgerrors.NewStageError(pkgerrors.StageLoadCard, id, pkgerrors.ErrIO, err)
	}
	return png, nil
}

// History 当前最近查询列表，最旧在前
func (s *CardService) History() []int64 {
	return s.recency.List()
}

// Durable 最近查询列表是否处于持久化状态
func (s *CardService) Durable() bool {
	return s.recency.Durable()
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case pkgerrors.Is(err, pkgerrors.ErrFetch):
		return "fetch_failed"
	case pkgerrors.Is(err, pkgerrors.ErrRender):
		return "render_failed"
	default:
		return "io_failed"
	}
}
