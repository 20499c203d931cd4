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


package http

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	pkgapp "profile-card/internal/app"
	"profile-card/internal/artifact"
	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
)

// timestampLayout 响应中 timestamp 的格式（本地时间，微秒精度）
const timestampLayout = "2006-01-02T15:04:05.000000"

// CardService 处理器依赖的查询编排能力
type CardService interface {
	Record(ctx context.Context, id int64) (artifact.FieldRecord, error)
	Card(ctx context.Context, id int64) ([]byte, error)
	History() []int64
	Durable() bool
}

// Handler HTTP 处理器
type Handler struct {
	service   CardService
	publicURL string
	logger    *log.Logger
	now       func() time.Time
}

// NewHandler 创建 HTTP 处理器；publicURL 用于拼接 card_image_url
func NewHandler(service CardService, publicURL string, logger *log.Logger) *Handler {
	return &Handler{
		service:   service,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log.OrNop(logger),
		now:       time.Now,
	}
}

// Index 服务说明
func (h *Handler) Index(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"message": "用户资料卡片查询 API 服务",
		"usage": map[string]string{
			"query_user": "/<mid> - 查询指定 MID 的用户数据",
			"get_card":   "/card/<mid> - 获取用户信息卡片图片",
			"history":    "/history - 最近查询的 MID 列表",
			"example":    "/2 - 查询 MID 为 2 的用户数据",
		},
		"status": "running",
	})
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	durable := true
	if h.service != nil {
		durable = h.service.Durable()
	}
	c.JSON(consts.StatusOK, map[string]any{
		"status":          "ok",
		"recency_durable": durable,
	})
}

// GetRecord 返回主体的字段记录（有缓存用缓存，否则查询），并确保卡片存在
func (h *Handler) GetRecord(ctx context.Context, c *app.RequestContext) {
	raw := c.Param("mid")
	id, err := pkgapp.ParseSubjectID(raw)
	if err != nil {
		h.writeError(c, raw, err)
		return
	}
	record, err := h.service.Record(ctx, id)
	if err != nil {
		h.writeError(c, id, err)
		return
	}

	data := make(map[string]any, len(record)+1)
	for k, v := range record {
		data[k] = v
	}
	data["card_image_url"] = h.cardURL(id)

	c.JSON(consts.StatusOK, map[string]any{
		"success":   true,
		"mid":       id,
		"data":      data,
		"timestamp": h.now().Format(timestampLayout),
	})
}

// GetCard 返回主体的 PNG 卡片，缺失时按需重新生成
func (h *Handler) GetCard(ctx context.Context, c *app.RequestContext) {
	raw := c.Param("mid")
	id, err := pkgapp.ParseSubjectID(raw)
	if err != nil {
		h.writeError(c, raw, err)
		return
	}
	png, err := h.service.Card(ctx, id)
	if err != nil {
		h.writeError(c, id, err)
		return
	}
	c.Data(consts.StatusOK, "image/png", png)
}

// History 当前最近查询列表，从旧到新
func (h *Handler) History(ctx context.Context, c *app.RequestContext) {
	history := h.service.History()
	if history == nil {
		history = []int64{}
	}
	c.JSON(consts.StatusOK, map[string]any{
		"success": true,
		"history": history,
		"durable": h.service.Durable(),
	})
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	c.Response.Header.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := metrics.WritePrometheus(c.Response.BodyWriter()); err != nil {
		h.logger.Error("导出指标失败", "error", err)
		c.AbortWithStatus(consts.StatusInternalServerError)
		return
	}
	c.Status(consts.StatusOK)
}

func (h *Handler) cardURL(id int64) string {
	return fmt.Sprintf("%s/card/%d", h.publicURL, id)
}

// writeError 按错误分类写出 {success:false, error, stage, mid}
func (h *Handler) writeError(c *app.RequestContext, mid any, err error) {
	status := statusOf(err)
	body := map[string]any{
		"success": false,
		"error":   err.Error(),
		"mid":     mid,
	}
	if stage := pkgerrors.StageOf(err); stage != "" {
		body["stage"] = string(stage)
	}
	if status >= consts.StatusInternalServerError {
		h.logger.Error("请求失败", "mid", mid, "stage", body["stage"], "error", err)
	} else {
		h.logger.Warn("请求失败", "mid", mid, "stage", body["stage"], "error", err)
	}
	c.JSON(status, body)
}

// statusOf 错误分类到 HTTP 状态码：非法参数与上游失败 400，本地读写与绘制失败 500，缺失 404
func statusOf(err error) int {
	switch {
	case pkgerrors.Is(err, pkgerrors.ErrInvalidArg), pkgerrors.Is(err, pkgerrors.ErrFetch):
		return consts.StatusBadRequest
	case pkgerrors.Is(err, pkgerrors.ErrRender), pkgerrors.Is(err, pkgerrors.ErrIO):
		return consts.StatusInternalServerError
	case pkgerrors.Is(err, pkgerrors.ErrNotFound):
		return consts.StatusNotFound
	}
	return consts.StatusInternalServerError
}
