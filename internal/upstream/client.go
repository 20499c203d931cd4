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

// Package upstream 从远端资料接口拉取主体字段与素材图
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"profile-card/pkg/config"
	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
	"profile-card/pkg/secrets"
	"profile-card/pkg/tracing"
)

// Client 上游接口客户端；三个资料接口返回 {"code":0,"data":{...}} 形式的信封，
// 字段按配置的 gjson 路径提取
type Client struct {
	http    *resty.Client
	cfg     config.UpstreamConfig
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewClient 创建客户端，cookie 为空时不发送 Cookie 头
func NewClient(cfg config.UpstreamConfig, cookie string, logger *log.Logger) *Client {
	hc := resty.New().
		SetTimeout(config.ParseDuration(cfg.Timeout, 10*time.Second)).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(config.ParseDuration(cfg.RetryWait, time.Second)).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
		})
	if cfg.UserAgent != "" {
		hc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Referer != "" {
		hc.SetHeader("Referer", cfg.Referer)
	}
	if cfg.Origin != "" {
		hc.SetHeader("Origin", cfg.Origin)
	}
	if cookie != "" {
		hc.SetHeader("Cookie", cookie)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		http:    hc,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log.OrNop(logger),
	}
}

// NewClientFromSecrets 从 secrets 读取 Cookie 后创建客户端；读不到时告警并以无 Cookie 方式运行
func NewClientFromSecrets(ctx context.Context, cfg config.UpstreamConfig, store secrets.Store, logger *log.Logger) *Client {
	logger = log.OrNop(logger)
	var cookie string
	if store != nil {
		v, err := store.Get(ctx, cfg.CookieKey)
		if err != nil {
			logger.Warn("未读取到上游 Cookie，部分接口可能被拒绝", "key", cfg.CookieKey, "error", err)
		} else {
			cookie = v
		}
	}
	return NewClient(cfg, cookie, logger)
}

// FetchProfile 拉取基本资料
func (c *Client) FetchProfile(ctx context.Context, id int64) (map[string]any, error) {
	return c.fetch(ctx, pkgerrors.StageFetchProfile, c.cfg.Profile, id)
}

// FetchRelation 拉取关注/粉丝数
func (c *Client) FetchRelation(ctx context.Context, id int64) (map[string]any, error) {
	return c.fetch(ctx, pkgerrors.StageFetchRelation, c.cfg.Relation, id)
}

// FetchEngagement 拉取播放/获赞数
func (c *Client) FetchEngagement(ctx context.Context, id int64) (map[string]any, error) {
	return c.fetch(ctx, pkgerrors.StageFetchEngagement, c.cfg.Engagement, id)
}

func (c *Client) fetch(ctx context.Context, stage pkgerrors.Stage, ep config.EndpointConfig, id int64) (fields map[string]any, err error) {
	ctx, span := tracing.StartFetchSpan(ctx, id, string(stage))
	defer func() { tracing.EndSpan(span, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(ep.IDParam, strconv.FormatInt(id, 10)).
		Get(ep.URL)
	metrics.FetchDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", ep.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("请求 %s 返回 HTTP %d", ep.URL, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s 返回的不是合法 JSON", ep.URL)
	}
	if code := gjson.GetBytes(body, "code"); code.Exists() && code.Int() != 0 {
		return nil, fmt.Errorf("%s 返回错误 code=%d message=%s", ep.URL, code.Int(), gjson.GetBytes(body, "message").String())
	}

	fields = make(map[string]any, len(ep.Fields))
	for name, p := range ep.Fields {
		r := gjson.GetBytes(body, p)
		if !r.Exists() {
			continue
		}
		fields[name] = toValue(r)
	}
	c.logger.Debug("上游拉取成功", "subject", id, "stage", stage, "fields", len(fields))
	return fields, nil
}

// toValue 数字保留原始文本，避免大整数经 float64 失真
func toValue(r gjson.Result) any {
	switch r.Type {
	case gjson.String:
		return r.String()
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		return r.Value()
	}
}

var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FetchAsset 下载素材图，返回内容与扩展名。扩展名优先取 URL 路径，其次 Content-Type，最后按内容嗅探
func (c *Client) FetchAsset(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("下载素材 %s 失败: %w", url, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("下载素材 %s 返回 HTTP %d", url, resp.StatusCode())
	}
	body := resp.Body()
	if ext := assetExt(resp.Request.RawRequest, resp.Header().Get("Content-Type"), body); ext != "" {
		return body, ext, nil
	}
	return nil, "", fmt.Errorf("%w: 无法识别素材 %s 的图片格式", pkgerrors.ErrInvalidArg, url)
}

func assetExt(req *http.Request, contentType string, body []byte) string {
	if req != nil {
		switch ext := strings.ToLower(path.Ext(req.URL.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExt[mt]; ok {
			return ext
		}
	}
	return contentTypeExt[http.DetectContentType(body)]
}
