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


package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"profile-card/pkg/config"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// Middleware 中间件管理器
type Middleware struct {
	cfg     config.APIConfig
	limiter *rate.Limiter
}

// NewMiddleware 根据 API 配置创建中间件管理器
func NewMiddleware(cfg config.APIConfig) *Middleware {
	m := &Middleware{cfg: cfg}
	if cfg.Middleware.RateLimit && cfg.Middleware.RateLimitRPS > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.Middleware.RateLimitRPS), cfg.Middleware.RateLimitRPS)
	}
	return m
}

// CORS CORS 中间件；未启用时直接放行
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !m.cfg.CORS.Enable {
			c.Next(ctx)
			return
		}
		if origin := m.allowOrigin(string(c.GetHeader("Origin"))); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+HeaderRequestID)
			c.Header("Access-Control-Expose-Headers", "Content-Length, "+HeaderRequestID)
			c.Header("Access-Control-Max-Age", "86400")
		}
		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

func (m *Middleware) allowOrigin(origin string) string {
	origins := m.cfg.CORS.AllowOrigins
	if len(origins) == 0 {
		return "*"
	}
	for _, o := range origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// RequestID 透传或生成请求 ID，写入响应头并存入 c.Keys
func (m *Middleware) RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next(ctx)
	}
}

// RateLimit 进程级令牌桶限流；未启用时直接放行
func (m *Middleware) RateLimit() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if m.limiter != nil && !m.limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]any{
				"success": false,
				"error":   "请求过于频繁，请稍后再试",
			})
			return
		}
		c.Next(ctx)
	}
}
