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
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"profile-card/pkg/log"
)

// AccessLog 访问日志中间件：请求结束后按操作类型记一条结构化日志
func AccessLog(logger *log.Logger) app.HandlerFunc {
	logger = log.OrNop(logger)
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		path := string(c.Path())
		status := c.Response.StatusCode()
		attrs := []any{
			"action", determineAction(path),
			"method", string(c.Method()),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id, ok := c.Get("request_id"); ok {
			attrs = append(attrs, "request_id", id)
		}
		if status >= 500 {
			logger.Warn("请求处理失败", attrs...)
			return
		}
		logger.Info("请求完成", attrs...)
	}
}

// determineAction 根据路径确定操作类型
func determineAction(path string) string {
	trimmed := strings.Trim(path, "/")
	switch {
	case trimmed == "":
		return "index"
	case trimmed == "health", trimmed == "metrics", trimmed == "history":
		return trimmed
	case strings.HasPrefix(trimmed, "card/"):
		return "card"
	case !strings.Contains(trimmed, "/"):
		return "query"
	}
	return "unknown"
}
