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
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"profile-card/internal/api/http/middleware"
	"profile-card/pkg/log"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	logger     *log.Logger
	metrics    bool
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware, logger *log.Logger) *Router {
	return &Router{
		handler:    handler,
		middleware: mw,
		logger:     log.OrNop(logger),
		metrics:    true,
	}
}

// SetMetricsEnabled 控制是否暴露 /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metrics = enabled
}

// Build 创建 Hertz 实例并注册中间件与路由；opts 追加在监听地址之后
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	h := server.Default(append([]config.Option{server.WithHostPorts(addr)}, opts...)...)
	h.Use(
		r.middleware.RequestID(),
		r.middleware.CORS(),
		middleware.AccessLog(r.logger),
		r.middleware.RateLimit(),
	)

	h.GET("/", r.handler.Index)
	h.GET("/health", r.handler.HealthCheck)
	h.GET("/history", r.handler.History)
	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}
	h.GET("/card/:mid", r.handler.GetCard)
	h.GET("/:mid", r.handler.GetRecord)
	return h
}
