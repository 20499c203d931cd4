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


package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"profile-card/internal/api/http"
	"profile-card/internal/api/http/middleware"
	"profile-card/internal/app"
	"profile-card/pkg/config"
	"profile-card/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware；仅依赖 Bootstrap 中的 CardService）
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 根据 Bootstrap 装配路由
func NewApp(b *app.Bootstrap) *App {
	cfg := b.Config
	handler := http.NewHandler(b.Service, PublicURL(cfg.API), b.Logger)
	router := http.NewRouter(handler, middleware.NewMiddleware(cfg.API), b.Logger)
	router.SetMetricsEnabled(cfg.Monitoring.Prometheus.Enable)
	return &App{config: b, router: router}
}

// PublicURL 对外可访问的基础地址；未配置时按监听地址生成，0.0.0.0 换成 127.0.0.1
func PublicURL(cfg config.APIConfig) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Port)
}

// Run 启动 HTTP 服务（阻塞直到关闭）
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	logCfg := &log.Config{File: a.config.Config.Log.File}
	output, err := log.Output(logCfg)
	if err != nil {
		return err
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(a.config.Config.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	tracing := a.config.Config.Monitoring.Tracing
	exportEndpoint := tracing.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if tracing.Enable && exportEndpoint != "" {
		serviceName := tracing.ServiceName
		if serviceName == "" {
			serviceName = "profile-card"
		}
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if tracing.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, cfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(cfg))
		a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.config.Close()
}
