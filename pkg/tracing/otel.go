// Copyright 2026 fanjia1024
// Spans for the query pipeline; the global TracerProvider is installed by the API server when tracing is enabled

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "profile-card"

// StartQuerySpan 开始一次完整查询管线的 span
func StartQuerySpan(ctx context.Context, subject int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "card.query",
		trace.WithAttributes(attribute.Int64("subject.id", subject)),
	)
}

// StartFetchSpan 开始单个上游拉取的 span
func StartFetchSpan(ctx context.Context, subject int64, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "upstream.fetch",
		trace.WithAttributes(
			attribute.Int64("subject.id", subject),
			attribute.String("fetch.stage", stage),
		),
	)
}

// StartRenderSpan 开始卡片绘制的 span
func StartRenderSpan(ctx context.Context, subject int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "card.render",
		trace.WithAttributes(attribute.Int64("subject.id", subject)),
	)
}

// EndSpan 记录错误（如有）并结束 span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
