package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		QueryTotal, FetchDuration, RenderDuration,
		EvictionTotal, CascadeDeleteFailures, RecencyPersistFailures,
		ShrinkToFitTotal,
	)
}

// QueryTotal 查询管线执行次数（按结果）
var QueryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "profilecard_query_total",
		Help: "查询管线执行次数",
	},
	[]string{"status"}, // ok | fetch_failed | io_failed | render_failed
)

// FetchDuration 上游拉取耗时（秒）
var FetchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "profilecard_fetch_duration_seconds",
		Help:    "上游拉取耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"stage"},
)

// RenderDuration 卡片绘制耗时（秒）
var RenderDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "profilecard_render_duration_seconds",
		Help:    "卡片绘制耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// EvictionTotal 最近查询列表淘汰次数
var EvictionTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "profilecard_eviction_total",
		Help: "最近查询列表淘汰次数",
	},
)

// CascadeDeleteFailures 级联删除中单个文件删除失败次数（不含文件本就不存在）
var CascadeDeleteFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "profilecard_cascade_delete_failures_total",
		Help: "级联删除单文件失败次数",
	},
	[]string{"kind"}, // record | asset | card
)

// RecencyPersistFailures 最近查询列表持久化失败次数
var RecencyPersistFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "profilecard_recency_persist_failures_total",
		Help: "最近查询列表持久化失败次数",
	},
)

// ShrinkToFitTotal 统计数值因超宽而缩小字号的次数
var ShrinkToFitTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "profilecard_shrink_to_fit_total",
		Help: "统计数值缩小字号次数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
