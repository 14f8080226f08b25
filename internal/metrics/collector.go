// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/yamhttp/internal/pool"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现 tcp.Recorder 与 responder.Recorder
type Collector struct {
	factory promauto.Factory

	namespace string

	// 连接指标
	connectionsAccepted prometheus.Counter
	connectionsRejected *prometheus.CounterVec
	acceptErrors        prometheus.Counter
	handlersActive      prometheus.Gauge
	handlerDuration     prometheus.Histogram
	dispatchWait        prometheus.Histogram

	// 响应指标
	responsesTotal *prometheus.CounterVec
	responseBytes  prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registerer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := promauto.With(reg)
	c := &Collector{
		factory:   f,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	// 连接指标
	c.connectionsAccepted = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_accepted_total",
		Help:      "Total number of accepted TCP connections",
	})

	c.connectionsRejected = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Total number of accepted connections the dispatcher refused",
		},
		[]string{"reason"},
	)

	c.acceptErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accept_errors_total",
		Help:      "Total number of unexpected accept failures",
	})

	c.handlersActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "handlers_active",
		Help:      "Number of connection handlers currently running",
	})

	c.handlerDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Connection handler duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	c.dispatchWait = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_wait_seconds",
		Help:      "Time between accept and handler start in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// 响应指标
	c.responsesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Total number of HTTP responses written",
		},
		[]string{"status", "class"},
	)

	c.responseBytes = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "response_size_bytes",
		Help:      "Serialized HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔌 连接指标记录
// =============================================================================

// RecordAccepted 记录一次成功 accept
func (c *Collector) RecordAccepted() {
	c.connectionsAccepted.Inc()
}

// RecordRejected 记录一次被调度策略拒绝的连接
func (c *Collector) RecordRejected(reason string) {
	c.connectionsRejected.WithLabelValues(reason).Inc()
}

// RecordAcceptError 记录一次非预期的 accept 失败
func (c *Collector) RecordAcceptError() {
	c.acceptErrors.Inc()
}

// HandlerStarted 记录 handler 开始执行及其在调度中的等待时间
func (c *Collector) HandlerStarted(wait time.Duration) {
	c.handlersActive.Inc()
	c.dispatchWait.Observe(wait.Seconds())
}

// HandlerDone 记录 handler 结束及耗时
func (c *Collector) HandlerDone(d time.Duration) {
	c.handlersActive.Dec()
	c.handlerDuration.Observe(d.Seconds())
}

// =============================================================================
// 📨 响应指标记录
// =============================================================================

// RecordResponse 记录一次写出的响应
func (c *Collector) RecordResponse(status int, size int) {
	c.responsesTotal.WithLabelValues(strconv.Itoa(status), statusClass(status)).Inc()
	c.responseBytes.Observe(float64(size))
}

// =============================================================================
// 🧵 执行器指标
// =============================================================================

// ObservePool 以 GaugeFunc 形式导出 worker pool 状态
func (c *Collector) ObservePool(stats func() pool.GoroutinePoolStats) {
	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "pool_workers",
		Help:      "Number of live worker goroutines",
	}, func() float64 { return float64(stats().Workers) })

	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "pool_queued",
		Help:      "Number of connection tasks waiting in the pool queue",
	}, func() float64 { return float64(stats().Queued) })
}

// ObservePoller 以 GaugeFunc 形式导出 poller 挂起注册数
func (c *Collector) ObservePoller(pending func() int) {
	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "poller_pending",
		Help:      "Number of connections waiting for read readiness",
	}, func() float64 { return float64(pending()) })
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusClass 将 HTTP 状态码转换为分类标签
func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
