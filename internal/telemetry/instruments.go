package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MeterName 连接指标的 instrumentation scope
const MeterName = "github.com/BaSui01/yamhttp/internal/telemetry"

var rejectReasonKey = attribute.Key("yamhttp.reject.reason")

// =============================================================================
// 📈 OTLP 连接指标
// =============================================================================

// ConnectionMetrics 通过 OTel Meter 记录接收器与响应事件，
// 同时实现 tcp.Recorder 与 responder.Recorder。
type ConnectionMetrics struct {
	accepted     metric.Int64Counter
	rejected     metric.Int64Counter
	acceptErrors metric.Int64Counter
	active       metric.Int64UpDownCounter
	duration     metric.Float64Histogram
	dispatchWait metric.Float64Histogram
	responses    metric.Int64Counter
	responseSize metric.Int64Histogram
}

// NewConnectionMetrics 在 meter 上创建全部连接指标
func NewConnectionMetrics(meter metric.Meter) (*ConnectionMetrics, error) {
	m := &ConnectionMetrics{}
	var err error

	// 接收计数
	if m.accepted, err = meter.Int64Counter("yamhttp.connections.accepted",
		metric.WithDescription("Accepted TCP connections"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}

	if m.rejected, err = meter.Int64Counter("yamhttp.connections.rejected",
		metric.WithDescription("Accepted connections the dispatcher refused"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}

	if m.acceptErrors, err = meter.Int64Counter("yamhttp.accept.errors",
		metric.WithDescription("Unexpected accept failures"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}

	// handler
	if m.active, err = meter.Int64UpDownCounter("yamhttp.handlers.active",
		metric.WithDescription("Connection handlers currently running"),
		metric.WithUnit("{handler}")); err != nil {
		return nil, err
	}

	if m.duration, err = meter.Float64Histogram("yamhttp.handler.duration",
		metric.WithDescription("Connection handler duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5)); err != nil {
		return nil, err
	}

	if m.dispatchWait, err = meter.Float64Histogram("yamhttp.dispatch.wait",
		metric.WithDescription("Time between accept and handler start"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 1)); err != nil {
		return nil, err
	}

	// 响应
	if m.responses, err = meter.Int64Counter("yamhttp.responses",
		metric.WithDescription("HTTP responses written"),
		metric.WithUnit("{response}")); err != nil {
		return nil, err
	}

	if m.responseSize, err = meter.Int64Histogram("yamhttp.response.size",
		metric.WithDescription("Serialized HTTP response size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(64, 256, 1024, 4096, 16384, 65536)); err != nil {
		return nil, err
	}

	return m, nil
}

// Recorder 回调不携带 context，统一使用 Background
var bg = context.Background()

// RecordAccepted 记录一次 accept
func (m *ConnectionMetrics) RecordAccepted() {
	m.accepted.Add(bg, 1)
}

// RecordRejected 记录一次拒绝
func (m *ConnectionMetrics) RecordRejected(reason string) {
	m.rejected.Add(bg, 1, metric.WithAttributes(rejectReasonKey.String(reason)))
}

// RecordAcceptError 记录一次 accept 失败
func (m *ConnectionMetrics) RecordAcceptError() {
	m.acceptErrors.Add(bg, 1)
}

// HandlerStarted 记录 handler 开始与调度等待
func (m *ConnectionMetrics) HandlerStarted(wait time.Duration) {
	m.active.Add(bg, 1)
	m.dispatchWait.Record(bg, wait.Seconds())
}

// HandlerDone 记录 handler 结束
func (m *ConnectionMetrics) HandlerDone(d time.Duration) {
	m.active.Add(bg, -1)
	m.duration.Record(bg, d.Seconds())
}

// RecordResponse 记录一次写出的响应
func (m *ConnectionMetrics) RecordResponse(status int, size int) {
	m.responses.Add(bg, 1, metric.WithAttributes(semconv.HTTPResponseStatusCode(status)))
	m.responseSize.Record(bg, int64(size))
}
