// =============================================================================
// 📡 yamhttp OpenTelemetry 接入
// =============================================================================
// 为连接接收器构建 OTLP trace / metric 管线。资源属性描述的是监听端点
// 与调度模式，而不只是服务名；禁用时不创建任何 exporter，Tracer 与
// Meter 均返回 noop 实现。
// =============================================================================

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BaSui01/yamhttp/config"
	"github.com/BaSui01/yamhttp/tcp"
)

// DispatchModeKey 标识资源上报的调度模式 (pool / poll)
const DispatchModeKey = attribute.Key("yamhttp.dispatch.mode")

// Providers 持有 SDK 的 TracerProvider 与 MeterProvider。
// 禁用或 nil 时所有方法都可安全调用。
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init 按配置构建遥测管线并注册为全局 provider。
func Init(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Providers, error) {
	tc := cfg.Telemetry
	if !tc.Enabled {
		logger.Info("telemetry disabled, connection spans and instruments are noop")
		return &Providers{}, nil
	}

	res, err := connectionResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, tc, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, tc, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("telemetry initialized",
		zap.String("otlp_endpoint", tc.OTLPEndpoint),
		zap.String("listen", cfg.Server.Addr),
		zap.String("dispatch", cfg.Server.Dispatch),
		zap.Float64("sample_rate", tc.SampleRate),
		zap.Duration("metric_interval", tc.MetricInterval),
	)
	return &Providers{tp: tp, mp: mp}, nil
}

// connectionResource 描述一个接收器实例：服务身份、监听端点与调度模式
func connectionResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.Telemetry.ServiceName),
		semconv.ServiceVersion(buildVersion()),
		semconv.ServiceInstanceID(uuid.NewString()),
		DispatchModeKey.String(cfg.Server.Dispatch),
	}
	if ep, err := tcp.ParseEndpoint(cfg.Server.Addr); err == nil {
		attrs = append(attrs,
			semconv.ServerAddress(ep.Addr().String()),
			semconv.ServerPort(int(ep.Port())),
		)
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, tc config.TelemetryConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(tc.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.SampleRate))),
	), nil
}

func newMeterProvider(ctx context.Context, tc config.TelemetryConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(tc.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	var opts []sdkmetric.PeriodicReaderOption
	if tc.MetricInterval > 0 {
		opts = append(opts, sdkmetric.WithInterval(tc.MetricInterval))
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, opts...)),
		sdkmetric.WithResource(res),
	), nil
}

// Tracer 返回 scope 对应的 Tracer，禁用时为 noop
func (p *Providers) Tracer(scope string) trace.Tracer {
	if p == nil || p.tp == nil {
		return tracenoop.NewTracerProvider().Tracer(scope)
	}
	return p.tp.Tracer(scope)
}

// Meter 返回 scope 对应的 Meter，禁用时为 noop
func (p *Providers) Meter(scope string) metric.Meter {
	if p == nil || p.mp == nil {
		return metricnoop.NewMeterProvider().Meter(scope)
	}
	return p.mp.Meter(scope)
}

// Shutdown 刷新挂起的 span 与指标并关闭 exporter
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildVersion 取模块版本，开发构建返回 "dev"
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
