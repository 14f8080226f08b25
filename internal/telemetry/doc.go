// Package telemetry 为连接接收器接入 OpenTelemetry。
//
// Init 按配置构建 OTLP gRPC trace 与 metric 管线，资源属性描述接收器
// 实例（服务身份、监听地址与端口、调度模式）。Providers.Tracer 与
// Providers.Meter 按包返回独立的 instrumentation scope；
// ConnectionMetrics 在 Meter 上记录 accept、拒绝、handler 耗时、调度
// 等待与响应等事件，可与 Prometheus Collector 通过 metrics.Tee 并用。
// 遥测禁用时全部返回 noop 实现，不连接任何外部服务。
package telemetry
