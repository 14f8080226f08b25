// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的连接与响应指标采集能力，覆盖
accept 循环、调度策略、handler 执行与响应序列化四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用
promauto.With 将指标注册到调用方提供的 Registerer（默认为全局
Registerer）。所有指标按 namespace 隔离。Collector 同时满足
tcp.Recorder 与 responder.Recorder 接口，可直接注入 Server 与
Responder。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 指标。
  - Recorder / Tee：接收器与响应事件的联合接口及扇出实现，用于把同一
    事件同时交给 Collector 与 OTLP 连接指标。

# 主要能力

  - 连接指标：accept 成功数、被拒绝连接数（按 reason 分组）、
    非预期 accept 失败数。
  - Handler 指标：活跃 handler 数 Gauge、执行耗时与调度等待 Histogram。
  - 响应指标：响应总数（按 status 与 1xx..5xx 分类）、响应字节数。
  - 执行器指标：worker pool 的 worker/排队数与 poller 挂起注册数，
    以 GaugeFunc 形式按需采样。
*/
package metrics
