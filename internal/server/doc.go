// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供运维 HTTP 服务器的生命周期管理，用于暴露
Prometheus 指标与健康检查端点。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误
传播流程。它与连接接收器相互独立：接收器直接在 TCP 层写出响应，
而运维端点复用标准 HTTP 栈。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/Errors 等生命周期方法。
  - Config：监听地址、读写超时与优雅关闭超时。
  - HealthFunc：健康探针，返回非 nil 错误时 /healthz 返回 503。

# 端点

  - /metrics：promhttp 导出指定 Gatherer 中的全部指标。
  - /healthz：调用 HealthFunc，健康时返回 200 与 "ok"。
*/
package server
