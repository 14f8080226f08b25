// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 tcp 提供 HTTP/1.1 服务端的连接接收层：监听一个 IPv4/IPv6
Endpoint，在后台 accept 循环中接收连接，并交由可插拔的调度策略
（Dispatcher）执行用户的 ConnectionHandler。

# 概述

Server 只负责 accept，从不直接运行 handler。Start 绑定监听套接字
（SO_REUSEADDR，系统最大 backlog）并返回一次性 Completion；Stop
关闭监听并等待循环退出，但不会中断已在执行的 handler。意外的
accept 失败会结束循环，并通过 Completion 以 SYSTEM_ERROR 报告。

# 核心类型

  - Endpoint：IP 地址加端口，取值语义，支持 IPv4 与 IPv6。
  - Connection：已接收的连接，携带唯一 ID、对端地址与上下文。
  - Server：监听与 accept 循环，状态为 Stopped/Running。
  - Completion：accept 循环结束时恰好完成一次的句柄。
  - Dispatcher：调度策略接口。

# 调度策略

  - PoolDispatcher：每个连接向 Executor（如 pool.GoroutinePool）
    投递一个任务，队列饱和时拒绝连接。
  - PolledDispatcher：向 Registrar（如 poller.Poller）注册一次性
    可读回调，连接可读后再运行 handler。
  - RateLimitedDispatcher：令牌桶限流，包装任意 Dispatcher。

被拒绝的连接由 Server 关闭，并按 reason 记录到 Recorder。

# 可观测性

Recorder 接收 accept、拒绝、accept 失败与 handler 耗时事件，
metrics.Collector 满足该接口。每次 handler 执行都会创建一个
OpenTelemetry span（connection.handle），handler 内的 panic 会被
恢复、记录并关闭连接。
*/
package tcp
