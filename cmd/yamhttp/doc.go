// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 yamhttp 服务端程序入口。

# 概述

cmd/yamhttp 基于 cobra 提供 serve 与 version 子命令。serve 加载
YAML 与环境变量配置，初始化 zap 日志与 OpenTelemetry，按配置选择
worker pool 或 poller 调度策略，启动连接接收器与运维端点，并为每个
连接写出一个固定的 HTTP/1.1 响应。

# 生命周期

  - 启动：Server.Start 绑定监听，运维 Manager 暴露 /metrics 与 /healthz
  - 监督：errgroup 等待 accept 循环结束、运维服务失败或 SIGINT/SIGTERM
  - 关闭：停止接收器，关闭运维服务，等待 worker pool 排空，
    关闭 poller 并刷新遥测数据
  - 构建注入：version、commit、date 通过 ldflags 设置
*/
package main
