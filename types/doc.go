// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 yamhttp 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。连接接收器、调度策略与
响应序列化器通过统一的 Error / ErrorCode 报告失败，调用方可以按
错误码区分编程错误、系统错误、I/O 失败与超时。

# 错误码

  - ALREADY_RUNNING    : 服务器运行中再次调用 Start
  - RESPONSE_SENT      : 同一 Responder 重复 Send
  - SYSTEM_ERROR       : 套接字创建、绑定、监听或 accept 失败
  - IO_ERROR           : 输出 Sink 写入失败或短写
  - TIMEOUT            : 超出时间预算，可重试
  - DISPATCH_REJECTED  : 调度策略拒绝连接
  - RATE_LIMITED       : 接收速率超限，可重试

# 主要能力

  - errors.Is 按错误码匹配，可直接与 ErrAlreadyRunning 等哨兵比较
  - 错误工具链：AsError / GetErrorCode / IsErrorCode / IsRetryable
  - 常用构造：NewSystemError / NewIOError / NewTimeoutError
*/
package types
