// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 yamhttp 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免各包重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / AssertClosedWithin，
    支持超时轮询等待条件满足
  - 输出 Sink 替身: SinkBuffer（内存 Sink）、FailingWriter
    （部分写入后失败）、ShortWriter（无错误短写入）
  - 回环连接: DialAndReadAll 发送请求并读取完整响应
*/
package testutil
