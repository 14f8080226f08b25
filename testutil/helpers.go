// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数、输出 Sink 替身与回环连接工具
//
// 使用方法:
//
//	sink := &testutil.SinkBuffer{}
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
//	resp := testutil.DialAndReadAll(t, "127.0.0.1:8080", "GET / HTTP/1.1\r\n\r\n")
// =============================================================================
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// ⏳ 异步断言
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("condition did not become true within %v", timeout)
}

// AssertClosedWithin 断言通道在超时内关闭（或可读）
func AssertClosedWithin[T any](t *testing.T, ch <-chan T, timeout time.Duration) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("channel not closed within %v", timeout)
	}
}

// =============================================================================
// 📤 输出 Sink 替身
// =============================================================================

// SinkBuffer 是并发安全的内存输出 Sink，记录 Write 调用次数
type SinkBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
}

// Write 实现 io.Writer
func (s *SinkBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.buf.Write(p)
}

// String 返回已写入的全部内容
func (s *SinkBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Writes 返回 Write 调用次数
func (s *SinkBuffer) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// ErrSinkBroken 是 FailingWriter 默认返回的错误
var ErrSinkBroken = errors.New("sink broken")

// FailingWriter 在写入 Limit 字节后失败，模拟部分写入
type FailingWriter struct {
	Limit int
	Err   error

	written bytes.Buffer
}

// Write 实现 io.Writer
func (w *FailingWriter) Write(p []byte) (int, error) {
	err := w.Err
	if err == nil {
		err = ErrSinkBroken
	}
	room := w.Limit - w.written.Len()
	if room <= 0 {
		return 0, err
	}
	if len(p) <= room {
		return w.written.Write(p)
	}
	n, _ := w.written.Write(p[:room])
	return n, err
}

// Written 返回失败前已接受的字节
func (w *FailingWriter) Written() string {
	return w.written.String()
}

// ShortWriter 报告短写入但不返回错误，违反 io.Writer 约定
type ShortWriter struct{}

// Write 实现 io.Writer
func (ShortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}

// =============================================================================
// 🔌 回环连接辅助
// =============================================================================

// DialAndReadAll 连接 addr，发送 payload（可为空），读取直到对端关闭
func DialAndReadAll(t *testing.T, addr string, payload string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	if payload != "" {
		if _, err := io.WriteString(conn, payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		var opErr *net.OpError
		if !errors.As(err, &opErr) {
			t.Fatalf("read response: %v", err)
		}
	}
	return string(data)
}
