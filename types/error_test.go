package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrCodeIO, "write failed").
		WithCause(root).
		WithRetryable(true)

	if GetErrorCode(err) != ErrCodeIO {
		t.Fatalf("expected code %s, got %s", ErrCodeIO, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got != "[IO_ERROR] write failed: root" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeAlreadyRunning, "Start() called twice")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected code match against sentinel")
	}
	if errors.Is(err, ErrResponseSent) {
		t.Fatalf("unexpected match against a different code")
	}

	wrapped := fmt.Errorf("start: %w", err)
	if !errors.Is(wrapped, ErrAlreadyRunning) {
		t.Fatalf("expected match through fmt wrapping")
	}
	if GetErrorCode(wrapped) != ErrCodeAlreadyRunning {
		t.Fatalf("expected code through fmt wrapping, got %q", GetErrorCode(wrapped))
	}
}

func TestTimeoutError_IsDistinctAndRetryable(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("stop wait", errors.New("deadline"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout match")
	}
	if !IsRetryable(err) {
		t.Fatalf("timeouts should be retryable")
	}

	sys := NewSystemError("accept", errors.New("EMFILE"))
	if errors.Is(sys, ErrTimeout) {
		t.Fatalf("system errors must not match timeout")
	}
	if IsRetryable(sys) {
		t.Fatalf("system errors are not retryable")
	}
	if !IsErrorCode(sys, ErrCodeSystem) {
		t.Fatalf("expected system code")
	}
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code, got %q", code)
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}

func TestGetErrorCode_JoinedErrors(t *testing.T) {
	t.Parallel()

	joined := errors.Join(
		errors.New("listener close: use of closed network connection"),
		NewTimeoutError("write response", errors.New("i/o timeout")),
	)
	if code := GetErrorCode(joined); code != ErrCodeTimeout {
		t.Fatalf("expected code through errors.Join, got %q", code)
	}
	if !IsRetryable(joined) {
		t.Fatalf("expected retryable through errors.Join")
	}

	var e *Error
	if !AsError(fmt.Errorf("send: %w", joined), &e) || e.Code != ErrCodeTimeout {
		t.Fatalf("expected *Error through fmt and errors.Join")
	}
}
