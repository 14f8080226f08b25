package responder

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/yamhttp/testutil"
	"github.com/BaSui01/yamhttp/types"
)

func send(t *testing.T, status Status, build func(r *Responder)) string {
	t.Helper()
	sink := &testutil.SinkBuffer{}
	r := New(sink)
	if build != nil {
		build(r)
	}
	require.NoError(t, r.Send(status))
	assert.Equal(t, 1, sink.Writes(), "response must be written in one call")
	return sink.String()
}

// =============================================================================
// 📜 端到端线格式
// =============================================================================

func TestResponder_WireFormat(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		build  func(r *Responder)
		want   string
	}{
		{
			name:   "status only",
			status: StatusContinue,
			want:   "HTTP/1.1 100 Continue\r\n\r\n",
		},
		{
			name:   "headers in insertion order",
			status: StatusOK,
			build: func(r *Responder) {
				r.SetField("First", "Hello world!")
				r.SetField("Second", "v4r!0u$ sYm80;5")
			},
			want: "HTTP/1.1 200 OK\r\nFirst: Hello world!\r\nSecond: v4r!0u$ sYm80;5\r\n\r\n",
		},
		{
			name:   "body with content length",
			status: StatusBadGateway,
			build: func(r *Responder) {
				r.SetBody([]byte("Hello world!"))
			},
			want: "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 12\r\n\r\nHello world!",
		},
		{
			name:   "cookies in order",
			status: StatusNotFound,
			build: func(r *Responder) {
				r.SetCookie("First", "One")
				r.SetCookie("Second", "Two")
			},
			want: "HTTP/1.1 404 Not Found\r\nSet-Cookie: First=One\r\nSet-Cookie: Second=Two\r\n\r\n",
		},
		{
			name:   "cookie with domain path and max-age",
			status: StatusOK,
			build: func(r *Responder) {
				var o CookieOptions
				o.SetDomain("example.com").SetPath("/some/path").SetMaxAge(10 * time.Minute)
				r.SetCookie("First", "One", o)
			},
			want: "HTTP/1.1 200 OK\r\nSet-Cookie: First=One; Domain=example.com; Path=/some/path; Max-Age=600\r\n\r\n",
		},
		{
			name:   "cookie with expiration",
			status: StatusOK,
			build: func(r *Responder) {
				var o CookieOptions
				o.SetExpiration(time.Date(2013, time.January, 15, 21, 47, 38, 0, time.UTC))
				r.SetCookie("First", "One", o)
			},
			want: "HTTP/1.1 200 OK\r\nSet-Cookie: First=One; Expires=Tue, 15 Jan 2013 21:47:38 GMT\r\n\r\n",
		},
		{
			name:   "cookie flags",
			status: StatusOK,
			build: func(r *Responder) {
				var o CookieOptions
				o.SetHttpOnly(true).SetSecure(true)
				r.SetCookie("First", "One", o)
			},
			want: "HTTP/1.1 200 OK\r\nSet-Cookie: First=One; HttpOnly; Secure\r\n\r\n",
		},
		{
			name:   "headers then cookies then body",
			status: StatusCreated,
			build: func(r *Responder) {
				r.SetField("Location", "/items/1")
				r.SetCookie("sid", "abc")
				r.SetBody([]byte("{}"))
			},
			want: "HTTP/1.1 201 Created\r\nLocation: /items/1\r\nContent-Length: 2\r\nSet-Cookie: sid=abc\r\n\r\n{}",
		},
		{
			name:   "unknown status",
			status: Status(599),
			want:   "HTTP/1.1 599 Unknown\r\n\r\n",
		},
		{
			name:   "empty body still has content length",
			status: StatusOK,
			build: func(r *Responder) {
				r.SetBody(nil)
			},
			want: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, send(t, tt.status, tt.build))
		})
	}
}

func TestResponder_FieldOverwriteKeepsPosition(t *testing.T) {
	got := send(t, StatusOK, func(r *Responder) {
		r.SetField("A", "1")
		r.SetField("B", "2")
		r.SetField("A", "3")
	})
	assert.Equal(t, "HTTP/1.1 200 OK\r\nA: 3\r\nB: 2\r\n\r\n", got)
}

func TestResponder_FieldNamesAreCaseSensitive(t *testing.T) {
	got := send(t, StatusOK, func(r *Responder) {
		r.SetField("x-id", "1")
		r.SetField("X-Id", "2")
	})
	assert.Equal(t, "HTTP/1.1 200 OK\r\nx-id: 1\r\nX-Id: 2\r\n\r\n", got)
}

func TestResponder_ComputedContentLengthWins(t *testing.T) {
	got := send(t, StatusOK, func(r *Responder) {
		r.SetField("Content-Length", "999")
		r.SetField("Server", "yam")
		r.SetBody([]byte("abc"))
	})
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 3\r\nServer: yam\r\n\r\nabc", got)
}

func TestResponder_ComputedContentLengthIgnoresCase(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Responder)
		want  string
	}{
		{
			name: "lower case keeps spelling and position",
			setup: func(r *Responder) {
				r.SetField("content-length", "99")
				r.SetField("Server", "yam")
				r.SetBody([]byte("abc"))
			},
			want: "HTTP/1.1 200 OK\r\ncontent-length: 3\r\nServer: yam\r\n\r\nabc",
		},
		{
			name: "several spellings collapse to the first",
			setup: func(r *Responder) {
				r.SetField("X-A", "1")
				r.SetField("CONTENT-LENGTH", "7")
				r.SetField("Content-Length", "8")
				r.SetBody([]byte("hello"))
			},
			want: "HTTP/1.1 200 OK\r\nX-A: 1\r\nCONTENT-LENGTH: 5\r\n\r\nhello",
		},
		{
			name: "without a body the caller value stays",
			setup: func(r *Responder) {
				r.SetField("content-length", "42")
			},
			want: "HTTP/1.1 200 OK\r\ncontent-length: 42\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := send(t, StatusOK, tt.setup)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, strings.Count(strings.ToLower(got), "content-length:"))
		})
	}
}

func TestResponder_BodyIsCopied(t *testing.T) {
	body := []byte("abc")
	got := send(t, StatusOK, func(r *Responder) {
		r.SetBody(body)
		body[0] = 'x'
	})
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nabc"))
}

// =============================================================================
// ❌ 失败语义
// =============================================================================

func TestResponder_SecondSendFails(t *testing.T) {
	sink := &testutil.SinkBuffer{}
	r := New(sink)
	require.NoError(t, r.Send(StatusOK))
	assert.True(t, r.Sent())

	err := r.Send(StatusOK)
	assert.ErrorIs(t, err, types.ErrResponseSent)
	assert.Equal(t, 1, sink.Writes())
}

func TestResponder_SettersPanicAfterSend(t *testing.T) {
	r := New(&testutil.SinkBuffer{})
	require.NoError(t, r.Send(StatusOK))

	assert.Panics(t, func() { r.SetField("A", "1") })
	assert.Panics(t, func() { r.SetBody([]byte("x")) })
	assert.Panics(t, func() { r.SetCookie("a", "b") })
}

func TestResponder_SinkFailure(t *testing.T) {
	w := &testutil.FailingWriter{Limit: 5}
	r := New(w)
	r.SetBody([]byte("Hello world!"))

	err := r.Send(StatusOK)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeIO, types.GetErrorCode(err))
	assert.ErrorIs(t, err, testutil.ErrSinkBroken)
	assert.Equal(t, "HTTP/", w.Written(), "no retry after a partial write")

	// a failed Send still consumes the responder
	assert.ErrorIs(t, r.Send(StatusOK), types.ErrResponseSent)
}

func TestResponder_ShortWrite(t *testing.T) {
	err := New(testutil.ShortWriter{}).Send(StatusOK)
	assert.Equal(t, types.ErrCodeIO, types.GetErrorCode(err))
	assert.True(t, errors.Is(err, io.ErrShortWrite))
}

func TestResponder_WriteDeadlineIsTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	require.NoError(t, server.SetWriteDeadline(time.Now().Add(-time.Second)))

	err := New(server).Send(StatusOK)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeTimeout, types.GetErrorCode(err))
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.True(t, types.IsRetryable(err))
}

type recorded struct {
	status int
	size   int
}

type fakeRecorder struct{ got []recorded }

func (f *fakeRecorder) RecordResponse(status int, size int) {
	f.got = append(f.got, recorded{status, size})
}

func TestResponder_RecordsWrittenResponses(t *testing.T) {
	rec := &fakeRecorder{}

	r := New(&testutil.SinkBuffer{}, WithRecorder(rec))
	require.NoError(t, r.Send(StatusNoContent))

	failed := New(&testutil.FailingWriter{}, WithRecorder(rec))
	require.Error(t, failed.Send(StatusOK))

	require.Len(t, rec.got, 1)
	assert.Equal(t, recorded{204, len("HTTP/1.1 204 No Content\r\n\r\n")}, rec.got[0])
}

// =============================================================================
// 🎲 属性测试
// =============================================================================

func TestProperty_FieldsLastWriteWinsFirstPositionKept(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := []string{"Alpha", "Beta", "Gamma", "Delta", "X-Trace"}
		n := rapid.IntRange(0, 20).Draw(rt, "n")

		sink := &testutil.SinkBuffer{}
		r := New(sink)

		var order []string
		last := make(map[string]string)
		for i := 0; i < n; i++ {
			name := rapid.SampledFrom(names).Draw(rt, fmt.Sprintf("name_%d", i))
			value := rapid.StringMatching(`[A-Za-z0-9 !$;=/]{0,12}`).Draw(rt, fmt.Sprintf("value_%d", i))
			if _, seen := last[name]; !seen {
				order = append(order, name)
			}
			last[name] = value
			r.SetField(name, value)
		}
		require.NoError(rt, r.Send(StatusOK))

		var want strings.Builder
		want.WriteString("HTTP/1.1 200 OK\r\n")
		for _, name := range order {
			want.WriteString(name + ": " + last[name] + "\r\n")
		}
		want.WriteString("\r\n")
		assert.Equal(rt, want.String(), sink.String())
	})
}

func TestProperty_ContentLengthMatchesBody(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		body := rapid.SliceOfN(rapid.Byte(), 0, 2048).Draw(rt, "body")
		spelling := rapid.SampledFrom([]string{"", "Content-Length", "content-length", "CONTENT-LENGTH"}).Draw(rt, "spelling")

		sink := &testutil.SinkBuffer{}
		r := New(sink)
		if spelling != "" {
			r.SetField(spelling, "12345")
		} else {
			spelling = "Content-Length"
		}
		r.SetBody(body)
		require.NoError(rt, r.Send(StatusOK))

		head, rest, found := strings.Cut(sink.String(), "\r\n\r\n")
		require.True(rt, found)
		assert.Contains(rt, head+"\r\n", fmt.Sprintf("\r\n%s: %d\r\n", spelling, len(body)))
		assert.Equal(rt, 1, strings.Count(strings.ToLower(head), "content-length:"))
		assert.Equal(rt, string(body), rest)
	})
}
