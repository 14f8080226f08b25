package responder

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BaSui01/yamhttp/internal/pool"
	"github.com/BaSui01/yamhttp/types"
)

const (
	httpVersion   = "HTTP/1.1"
	crlf          = "\r\n"
	contentLength = "Content-Length"
	setCookie     = "Set-Cookie"
)

// Recorder observes every response that was fully written.
// *metrics.Collector satisfies it.
type Recorder interface {
	RecordResponse(status int, size int)
}

type nopRecorder struct{}

func (nopRecorder) RecordResponse(int, int) {}

// Option configures a Responder.
type Option func(*Responder)

// WithRecorder sets the response recorder.
func WithRecorder(r Recorder) Option {
	return func(rs *Responder) {
		if r != nil {
			rs.recorder = r
		}
	}
}

type field struct {
	name  string
	value string
}

// =============================================================================
// 📨 响应序列化器
// =============================================================================

// Responder builds and writes exactly one HTTP/1.1 response to w. It is
// not safe for concurrent use.
type Responder struct {
	w        io.Writer
	recorder Recorder

	fields  []field
	index   map[string]int
	cookies []string
	body    []byte
	hasBody bool
	sent    bool
}

// New creates a Responder writing to w.
func New(w io.Writer, opts ...Option) *Responder {
	r := &Responder{
		w:        w,
		recorder: nopRecorder{},
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetField upserts a header. A repeated name overwrites the earlier value
// but keeps its original position. Names are matched and written exactly
// as given.
func (r *Responder) SetField(name, value string) {
	r.mustNotBeSent("SetField")
	r.upsert(name, value)
}

// SetBody stores a copy of body. Send emits a Content-Length computed from
// it, replacing any value set through SetField under any spelling of the
// name.
func (r *Responder) SetBody(body []byte) {
	r.mustNotBeSent("SetBody")
	r.body = append(r.body[:0], body...)
	r.hasBody = true
}

// SetCookie appends a Set-Cookie directive. At most one CookieOptions is
// used; extra values are ignored.
func (r *Responder) SetCookie(name, value string, opts ...CookieOptions) {
	r.mustNotBeSent("SetCookie")
	var o CookieOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	r.cookies = append(r.cookies, EncodeCookie(name, value, o))
}

// Send serializes the response and writes it with a single Write call.
// A second call returns RESPONSE_SENT without writing. Sink failures,
// including short writes, are returned as IO_ERROR; an expired write
// deadline is returned as TIMEOUT.
func (r *Responder) Send(status Status) error {
	if r.sent {
		return types.ErrResponseSent
	}
	r.sent = true

	if r.hasBody {
		r.setContentLength(strconv.Itoa(len(r.body)))
	}

	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)

	buf.WriteString(httpVersion)
	buf.WriteByte(' ')
	buf.WriteString(status.String())
	buf.WriteString(crlf)

	for _, f := range r.fields {
		buf.WriteString(f.name)
		buf.WriteString(": ")
		buf.WriteString(f.value)
		buf.WriteString(crlf)
	}
	for _, c := range r.cookies {
		buf.WriteString(setCookie)
		buf.WriteString(": ")
		buf.WriteString(c)
		buf.WriteString(crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.body)

	n, err := r.w.Write(buf.Bytes())
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return types.NewTimeoutError("write response", err)
		}
		return types.NewIOError("write response", err)
	}
	if n < buf.Len() {
		return types.NewIOError("write response", io.ErrShortWrite)
	}

	r.recorder.RecordResponse(status.Code(), n)
	return nil
}

// Sent reports whether Send has been called.
func (r *Responder) Sent() bool { return r.sent }

func (r *Responder) upsert(name, value string) {
	if i, ok := r.index[name]; ok {
		r.fields[i].value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, field{name: name, value: value})
}

// setContentLength writes v into the first Content-Length field regardless
// of case, keeping the caller's spelling and position, and drops any other
// spelling so only one length reaches the wire. Only Send calls it, so the
// index is not maintained.
func (r *Responder) setContentLength(v string) {
	found := false
	kept := r.fields[:0]
	for _, f := range r.fields {
		if strings.EqualFold(f.name, contentLength) {
			if found {
				continue
			}
			f.value = v
			found = true
		}
		kept = append(kept, f)
	}
	r.fields = kept
	if !found {
		r.fields = append(r.fields, field{name: contentLength, value: v})
	}
}

func (r *Responder) mustNotBeSent(op string) {
	if r.sent {
		panic("responder: " + op + " called after Send")
	}
}
