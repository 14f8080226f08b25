package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/yamhttp/types"
)

// TracerName is the instrumentation scope of the connection.handle span.
const TracerName = "github.com/BaSui01/yamhttp/tcp"

// Recorder receives accept-loop and handler events. *metrics.Collector
// satisfies it.
type Recorder interface {
	RecordAccepted()
	RecordRejected(reason string)
	RecordAcceptError()
	// HandlerStarted receives how long the connection waited between
	// accept and the start of its handler.
	HandlerStarted(wait time.Duration)
	HandlerDone(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAccepted()                   {}
func (nopRecorder) RecordRejected(string)             {}
func (nopRecorder) RecordAcceptError()                {}
func (nopRecorder) HandlerStarted(wait time.Duration) {}
func (nopRecorder) HandlerDone(d time.Duration)       {}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// =============================================================================
// 🔌 TCP 连接接收器
// =============================================================================

// Server owns a listening socket and its accept loop. Each accepted
// connection is handed to the Dispatcher; the Server never runs handlers
// itself.
type Server struct {
	endpoint   Endpoint
	dispatcher Dispatcher
	logger     *zap.Logger
	recorder   Recorder
	tracer     trace.Tracer
	listenFn   func(Endpoint) (net.Listener, error)

	// running is read by the accept loop on every iteration.
	running atomic.Bool

	// mu serializes Start/Stop around listener and loopDone.
	mu       sync.Mutex
	listener net.Listener
	loopDone chan struct{}
}

// NewServer creates a stopped Server bound to ep.
func NewServer(ep Endpoint, d Dispatcher, opts ...Option) *Server {
	s := &Server{
		endpoint:   ep,
		dispatcher: d,
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(TracerName),
		listenFn:   listen,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		zap.String("component", "tcp_server"),
		zap.String("endpoint", ep.String()),
	)
	return s
}

// Start binds the listener and spawns the accept loop. It fails without
// changing state when the server is running or a previous loop is still
// draining; socket setup failures are returned as SYSTEM_ERROR.
func (s *Server) Start(h ConnectionHandler) (*Completion, error) {
	if h == nil {
		panic("tcp: nil ConnectionHandler")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() || s.loopActive() {
		return nil, types.NewError(types.ErrCodeAlreadyRunning,
			"Start() called when TCP server is already running")
	}

	ln, err := s.listenFn(s.endpoint)
	if err != nil {
		return nil, err
	}

	s.listener = ln
	s.loopDone = make(chan struct{})
	c := newCompletion()
	s.running.Store(true)

	go s.acceptLoop(ln, s.instrument(h), c, s.loopDone)

	s.logger.Info("tcp server started", zap.String("listen", ln.Addr().String()))
	return c, nil
}

// Stop closes the listener and waits for the accept loop to exit. Only the
// caller that flips Running to Stopped does the teardown; everyone else
// returns immediately. In-flight handlers are not interrupted.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	ln, done := s.listener, s.loopDone
	s.listener = nil
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			s.logger.Debug("listener close failed", zap.Error(err))
		}
	}
	if done != nil {
		<-done
	}

	s.logger.Info("tcp server stopped")
}

// Endpoint returns the configured endpoint.
func (s *Server) Endpoint() Endpoint {
	return s.endpoint
}

// ListenEndpoint returns the bound address while running. It differs from
// Endpoint when the configured port is 0.
func (s *Server) ListenEndpoint() (Endpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return Endpoint{}, false
	}
	return EndpointFromAddr(s.listener.Addr()), true
}

// IsRunning reports whether the accept loop is serving.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// loopActive reports whether a previous accept loop has not yet exited.
// Caller holds mu.
func (s *Server) loopActive() bool {
	if s.loopDone == nil {
		return false
	}
	select {
	case <-s.loopDone:
		return false
	default:
		return true
	}
}

func (s *Server) acceptLoop(ln net.Listener, h ConnectionHandler, c *Completion, done chan struct{}) {
	defer close(done)

	for s.running.Load() {
		nc, err := ln.Accept()
		if err != nil {
			// Stop closed the listener under us: planned exit.
			if !s.running.CompareAndSwap(true, false) {
				c.resolve(nil)
				return
			}

			ln.Close()
			s.mu.Lock()
			if s.listener == ln {
				s.listener = nil
			}
			s.mu.Unlock()

			s.recorder.RecordAcceptError()
			s.logger.Error("accept failed, stopping server", zap.Error(err))
			c.resolve(types.NewSystemError("accept", err))
			return
		}

		s.dispatch(newConnection(nc), h)
	}

	c.resolve(nil)
}

func (s *Server) dispatch(conn *Connection, h ConnectionHandler) {
	s.recorder.RecordAccepted()

	if err := s.dispatcher.Dispatch(conn, h); err != nil {
		reason := rejectReason(err)
		s.recorder.RecordRejected(reason)
		s.logger.Warn("connection rejected",
			zap.String("conn_id", conn.ID()),
			zap.Stringer("peer", conn.Peer()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		conn.Close()
	}
}

// instrument wraps the user handler with a span, metrics and panic
// recovery. Dispatchers run it on goroutines the Server does not own, so a
// panic must not escape.
func (s *Server) instrument(h ConnectionHandler) ConnectionHandler {
	return func(conn *Connection) {
		start := time.Now()
		wait := start.Sub(conn.AcceptedAt())

		ctx, span := s.tracer.Start(conn.Context(), "connection.handle",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("conn.id", conn.ID()),
				attribute.String("net.peer", conn.Peer().String()),
				attribute.Float64("conn.dispatch_wait_ms", float64(wait.Microseconds())/1e3),
			),
		)
		conn.ctx = ctx

		s.recorder.HandlerStarted(wait)

		defer func() {
			if r := recover(); r != nil {
				span.RecordError(fmt.Errorf("handler panic: %v", r))
				span.SetStatus(codes.Error, "handler panic")
				s.logger.Error("connection handler panicked",
					zap.String("conn_id", conn.ID()),
					zap.Any("panic", r),
				)
				conn.Close()
			}
			s.recorder.HandlerDone(time.Since(start))
			span.End()
		}()

		h(conn)
	}
}

func listen(ep Endpoint) (net.Listener, error) {
	if !ep.IsValid() {
		return nil, types.NewSystemError("listen", fmt.Errorf("invalid endpoint"))
	}

	// Go's listener already uses the kernel's maximum backlog (somaxconn).
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), ep.Network(), ep.String())
	if err != nil {
		return nil, types.NewSystemError("listen "+ep.String(), err)
	}
	return ln, nil
}
