package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/yamhttp/config"
	"github.com/BaSui01/yamhttp/internal/metrics"
	"github.com/BaSui01/yamhttp/internal/pool"
	"github.com/BaSui01/yamhttp/internal/poller"
	"github.com/BaSui01/yamhttp/internal/server"
	"github.com/BaSui01/yamhttp/internal/telemetry"
	"github.com/BaSui01/yamhttp/responder"
	"github.com/BaSui01/yamhttp/tcp"
)

// requestReadTimeout bounds the single best-effort read of the request head.
const requestReadTimeout = time.Second

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the connection acceptor",
		Long: `Start the TCP connection acceptor and the ops server.

Every accepted connection receives a small static HTTP/1.1 response and
is closed. The process stops on SIGINT/SIGTERM or when the accept loop
fails.

Examples:
  yamhttp serve
  yamhttp serve --config /etc/yamhttp/yamhttp.yaml
  YAMHTTP_SERVER_DISPATCH=poll yamhttp serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting yamhttp",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
	)

	if ctx == nil {
		ctx = context.Background()
	}

	providers, err := telemetry.Init(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	a, err := newApp(cfg, logger, prometheus.NewRegistry(), providers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := a.run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	a.shutdown(shutdownCtx)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("yamhttp stopped")
	return runErr
}

// =============================================================================
// 🧩 应用装配
// =============================================================================

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	recorder  metrics.Recorder
	server    *tcp.Server
	ops       *server.Manager
	handler   tcp.ConnectionHandler
	closers   []func() error
}

// newApp wires the acceptor. providers may be nil, in which case spans and
// OTLP instruments are noop.
func newApp(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry, providers *telemetry.Providers) (*app, error) {
	ep, err := tcp.ParseEndpoint(cfg.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("server addr: %w", err)
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	otlp, err := telemetry.NewConnectionMetrics(providers.Meter(telemetry.MeterName))
	if err != nil {
		return nil, fmt.Errorf("create connection instruments: %w", err)
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)
	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		recorder:  metrics.Tee(collector, otlp),
	}

	d, err := a.buildDispatcher()
	if err != nil {
		return nil, err
	}

	a.server = tcp.NewServer(ep, d,
		tcp.WithLogger(logger),
		tcp.WithRecorder(a.recorder),
		tcp.WithTracer(providers.Tracer(tcp.TracerName)),
	)
	a.handler = staticHandler(cfg.Server.WriteTimeout, a.recorder, logger)

	if cfg.Metrics.Enabled {
		opsCfg := server.DefaultConfig()
		opsCfg.Addr = cfg.Metrics.Addr
		opsCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
		a.ops = server.NewManager(reg, a.health, opsCfg, logger)
	}

	return a, nil
}

func (a *app) buildDispatcher() (tcp.Dispatcher, error) {
	var d tcp.Dispatcher

	switch a.cfg.Server.Dispatch {
	case config.DispatchPoll:
		pl, err := poller.New(a.logger)
		if err != nil {
			return nil, fmt.Errorf("create poller: %w", err)
		}
		a.closers = append(a.closers, pl.Close)
		a.collector.ObservePoller(pl.Pending)
		d = tcp.NewPolledDispatcher(pl)

	default:
		p := pool.NewGoroutinePool(pool.GoroutinePoolConfig{
			MaxWorkers:  a.cfg.Pool.MaxWorkers,
			QueueSize:   a.cfg.Pool.QueueSize,
			IdleTimeout: a.cfg.Pool.IdleTimeout,
		}, a.logger)
		a.closers = append(a.closers, func() error { p.Close(); return nil })
		a.collector.ObservePool(p.Stats)
		d = tcp.NewPoolDispatcher(p)
	}

	if a.cfg.Server.RateLimitRPS > 0 {
		d = tcp.NewRateLimitedDispatcher(d, a.cfg.Server.RateLimitRPS, a.cfg.Server.RateLimitBurst)
	}

	a.logger.Info("dispatcher ready",
		zap.String("mode", a.cfg.Server.Dispatch),
		zap.Float64("rate_limit_rps", a.cfg.Server.RateLimitRPS),
	)
	return d, nil
}

func (a *app) health() error {
	if !a.server.IsRunning() {
		return errors.New("accept loop is not running")
	}
	return nil
}

// run serves until ctx is done, the accept loop fails or the ops server
// fails. The acceptor is always stopped before run returns.
func (a *app) run(ctx context.Context) error {
	completion, err := a.server.Start(a.handler)
	if err != nil {
		return err
	}

	var opsErrs <-chan error
	if a.ops != nil {
		if err := a.ops.Start(); err != nil {
			a.server.Stop()
			return err
		}
		opsErrs = a.ops.Errors()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(completion.Wait)

	g.Go(func() error {
		var err error
		select {
		case <-gctx.Done():
		case err = <-opsErrs:
		}
		a.server.Stop()
		return err
	})

	return g.Wait()
}

// shutdown releases the ops server and the dispatch resources. Closing the
// pool waits for in-flight handlers.
func (a *app) shutdown(ctx context.Context) {
	if a.ops != nil {
		if err := a.ops.Shutdown(ctx); err != nil {
			a.logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("dispatcher close failed", zap.Error(err))
		}
	}
}

// =============================================================================
// 📨 连接处理
// =============================================================================

var staticBody = []byte("yamhttp\n")

// staticHandler answers every connection with a fixed 200 response.
func staticHandler(writeTimeout time.Duration, rec responder.Recorder, logger *zap.Logger) tcp.ConnectionHandler {
	return func(conn *tcp.Connection) {
		defer conn.Close()

		discardRequest(conn)

		if writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		}

		r := responder.New(conn, responder.WithRecorder(rec))
		r.SetField("Server", "yamhttp/"+version)
		r.SetField("Date", time.Now().UTC().Format(http.TimeFormat))
		r.SetField("Content-Type", "text/plain; charset=utf-8")
		r.SetField("Connection", "close")
		r.SetBody(staticBody)

		if err := r.Send(responder.StatusOK); err != nil {
			logger.Debug("response not delivered",
				zap.String("conn_id", conn.ID()),
				zap.Stringer("peer", conn.Peer()),
				zap.Error(err),
			)
		}
	}
}

// discardRequest consumes the first chunk the client sent, so closing the
// socket does not reset the connection before the response is read.
func discardRequest(conn *tcp.Connection) {
	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	var buf [4 << 10]byte
	_, _ = conn.Read(buf[:])
}
