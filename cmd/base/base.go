package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"projekt/control/lib/config"
	"projekt/control/lib/logging"
	"projekt/control/lib/metrics"
	"projekt/control/lib/session"
	"projekt/control/lib/transport"
)

var (
	DefaultSocket  = "control.sock"
	RequestTimeout = 30 * time.Second
)

// Env is what every command needs before talking to the daemon.
type Env struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Collector

	group *errgroup.Group
	stop  context.CancelFunc
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Setup loads the configuration, builds the logger and,
// if an address is configured, starts the metrics endpoint.
func Setup(ctx context.Context) (*Env, error) {
	conf, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(conf.LogLevel, conf.LogEncoding)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: conf, Log: log}
	if conf.MetricsAddr == "" {
		return env, nil
	}

	reg := prometheus.NewRegistry()
	env.Metrics, err = metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	l, err := net.Listen("tcp", conf.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %v: %w", conf.MetricsAddr, err)
	}
	ctx, env.stop = context.WithCancel(ctx)
	env.group, ctx = errgroup.WithContext(ctx)
	env.group.Go(func() error {
		return metrics.Serve(ctx, l, reg, log.Named("metrics"))
	})
	return env, nil
}

// Close stops the metrics endpoint and flushes the logger.
func (e *Env) Close() error {
	var err error
	if e.group != nil {
		e.stop()
		err = e.group.Wait()
	}
	_ = e.Log.Sync()
	return err
}

// Dial opens the transport to the daemon. With an empty socket path
// the FIFOs of the configured control interface are used,
// otherwise a unix socket, which is what controlsim listens on.
func (e *Env) Dial(ctx context.Context, socket string) (transport.Transport, error) {
	if socket == "" {
		return transport.OpenPipes(ctx, e.Config.InterfacePath)
	}
	return transport.Dial(ctx, "unix", socket)
}

// Connect dials the daemon and performs the handshake.
func (e *Env) Connect(ctx context.Context, socket string, opts ...session.Option) (*session.Session, error) {
	t, err := e.Dial(ctx, socket)
	if err != nil {
		return nil, err
	}
	opts = append(e.Config.SessionOptions(e.Log, e.Metrics), opts...)
	s := session.New(t, opts...)
	if err := s.Connect(ctx, e.Config.ProtocolVersion); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Shutdown closes s and waits for its reader to stop.
func Shutdown(s *session.Session, log *zap.Logger) {
	if err := s.Close(); err != nil {
		log.Warn("Failed to close transport", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		log.Warn("Reader did not stop", zap.Error(err))
	}
	if err := s.Err(); err != nil && !errors.Is(err, session.ErrClosed) {
		log.Info("Session ended", zap.Error(err))
	}
}
