// Package server bootstraps the shared Broker and Access Gate, binds the
// listener, and spawns the configured number of worker executors, in the
// shape of the teacher's Server (internal/server/server.go): NewServer,
// Start, waitForShutdown, Shutdown.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mjc-gh/esper/internal/auth"
	"github.com/mjc-gh/esper/internal/broker"
	"github.com/mjc-gh/esper/internal/config"
	"github.com/mjc-gh/esper/internal/metrics"
	"github.com/mjc-gh/esper/internal/sse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// systemMetricsInterval is how often the system resource snapshot
// refreshes in the background, rather than on every /metrics/system
// request (metrics.SystemSnapshot.Update blocks for its sampling window).
const systemMetricsInterval = 15 * time.Second

// Server owns the shared Broker/Gate/Metrics and the pool of worker
// executors that all serve the same bound listener.
type Server struct {
	flags  config.Flags
	mux    http.Handler
	logger zerolog.Logger

	m        *metrics.Metrics
	snapshot *metrics.SystemSnapshot

	servers []*http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Server. The shared Broker, Access Gate, and Metrics
// are built once here and handed to every worker executor (spec.md §4.E).
// reg backs both the broker's Prometheus collectors and the /metrics
// endpoint.
func New(flags config.Flags, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	m := metrics.New(reg)
	b := broker.New(m, logger)
	gate := auth.NewGate(cfg.PublisherSecret, cfg.SubscriberSecret)
	handler := sse.New(b, gate, m, logger)
	snapshot := metrics.NewSystemSnapshot()

	s := &Server{
		flags:    flags,
		logger:   logger,
		m:        m,
		snapshot: snapshot,
		ctx:      ctx,
		cancel:   cancel,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/metrics/system", s.handleSystemMetrics)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", handler)
	s.mux = mux

	return s
}

// Handler exposes the fully assembled mux for in-process testing, without
// binding a listener or spawning worker executors.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listener and spawns Threads worker executors, each
// running its own *http.Server over the same shared listener (spec.md
// §4.E, §5: "N worker executors... each multiplexing many connections").
// It returns an error if the listener cannot be bound; otherwise it blocks
// until SIGINT or SIGTERM arrives. A worker whose Serve call fails logs a
// warning and stops without ending Start.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.flags.Bind, s.flags.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.logger.Info().Str("addr", addr).Int("threads", s.flags.Threads).Msg("esper listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.collectSystemMetrics()
	}()

	for i := 0; i < s.flags.Threads; i++ {
		httpServer := &http.Server{
			Handler:     s.mux,
			BaseContext: func(net.Listener) context.Context { return s.ctx },
		}
		s.servers = append(s.servers, httpServer)

		s.wg.Add(1)
		go func(worker int, hs *http.Server) {
			defer s.wg.Done()
			if err := hs.Serve(ln); err != nil && err != http.ErrServerClosed {
				s.logger.Warn().Err(err).Int("worker", worker).Msg("worker executor stopped")
			}
		}(i, httpServer)
	}

	s.waitForShutdown()
	return nil
}

func (s *Server) collectSystemMetrics() {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.snapshot.Update()
		}
	}
}

func (s *Server) waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	s.logger.Info().Msg("shutdown signal received")
	s.Shutdown()
}

// Shutdown gracefully stops every worker executor's *http.Server,
// draining in-flight connections (subscribe streams end because every
// request context derives from s.ctx, which is cancelled first; the
// subscribe handler then returns and runs its deferred unsubscribe).
func (s *Server) Shutdown() {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i, hs := range s.servers {
		if err := hs.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Int("worker", i).Msg("worker executor shutdown error")
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("shutdown complete")
	case <-ctx.Done():
		s.logger.Warn().Msg("shutdown timed out")
	}
}
