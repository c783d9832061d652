/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is the address a Server listens on when none is given.
const DefaultAddr = "0.0.0.0:8080"

// Server binds a Router to a listening socket. net/http runs every request in its own goroutine so
// the Router, and the schema and context factory behind it, are shared by all in-flight requests.
type Server struct {
	addr   string
	router *Router

	logger          zerolog.Logger
	metricsAddr     string
	registry        *prometheus.Registry
	shutdownTimeout time.Duration
}

// ServerOption configures Server.
type ServerOption func(s *Server)

// WithLogger sets the logger for server lifecycle events.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsAddr serves Prometheus metrics on /metrics at addr. The metrics listener is separate
// from the gateway so that the gateway's routes stay unchanged.
func WithMetricsAddr(addr string) ServerOption {
	return func(s *Server) {
		s.metricsAddr = addr
	}
}

// WithRegistry sets the registry request metrics are registered to.
func WithRegistry(registry *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithShutdownTimeout bounds the time waiting for in-flight requests on shutdown.
func WithShutdownTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// NewServer creates a Server for router. An empty addr means DefaultAddr.
func NewServer(addr string, router *Router, opts ...ServerOption) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:            addr,
		router:          router,
		logger:          zerolog.Nop(),
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	return s
}

// Registry returns the registry holding the request metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully. It returns nil
// after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	metrics, err := NewMetrics(s.registry)
	if err != nil {
		ln.Close()
		return errors.Wrap(err, "register metrics")
	}

	servers := []*http.Server{
		s.newHTTPServer(metrics.Instrument(s.router)),
	}
	listeners := []net.Listener{ln}

	if s.metricsAddr != "" {
		metricsLn, err := net.Listen("tcp", s.metricsAddr)
		if err != nil {
			ln.Close()
			return errors.Wrapf(err, "listen on %s", s.metricsAddr)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		servers = append(servers, s.newHTTPServer(mux))
		listeners = append(listeners, metricsLn)

		s.logger.Info().Msgf("metrics available on http://%s/metrics", metricsLn.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		server, ln := servers[i], listeners[i]

		g.Go(func() error {
			if err := server.Serve(ln); err != http.ErrServerClosed {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	s.logger.Info().Msgf("GraphQL server started on http://%s", ln.Addr())

	err = g.Wait()
	if err != nil {
		s.logger.Error().Err(err).Msg("server error")
		return err
	}

	s.logger.Info().Msg("GraphQL server stopped")
	return nil
}

func (s *Server) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(s.logger, "", 0),
	}
}
