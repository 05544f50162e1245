package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/palisade-http/palisade/internal/port/inbound"
	"github.com/palisade-http/palisade/internal/service"
)

// Transport is the inbound adapter that serves framework handlers over HTTP.
type Transport struct {
	server          *http.Server
	handler         http.Handler
	routes          *http.ServeMux
	addr            string
	certFile        string
	keyFile         string
	shutdownTimeout time.Duration
	logger          *slog.Logger
	accessService   *service.AccessService
	metricsEnabled  bool
	metricsKeys     []string
	tracerProvider  trace.TracerProvider
	healthChecker   *HealthChecker
	metrics         *Metrics
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *Transport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithLogger sets the logger for the transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithAccessService enables access logging through the given service.
func WithAccessService(svc *service.AccessService) Option {
	return func(t *Transport) {
		t.accessService = svc
	}
}

// WithMetricsEndpoint serves /metrics, protected by the given API key
// hashes. Empty hashes leave the endpoint open.
func WithMetricsEndpoint(keys []string) Option {
	return func(t *Transport) {
		t.metricsEnabled = true
		t.metricsKeys = keys
	}
}

// WithTracerProvider enables per-request tracing spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Transport) {
		t.tracerProvider = tp
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default is 10s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.shutdownTimeout = d
		}
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *Transport) {
		t.healthChecker = hc
	}
}

// NewTransport creates an HTTP transport with the given options.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		routes:          http.NewServeMux(),
		addr:            "127.0.0.1:8080",
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
		tracerProvider:  noop.NewTracerProvider(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Handle registers a framework handler for the given ServeMux pattern.
// Must be called before Start.
func (t *Transport) Handle(pattern string, h HandlerFunc) {
	t.routes.Handle(pattern, &draftHandler{handle: h, access: t.accessService})
}

// Handler assembles the middleware chain and top-level mux: health, metrics,
// and the registered routes. Built once; subsequent calls return the same
// handler. Exposed so integration tests can serve the full chain without
// binding a port.
func (t *Transport) Handler() http.Handler {
	if t.handler != nil {
		return t.handler
	}

	// Prometheus registry and metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)
	if t.accessService != nil {
		registerAccessDropsGauge(reg, t.accessService.DroppedRecords)
	}

	// Middleware chain around user routes (outermost first):
	// 1. Metrics - record duration/status (outermost to capture full duration)
	// 2. RequestID - correlation id + request info + enriched logger
	// 3. Tracing - server span (inside RequestID so the span sees the id)
	// 4. RealIP - client IP from X-Forwarded-For
	// 5. Draft handlers
	var handler http.Handler = t.routes
	handler = RealIPMiddleware(handler)
	handler = TracingMiddleware(t.tracerProvider)(handler)
	handler = RequestIDMiddleware(t.logger)(handler)
	handler = MetricsMiddleware(t.metrics)(handler)

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", NewHealthChecker(t.accessService, "").Handler())
	}

	if t.metricsEnabled {
		metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		mux.Handle("/metrics", BearerAuthMiddleware(t.metricsKeys, t.logger)(metricsHandler))
	}

	mux.Handle("/", handler)

	t.handler = mux
	return t.handler
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (t *Transport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.Handler(),
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.shutdownTimeout)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}

// Compile-time check that Transport implements the inbound Server port.
var _ inbound.Server = (*Transport)(nil)
