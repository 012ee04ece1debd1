// Package http serves the car price page, its JSON API and the live prediction feed.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"carprice/monitoring"
	"carprice/pipeline"
	"carprice/pricing"
)

const maxRequestBody = 1 << 20

// Server runs the app handler on a TCP port.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig holds listener and middleware settings.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
}

// DefaultServerConfig listens on 8501 with a 30s request timeout.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8501,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// History is the read side of the prediction store.
type History interface {
	RecentPredictions(ctx context.Context, limit int) ([]pricing.Result, error)
}

// App holds what the handlers read. Service and Datasets are required; the rest may be nil.
type App struct {
	Service      *pricing.Service
	Datasets     *pipeline.Handle
	History      History
	Hub          *monitoring.Hub
	Metrics      *monitoring.MetricsCollector
	Logger       *zap.Logger
	ModelMessage string
	PreviewRows  int
	started      time.Time
}

// NewServer builds a server for app.
func NewServer(config ServerConfig, app *App) *Server {
	if app.Logger == nil {
		app.Logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           app.Handler(config),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: app.Logger,
	}
}

// Handler builds the routed and wrapped handler.
func (a *App) Handler(config ServerConfig) http.Handler {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	if a.Metrics == nil {
		a.Metrics = monitoring.NewMetricsCollector()
	}
	if a.PreviewRows <= 0 {
		a.PreviewRows = 5
	}
	a.started = time.Now()
	a.Metrics.Describe("http_requests_total", "HTTP requests by method and status")
	a.Metrics.Describe("predictions_total", "Prediction attempts by outcome")

	mux := http.NewServeMux()
	RegisterPageHandlers(mux, a)
	RegisterAPIHandlers(mux, a)

	chain := Chain(
		LoggerMiddleware(a.Logger, a.Metrics),
		RecoveryMiddleware(a.Logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(maxRequestBody),
	)
	return chain(mux)
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("ws", "/ws/predictions"),
	)
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting up to 5s for requests in flight.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
