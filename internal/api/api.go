// Package api provides the HTTP server and webhook handlers for ClinicFlow.
//
// It exposes the WhatsApp Cloud API webhook endpoint (verification handshake
// and inbound message delivery) plus health endpoints. Inbound events are
// acknowledged immediately and dispatched asynchronously; per-user ordering
// is enforced by the dispatcher, not the transport.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Default server settings.
const (
	DefaultAddr            = ":3000"
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string
	Canceler    EventCanceler
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithEventCanceler enables the admin appointment-cancel endpoint.
func WithEventCanceler(c EventCanceler) Option {
	return func(o *Opts) { o.Canceler = c }
}

// Server is the ClinicFlow HTTP server. It owns the webhook endpoints and
// forwards parsed events to the dispatcher.
type Server struct {
	dispatcher  EventDispatcher
	canceler    EventCanceler
	addr        string
	verifyToken string
	startedAt   time.Time
	httpServer  *http.Server
}

// NewServer creates the API server, falling back to the WEBHOOK_VERIFY_TOKEN
// and API_ADDR environment variables.
func NewServer(dispatcher EventDispatcher, opts ...Option) (*Server, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv("API_ADDR")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("WEBHOOK_VERIFY_TOKEN")
	}
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("WEBHOOK_VERIFY_TOKEN not set")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{dispatcher: dispatcher, canceler: cfg.Canceler, addr: cfg.Addr, verifyToken: cfg.VerifyToken, startedAt: time.Now()}
	slog.Debug("API server created", "addr", cfg.Addr)
	return s, nil
}

// Routes builds the server's request multiplexer.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/events/", s.eventsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/", s.rootHandler)
	return mux
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: shutdown failed", "error", err)
		return err
	}
	return nil
}
