// Package api provides HTTP handlers and the main API server for Rallypoint.
//
// It exposes the conversational endpoints the WhatsApp gateway calls on each
// inbound message, plus admin endpoints for seeding campaigns and groups.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rallypointza/rallypoint/internal/flow"
	"github.com/rallypointza/rallypoint/internal/messaging"
	"github.com/rallypointza/rallypoint/internal/store"
)

const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":8080"
	// DefaultReadTimeout bounds how long a request body read may take.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds how long a response write may take.
	DefaultWriteTimeout = 15 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the flow engine, store and messaging service behind HTTP
// endpoints.
type Server struct {
	st         store.Store
	engine     *flow.Engine
	msgService messaging.Service
	httpServer *http.Server
}

// NewServer creates an API server around the given collaborators.
func NewServer(st store.Store, engine *flow.Engine, msgService messaging.Service, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{st: st, engine: engine, msgService: msgService}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.healthHandler)
	mux.HandleFunc("POST /v1/user/id", s.userIDHandler)
	mux.HandleFunc("POST /v1/phrase/search", s.phraseSearchHandler)
	mux.HandleFunc("POST /v1/entity/select/{entityType}/{entityUid}", s.entitySelectHandler)
	mux.HandleFunc("POST /v1/entity/respond/{entityType}/{entityUid}", s.entityRespondHandler)
	mux.HandleFunc("POST /v1/admin/groups", s.createGroupHandler)
	mux.HandleFunc("POST /v1/admin/campaigns", s.createCampaignHandler)
	mux.HandleFunc("POST /v1/admin/campaigns/{campaignUid}/messages", s.createCampaignMessageHandler)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	return s
}

// Handler returns the server's HTTP handler. Tests mount it on httptest
// servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("Rallypoint API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Rallypoint API shutting down")
	return s.httpServer.Shutdown(ctx)
}
