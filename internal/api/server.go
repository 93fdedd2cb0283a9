// Package api is the HTTP gateway: it fronts the remote PARAS backend for
// browser and CLI clients, owning sessions, validation, and role guards.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"paras/internal/config"
	"paras/internal/paras"
	"paras/internal/service"
	"paras/internal/session"

	"github.com/rs/zerolog"
)

type Server struct {
	cfg        config.GatewayConfig
	sessions   *session.Manager
	bookings   *service.BookingService
	rooms      *service.RoomService
	upstream   *paras.Client
	exportsDir string
	cookieName string
	limiter    *rateLimiter
	logger     *zerolog.Logger
	server     *http.Server
}

func NewServer(cfg *config.Config, sessions *session.Manager, bookings *service.BookingService, rooms *service.RoomService, upstream *paras.Client, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg.Gateway,
		sessions:   sessions,
		bookings:   bookings,
		rooms:      rooms,
		upstream:   upstream,
		exportsDir: cfg.Exports.Path,
		cookieName: cfg.Sessions.CookieName,
		limiter:    newRateLimiter(cfg.Gateway.RateLimit),
		logger:     logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/v1/auth/me", s.handleMe)

	mux.HandleFunc("GET /api/v1/rooms", s.requireAuth(s.handleListRooms))
	mux.HandleFunc("POST /api/v1/rooms", s.requireAdmin(s.handleCreateRoom))
	mux.HandleFunc("GET /api/v1/rooms/available", s.requireAuth(s.handleAvailability))
	mux.HandleFunc("GET /api/v1/rooms/{id}", s.requireAuth(s.handleGetRoom))
	mux.HandleFunc("PUT /api/v1/rooms/{id}", s.requireAdmin(s.handleUpdateRoom))
	mux.HandleFunc("DELETE /api/v1/rooms/{id}", s.requireAdmin(s.handleDeleteRoom))

	mux.HandleFunc("GET /api/v1/loans", s.requireAuth(s.handleListLoans))
	mux.HandleFunc("POST /api/v1/loans", s.requireAuth(s.handleCreateLoan))
	mux.HandleFunc("GET /api/v1/loans/export", s.requireAdmin(s.handleExportLoans))
	mux.HandleFunc("GET /api/v1/loans/{id}", s.requireAuth(s.handleGetLoan))
	mux.HandleFunc("POST /api/v1/loans/{id}/cancel", s.requireAuth(s.handleCancelLoan))
	mux.HandleFunc("PATCH /api/v1/loans/{id}/status", s.requireAuth(s.handleChangeLoanStatus))
	mux.HandleFunc("GET /api/v1/loans/{id}/history", s.requireAuth(s.handleLoanHistory))

	handler := requestLogger(logger, s.rateLimitMiddleware(s.sessionMiddleware(mux)))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("gateway listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth reports this process plus the reachability of the remote
// backend and its database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}

	if _, err := s.upstream.SystemStatus(r.Context()); err != nil {
		resp["upstream"] = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp["upstream"] = "ok"

	if ok, err := s.upstream.DBPing(r.Context()); err != nil || !ok {
		resp["upstream_db"] = "down"
	} else {
		resp["upstream_db"] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}
