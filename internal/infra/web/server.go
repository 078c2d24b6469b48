// Package web exposes the orchestration engine over a local JSON API. The
// routes map one-to-one onto the user-facing operations: send, stop, session
// management, mode toggle, and the welcome/about flags.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"obsidian-chat/internal/usecase"
)

type Server struct {
	chat usecase.ChatUseCase
	log  *zerolog.Logger
}

func NewServer(chat usecase.ChatUseCase, logger *zerolog.Logger) *Server {
	return &Server{chat: chat, log: logger}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/messages", s.handleSend)
		r.Post("/stop", s.handleStop)
		r.Post("/sessions", s.handleNewSession)
		r.Post("/sessions/{id}/select", s.handleSelectSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/mode/toggle", s.handleToggleMode)
		r.Post("/welcome/ack", s.handleAcknowledge)
		r.Delete("/welcome/ack", s.handleResetWelcome)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
