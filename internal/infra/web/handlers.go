package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"obsidian-chat/internal/domain"
	"obsidian-chat/internal/domain/model"
)

type sendRequest struct {
	Text  string           `json:"text"`
	Image *model.ImagePart `json:"image,omitempty"`
}

type toggleModeResponse struct {
	Mode         model.Mode `json:"mode"`
	ShowProModal bool       `json:"show_pro_modal"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Snapshot())
}

// handleSend blocks until the primary call resolves. Guard rejections are
// deliberately not errors: the client treats them exactly like the browser
// UI did, as ignored clicks.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	err := s.chat.Send(r.Context(), req.Text, req.Image)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.chat.Snapshot())
	case domain.IsGuard(err):
		w.WriteHeader(http.StatusNoContent)
	default:
		var rle *domain.RateLimitError
		var ae *domain.AttachmentError
		switch {
		case errors.As(err, &rle):
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:             rle.Error(),
				RetryAfterSeconds: int(rle.RetryAfter.Seconds()),
			})
		case errors.As(err, &ae):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ae.Error()})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		}
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.chat.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess := s.chat.NewSession(r.Context())
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.chat.SelectSession(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.chat.DeleteSession(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	mode, showModal := s.chat.ToggleMode(r.Context())
	writeJSON(w, http.StatusOK, toggleModeResponse{Mode: mode, ShowProModal: showModal})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.chat.AcknowledgeWelcome(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetWelcome(w http.ResponseWriter, r *http.Request) {
	s.chat.ResetWelcome(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
