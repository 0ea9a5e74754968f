package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/rpc"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type replyRequest struct {
	Reply string `json:"reply"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	var a rpc.Activity
	if err := decodeBody(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	if err := s.backend.SetPresence(&a); err != nil {
		writeError(w, http.StatusInternalServerError, err)

		return
	}
	writeJSON(w, http.StatusAccepted, &a)
}

func (s *Server) handleClearPresence(w http.ResponseWriter, _ *http.Request) {
	if err := s.backend.ClearPresence(); err != nil {
		writeError(w, http.StatusInternalServerError, err)

		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	s.backend.Reconnect()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleJoinRequests(w http.ResponseWriter, _ *http.Request) {
	requests := s.backend.Status().JoinRequests
	if requests == nil {
		requests = []domain.PendingJoinRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req replyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	reply, ok := rpc.ParseJoinReply(req.Reply)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown reply %q, want yes, no or ignore", req.Reply))

		return
	}

	err := s.backend.ReplyJoinRequest(r.Context(), userID, reply)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrUnknownJoinRequest):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, rpc.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, err := historyQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	events, err := s.backend.History(r.Context(), q)
	switch {
	case err == nil:
		if events == nil {
			events = []domain.HistoryEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	case errors.Is(err, domain.ErrHistoryDisabled):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func historyQuery(r *http.Request) (domain.HistoryQuery, error) {
	values := r.URL.Query()
	q := domain.HistoryQuery{Kind: domain.EventKind(strings.TrimSpace(values.Get("kind")))}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		q.Limit = limit
	}
	if raw := values.Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, fmt.Errorf("invalid before %q: want RFC 3339", raw)
		}
		q.Before = before
	}

	return q, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
