package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/provider/room"
	"github.com/anishjha12309/itero/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	result, err := s.interviews.Start(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start interview")
		writeError(w, http.StatusInternalServerError, "failed to start interview")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) listInterviews(w http.ResponseWriter, r *http.Request) {
	interviews, err := s.interviews.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list interviews")
		writeError(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}
	if interviews == nil {
		interviews = []*models.Interview{}
	}
	writeJSON(w, http.StatusOK, interviews)
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	record, err := s.interviews.Get(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to load interview")
		writeError(w, http.StatusInternalServerError, "failed to load interview")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type updateCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) updateCode(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req updateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.interviews.UpdateCode(r.Context(), sessionID, req.Code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "interview not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// A live pipeline also receives the edit so the agent sees the code
	// over the data channel, and reacts aloud to significant changes.
	s.mu.Lock()
	if ls, ok := s.live[sessionID]; ok {
		change := agent.Classify(ls.code, req.Code)
		ls.code = req.Code
		ls.sess.EditCode(req.Code)
		if change.Significant {
			ls.sess.Say(agent.CommentPrompt(change, req.Code))
		}
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type endInterviewRequest struct {
	Code       string                   `json:"code"`
	Transcript []models.TranscriptEntry `json:"transcript"`
}

func (s *Server) endInterview(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req endInterviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	// A live pipeline is the better source of truth than the client's
	// copy of the transcript.
	s.mu.Lock()
	ls, hasLive := s.live[sessionID]
	delete(s.live, sessionID)
	s.mu.Unlock()
	if hasLive {
		if len(req.Transcript) == 0 {
			req.Transcript = ls.sess.Snapshot()
		}
		if req.Code == "" {
			req.Code = ls.code
		}
		_ = ls.sess.Close()
	}

	record, err := s.interviews.End(r.Context(), sessionID, req.Code, req.Transcript)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to end interview")
		writeError(w, http.StatusInternalServerError, "failed to end interview")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	creds, err := s.interviews.Room(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if errors.Is(err, room.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "room provider not configured")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

type evaluationResponse struct {
	Status     string             `json:"status"`
	Evaluation *models.Evaluation `json:"evaluation,omitempty"`
}

func (s *Server) getEvaluation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	eval, pending, err := s.interviews.Evaluation(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if pending {
		writeJSON(w, http.StatusAccepted, evaluationResponse{Status: "pending"})
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse{Status: "ready", Evaluation: eval})
}
