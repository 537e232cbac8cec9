package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/session"
	"github.com/anishjha12309/itero/internal/storage"
	"github.com/anishjha12309/itero/internal/transport/ws"
)

// streamEvents upgrades to a websocket and runs the interview's event
// pipeline over it. The peer forwards room events as JSON frames; the
// pipeline normalizes, deduplicates and logs them, and pushes code
// sync and nudge payloads back.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := s.interviews.Get(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load interview")
		return
	}
	if record.Status != models.StatusActive {
		writeError(w, http.StatusConflict, "interview is not active")
		return
	}

	s.mu.Lock()
	_, exists := s.live[sessionID]
	s.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "events stream already attached")
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	tr := ws.New(conn, sessionID, ws.Config{})
	cfg := session.DefaultConfig(sessionID)
	cfg.Hooks = session.Hooks{
		OnTranscript: func(entry models.TranscriptEntry) {
			_ = s.publisher.PublishTranscript(context.Background(), sessionID, entry)
		},
		OnCallEnd: func() {
			go s.finalize(sessionID)
		},
		OnError: func(err error) {
			s.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Event stream failed")
		},
	}

	sess := session.New(tr, cfg)

	// Register before starting so a code update racing the handshake
	// still reaches the pipeline.
	s.mu.Lock()
	if _, taken := s.live[sessionID]; taken {
		s.mu.Unlock()
		_ = tr.Close()
		return
	}
	s.live[sessionID] = &liveSession{sess: sess}
	s.mu.Unlock()

	if err := sess.Start(context.Background()); err != nil {
		s.mu.Lock()
		delete(s.live, sessionID)
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to start session pipeline")
		return
	}

	s.logger.Info().Str("sessionId", sessionID).Msg("Event stream attached")
}

// finalize ends the interview after a remote hangup. When the REST end
// endpoint already claimed the session there is nothing left to do.
func (s *Server) finalize(sessionID string) {
	s.mu.Lock()
	ls, ok := s.live[sessionID]
	delete(s.live, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.interviews.End(ctx, sessionID, ls.code, ls.sess.Snapshot()); err != nil {
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to end interview after hangup")
	}
}
