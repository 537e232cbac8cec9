// Package interview orchestrates the lifecycle of one mock interview:
// provisioning the room and voice agent, persisting the record,
// collecting the final transcript and attaching the LLM evaluation.
package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/cache"
	"github.com/anishjha12309/itero/internal/events"
	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/provider/assistant"
	"github.com/anishjha12309/itero/internal/provider/room"
	"github.com/anishjha12309/itero/internal/storage"
)

// maxQuestions caps how many agent questions are kept for the
// evaluation context.
const maxQuestions = 5

// StartResult is what a candidate needs to begin an interview.
type StartResult struct {
	SessionID   string            `json:"sessionId"`
	Problem     agent.Problem     `json:"problem"`
	AssistantID string            `json:"assistantId"`
	Room        *room.Credentials `json:"room,omitempty"`
}

// Evaluator scores a finished interview.
type Evaluator interface {
	Evaluate(ctx context.Context, interview *models.Interview) (*models.Evaluation, error)
}

// Service owns interview records and their lifecycle transitions.
type Service struct {
	store     storage.Store
	rooms     *room.Provider
	assistant *assistant.Provider
	cache     *cache.RoomCache
	publisher *events.Publisher
	evaluator Evaluator
	problems  []agent.Problem
	logger    zerolog.Logger
}

// New wires the interview service.
func New(store storage.Store, rooms *room.Provider, asst *assistant.Provider,
	roomCache *cache.RoomCache, publisher *events.Publisher, evaluator Evaluator,
	problems []agent.Problem) *Service {
	return &Service{
		store:     store,
		rooms:     rooms,
		assistant: asst,
		cache:     roomCache,
		publisher: publisher,
		evaluator: evaluator,
		problems:  problems,
		logger:    logging.WithComponent("interview-service"),
	}
}

// Start provisions a new interview session: a fresh session id, a
// randomly chosen problem, a voice assistant primed with it, room
// credentials for the candidate, and an active record.
func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	sessionID := uuid.NewString()
	problem := agent.Pick(s.problems)

	asst := s.assistant.Create(ctx, sessionID, agent.InterviewerPrompt(problem))

	var creds *room.Credentials
	if s.rooms.Configured() {
		var err error
		creds, err = s.rooms.CreateRoom(sessionID)
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
	} else {
		s.logger.Warn().Str("sessionId", sessionID).Msg("Room provider not configured, starting without room credentials")
	}

	record := &models.Interview{
		SessionID:  sessionID,
		Status:     models.StatusActive,
		Code:       "",
		Language:   "javascript",
		Transcript: []models.TranscriptEntry{},
		Questions:  []string{},
		StartedAt:  time.Now().UTC(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist interview: %w", err)
	}

	if creds != nil {
		s.cache.SetRoom(ctx, sessionID, creds)
	}
	s.publishLifecycle(ctx, sessionID, "started", models.StatusActive)

	s.logger.Info().
		Str("sessionId", sessionID).
		Str("problem", problem.Name).
		Str("assistantId", asst.ID).
		Msg("Interview started")

	return &StartResult{
		SessionID:   sessionID,
		Problem:     problem,
		AssistantID: asst.ID,
		Room:        creds,
	}, nil
}

// Get returns one interview record.
func (s *Service) Get(ctx context.Context, sessionID string) (*models.Interview, error) {
	return s.store.Get(ctx, sessionID)
}

// List returns all interview records, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Interview, error) {
	return s.store.List(ctx)
}

// Room returns join credentials for an active interview so a candidate
// can rejoin after a page reload. The cached credentials are preferred;
// on a miss a fresh token is minted and re-cached.
func (s *Service) Room(ctx context.Context, sessionID string) (*room.Credentials, error) {
	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.StatusActive {
		return nil, fmt.Errorf("interview %s is %s, not active", sessionID, record.Status)
	}

	var cached room.Credentials
	if err := s.cache.GetRoom(ctx, sessionID, &cached); err == nil {
		return &cached, nil
	}

	if !s.rooms.Configured() {
		return nil, room.ErrNotConfigured
	}
	creds, err := s.rooms.CreateRoom(sessionID)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.cache.SetRoom(ctx, sessionID, creds)
	return creds, nil
}

// UpdateCode records the candidate's current editor contents. Only
// active interviews accept updates.
func (s *Service) UpdateCode(ctx context.Context, sessionID, code string) error {
	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if record.Status != models.StatusActive {
		return fmt.Errorf("interview %s is %s, not active", sessionID, record.Status)
	}
	record.Code = code
	return s.store.Save(ctx, record)
}

// End completes the interview: the final code and transcript are
// persisted, agent questions are extracted for evaluation context and
// the LLM evaluation runs in the background.
func (s *Service) End(ctx context.Context, sessionID, code string, transcript []models.TranscriptEntry) (*models.Interview, error) {
	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.StatusActive {
		// Ending twice is a no-op; the stored record already holds the
		// final state.
		return record, nil
	}

	now := time.Now().UTC()
	record.Status = models.StatusCompleted
	record.Code = code
	record.Transcript = transcript
	record.Questions = extractQuestions(transcript)
	record.EndedAt = &now

	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist interview: %w", err)
	}

	s.cache.DeleteRoom(ctx, sessionID)
	s.publishLifecycle(ctx, sessionID, "ended", models.StatusCompleted)

	// The evaluation goroutine gets its own copy; the returned record
	// is still being encoded by the caller when the evaluation lands.
	snapshot := *record
	go s.evaluate(&snapshot)

	s.logger.Info().
		Str("sessionId", sessionID).
		Int("entries", len(transcript)).
		Int("questions", len(record.Questions)).
		Msg("Interview ended")
	return record, nil
}

// Evaluation returns the evaluation for a session. pending is true
// while the interview has ended but the evaluation has not landed yet.
func (s *Service) Evaluation(ctx context.Context, sessionID string) (*models.Evaluation, bool, error) {
	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	switch record.Status {
	case models.StatusEvaluated:
		return record.Evaluation, false, nil
	case models.StatusCompleted:
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("interview %s is still active", sessionID)
	}
}

// evaluate runs in the background after End. The evaluator never fails
// outright; even its fallback result is attached so the record reaches
// a terminal state.
func (s *Service) evaluate(record *models.Interview) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eval, err := s.evaluator.Evaluate(ctx, record)
	if err != nil {
		s.logger.Error().Err(err).Str("sessionId", record.SessionID).Msg("Evaluation degraded to default")
	}

	record.Evaluation = eval
	record.Status = models.StatusEvaluated
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("sessionId", record.SessionID).Msg("Failed to persist evaluation")
		return
	}
	s.publishLifecycle(ctx, record.SessionID, "evaluated", models.StatusEvaluated)
}

func (s *Service) publishLifecycle(ctx context.Context, sessionID, eventType string, status models.Status) {
	err := s.publisher.PublishLifecycle(ctx, events.LifecycleEvent{
		SessionID: sessionID,
		Type:      eventType,
		Status:    string(status),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Lifecycle publish failed")
	}
}

// extractQuestions keeps the first few agent utterances that read as
// questions; they give the evaluator context for what was asked.
func extractQuestions(transcript []models.TranscriptEntry) []string {
	questions := make([]string, 0, maxQuestions)
	for _, entry := range transcript {
		if entry.Role != models.RoleAgent || !strings.Contains(entry.Content, "?") {
			continue
		}
		questions = append(questions, entry.Content)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}
