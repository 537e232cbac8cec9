package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/cache"
	"github.com/anishjha12309/itero/internal/events"
	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/provider/assistant"
	"github.com/anishjha12309/itero/internal/provider/room"
	"github.com/anishjha12309/itero/internal/storage"
)

type stubEvaluator struct {
	eval *models.Evaluation
	err  error
}

func (s *stubEvaluator) Evaluate(context.Context, *models.Interview) (*models.Evaluation, error) {
	if s.eval == nil {
		return &models.Evaluation{OverallScore: 7, CodeReview: "fine"}, s.err
	}
	return s.eval, s.err
}

func newTestService(t *testing.T, store storage.Store) *Service {
	t.Helper()
	problems, err := agent.LoadProblems("")
	if err != nil {
		t.Fatal(err)
	}
	return New(
		store,
		room.New(room.Config{URL: "wss://rooms.test", APIKey: "k", APISecret: "s", TokenTTL: time.Hour}),
		assistant.New(assistant.Config{}),
		cache.New(cache.Config{}),
		events.New(nil),
		&stubEvaluator{},
		problems,
	)
}

func waitForStatus(t *testing.T, store storage.Store, sessionID string, want models.Status) *models.Interview {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.Get(context.Background(), sessionID)
		if err == nil && record.Status == want {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("interview %s never reached status %s", sessionID, want)
	return nil
}

func TestService_Start(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)

	result, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionID == "" {
		t.Error("expected a session id")
	}
	if result.Problem.Name == "" {
		t.Error("expected an assigned problem")
	}
	if !strings.HasPrefix(result.AssistantID, "mock-") {
		t.Errorf("expected mock assistant without API key, got %s", result.AssistantID)
	}
	if result.Room == nil || result.Room.Token == "" {
		t.Error("expected room credentials")
	}

	record, err := store.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if record.Status != models.StatusActive {
		t.Errorf("expected active record, got %s", record.Status)
	}
	if record.Language != "javascript" {
		t.Errorf("expected javascript default, got %s", record.Language)
	}
}

func TestService_StartWithoutRoomProvider(t *testing.T) {
	store := storage.NewMemoryStore()
	problems, _ := agent.LoadProblems("")
	svc := New(store, room.New(room.Config{}), assistant.New(assistant.Config{}),
		cache.New(cache.Config{}), events.New(nil), &stubEvaluator{}, problems)

	result, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Room != nil {
		t.Error("expected no room credentials without provider config")
	}
}

func TestService_UpdateCode(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	code := "function twoSum(nums, target) {}"
	if err := svc.UpdateCode(context.Background(), result.SessionID, code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, _ := store.Get(context.Background(), result.SessionID)
	if record.Code != code {
		t.Errorf("code not persisted, got %q", record.Code)
	}
}

func TestService_UpdateCodeMissingSession(t *testing.T) {
	svc := newTestService(t, storage.NewMemoryStore())

	err := svc.UpdateCode(context.Background(), "nope", "code")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_EndExtractsQuestionsAndEvaluates(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	now := time.Now().UTC()
	transcript := []models.TranscriptEntry{
		{ID: "1", Role: models.RoleAgent, Content: "How would you solve two sum?", Timestamp: now},
		{ID: "2", Role: models.RoleUser, Content: "With a hash map?", Timestamp: now},
		{ID: "3", Role: models.RoleAgent, Content: "Good, go ahead.", Timestamp: now},
		{ID: "4", Role: models.RoleAgent, Content: "What is the complexity?", Timestamp: now},
	}

	record, err := svc.End(context.Background(), result.SessionID, "const x = 1;", transcript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s", record.Status)
	}
	if record.EndedAt == nil {
		t.Error("expected ended timestamp")
	}
	// Candidate questions and non-question agent turns are excluded.
	want := []string{"How would you solve two sum?", "What is the complexity?"}
	if len(record.Questions) != len(want) {
		t.Fatalf("expected %d questions, got %v", len(want), record.Questions)
	}
	for i, q := range want {
		if record.Questions[i] != q {
			t.Errorf("question %d: expected %q, got %q", i, q, record.Questions[i])
		}
	}

	evaluated := waitForStatus(t, store, result.SessionID, models.StatusEvaluated)
	if evaluated.Evaluation == nil || evaluated.Evaluation.OverallScore != 7 {
		t.Errorf("unexpected evaluation: %+v", evaluated.Evaluation)
	}
}

func TestService_EndTwiceIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	if _, err := svc.End(context.Background(), result.SessionID, "code", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForStatus(t, store, result.SessionID, models.StatusEvaluated)

	record, err := svc.End(context.Background(), result.SessionID, "other code", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Code == "other code" {
		t.Error("second end must not overwrite the record")
	}
}

func TestService_QuestionCap(t *testing.T) {
	entries := make([]models.TranscriptEntry, 0, 8)
	for i := 0; i < 8; i++ {
		entries = append(entries, models.TranscriptEntry{
			Role:    models.RoleAgent,
			Content: "Question number?",
		})
	}
	if got := len(extractQuestions(entries)); got != maxQuestions {
		t.Errorf("expected cap of %d questions, got %d", maxQuestions, got)
	}
}

func TestService_Evaluation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	// Active interviews have no evaluation yet.
	if _, _, err := svc.Evaluation(context.Background(), result.SessionID); err == nil {
		t.Error("expected error for active interview")
	}

	svc.End(context.Background(), result.SessionID, "code", nil)
	waitForStatus(t, store, result.SessionID, models.StatusEvaluated)

	eval, pending, err := svc.Evaluation(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending {
		t.Error("evaluation is attached, must not be pending")
	}
	if eval == nil || eval.OverallScore != 7 {
		t.Errorf("unexpected evaluation: %+v", eval)
	}
}

func TestService_EndReturnedRecordIsStable(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	record, err := svc.End(context.Background(), result.SessionID, "code", nil)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	// The background evaluation lands on its own copy; the record the
	// caller got back keeps the completed state it was returned with.
	waitForStatus(t, store, result.SessionID, models.StatusEvaluated)
	if record.Status != models.StatusCompleted {
		t.Errorf("returned record mutated to status %q", record.Status)
	}
	if record.Evaluation != nil {
		t.Errorf("returned record mutated with evaluation %+v", record.Evaluation)
	}
}

func TestService_Room(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, store)
	result, _ := svc.Start(context.Background())

	// The test cache is a no-op, so this exercises the re-mint path.
	creds, err := svc.Room(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("Room failed: %v", err)
	}
	if creds.RoomName != "interview-"+result.SessionID {
		t.Errorf("got room %q", creds.RoomName)
	}
	if creds.Token == "" {
		t.Error("expected a join token")
	}

	if _, err := svc.Room(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	svc.End(context.Background(), result.SessionID, "", nil)
	if _, err := svc.Room(context.Background(), result.SessionID); err == nil {
		t.Error("ended interview must not hand out room credentials")
	}
}
