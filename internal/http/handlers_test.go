package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/cache"
	"github.com/anishjha12309/itero/internal/events"
	"github.com/anishjha12309/itero/internal/interview"
	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/provider/assistant"
	"github.com/anishjha12309/itero/internal/provider/room"
	"github.com/anishjha12309/itero/internal/storage"
)

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(context.Context, *models.Interview) (*models.Evaluation, error) {
	return &models.Evaluation{OverallScore: 8, CodeReview: "solid"}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	problems, err := agent.LoadProblems("")
	if err != nil {
		t.Fatal(err)
	}
	svc := interview.New(
		storage.NewMemoryStore(),
		room.New(room.Config{}),
		assistant.New(assistant.Config{}),
		cache.New(cache.Config{}),
		events.New(nil),
		stubEvaluator{},
		problems,
	)
	srv := httptest.NewServer(NewServer(svc, events.New(nil)).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func startInterviewT(t *testing.T, srv *httptest.Server) interview.StartResult {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/interviews", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start returned %d: %s", resp.StatusCode, body)
	}
	var result interview.StartResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestStartInterview(t *testing.T) {
	srv := newTestServer(t)

	result := startInterviewT(t, srv)
	if result.SessionID == "" {
		t.Error("start returned empty session id")
	}
	if result.Problem.Name == "" {
		t.Error("start returned empty problem")
	}
	if !strings.HasPrefix(result.AssistantID, "mock-") {
		t.Errorf("unconfigured assistant provider should fall back to a mock id, got %q", result.AssistantID)
	}
	if result.Room != nil {
		t.Error("unconfigured room provider should yield no credentials")
	}
}

func TestGetInterview(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/"+result.SessionID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get returned %d", resp.StatusCode)
	}
	var record models.Interview
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatal(err)
	}
	if record.SessionID != result.SessionID {
		t.Errorf("got session %q, want %q", record.SessionID, result.SessionID)
	}
	if record.Status != models.StatusActive {
		t.Errorf("new interview status = %q, want active", record.Status)
	}
}

func TestGetInterviewNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.StatusCode)
	}
}

func TestListInterviews(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list returned %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("empty store should list [], got %s", body)
	}

	startInterviewT(t, srv)
	startInterviewT(t, srv)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/v1/interviews", "")
	var records []models.Interview
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d interviews, want 2", len(records))
	}
}

func TestUpdateCode(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/interviews/"+result.SessionID+"/code",
		`{"code":"function twoSum() {}"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update code returned %d", resp.StatusCode)
	}

	_, body := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/"+result.SessionID, "")
	var record models.Interview
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatal(err)
	}
	if record.Code != "function twoSum() {}" {
		t.Errorf("code not persisted, got %q", record.Code)
	}
}

func TestUpdateCodeBadBody(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/interviews/"+result.SessionID+"/code", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
}

func TestEndInterview(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/interviews/"+result.SessionID+"/end",
		`{"code":"done()","transcript":[{"role":"agent","content":"How does your solution scale?"},{"role":"user","content":"It is linear."}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end returned %d: %s", resp.StatusCode, body)
	}
	var record models.Interview
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatal(err)
	}
	if record.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if record.EndedAt == nil {
		t.Error("ended interview has no end time")
	}
	if len(record.Questions) != 1 || !strings.Contains(record.Questions[0], "scale") {
		t.Errorf("questions = %v, want the agent's question", record.Questions)
	}
}

func TestUpdateCodeAfterEnd(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	doJSON(t, http.MethodPost, srv.URL+"/v1/interviews/"+result.SessionID+"/end", "")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/interviews/"+result.SessionID+"/code", `{"code":"x"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("got %d, want 409", resp.StatusCode)
	}
}

func TestGetEvaluation(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/"+result.SessionID+"/evaluation", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("evaluation of active interview returned %d, want 409", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, srv.URL+"/v1/interviews/"+result.SessionID+"/end", "")

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/"+result.SessionID+"/evaluation", "")
		if resp.StatusCode == http.StatusOK {
			var er evaluationResponse
			if err := json.Unmarshal(body, &er); err != nil {
				t.Fatal(err)
			}
			if er.Status != "ready" || er.Evaluation == nil || er.Evaluation.OverallScore != 8 {
				t.Fatalf("unexpected evaluation response: %s", body)
			}
			return
		}
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("evaluation returned %d: %s", resp.StatusCode, body)
		}
		if time.Now().After(deadline) {
			t.Fatal("evaluation never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetRoom(t *testing.T) {
	srv := newTestServer(t)
	result := startInterviewT(t, srv)

	// The test server has no room provider configured.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/"+result.SessionID+"/room", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/interviews/missing/room", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.StatusCode)
	}
}
