package mock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/anishjha12309/itero/internal/transport"
)

// testListener records every room event for inspection.
type testListener struct {
	mu          sync.Mutex
	connected   int
	disconnects []error
	segments    []transport.Segment
	identities  []string
	data        [][]byte
	speakers    [][]string
}

func (l *testListener) OnConnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected++
}

func (l *testListener) OnDisconnected(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects = append(l.disconnects, err)
}

func (l *testListener) OnSegments(participant string, segs []transport.Segment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segments = append(l.segments, segs...)
	for range segs {
		l.identities = append(l.identities, participant)
	}
}

func (l *testListener) OnData(payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, payload)
}

func (l *testListener) OnActiveSpeakers(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.speakers = append(l.speakers, ids)
}

func TestTransport_ConnectReportsJoin(t *testing.T) {
	tr := New()
	l := &testListener{}

	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.connected != 1 {
		t.Errorf("expected 1 connect event, got %d", l.connected)
	}
}

func TestTransport_ConnectTwice(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	if err := tr.Connect(context.Background(), l); err == nil {
		t.Error("expected error on second connect")
	}
}

func TestTransport_StepDeliversUtterance(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	if !tr.Step() {
		t.Fatal("expected first step to deliver")
	}

	if len(l.segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(l.segments))
	}
	if !l.segments[0].Final {
		t.Error("scripted segments must be final")
	}
	if l.identities[0] != agentIdentity {
		t.Errorf("first turn belongs to the agent, got %s", l.identities[0])
	}
	// Speaker edges bracket the utterance.
	if len(l.speakers) != 2 {
		t.Fatalf("expected speaker start and stop, got %d events", len(l.speakers))
	}
	if len(l.speakers[0]) != 1 || len(l.speakers[1]) != 0 {
		t.Errorf("expected [start stop], got %v", l.speakers)
	}
}

func TestTransport_StepMirrorsDataChannel(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)
	tr.Step()

	if len(l.data) != 1 {
		t.Fatalf("expected 1 data payload, got %d", len(l.data))
	}
	var msg struct {
		Type string `json:"type"`
		Text string `json:"text"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(l.data[0], &msg); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if msg.Type != "transcription" {
		t.Errorf("expected transcription payload, got %s", msg.Type)
	}
	if msg.Text != l.segments[0].Text {
		t.Errorf("data channel must mirror the segment text, got %q", msg.Text)
	}
	if msg.Role != "assistant" {
		t.Errorf("expected assistant role on agent turn, got %s", msg.Role)
	}
}

func TestTransport_TurnsAlternate(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	tr.Step()
	tr.Step()

	if len(l.identities) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(l.identities))
	}
	if l.identities[0] != agentIdentity || l.identities[1] != candidateIdentity {
		t.Errorf("expected agent then candidate, got %v", l.identities)
	}
}

func TestTransport_ScriptExhausts(t *testing.T) {
	tr := New()
	tr.Exchanges = []Exchange{{Agent: "hello there candidate", Candidate: "hello to you as well"}}
	l := &testListener{}
	tr.Connect(context.Background(), l)

	if !tr.Step() || !tr.Step() {
		t.Fatal("expected two deliverable steps")
	}
	if tr.Step() {
		t.Error("expected script to be exhausted")
	}
}

func TestTransport_PlayHangsUp(t *testing.T) {
	tr := New()
	tr.Exchanges = []Exchange{{Agent: "one question for you", Candidate: "one answer for you"}}
	l := &testListener{}
	tr.Connect(context.Background(), l)

	tr.Play()

	if len(l.disconnects) != 1 {
		t.Fatalf("expected 1 disconnect, got %d", len(l.disconnects))
	}
	if l.disconnects[0] != nil {
		t.Errorf("hangup must carry no error, got %v", l.disconnects[0])
	}
}

func TestTransport_FailCarriesError(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	tr.Fail(errors.New("ice timeout"))

	if len(l.disconnects) != 1 || l.disconnects[0] == nil {
		t.Fatalf("expected an error disconnect, got %v", l.disconnects)
	}
}

func TestTransport_SendDataRecorded(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	if err := tr.SendData(context.Background(), []byte(`{"type":"say"}`), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(tr.Sent()); got != 1 {
		t.Errorf("expected 1 recorded payload, got %d", got)
	}
}

func TestTransport_CloseIdempotent(t *testing.T) {
	tr := New()
	l := &testListener{}
	tr.Connect(context.Background(), l)

	tr.Close()
	if err := tr.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if tr.Step() {
		t.Error("steps after close must not deliver")
	}
	if err := tr.SendData(context.Background(), []byte("x"), true); err == nil {
		t.Error("expected error sending after close")
	}
}
