// Package mock provides a mock room transport for testing without a
// live media server. It simulates a realistic interview call with
// alternating agent and candidate turns, active-speaker edges around
// each utterance, and duplicate delivery over the data channel the way
// real providers mirror transcription events.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anishjha12309/itero/internal/transport"
)

// Exchange is one scripted agent/candidate turn pair.
type Exchange struct {
	Agent     string // What the agent says
	Candidate string // What the candidate answers
}

// DefaultExchanges provides a sample interview for simulation.
var DefaultExchanges = []Exchange{
	{
		Agent:     "Let's start with a warm up. How would you find duplicates in an array?",
		Candidate: "I would use a set and check membership while iterating",
	},
	{
		Agent:     "Good. What is the time complexity of that approach?",
		Candidate: "Linear time with linear extra space for the set",
	},
	{
		Agent:     "Can you think of a way to do it without extra space?",
		Candidate: "If the array is sortable I could sort first and compare neighbors",
	},
	{
		Agent:     "Nice. Go ahead and code up the set based version",
		Candidate: "Sure, give me a minute to write it out",
	},
}

// Transport implements transport.Transport with scripted room events.
// Each Step delivers one utterance: speaker-start, a final transcription
// segment, a mirrored data-channel copy, then speaker-stop. Play runs
// the whole script on a timer.
type Transport struct {
	// Exchanges overrides DefaultExchanges when non-empty. Set before
	// Connect.
	Exchanges []Exchange

	// StepDelay is the async delivery delay per event. Zero means
	// synchronous delivery, which keeps unit tests deterministic.
	StepDelay time.Duration

	mu       sync.Mutex
	listener transport.Listener
	sent     [][]byte
	micOn    bool
	step     int
	segSeq   int
	closed   bool
}

// agentIdentity and candidateIdentity are the simulated participants.
const (
	agentIdentity     = "agent-mock"
	candidateIdentity = "candidate-mock"
)

// New creates a mock room transport.
func New() *Transport {
	return &Transport{}
}

// Connect stores the listener and reports the room as joined.
func (t *Transport) Connect(_ context.Context, l transport.Listener) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("mock transport closed")
	}
	if t.listener != nil {
		t.mu.Unlock()
		return errors.New("mock transport already connected")
	}
	t.listener = l
	if len(t.Exchanges) == 0 {
		t.Exchanges = DefaultExchanges
	}
	t.mu.Unlock()

	l.OnConnected()
	return nil
}

// SetMicrophoneEnabled records the microphone state.
func (t *Transport) SetMicrophoneEnabled(_ context.Context, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("mock transport closed")
	}
	t.micOn = enabled
	return nil
}

// SendData records an outbound payload. Recorded payloads are available
// through Sent.
func (t *Transport) SendData(_ context.Context, payload []byte, _ bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("mock transport closed")
	}
	t.sent = append(t.sent, append([]byte(nil), payload...))
	return nil
}

// Sent returns a copy of every payload sent over the data channel.
func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// Step delivers the next scripted utterance. Agent and candidate turns
// alternate; the script is exhausted after two steps per exchange.
// Returns false once nothing is left to deliver.
func (t *Transport) Step() bool {
	t.mu.Lock()
	if t.closed || t.listener == nil {
		t.mu.Unlock()
		return false
	}
	exchange := t.step / 2
	if exchange >= len(t.Exchanges) {
		t.mu.Unlock()
		return false
	}

	identity := agentIdentity
	text := t.Exchanges[exchange].Agent
	role := "assistant"
	if t.step%2 == 1 {
		identity = candidateIdentity
		text = t.Exchanges[exchange].Candidate
		role = "user"
	}
	t.step++
	t.segSeq++
	segID := fmt.Sprintf("mock-seg-%d", t.segSeq)
	l := t.listener
	delay := t.StepDelay
	t.mu.Unlock()

	deliver := func(f func()) {
		if delay == 0 {
			f()
			return
		}
		time.Sleep(delay)
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if !closed {
			f()
		}
	}

	deliver(func() { l.OnActiveSpeakers([]string{identity}) })
	deliver(func() {
		l.OnSegments(identity, []transport.Segment{{ID: segID, Text: text, Final: true}})
	})
	// Real rooms mirror transcriptions on the data channel too, with no
	// segment id. The pipeline is expected to collapse the duplicate.
	deliver(func() {
		payload, _ := json.Marshal(map[string]any{
			"type":      "transcription",
			"text":      text,
			"role":      role,
			"timestamp": time.Now().UnixMilli(),
		})
		l.OnData(payload)
	})
	deliver(func() { l.OnActiveSpeakers(nil) })
	return true
}

// Play runs the entire script, then hangs up.
func (t *Transport) Play() {
	for t.Step() {
	}
	t.Hangup()
}

// Hangup simulates the remote side ending the call.
func (t *Transport) Hangup() {
	t.mu.Lock()
	if t.closed || t.listener == nil {
		t.mu.Unlock()
		return
	}
	t.closed = true
	l := t.listener
	t.mu.Unlock()

	l.OnDisconnected(nil)
}

// Fail simulates a transport failure.
func (t *Transport) Fail(err error) {
	t.mu.Lock()
	if t.closed || t.listener == nil {
		t.mu.Unlock()
		return
	}
	t.closed = true
	l := t.listener
	t.mu.Unlock()

	l.OnDisconnected(err)
}

// Close ends the mock session. Idempotent; no disconnect event is
// emitted for a local close.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
