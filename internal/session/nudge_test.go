package session

import (
	"testing"
	"time"
)

type nudgeRecorder struct {
	kinds    []string
	messages []string
}

func (r *nudgeRecorder) say(kind, message string) {
	r.kinds = append(r.kinds, kind)
	r.messages = append(r.messages, message)
}

func notSpeaking() bool { return false }

// tickUntil advances the fake clock in nudger intervals, invoking Tick
// the way the session loop would.
func tickUntil(clock *fakeClock, n *Nudger, d time.Duration) {
	steps := int(d / n.cfg.Interval)
	for i := 0; i < steps; i++ {
		clock.Advance(n.cfg.Interval)
		n.Tick()
	}
}

func TestNudger_SilentTypingNudge(t *testing.T) {
	clock := newFakeClock()
	rec := &nudgeRecorder{}
	n := NewNudger(DefaultNudgeConfig(), clock, notSpeaking, rec.say)

	// Candidate types but never talks.
	clock.Advance(10 * time.Second)
	n.NoteEdit()
	tickUntil(clock, n, 25*time.Second)

	if len(rec.kinds) != 1 {
		t.Fatalf("expected exactly 1 nudge, got %d", len(rec.kinds))
	}
	if rec.kinds[0] != "silent_typing" {
		t.Errorf("expected silent_typing nudge, got %s", rec.kinds[0])
	}

	// Threshold fires once per crossing, not once per tick.
	tickUntil(clock, n, 20*time.Second)
	if len(rec.kinds) != 1 {
		t.Errorf("silent typing nudge must not repeat, got %d", len(rec.kinds))
	}
}

func TestNudger_TotalSilenceNudge(t *testing.T) {
	clock := newFakeClock()
	rec := &nudgeRecorder{}
	n := NewNudger(DefaultNudgeConfig(), clock, notSpeaking, rec.say)

	tickUntil(clock, n, 65*time.Second)

	if len(rec.kinds) == 0 {
		t.Fatal("expected a total-silence nudge")
	}
	if rec.kinds[len(rec.kinds)-1] != "total_silence" {
		t.Errorf("expected total_silence nudge, got %s", rec.kinds[len(rec.kinds)-1])
	}
}

func TestNudger_SpeechResetsThresholds(t *testing.T) {
	clock := newFakeClock()
	rec := &nudgeRecorder{}
	n := NewNudger(DefaultNudgeConfig(), clock, notSpeaking, rec.say)

	clock.Advance(10 * time.Second)
	n.NoteEdit()
	tickUntil(clock, n, 25*time.Second)
	if len(rec.kinds) != 1 {
		t.Fatalf("expected 1 nudge before speech, got %d", len(rec.kinds))
	}

	// Candidate speaks, then keeps typing: both thresholds re-arm.
	n.NoteSpeech()
	clock.Advance(5 * time.Second)
	n.NoteEdit()
	tickUntil(clock, n, 30*time.Second)
	if len(rec.kinds) != 2 {
		t.Errorf("expected re-armed nudge after speech, got %d", len(rec.kinds))
	}
}

func TestNudger_GatedWhileAgentSpeaks(t *testing.T) {
	clock := newFakeClock()
	rec := &nudgeRecorder{}
	speaking := true
	n := NewNudger(DefaultNudgeConfig(), clock, func() bool { return speaking }, rec.say)

	tickUntil(clock, n, 90*time.Second)
	if len(rec.kinds) != 0 {
		t.Fatalf("no nudge may fire while the agent speaks, got %d", len(rec.kinds))
	}

	// Threshold stays armed; the next quiet tick fires it.
	speaking = false
	tickUntil(clock, n, 5*time.Second)
	if len(rec.kinds) != 1 {
		t.Errorf("expected armed nudge once the agent stops, got %d", len(rec.kinds))
	}
}

func TestNudger_MessagesCycle(t *testing.T) {
	clock := newFakeClock()
	rec := &nudgeRecorder{}
	n := NewNudger(DefaultNudgeConfig(), clock, notSpeaking, rec.say)

	for i := 0; i < 3; i++ {
		tickUntil(clock, n, 65*time.Second)
		n.NoteSpeech()
	}

	if len(rec.messages) != 3 {
		t.Fatalf("expected 3 nudges, got %d", len(rec.messages))
	}
	if rec.messages[0] == rec.messages[1] {
		t.Error("consecutive nudges should cycle through different messages")
	}
}
