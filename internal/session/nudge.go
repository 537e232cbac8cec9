package session

import "time"

// NudgeConfig holds the idle-activity prompter thresholds.
type NudgeConfig struct {
	// Interval is how often idle timers are inspected.
	Interval time.Duration
	// TypingSilence nudges a candidate who keeps typing without talking.
	TypingSilence time.Duration
	// TotalSilence nudges a candidate who is neither typing nor talking.
	TotalSilence time.Duration
}

// DefaultNudgeConfig returns the production nudge thresholds.
func DefaultNudgeConfig() NudgeConfig {
	return NudgeConfig{
		Interval:      5 * time.Second,
		TypingSilence: 30 * time.Second,
		TotalSilence:  60 * time.Second,
	}
}

// nudgeMessages are cycled through so repeated nudges do not sound
// canned.
var nudgeMessages = []string{
	"I notice you've been quiet for a bit. Would you like to talk through your approach?",
	"Take your time, but feel free to think out loud if it helps.",
	"I'm here if you have any questions or want to discuss your solution.",
	"No pressure, but sharing your thought process can help me give you better feedback.",
}

// Nudger watches elapsed time since the candidate last spoke or typed
// and triggers a spoken nudge exactly once per threshold crossing. It
// never fires while the agent is already speaking, and both thresholds
// re-arm whenever the candidate speaks.
//
// Not safe for concurrent use; Tick and the Note methods are called
// from the session dispatch path only.
type Nudger struct {
	cfg   NudgeConfig
	clock Clock

	// say speaks one nudge; speaking gates nudges while the agent talks.
	say      func(kind, message string)
	speaking func() bool

	lastSpeech time.Time
	lastEdit   time.Time

	typingNudged  bool
	silenceNudged bool
	next          int
}

// NewNudger creates an idle-activity prompter. The silence clocks start
// at construction time.
func NewNudger(cfg NudgeConfig, clock Clock, speaking func() bool, say func(kind, message string)) *Nudger {
	if clock == nil {
		clock = SystemClock
	}
	now := clock.Now()
	return &Nudger{
		cfg:        cfg,
		clock:      clock,
		say:        say,
		speaking:   speaking,
		lastSpeech: now,
		lastEdit:   now,
	}
}

// NoteSpeech records candidate speech. Both thresholds re-arm.
func (n *Nudger) NoteSpeech() {
	n.lastSpeech = n.clock.Now()
	n.typingNudged = false
	n.silenceNudged = false
}

// NoteEdit records a keystroke reaching the code sync channel.
func (n *Nudger) NoteEdit() {
	n.lastEdit = n.clock.Now()
}

// Tick inspects the idle timers. Called every Interval by the session
// loop.
func (n *Nudger) Tick() {
	if n.speaking != nil && n.speaking() {
		// Never talk over the agent; thresholds stay armed for the next
		// tick.
		return
	}

	now := n.clock.Now()
	sinceSpeech := now.Sub(n.lastSpeech)
	sinceEdit := now.Sub(n.lastEdit)

	switch {
	case !n.silenceNudged && sinceSpeech >= n.cfg.TotalSilence && sinceEdit >= n.cfg.TotalSilence:
		n.silenceNudged = true
		n.speak("total_silence")
	case !n.typingNudged && sinceSpeech >= n.cfg.TypingSilence && sinceEdit < sinceSpeech:
		// Typing but not talking.
		n.typingNudged = true
		n.speak("silent_typing")
	}
}

func (n *Nudger) speak(kind string) {
	if n.say == nil {
		return
	}
	msg := nudgeMessages[n.next%len(nudgeMessages)]
	n.next++
	n.say(kind, msg)
}
