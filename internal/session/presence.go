package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the presence/activity state of a session.
type State int

const (
	// StateDisconnected - No active room connection.
	StateDisconnected State = iota
	// StateConnectedIdle - Connected, audio not yet flowing.
	StateConnectedIdle
	// StateListening - Connected, agent is not speaking.
	StateListening
	// StateSpeaking - The agent is vocally active.
	StateSpeaking
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectedIdle:
		return "connected-idle"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ErrAlreadyConnected is returned when Connect is called on a session
// whose presence is not disconnected.
var ErrAlreadyConnected = errors.New("presence: already connected")

// PresenceCallbacks fire exactly once per transition edge. The speech
// and call-end callbacks run outside the presence lock; OnTransition is
// a lightweight observer (metrics, logging) invoked inline and must not
// call back into Presence.
type PresenceCallbacks struct {
	OnSpeechStart func()
	OnSpeechEnd   func()
	OnCallEnd     func()
	OnTransition  func(from, to State)
}

// Presence tracks the connection/speaking/listening state of one
// session. Transitions are driven exclusively by lifecycle and
// speaker-activity events, never by transcript content. Speaking and
// listening are mutually exclusive by construction.
//
// State transitions:
//
//	disconnected → connected-idle → listening ⇄ speaking
//	      ↑ ______________________________________|
//	        (disconnect / transport failure, any state)
type Presence struct {
	mu    sync.Mutex
	state State
	cbs   PresenceCallbacks

	// agentMatch decides which identities count as the agent for
	// active-speaker purposes.
	agentMatch func(string) bool
}

// NewPresence creates a presence machine in the disconnected state.
func NewPresence(cbs PresenceCallbacks) *Presence {
	return &Presence{
		state:      StateDisconnected,
		cbs:        cbs,
		agentMatch: isAgentIdentity,
	}
}

// State returns the current state.
func (p *Presence) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect records a successful room connection. Listening is entered
// immediately after connect; connected-idle is traversed on the way so
// observers of OnTransition see both edges.
func (p *Presence) Connect() error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	p.transitionLocked(StateConnectedIdle)
	p.transitionLocked(StateListening)
	p.mu.Unlock()
	return nil
}

// Disconnect records an orderly hangup or a transport failure. Safe to
// call from any state; the end-of-call callback fires exactly once.
func (p *Presence) Disconnect() {
	p.mu.Lock()
	if p.state == StateDisconnected {
		p.mu.Unlock()
		return
	}
	wasSpeaking := p.state == StateSpeaking
	p.transitionLocked(StateDisconnected)
	cbs := p.cbs
	p.mu.Unlock()

	if wasSpeaking && cbs.OnSpeechEnd != nil {
		cbs.OnSpeechEnd()
	}
	if cbs.OnCallEnd != nil {
		cbs.OnCallEnd()
	}
}

// ObserveSpeakers applies one active-speaker-set event. The session is
// speaking while the set contains an agent identity and listening
// otherwise; events arriving while disconnected are ignored.
func (p *Presence) ObserveSpeakers(identities []string) {
	agentActive := false
	for _, id := range identities {
		if p.agentMatch(id) {
			agentActive = true
			break
		}
	}

	p.mu.Lock()
	if p.state == StateDisconnected {
		p.mu.Unlock()
		return
	}

	var fire func()
	switch {
	case agentActive && p.state != StateSpeaking:
		p.transitionLocked(StateSpeaking)
		fire = p.cbs.OnSpeechStart
	case !agentActive && p.state == StateSpeaking:
		p.transitionLocked(StateListening)
		fire = p.cbs.OnSpeechEnd
	}
	p.mu.Unlock()

	if fire != nil {
		fire()
	}
}

func (p *Presence) transitionLocked(to State) {
	from := p.state
	p.state = to
	if p.cbs.OnTransition != nil {
		p.cbs.OnTransition(from, to)
	}
}
