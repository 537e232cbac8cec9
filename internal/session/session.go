package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/observability/metrics"
	"github.com/anishjha12309/itero/internal/transport"
)

// Hooks are the session's lifecycle callbacks. Each fires from inside
// the session dispatch path; implementations must not call back into
// the session's mutating methods.
type Hooks struct {
	// OnTranscript fires once per accepted transcript entry, in append
	// order.
	OnTranscript func(models.TranscriptEntry)
	OnSpeechStart func()
	OnSpeechEnd   func()
	// OnCallEnd fires exactly once, on the first disconnect from any
	// connected state.
	OnCallEnd func()
	OnError   func(error)
}

// Config collects the tunables for one session.
type Config struct {
	SessionID string
	Filter    FilterConfig
	CodeSync  CodeSyncConfig
	Nudge     NudgeConfig
	Clock     Clock
	Metrics   *metrics.Metrics
	Hooks     Hooks
}

// DefaultConfig returns a session config with production parameters.
func DefaultConfig(sessionID string) Config {
	return Config{
		SessionID: sessionID,
		Filter:    DefaultFilterConfig(),
		CodeSync:  DefaultCodeSyncConfig(),
		Nudge:     DefaultNudgeConfig(),
		Clock:     SystemClock,
		Metrics:   metrics.DefaultMetrics,
	}
}

// Session owns all per-interview state: the normalizer, dedup filter,
// transcript log, presence machine, code sync channel and idle nudger.
// It implements transport.Listener; the transport delivers events
// sequentially and every mutation happens under one dispatch lock, so
// no entry is ever partially appended and no interleaving is observable
// mid-handler.
//
// A session is single-use: teardown abandons pending timers and a fresh
// session starts from fresh state. Reconnection is not supported.
type Session struct {
	id     string
	logger zerolog.Logger
	tr     transport.Transport
	clock  Clock
	m      *metrics.Metrics
	hooks  Hooks

	presence *Presence
	codesync *CodeSync
	tlog     *Log

	mu     sync.Mutex
	norm   Normalizer
	filter *Filter
	nudger *Nudger
	tick   Timer
	closed bool
}

// New creates a session bound to a transport. Nothing happens until
// Start.
func New(tr transport.Transport, cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	s := &Session{
		id:     cfg.SessionID,
		logger: logging.WithSession(cfg.SessionID),
		tr:     tr,
		clock:  cfg.Clock,
		m:      cfg.Metrics,
		hooks:  cfg.Hooks,
		tlog:   &Log{},
		filter: NewFilter(cfg.Filter, cfg.Clock),
	}

	s.presence = NewPresence(PresenceCallbacks{
		OnSpeechStart: func() {
			if s.hooks.OnSpeechStart != nil {
				s.hooks.OnSpeechStart()
			}
		},
		OnSpeechEnd: func() {
			if s.hooks.OnSpeechEnd != nil {
				s.hooks.OnSpeechEnd()
			}
		},
		OnCallEnd: func() {
			if s.hooks.OnCallEnd != nil {
				s.hooks.OnCallEnd()
			}
		},
		OnTransition: func(from, to State) {
			s.m.RecordPresenceTransition(from.String(), to.String())
		},
	})

	s.codesync = NewCodeSync(cfg.CodeSync, cfg.Clock,
		func() bool { return s.presence.State() != StateDisconnected },
		func(payload []byte) error {
			return s.tr.SendData(context.Background(), payload, true)
		},
	)
	s.codesync.sent = func() {
		if s.m != nil {
			s.m.CodeSyncsSent.Inc()
		}
	}
	s.codesync.skipped = func(reason string) {
		if s.m != nil {
			s.m.CodeSyncsSkipped.WithLabelValues(reason).Inc()
		}
	}

	s.nudger = NewNudger(cfg.Nudge, cfg.Clock,
		func() bool { return s.presence.State() == StateSpeaking },
		func(kind, message string) {
			if s.m != nil {
				s.m.NudgesSpoken.WithLabelValues(kind).Inc()
			}
			s.Say(message)
		},
	)

	return s
}

// Start connects the transport, enables the microphone and arms the
// idle ticker. A connection failure is returned to the caller; whether
// to retry the session start is the caller's decision.
func (s *Session) Start(ctx context.Context) error {
	if err := s.tr.Connect(ctx, s); err != nil {
		return fmt.Errorf("session %s: connect: %w", s.id, err)
	}
	if err := s.tr.SetMicrophoneEnabled(ctx, true); err != nil {
		s.tr.Close()
		return fmt.Errorf("session %s: enable microphone: %w", s.id, err)
	}
	s.m.RecordSessionStart()

	s.mu.Lock()
	if !s.closed {
		s.scheduleTickLocked()
	}
	s.mu.Unlock()
	return nil
}

// Presence returns the current presence state.
func (s *Session) Presence() State {
	return s.presence.State()
}

// Snapshot returns the ordered transcript accumulated so far.
func (s *Session) Snapshot() []models.TranscriptEntry {
	return s.tlog.Snapshot()
}

// EditCode records a local code edit, restarting the debounced sync.
func (s *Session) EditCode(code string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.nudger.NoteEdit()
	s.mu.Unlock()

	s.codesync.OnEdit(code)
}

// Say sends a message for the agent to speak aloud, over the reliable
// data channel. Fire-and-forget.
func (s *Session) Say(message string) {
	payload, err := json.Marshal(sayPayload{Type: dataTypeSay, Text: message})
	if err != nil {
		return
	}
	if err := s.tr.SendData(context.Background(), payload, true); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send say message")
	}
}

// Close tears the session down: the transport is closed, the pending
// debounce is abandoned and the end-of-call hook fires if the session
// was still connected.
func (s *Session) Close() error {
	err := s.tr.Close()
	s.teardown(nil, "local")
	return err
}

// --- transport.Listener implementation ---

// OnConnected records the established room connection; presence passes
// through connected-idle and lands on listening.
func (s *Session) OnConnected() {
	if err := s.presence.Connect(); err != nil {
		s.logger.Warn().Err(err).Msg("Duplicate connect event ignored")
		return
	}
	s.logger.Info().Msg("Session connected")
}

// OnDisconnected handles a remote hangup or transport failure. The
// transport emits no further events afterwards.
func (s *Session) OnDisconnected(err error) {
	reason := "hangup"
	if err != nil {
		reason = "transport_error"
	}
	s.teardown(err, reason)
}

// OnSegments runs provider transcription segments through the pipeline.
func (s *Session) OnSegments(participant string, segments []transport.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for _, seg := range segments {
		if s.m != nil {
			s.m.EventsReceived.WithLabelValues("segment").Inc()
		}
		ev, ok := s.norm.NormalizeSegment(participant, seg)
		if !ok {
			if s.m != nil {
				s.m.EventsDropped.WithLabelValues("normalizer").Inc()
			}
			continue
		}
		s.acceptLocked(ev)
	}
}

// OnData runs a side-channel payload through the pipeline. Payloads
// that are not transcription messages are dropped silently.
func (s *Session) OnData(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.m != nil {
		s.m.EventsReceived.WithLabelValues("data").Inc()
	}
	ev, ok := s.norm.NormalizeData(payload)
	if !ok {
		if s.m != nil {
			s.m.EventsDropped.WithLabelValues("normalizer").Inc()
		}
		return
	}
	s.acceptLocked(ev)
}

// OnActiveSpeakers drives the presence machine and re-arms the idle
// nudger when the candidate is vocally active.
func (s *Session) OnActiveSpeakers(identities []string) {
	s.presence.ObserveSpeakers(identities)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, id := range identities {
		if !isAgentIdentity(id) {
			s.nudger.NoteSpeech()
			break
		}
	}
}

func (s *Session) acceptLocked(ev TranscriptEvent) {
	evictions := s.filter.Evictions()
	entry, verdict := s.filter.Accept(ev)
	if s.m != nil {
		if d := s.filter.Evictions() - evictions; d > 0 {
			s.m.TrackedKeysEvicted.Add(float64(d))
		}
	}
	if verdict != VerdictAccepted {
		if s.m != nil {
			s.m.DedupRejections.WithLabelValues(string(verdict)).Inc()
		}
		s.logger.Debug().
			Str("participant", ev.Participant).
			Str("segmentId", ev.SegmentID).
			Str("verdict", string(verdict)).
			Msg("Transcript event rejected as duplicate")
		return
	}

	s.tlog.Append(entry)
	if s.m != nil {
		s.m.EntriesAccepted.WithLabelValues(string(entry.Role)).Inc()
	}
	if entry.Role == models.RoleUser {
		s.nudger.NoteSpeech()
	}
	if s.hooks.OnTranscript != nil {
		s.hooks.OnTranscript(entry)
	}
}

func (s *Session) teardown(err error, reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	s.mu.Unlock()

	s.codesync.Cancel()

	wasConnected := s.presence.State() != StateDisconnected
	s.presence.Disconnect()
	if wasConnected {
		s.m.RecordSessionEnd(reason)
	}

	if err != nil {
		s.logger.Error().Err(err).Msg("Session ended on transport failure")
		if s.hooks.OnError != nil {
			s.hooks.OnError(err)
		}
	} else {
		s.logger.Info().Str("reason", reason).Msg("Session ended")
	}
}

func (s *Session) scheduleTickLocked() {
	s.tick = s.clock.AfterFunc(s.nudger.cfg.Interval, s.onTick)
}

func (s *Session) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.nudger.Tick()
	s.scheduleTickLocked()
}
