package session

import (
	"encoding/json"
	"strings"

	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/transport"
)

// isAgentIdentity reports whether a participant identity belongs to the
// interviewer agent. Agent participants join the room with identities
// like "agent-<session>"; everyone else is the candidate.
func isAgentIdentity(identity string) bool {
	return strings.Contains(identity, "agent")
}

// Normalizer converts heterogeneous inbound events into TranscriptEvent.
// It emits zero or one event per input and stamps each with a strictly
// increasing arrival order.
type Normalizer struct {
	arrivals int
}

// NormalizeSegment converts one provider transcription segment.
// Interim segments and segments that are empty after trimming are
// dropped.
func (n *Normalizer) NormalizeSegment(participant string, seg transport.Segment) (TranscriptEvent, bool) {
	if !seg.Final {
		return TranscriptEvent{}, false
	}
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return TranscriptEvent{}, false
	}

	role := models.RoleUser
	if isAgentIdentity(participant) {
		role = models.RoleAgent
	}

	n.arrivals++
	return TranscriptEvent{
		Participant: participant,
		SegmentID:   seg.ID,
		Text:        text,
		Final:       true,
		Role:        role,
		Arrival:     n.arrivals,
	}, true
}

// NormalizeData converts one side-channel payload. Payloads that fail to
// decode as JSON or whose type is not the transcription marker are
// dropped without error; other message types legitimately share the
// channel. Data-channel events carry no provider segment id, so the
// dedup base-key check treats them as always novel.
func (n *Normalizer) NormalizeData(payload []byte) (TranscriptEvent, bool) {
	var msg dataMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return TranscriptEvent{}, false
	}
	if msg.Type != dataTypeTranscription {
		return TranscriptEvent{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return TranscriptEvent{}, false
	}

	role := models.RoleUser
	if msg.Role == "assistant" || msg.Role == string(models.RoleAgent) {
		role = models.RoleAgent
	}

	n.arrivals++
	return TranscriptEvent{
		Participant: "custom",
		Text:        text,
		Final:       true,
		Role:        role,
		Arrival:     n.arrivals,
	}, true
}
