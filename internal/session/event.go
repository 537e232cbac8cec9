// Package session implements the per-interview event pipeline: inbound
// room events are normalized, deduplicated and appended to an ordered
// transcript log, while presence, code sync and idle nudging react to
// the same stream. All state is owned by one Session and mutated only
// inside its dispatch path.
package session

import "github.com/anishjha12309/itero/internal/models"

// TranscriptEvent is the canonical shape every inbound transcription
// event is normalized into before deduplication. It is transient; only
// accepted events become models.TranscriptEntry.
type TranscriptEvent struct {
	Participant string
	SegmentID   string
	Text        string
	Final       bool
	Role        models.Role
	Arrival     int
}

// dataMessage is the expected JSON shape of side-channel payloads. The
// channel is shared with other message types; anything that does not
// decode, or whose Type is not recognized, is dropped silently.
type dataMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

const (
	dataTypeTranscription = "transcription"
	dataTypeCodeUpdate    = "code_update"
	dataTypeSay           = "say"
)

// sayPayload asks the agent to speak a message aloud.
type sayPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
