// Package transport defines the interface between a session and the
// voice/room provider that delivers its events.
package transport

import "context"

// Segment is a unit of transcribed speech emitted by the room, marked
// final or interim.
type Segment struct {
	ID    string
	Text  string
	Final bool
}

// Listener receives room events. All callbacks for one connection are
// delivered sequentially; implementations may mutate session state
// without additional locking.
type Listener interface {
	// OnConnected is called once the room connection is established.
	OnConnected()

	// OnDisconnected is called when the connection ends, with a nil error
	// for an orderly hangup or the transport failure otherwise. No further
	// callbacks follow.
	OnDisconnected(err error)

	// OnSegments is called with transcription segments for one participant.
	OnSegments(participant string, segments []Segment)

	// OnData is called with an opaque data-channel payload.
	OnData(payload []byte)

	// OnActiveSpeakers is called with the identities the room currently
	// believes are vocally active.
	OnActiveSpeakers(identities []string)
}

// Transport is a connection to a voice/room provider.
type Transport interface {
	// Connect joins the room and begins delivering events to the listener.
	// A connection failure is returned to the caller; there is no retry.
	Connect(ctx context.Context, l Listener) error

	// SetMicrophoneEnabled publishes or unpublishes the local microphone.
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error

	// SendData sends an opaque payload over the room data channel.
	// Reliable sends are retransmitted by the provider; there is no
	// application-level acknowledgment.
	SendData(ctx context.Context, payload []byte, reliable bool) error

	// Close leaves the room and stops event delivery.
	Close() error
}
