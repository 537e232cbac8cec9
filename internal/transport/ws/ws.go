// Package ws bridges a websocket connection onto the room transport
// interface. The peer is the browser client: it forwards provider
// transcription segments, data-channel payloads and active-speaker
// changes as JSON frames, and receives outbound data-channel payloads
// the same way.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/transport"
)

// Frame types carried in both directions.
const (
	frameSegments   = "segments"
	frameData       = "data"
	frameSpeakers   = "speakers"
	frameMicrophone = "microphone"
)

// frame is the wire shape of every websocket message. Type selects
// which of the remaining fields are meaningful.
type frame struct {
	Type        string          `json:"type"`
	Participant string          `json:"participant,omitempty"`
	Segments    []segmentFrame  `json:"segments,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Identities  []string        `json:"identities,omitempty"`
	Enabled     bool            `json:"enabled,omitempty"`
}

type segmentFrame struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Config tunes the websocket bridge. Zero values select defaults.
type Config struct {
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 1 << 20
	}
	return c
}

// Upgrader is the websocket upgrader used by the events endpoint.
// Origin checking happens in the HTTP middleware, not here.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Transport implements transport.Transport over one websocket
// connection. Inbound frames are decoded on a single reader goroutine,
// so listener callbacks arrive sequentially. Outbound writes are
// serialized with a mutex.
type Transport struct {
	cfg    Config
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	listener transport.Listener
	closed   bool
	done     chan struct{}
}

// New wraps an already upgraded websocket connection.
func New(conn *websocket.Conn, sessionID string, cfg Config) *Transport {
	return &Transport{
		cfg:    cfg.withDefaults(),
		conn:   conn,
		logger: logging.WithComponent("ws-transport").With().Str("sessionId", sessionID).Logger(),
		done:   make(chan struct{}),
	}
}

// Connect arms the reader and keepalive loops and reports the room as
// joined. The listener receives OnDisconnected exactly once when the
// peer goes away, after which no further events are delivered.
func (t *Transport) Connect(_ context.Context, l transport.Listener) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("ws transport closed")
	}
	if t.listener != nil {
		t.mu.Unlock()
		return errors.New("ws transport already connected")
	}
	t.listener = l
	t.mu.Unlock()

	t.conn.SetReadLimit(t.cfg.MaxMessageBytes)
	readTimeout := 2 * t.cfg.PingInterval
	_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go t.readLoop(l, readTimeout)
	go t.pingLoop()

	l.OnConnected()
	return nil
}

// SetMicrophoneEnabled tells the peer to publish or mute the local
// microphone track.
func (t *Transport) SetMicrophoneEnabled(_ context.Context, enabled bool) error {
	return t.writeFrame(frame{Type: frameMicrophone, Enabled: enabled})
}

// SendData forwards a payload to the peer's data channel. Reliability
// is the peer's concern; the flag is carried for parity with real room
// providers and ignored here.
func (t *Transport) SendData(_ context.Context, payload []byte, _ bool) error {
	return t.writeFrame(frame{Type: frameData, Payload: json.RawMessage(payload)})
}

// Close performs the websocket close handshake. Idempotent. A local
// close emits no disconnect event.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	deadline := time.Now().Add(t.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return t.conn.Close()
}

func (t *Transport) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errors.New("ws transport closed")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) readLoop(l transport.Listener, readTimeout time.Duration) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.deliverDisconnect(l, err)
			return
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.logger.Debug().Err(err).Msg("Dropping malformed frame")
			continue
		}

		switch f.Type {
		case frameSegments:
			segs := make([]transport.Segment, 0, len(f.Segments))
			for _, s := range f.Segments {
				segs = append(segs, transport.Segment{ID: s.ID, Text: s.Text, Final: s.Final})
			}
			l.OnSegments(f.Participant, segs)
		case frameData:
			l.OnData(f.Payload)
		case frameSpeakers:
			l.OnActiveSpeakers(f.Identities)
		default:
			// Unknown frame types are forward compatible noise.
		}
	}
}

func (t *Transport) deliverDisconnect(l transport.Listener, err error) {
	t.mu.Lock()
	wasClosed := t.closed
	t.closed = true
	if !wasClosed {
		close(t.done)
	}
	t.mu.Unlock()
	if wasClosed {
		// Local close; the listener asked for the teardown itself.
		return
	}
	_ = t.conn.Close()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		l.OnDisconnected(nil)
		return
	}
	l.OnDisconnected(err)
}

func (t *Transport) pingLoop() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.cfg.WriteTimeout)
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline)
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
