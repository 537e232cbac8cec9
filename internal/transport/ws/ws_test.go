package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anishjha12309/itero/internal/transport"
)

// chanListener funnels callbacks into channels so tests can wait for
// events delivered on the reader goroutine.
type chanListener struct {
	connected    chan struct{}
	disconnected chan error
	segments     chan []transport.Segment
	data         chan []byte
	speakers     chan []string
}

func newChanListener() *chanListener {
	return &chanListener{
		connected:    make(chan struct{}, 1),
		disconnected: make(chan error, 1),
		segments:     make(chan []transport.Segment, 4),
		data:         make(chan []byte, 4),
		speakers:     make(chan []string, 4),
	}
}

func (l *chanListener) OnConnected()              { l.connected <- struct{}{} }
func (l *chanListener) OnDisconnected(err error)  { l.disconnected <- err }
func (l *chanListener) OnData(p []byte)           { l.data <- p }
func (l *chanListener) OnActiveSpeakers(s []string) { l.speakers <- s }

func (l *chanListener) OnSegments(_ string, segs []transport.Segment) {
	l.segments <- segs
}

// dial upgrades a test server connection and hands both ends back.
func dial(t *testing.T) (*Transport, *websocket.Conn) {
	t.Helper()

	serverConn := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConn <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverConn:
		return New(conn, "s1", Config{}), client
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
		return nil, nil
	}
}

func wait[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestConnectReportsConnected(t *testing.T) {
	tr, _ := dial(t)
	defer tr.Close()

	l := newChanListener()
	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	wait(t, l.connected, "OnConnected")

	if err := tr.Connect(context.Background(), l); err == nil {
		t.Error("second Connect() should fail")
	}
}

func TestInboundFrames(t *testing.T) {
	tr, client := dial(t)
	defer tr.Close()

	l := newChanListener()
	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	wait(t, l.connected, "OnConnected")

	send := func(raw string) {
		if err := client.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("client write failed: %v", err)
		}
	}

	send(`{"type":"segments","participant":"agent-x","segments":[{"id":"s1","text":"hello","final":true}]}`)
	segs := wait(t, l.segments, "OnSegments")
	if len(segs) != 1 || segs[0].Text != "hello" || !segs[0].Final {
		t.Errorf("got segments %+v", segs)
	}

	send(`{"type":"data","payload":{"type":"transcription","text":"hi","role":"user"}}`)
	payload := wait(t, l.data, "OnData")
	if !strings.Contains(string(payload), "transcription") {
		t.Errorf("got payload %s", payload)
	}

	send(`{"type":"speakers","identities":["agent-x"]}`)
	speakers := wait(t, l.speakers, "OnActiveSpeakers")
	if len(speakers) != 1 || speakers[0] != "agent-x" {
		t.Errorf("got speakers %v", speakers)
	}

	// Malformed and unknown frames are dropped without killing the
	// reader.
	send(`{not json`)
	send(`{"type":"mystery"}`)
	send(`{"type":"speakers"}`)
	if got := wait(t, l.speakers, "OnActiveSpeakers"); len(got) != 0 {
		t.Errorf("got speakers %v, want none", got)
	}
}

func TestOutboundFrames(t *testing.T) {
	tr, client := dial(t)
	defer tr.Close()

	l := newChanListener()
	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	wait(t, l.connected, "OnConnected")

	if err := tr.SetMicrophoneEnabled(context.Background(), true); err != nil {
		t.Fatalf("SetMicrophoneEnabled() error = %v", err)
	}
	if err := tr.SendData(context.Background(), []byte(`{"type":"say","message":"hi"}`), true); err != nil {
		t.Fatalf("SendData() error = %v", err)
	}

	read := func() frame {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("client read failed: %v", err)
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("client got malformed frame: %v", err)
		}
		return f
	}

	mic := read()
	if mic.Type != frameMicrophone || !mic.Enabled {
		t.Errorf("got frame %+v, want microphone enabled", mic)
	}
	data := read()
	if data.Type != frameData || !strings.Contains(string(data.Payload), "say") {
		t.Errorf("got frame %+v, want data payload", data)
	}
}

func TestPeerCloseDeliversNilDisconnect(t *testing.T) {
	tr, client := dial(t)
	defer tr.Close()

	l := newChanListener()
	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	wait(t, l.connected, "OnConnected")

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("client close failed: %v", err)
	}
	client.Close()

	if err := wait(t, l.disconnected, "OnDisconnected"); err != nil {
		t.Errorf("orderly close delivered error %v, want nil", err)
	}
}

func TestLocalCloseIsSilent(t *testing.T) {
	tr, _ := dial(t)

	l := newChanListener()
	if err := tr.Connect(context.Background(), l); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	wait(t, l.connected, "OnConnected")

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case err := <-l.disconnected:
		t.Errorf("local close delivered OnDisconnected(%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := tr.SendData(context.Background(), []byte("{}"), true); err == nil {
		t.Error("SendData() after Close() should fail")
	}
}
