package session

import (
	"encoding/json"
	"sync"
	"time"
)

// CodeSyncConfig holds the debounce parameters for code propagation.
type CodeSyncConfig struct {
	// Debounce is the quiet period required after the last edit before a
	// snapshot is sent.
	Debounce time.Duration
	// MinChars suppresses sends of trivial/placeholder content.
	MinChars int
	// Language is attached to outbound snapshots.
	Language string
}

// DefaultCodeSyncConfig returns the production code-sync parameters.
func DefaultCodeSyncConfig() CodeSyncConfig {
	return CodeSyncConfig{
		Debounce: 1500 * time.Millisecond,
		MinChars: 20,
		Language: "javascript",
	}
}

// codeUpdatePayload is the wire shape of an outbound code snapshot.
type codeUpdatePayload struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Language  string `json:"language"`
	Timestamp int64  `json:"timestamp"`
}

// CodeSync debounces local code edits and pushes the latest snapshot to
// the remote agent once the editor goes quiet. Sends are fire-and-forget
// over the reliable data channel; when the connection is not active the
// send is skipped silently and the next edit tries again. At most one
// debounce timer is pending at a time; a new edit cancels and restarts
// it.
type CodeSync struct {
	cfg   CodeSyncConfig
	clock Clock

	// send delivers one payload over the data channel.
	send func(payload []byte) error
	// connected gates sends on connection state at fire time.
	connected func() bool
	// skipped observes suppressed sends (metrics); may be nil.
	skipped func(reason string)
	// sent observes successful sends (metrics); may be nil.
	sent func()

	mu       sync.Mutex
	lastSent string
	pending  Timer
	// gen invalidates a timer callback that lost the race with a newer
	// edit or a cancel.
	gen uint64
}

// NewCodeSync creates a code sync channel.
func NewCodeSync(cfg CodeSyncConfig, clock Clock, connected func() bool, send func([]byte) error) *CodeSync {
	if clock == nil {
		clock = SystemClock
	}
	return &CodeSync{
		cfg:       cfg,
		clock:     clock,
		send:      send,
		connected: connected,
	}
}

// OnEdit records a local edit, cancelling any pending send and
// restarting the debounce timer with this snapshot.
func (c *CodeSync) OnEdit(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.pending.Stop()
	}
	c.gen++
	gen := c.gen
	c.pending = c.clock.AfterFunc(c.cfg.Debounce, func() {
		c.flush(gen, code)
	})
}

// Cancel abandons any pending send. Used at session teardown; no
// further sends occur until the next edit.
func (c *CodeSync) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.gen++
}

// LastSent returns the most recently delivered snapshot.
func (c *CodeSync) LastSent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSent
}

func (c *CodeSync) flush(gen uint64, code string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	if code == c.lastSent {
		c.mu.Unlock()
		c.skip("unchanged")
		return
	}
	if len(code) <= c.cfg.MinChars {
		c.mu.Unlock()
		c.skip("too_short")
		return
	}
	if c.connected != nil && !c.connected() {
		c.mu.Unlock()
		c.skip("disconnected")
		return
	}

	payload, err := json.Marshal(codeUpdatePayload{
		Type:      dataTypeCodeUpdate,
		Code:      code,
		Language:  c.cfg.Language,
		Timestamp: c.clock.Now().UnixMilli(),
	})
	if err != nil {
		c.mu.Unlock()
		return
	}

	if err := c.send(payload); err != nil {
		// Fire-and-forget: no queueing, no retry. The next edit will
		// attempt again.
		c.mu.Unlock()
		c.skip("send_error")
		return
	}
	c.lastSent = code
	c.mu.Unlock()

	if c.sent != nil {
		c.sent()
	}
}

func (c *CodeSync) skip(reason string) {
	if c.skipped != nil {
		c.skipped(reason)
	}
}
