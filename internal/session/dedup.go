package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/anishjha12309/itero/internal/models"
)

// FilterConfig holds the dedup heuristic's tuning knobs. The defaults
// reproduce the behavior the voice providers were tuned against; they
// are knobs, not derived values.
type FilterConfig struct {
	// ComparePrefixLen is how many leading characters of one text must
	// appear in the other for the fuzzy check to consider them related.
	ComparePrefixLen int
	// MaxLengthDelta is the largest length difference two texts may have
	// and still be fuzzy duplicates.
	MaxLengthDelta int
	// StoredPrefixLen is how much of an accepted text is retained for
	// future fuzzy comparisons.
	StoredPrefixLen int
	// MaxTrackedKeys bounds the key set; the oldest-inserted key is
	// evicted first. Bounded memory is traded for perfect dedup recall.
	MaxTrackedKeys int
}

// DefaultFilterConfig returns the production dedup parameters.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ComparePrefixLen: 20,
		MaxLengthDelta:   10,
		StoredPrefixLen:  30,
		MaxTrackedKeys:   200,
	}
}

// Verdict is the outcome of one dedup decision.
type Verdict string

const (
	VerdictAccepted         Verdict = "accepted"
	VerdictDuplicateSegment Verdict = "duplicate_segment"
	VerdictDuplicateFuzzy   Verdict = "duplicate_fuzzy"
)

// trackedKey is one remembered acceptance: the exact base key and the
// stored text prefix used by the fuzzy check.
type trackedKey struct {
	base string
	text string
}

// Filter decides accept/reject for candidate transcript events. It
// suppresses exact re-deliveries of the same provider segment and
// near-duplicate re-emissions of the same utterance, whether from the
// provider revising a final or from a redundant second channel.
//
// Not safe for concurrent use; a session touches it only inside its
// dispatch path.
type Filter struct {
	cfg   FilterConfig
	clock Clock

	// keys holds tracked keys in insertion order; bases counts live base
	// keys so eviction keeps the exact-match check consistent.
	keys  []trackedKey
	bases map[string]int

	evictions int
}

// NewFilter creates a dedup filter with the given parameters.
func NewFilter(cfg FilterConfig, clock Clock) *Filter {
	if clock == nil {
		clock = SystemClock
	}
	return &Filter{
		cfg:   cfg,
		clock: clock,
		bases: make(map[string]int),
	}
}

// Accept runs the dedup decision for one normalized event. On acceptance
// it returns the constructed TranscriptEntry; acceptance is all-or-
// nothing, a rejected event leaves no trace in the key set.
func (f *Filter) Accept(ev TranscriptEvent) (models.TranscriptEntry, Verdict) {
	// Exact check: same participant re-delivering the same segment id.
	// Events without a segment id (data channel) are always novel here.
	base := ""
	if ev.SegmentID != "" {
		base = ev.Participant + "-" + ev.SegmentID
		if f.bases[base] > 0 {
			return models.TranscriptEntry{}, VerdictDuplicateSegment
		}
	}

	// Fuzzy check: a provider re-emitting a slightly revised final of the
	// same utterance, or the same utterance arriving on both channels.
	if f.isFuzzyDuplicate(ev.Text) {
		return models.TranscriptEntry{}, VerdictDuplicateFuzzy
	}

	id := ev.SegmentID
	if id == "" {
		id = uuid.NewString()
	}

	f.track(trackedKey{base: base, text: prefix(ev.Text, f.cfg.StoredPrefixLen)})

	return models.TranscriptEntry{
		ID:        id,
		Role:      ev.Role,
		Content:   ev.Text,
		Timestamp: f.clock.Now(),
	}, VerdictAccepted
}

// Size returns the number of currently tracked keys.
func (f *Filter) Size() int {
	return len(f.keys)
}

// Evictions returns how many keys have been evicted by the cap.
func (f *Filter) Evictions() int {
	return f.evictions
}

func (f *Filter) isFuzzyDuplicate(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keys {
		if k.text == "" {
			continue
		}
		stored := strings.ToLower(k.text)
		related := strings.Contains(lower, prefix(stored, f.cfg.ComparePrefixLen)) ||
			strings.Contains(stored, prefix(lower, f.cfg.ComparePrefixLen))
		if related && abs(len(stored)-len(lower)) < f.cfg.MaxLengthDelta {
			return true
		}
	}
	return false
}

func (f *Filter) track(k trackedKey) {
	f.keys = append(f.keys, k)
	if k.base != "" {
		f.bases[k.base]++
	}
	for f.cfg.MaxTrackedKeys > 0 && len(f.keys) > f.cfg.MaxTrackedKeys {
		oldest := f.keys[0]
		f.keys = f.keys[1:]
		if oldest.base != "" {
			if f.bases[oldest.base]--; f.bases[oldest.base] <= 0 {
				delete(f.bases, oldest.base)
			}
		}
		f.evictions++
	}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
