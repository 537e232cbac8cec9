package evaluate

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/anishjha12309/itero/internal/models"
)

// transcriptTokenBudget bounds how much transcript goes into the
// evaluation prompt. The model's window also has to fit the code, the
// instructions and the response.
const transcriptTokenBudget = 4000

// codeContextLines bounds the code block the same way the agent sees
// it during the interview: only the trailing lines matter.
const codeContextLines = 30

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// countTokens measures text with the cl100k_base encoding. When the
// tokenizer cannot be loaded a four-bytes-per-token estimate is used
// instead.
func countTokens(text string) int {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = c
		}
	})
	if codec == nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

// trimTranscript drops the oldest entries until the transcript fits
// the token budget. The end of an interview carries the solution
// discussion, so recency wins.
func trimTranscript(entries []models.TranscriptEntry, budget int) []models.TranscriptEntry {
	total := 0
	counts := make([]int, len(entries))
	for i, e := range entries {
		counts[i] = countTokens(e.Content)
		total += counts[i]
	}
	start := 0
	for start < len(entries) && total > budget {
		total -= counts[start]
		start++
	}
	return entries[start:]
}
