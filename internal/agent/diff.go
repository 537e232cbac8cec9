package agent

import "strings"

// ChangeKind classifies one code update relative to the previous one.
type ChangeKind string

const (
	// ChangeInitial is the first non-empty code seen in a session.
	ChangeInitial ChangeKind = "initial"
	// ChangeIncremental is ordinary typing progress.
	ChangeIncremental ChangeKind = "incremental"
	// ChangeDrastic is a rewrite of a large share of the code.
	ChangeDrastic ChangeKind = "drastic_change"
)

// Change is the outcome of classifying a code update. Significant
// changes are worth a spoken comment from the interviewer.
type Change struct {
	Kind        ChangeKind
	Significant bool
}

// Classify compares a code update against the previously seen code.
// The first submission is significant once it is more than a trivial
// snippet; afterwards only drastic rewrites are, measured as over 40%
// of lines changed or more than five lines added and removed at once.
func Classify(oldCode, newCode string) Change {
	if strings.TrimSpace(oldCode) == "" {
		return Change{
			Kind:        ChangeInitial,
			Significant: len(strings.TrimSpace(newCode)) > 30,
		}
	}

	oldLines := strings.Split(strings.TrimSpace(oldCode), "\n")
	newLines := strings.Split(strings.TrimSpace(newCode), "\n")
	added, removed := lineDelta(oldLines, newLines)

	totalLines := max(len(oldLines), len(newLines))
	changeShare := float64(added+removed) / float64(totalLines)
	drastic := changeShare > 0.4 || (removed > 5 && added > 5)

	if drastic {
		return Change{Kind: ChangeDrastic, Significant: true}
	}
	return Change{Kind: ChangeIncremental, Significant: false}
}

// lineDelta counts lines present on only one side, treating lines as a
// multiset so repeated lines are matched up pairwise.
func lineDelta(oldLines, newLines []string) (added, removed int) {
	counts := make(map[string]int, len(oldLines))
	for _, line := range oldLines {
		counts[line]++
	}
	for _, line := range newLines {
		if counts[line] > 0 {
			counts[line]--
		} else {
			added++
		}
	}
	for _, remaining := range counts {
		removed += remaining
	}
	return added, removed
}
