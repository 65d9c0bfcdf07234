package pipeline

import (
	"strings"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// dedupPrefixRunes is how much of an excerpt identifies a clause.
const dedupPrefixRunes = 100

// Reconcile merges per-segment findings in ordinal order, drops clauses
// repeated by overlapping segments and numbers the survivors from 1.
// Inputs are not modified.
func Reconcile(slots [][]finding.Finding) []finding.Finding {
	out, _ := reconcile(slots)

	return out
}

// reconcile also returns the number of dropped duplicates.
func reconcile(slots [][]finding.Finding) ([]finding.Finding, int) {
	size := 0
	for _, slot := range slots {
		size += len(slot)
	}

	out := make([]finding.Finding, 0, size)
	dedup := len(slots) > 1
	seen := make(map[string]struct{}, size)
	dropped := 0

	for _, slot := range slots {
		for _, f := range slot {
			if dedup {
				key := dedupKey(f.Text)
				if key != "" {
					if _, dup := seen[key]; dup {
						dropped++

						continue
					}

					seen[key] = struct{}{}
				}
			}

			f.Number = len(out) + 1
			out = append(out, f)
		}
	}

	return out, dropped
}

// dedupKey is the lowercased first 100 runes of the trimmed excerpt.
func dedupKey(text string) string {
	text = strings.TrimSpace(text)

	count := 0
	for idx := range text {
		if count == dedupPrefixRunes {
			text = text[:idx]

			break
		}

		count++
	}

	return strings.ToLower(text)
}
