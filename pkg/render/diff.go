package render

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Redline returns a word-level diff from original to suggestion. Without
// color, deletions are wrapped in [- -] and insertions in {+ +}.
func Redline(original, suggestion string, colored bool) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, suggestion, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	if colored {
		return dmp.DiffPrettyText(diffs)
	}

	var sb strings.Builder

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffEqual:
			sb.WriteString(d.Text)
		}
	}

	return sb.String()
}
