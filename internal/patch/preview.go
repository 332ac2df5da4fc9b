package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// PreviewStats computes added/removed line counts between two document
// versions, for the one-line summary shown before a write-back.
func PreviewStats(oldContent, newContent string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

// Preview renders a compact change summary for logging and UI.
func Preview(fileName, oldContent, newContent string) string {
	if oldContent == newContent {
		return fmt.Sprintf("%s: no changes", fileName)
	}
	added, removed := PreviewStats(oldContent, newContent)
	return fmt.Sprintf("%s: +%d -%d lines", fileName, added, removed)
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
