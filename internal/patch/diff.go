// Package patch applies reviewed change candidates to plan documents. It
// covers unified-hunk application (subset selection with context
// verification) and section-aware text surgery on the markdown dialect used
// by the plan files. On any failure the input document is returned
// unmodified; there are no partial writes.
package patch

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// LineKind tags one line of a hunk.
type LineKind int

const (
	LineContext LineKind = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is a single line in a hunk.
type Line struct {
	Kind    LineKind
	Content string
}

// Hunk is a contiguous block of a unified diff.
type Hunk struct {
	OldStart int // 1-based line in the old file
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// ParsedDiff is a file-scoped diff: a file name plus ordered hunks.
type ParsedDiff struct {
	FileName string
	Hunks    []Hunk
}

// ApplyError reports a hunk that could not be anchored in the document.
type ApplyError struct {
	File      string
	HunkIndex int
	Reason    string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("cannot apply hunk %d to %s: %s", e.HunkIndex, e.File, e.Reason)
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseUnifiedDiff parses unified-diff text into per-file diffs. Malformed
// regions are skipped rather than guessed at; an unparseable input yields an
// empty slice.
func ParseUnifiedDiff(text string) []ParsedDiff {
	var diffs []ParsedDiff
	var current *ParsedDiff
	var hunk *Hunk

	closeHunk := func() {
		if current != nil && hunk != nil && len(hunk.Lines) > 0 {
			current.Hunks = append(current.Hunks, *hunk)
		}
		hunk = nil
	}
	closeFile := func() {
		closeHunk()
		if current != nil && len(current.Hunks) > 0 {
			diffs = append(diffs, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(raw, "diff --git "):
			closeFile()
			current = &ParsedDiff{FileName: fileNameFromGitHeader(raw)}

		case strings.HasPrefix(raw, "--- "):
			if current == nil {
				current = &ParsedDiff{}
			}
			closeHunk()

		case strings.HasPrefix(raw, "+++ "):
			if current == nil {
				current = &ParsedDiff{}
			}
			if name := strings.TrimPrefix(strings.TrimPrefix(raw[4:], "b/"), "a/"); name != "" && name != "/dev/null" {
				current.FileName = strings.TrimSpace(name)
			}

		case strings.HasPrefix(raw, "@@"):
			m := hunkHeaderRe.FindStringSubmatch(raw)
			if m == nil || current == nil {
				continue
			}
			closeHunk()
			hunk = &Hunk{
				OldStart: atoiDefault(m[1], 0),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewCount: atoiDefault(m[4], 1),
			}

		case hunk != nil && strings.HasPrefix(raw, "+"):
			hunk.Lines = append(hunk.Lines, Line{Kind: LineAdded, Content: raw[1:]})

		case hunk != nil && strings.HasPrefix(raw, "-"):
			hunk.Lines = append(hunk.Lines, Line{Kind: LineRemoved, Content: raw[1:]})

		case hunk != nil && strings.HasPrefix(raw, " "):
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: raw[1:]})

		case hunk != nil && raw == "":
			// Some producers emit bare empty lines for empty context.
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: ""})

		case strings.HasPrefix(raw, `\ No newline`):
			// Metadata, not content.

		default:
			// Unknown line between hunks; terminates the current hunk.
			closeHunk()
		}
	}
	closeFile()
	return diffs
}

func fileNameFromGitHeader(line string) string {
	fields := strings.Fields(line)
	if len(fields) >= 4 {
		return strings.TrimPrefix(fields[3], "b/")
	}
	return ""
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// Apply applies every hunk of d to content.
func Apply(content string, d ParsedDiff) (string, error) {
	selected := make([]int, len(d.Hunks))
	for i := range d.Hunks {
		selected[i] = i
	}
	return ApplyHunks(content, d, selected)
}

// ApplyHunks reconstructs content using only the selected hunks (by index),
// in original hunk order. Unselected hunks are ignored entirely; their old
// content is left untouched and remaining hunks are not renumbered. Each
// hunk is anchored by locating its old lines (context + removals) near the
// position the header claims, so earlier applications that shifted line
// numbers do not break later ones. If a hunk's old lines cannot be found,
// an *ApplyError identifying the file and hunk is returned and the document
// is unmodified.
func ApplyHunks(content string, d ParsedDiff, selected []int) (string, error) {
	if len(selected) == 0 {
		return content, nil
	}

	idx := append([]int(nil), selected...)
	sort.Ints(idx)
	for i := 1; i < len(idx); i++ {
		if idx[i] == idx[i-1] {
			return content, &ApplyError{File: d.FileName, HunkIndex: idx[i], Reason: "hunk selected twice"}
		}
	}

	lines := strings.Split(content, "\n")
	var out []string
	cursor := 0

	for _, hi := range idx {
		if hi < 0 || hi >= len(d.Hunks) {
			return content, &ApplyError{File: d.FileName, HunkIndex: hi, Reason: "hunk index out of range"}
		}
		h := d.Hunks[hi]
		oldBlock := oldLines(h)

		pos, found := locateBlock(lines, oldBlock, h.OldStart-1, cursor)
		if !found {
			return content, &ApplyError{File: d.FileName, HunkIndex: hi, Reason: "expected context not found in document"}
		}
		if alreadyApplied(lines, pos, h, oldBlock) {
			return content, &ApplyError{File: d.FileName, HunkIndex: hi, Reason: "hunk already applied"}
		}

		out = append(out, lines[cursor:pos]...)
		for _, l := range h.Lines {
			switch l.Kind {
			case LineContext, LineAdded:
				out = append(out, l.Content)
			case LineRemoved:
				// dropped
			}
		}
		cursor = pos + len(oldBlock)
	}

	out = append(out, lines[cursor:]...)
	return strings.Join(out, "\n"), nil
}

// oldLines extracts the hunk's view of the old document.
func oldLines(h Hunk) []string {
	var block []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineRemoved {
			block = append(block, l.Content)
		}
	}
	return block
}

// newLines extracts the hunk's view of the patched document.
func newLines(h Hunk) []string {
	var block []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineAdded {
			block = append(block, l.Content)
		}
	}
	return block
}

// alreadyApplied reports whether the hunk's new-side lines already occupy
// the anchor. A hunk with removals fails anchoring on re-application, but an
// add-only hunk's context still matches, so without this check splicing
// again would duplicate the added lines.
func alreadyApplied(lines []string, pos int, h Hunk, oldBlock []string) bool {
	newBlock := newLines(h)
	if len(newBlock) <= len(oldBlock) || pos+len(newBlock) > len(lines) {
		return false
	}
	for i, b := range newBlock {
		if lines[pos+i] != b {
			return false
		}
	}
	return true
}

// locateBlock finds block in lines, preferring the expected position and
// widening the search outward. Pure insertions (empty block) anchor at the
// expected position clamped into range.
func locateBlock(lines, block []string, expected, minPos int) (int, bool) {
	if len(block) == 0 {
		pos := expected + 1 // insert after the line named by the header
		if pos < minPos {
			pos = minPos
		}
		if pos > len(lines) {
			pos = len(lines)
		}
		return pos, true
	}

	matches := func(pos int) bool {
		if pos < minPos || pos+len(block) > len(lines) {
			return false
		}
		for i, b := range block {
			if lines[pos+i] != b {
				return false
			}
		}
		return true
	}

	limit := len(lines)
	for delta := 0; delta <= limit; delta++ {
		if matches(expected + delta) {
			return expected + delta, true
		}
		if delta > 0 && matches(expected-delta) {
			return expected - delta, true
		}
	}
	return 0, false
}
