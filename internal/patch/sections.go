package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// taskPrefixMatchLen bounds how much of a task's text participates in
// matching. Trailing annotations and links differ between the document and
// what the AI echoes back, so matching anchors on the leading characters
// while staying long enough to avoid cross-task false matches.
const taskPrefixMatchLen = 50

var (
	uncheckedTaskRe = regexp.MustCompile(`^\s*[-*] \[ \] (.*)$`)
	checkedTaskRe   = regexp.MustCompile(`^\s*[-*] \[[xX]\] (.*)$`)
	completedWorkRe = regexp.MustCompile(`(?i)^##\s+completed work\s*$`)
	laterHeadingRe  = regexp.MustCompile(`(?i)^##\s+later\s*$`)
	nowHeadingRe    = regexp.MustCompile(`(?i)^##\s+now\s*$`)
	nextHeadingRe   = regexp.MustCompile(`(?i)^##\s+next\s*$`)
	anyHeadingRe    = regexp.MustCompile(`^##\s+`)
)

// taskTextOf strips the checkbox prefix from a task line, or returns
// ("", false) when the line is not an unchecked task.
func taskTextOf(line string) (string, bool) {
	m := uncheckedTaskRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// taskPrefixesMatch compares two task texts over the first
// taskPrefixMatchLen characters of the shorter, case-insensitively.
func taskPrefixesMatch(a, b string) bool {
	n := taskPrefixMatchLen
	if len(a) < n {
		n = len(a)
	}
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return false
	}
	return strings.EqualFold(a[:n], b[:n])
}

// MatchesTaskPrefix reports whether two task texts refer to the same task
// under the bounded-prefix rule.
func MatchesTaskPrefix(a, b string) bool {
	return taskPrefixesMatch(a, b)
}

// CompleteTask flips the checkbox of the first unchecked task line whose
// text matches taskText by bounded prefix. Returns the (possibly unchanged)
// content and whether a line was flipped; no match is a no-op, which also
// makes re-application idempotent.
func CompleteTask(content, taskText string) (string, bool) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		text, okTask := taskTextOf(line)
		if !okTask || !taskPrefixesMatch(text, taskText) {
			continue
		}
		lines[i] = strings.Replace(line, "[ ]", "[x]", 1)
		return strings.Join(lines, "\n"), true
	}
	return content, false
}

// RemoveCompletedTask deletes the first checked task line matching taskText
// by bounded prefix, returning the new content and whether a line was
// removed. Used when a completed task moves to the archive document.
func RemoveCompletedTask(content, taskText string) (string, bool) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		m := checkedTaskRe.FindStringSubmatch(line)
		if m == nil || !taskPrefixesMatch(strings.TrimSpace(m[1]), taskText) {
			continue
		}
		lines = append(lines[:i], lines[i+1:]...)
		return strings.Join(lines, "\n"), true
	}
	return content, false
}

// AddTaskNote inserts an indented note line below the first unchecked task
// matching taskText. A no-match leaves the content unchanged.
func AddTaskNote(content, taskText, note string) (string, bool) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		text, okTask := taskTextOf(line)
		if !okTask || !taskPrefixesMatch(text, taskText) {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		noteLine := indent + "  - " + note
		return strings.Join(spliceLines(lines, i+1, []string{noteLine}), "\n"), true
	}
	return content, false
}

// UncheckedTasks lists the task text of every unchecked task line in
// content. Workflow parsers use this as local ground truth for "already
// completed" detection, independent of what the AI claims.
func UncheckedTasks(content string) []string {
	var tasks []string
	for _, line := range strings.Split(content, "\n") {
		if text, okTask := taskTextOf(line); okTask {
			tasks = append(tasks, text)
		}
	}
	return tasks
}

// frontMatterEnd returns the index of the first line after a leading YAML
// front-matter block ("---" ... "---"), or 0 when there is none.
func frontMatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i + 1
		}
	}
	return 0
}

// InsertArchiveEntries inserts entries under the "## Completed Work"
// heading (case-insensitive), immediately below it after any blank lines.
// When the heading is absent it is created after the front-matter block, or
// at the start of the document. Entries whose task text already appears as
// a checked line in the document are skipped, so re-insertion is a no-op.
func InsertArchiveEntries(content string, entries []string) string {
	if len(entries) == 0 {
		return content
	}
	lines := strings.Split(content, "\n")

	var existing []string
	for _, line := range lines {
		if m := checkedTaskRe.FindStringSubmatch(line); m != nil {
			existing = append(existing, strings.TrimSpace(m[1]))
		}
	}
	var fresh []string
	for _, e := range entries {
		if m := checkedTaskRe.FindStringSubmatch(e); m != nil && anyTaskPrefixMatch(existing, strings.TrimSpace(m[1])) {
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return content
	}

	for i, line := range lines {
		if !completedWorkRe.MatchString(line) {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		return strings.Join(spliceLines(lines, j, fresh), "\n")
	}

	// No heading: create one after front matter.
	at := frontMatterEnd(lines)
	block := append([]string{"## Completed Work", ""}, fresh...)
	block = append(block, "")
	return strings.Join(spliceLines(lines, at, block), "\n")
}

func anyTaskPrefixMatch(texts []string, text string) bool {
	for _, t := range texts {
		if taskPrefixesMatch(t, text) {
			return true
		}
	}
	return false
}

// InsertRoadmapSlice inserts a new "## <heading>" section with the given
// task lines before the "## Later" section, or at the end of the document
// when no Later section exists.
func InsertRoadmapSlice(content, heading string, tasks []string) string {
	section := append([]string{"## " + heading, ""}, tasks...)
	section = append(section, "")
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if laterHeadingRe.MatchString(line) {
			return strings.Join(spliceLines(lines, i, section), "\n")
		}
	}

	if strings.TrimSpace(content) == "" {
		return strings.Join(section, "\n")
	}
	return strings.TrimRight(content, "\n") + "\n\n" + strings.Join(section, "\n")
}

// AppendSection adds a new "## <heading>" section with the given task lines
// at the end of the document.
func AppendSection(content, heading string, tasks []string) string {
	section := append([]string{"## " + heading, ""}, tasks...)
	if strings.TrimSpace(content) == "" {
		return strings.Join(section, "\n") + "\n"
	}
	return strings.TrimRight(content, "\n") + "\n\n" + strings.Join(section, "\n") + "\n"
}

// PromoteTask moves the first unchecked task matching taskText from the
// "## Next" section into the "## Now" section. A missing anchor heading or
// an absent task is an explicit error, never a silent rewrite.
func PromoteTask(content, taskText string) (string, error) {
	lines := strings.Split(content, "\n")

	nextStart, nextEnd, okSection := sectionBounds(lines, nextHeadingRe)
	if !okSection {
		return content, fmt.Errorf("document has no ## Next section")
	}

	taskIdx := -1
	for i := nextStart; i < nextEnd; i++ {
		if text, okTask := taskTextOf(lines[i]); okTask && taskPrefixesMatch(text, taskText) {
			taskIdx = i
			break
		}
	}
	if taskIdx == -1 {
		return content, fmt.Errorf("no unchecked task matching %q in ## Next", truncate(taskText, taskPrefixMatchLen))
	}
	taskLine := lines[taskIdx]
	lines = append(lines[:taskIdx], lines[taskIdx+1:]...)

	nowStart, _, okSection := sectionBounds(lines, nowHeadingRe)
	if !okSection {
		return content, fmt.Errorf("document has no ## Now section")
	}
	j := nowStart
	for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
		j++
	}
	return strings.Join(spliceLines(lines, j, []string{taskLine}), "\n"), nil
}

// sectionBounds locates the body of the first section whose heading matches
// re: (firstBodyLine, lineAfterSection, found).
func sectionBounds(lines []string, re *regexp.Regexp) (int, int, bool) {
	start := -1
	for i, line := range lines {
		if start == -1 {
			if re.MatchString(line) {
				start = i + 1
			}
			continue
		}
		if anyHeadingRe.MatchString(line) {
			return start, i, true
		}
	}
	if start == -1 {
		return 0, 0, false
	}
	return start, len(lines), true
}

func spliceLines(lines []string, at int, insert []string) []string {
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
