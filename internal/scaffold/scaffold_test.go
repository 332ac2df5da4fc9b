package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"valet/internal/ai"
	"valet/internal/session"
)

func testScaffolder() *Scaffolder {
	sc := New()
	sc.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return sc
}

func sampleRequest() session.ScaffoldRequest {
	return session.ScaffoldRequest{
		ProjectName: "Reading List",
		ProjectSlug: "reading-list",
		OneLiner:    "track books worth reading",
		Extracted: &ai.ProjectData{
			Vision:          "A calm reading queue.",
			Problem:         "Recommendations get lost.",
			TargetUsers:     []string{"Avid readers"},
			CoreFeatures:    []string{"Add book", "Rank queue", "Mark finished", "Share list"},
			Constraints:     []string{"Mobile first"},
			SuccessCriteria: []string{"Weekly active use"},
			Timeline:        "MVP in six weeks",
		},
	}
}

func TestScaffoldProjectCreatesDocuments(t *testing.T) {
	root := t.TempDir()
	res := testScaffolder().ScaffoldProject(root, "reading-list", sampleRequest())
	if !res.Success {
		t.Fatalf("scaffold failed: %s", res.Error)
	}
	if res.ProjectPath != filepath.Join(root, "reading-list") {
		t.Errorf("unexpected project path %q", res.ProjectPath)
	}

	tasks := readDoc(t, res.ProjectPath, "Tasks.md")
	if !strings.HasPrefix(tasks, "---\n") {
		t.Error("Tasks.md must start with front matter")
	}
	for _, want := range []string{
		"project: Reading List",
		"slug: reading-list",
		"created: \"2026-08-30\"",
		"## Now",
		"- [ ] Add book",
		"- [ ] Rank queue",
		"- [ ] Mark finished",
		"## Next",
		"- [ ] Share list",
		"## Later",
	} {
		if !strings.Contains(tasks, want) {
			t.Errorf("Tasks.md missing %q:\n%s", want, tasks)
		}
	}

	// The first three features go to Now, the rest to Next.
	if strings.Index(tasks, "- [ ] Share list") < strings.Index(tasks, "## Next") {
		t.Error("fourth feature must land under ## Next")
	}

	roadmap := readDoc(t, res.ProjectPath, "Roadmap.md")
	for _, want := range []string{
		"## Vision", "A calm reading queue.",
		"## Problem", "Recommendations get lost.",
		"## Target Users", "- Avid readers",
		"## Constraints", "- Mobile first",
		"## Success Criteria", "- Weekly active use",
		"## Timeline", "MVP in six weeks",
		"## Later",
	} {
		if !strings.Contains(roadmap, want) {
			t.Errorf("Roadmap.md missing %q", want)
		}
	}

	archive := readDoc(t, res.ProjectPath, "Archive.md")
	if !strings.Contains(archive, "## Completed Work") {
		t.Error("Archive.md missing the completed-work heading")
	}
}

func TestScaffoldProjectRefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	sc := testScaffolder()
	if res := sc.ScaffoldProject(root, "app", sampleRequest()); !res.Success {
		t.Fatalf("first scaffold failed: %s", res.Error)
	}

	res := sc.ScaffoldProject(root, "app", sampleRequest())
	if res.Success {
		t.Fatal("second scaffold into the same directory must fail")
	}
	if !strings.Contains(res.Error, "refusing to overwrite") {
		t.Errorf("unexpected error: %s", res.Error)
	}
}

func TestScaffoldProjectRequiresExtractedData(t *testing.T) {
	req := sampleRequest()
	req.Extracted = nil
	res := testScaffolder().ScaffoldProject(t.TempDir(), "app", req)
	if res.Success {
		t.Fatal("scaffolding without extracted data must fail")
	}
}

func TestScaffoldProjectOmitsEmptyTimeline(t *testing.T) {
	req := sampleRequest()
	req.Extracted.Timeline = ""
	res := testScaffolder().ScaffoldProject(t.TempDir(), "app", req)
	if !res.Success {
		t.Fatalf("scaffold failed: %s", res.Error)
	}
	roadmap := readDoc(t, res.ProjectPath, "Roadmap.md")
	if strings.Contains(roadmap, "## Timeline") {
		t.Error("empty timeline must not produce a heading")
	}
}

func readDoc(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}
