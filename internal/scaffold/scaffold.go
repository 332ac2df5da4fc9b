// Package scaffold creates the initial plan documents for a newly named
// project: Tasks.md, Roadmap.md and Archive.md under <root>/<slug>/, each
// with YAML front matter identifying the project.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"valet/internal/logging"
	"valet/internal/session"
)

// frontMatter is the YAML header written at the top of each plan document.
type frontMatter struct {
	Project string `yaml:"project"`
	Slug    string `yaml:"slug"`
	Created string `yaml:"created"`
}

// Scaffolder implements the session engine's scaffolding contract.
type Scaffolder struct {
	log *logging.Logger
	now func() time.Time
}

// New creates a scaffolder.
func New() *Scaffolder {
	return &Scaffolder{log: logging.Get(logging.CategoryScaffold), now: time.Now}
}

// ScaffoldProject creates the project directory and its plan documents.
// An existing directory with any of the target documents is an error; the
// scaffolder never overwrites a plan.
func (sc *Scaffolder) ScaffoldProject(rootPath, slug string, req session.ScaffoldRequest) session.ScaffoldResult {
	failure := func(msg string) session.ScaffoldResult {
		return session.ScaffoldResult{Success: false, Error: msg}
	}

	if req.Extracted == nil {
		return failure("no extracted project data to scaffold from")
	}

	dir := filepath.Join(rootPath, slug)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failure(fmt.Sprintf("cannot create project directory: %v", err))
	}

	fm := frontMatter{Project: req.ProjectName, Slug: slug, Created: sc.now().Format("2006-01-02")}
	docs := map[string]string{
		"Tasks.md":   sc.tasksDocument(fm, req),
		"Roadmap.md": sc.roadmapDocument(fm, req),
		"Archive.md": sc.archiveDocument(fm),
	}

	for name := range docs {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return failure(fmt.Sprintf("%s already exists in %s; refusing to overwrite", name, dir))
		}
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return failure(fmt.Sprintf("cannot write %s: %v", name, err))
		}
	}

	sc.log.Info("scaffolded project %q at %s", req.ProjectName, dir)
	return session.ScaffoldResult{Success: true, ProjectPath: dir}
}

func renderFrontMatter(fm frontMatter) string {
	data, err := yaml.Marshal(fm)
	if err != nil {
		// frontMatter has only string fields; Marshal cannot fail on it.
		return "---\n---\n"
	}
	return "---\n" + string(data) + "---\n"
}

func (sc *Scaffolder) tasksDocument(fm frontMatter, req session.ScaffoldRequest) string {
	var b strings.Builder
	b.WriteString(renderFrontMatter(fm))
	b.WriteString("\n# Tasks\n\n## Now\n\n")
	for _, f := range firstN(req.Extracted.CoreFeatures, 3) {
		fmt.Fprintf(&b, "- [ ] %s\n", f)
	}
	b.WriteString("\n## Next\n\n")
	for _, f := range afterN(req.Extracted.CoreFeatures, 3) {
		fmt.Fprintf(&b, "- [ ] %s\n", f)
	}
	b.WriteString("\n## Later\n")
	return b.String()
}

func (sc *Scaffolder) roadmapDocument(fm frontMatter, req session.ScaffoldRequest) string {
	var b strings.Builder
	b.WriteString(renderFrontMatter(fm))
	b.WriteString("\n# Roadmap\n\n## Vision\n\n")
	b.WriteString(req.Extracted.Vision)
	b.WriteString("\n\n## Problem\n\n")
	b.WriteString(req.Extracted.Problem)
	b.WriteString("\n\n## Target Users\n\n")
	writeList(&b, req.Extracted.TargetUsers)
	b.WriteString("\n## Constraints\n\n")
	writeList(&b, req.Extracted.Constraints)
	b.WriteString("\n## Success Criteria\n\n")
	writeList(&b, req.Extracted.SuccessCriteria)
	if req.Extracted.Timeline != "" {
		b.WriteString("\n## Timeline\n\n")
		b.WriteString(req.Extracted.Timeline)
		b.WriteString("\n")
	}
	b.WriteString("\n## Later\n")
	return b.String()
}

func (sc *Scaffolder) archiveDocument(fm frontMatter) string {
	return renderFrontMatter(fm) + "\n# Archive\n\n## Completed Work\n"
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func afterN(items []string, n int) []string {
	if len(items) <= n {
		return nil
	}
	return items[n:]
}
