package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"valet/internal/config"
	"valet/internal/logging"
	"valet/internal/patch"
)

// FileStore is the file collaborator contract the executor consumes.
// Absence of a document surfaces as an error from ReadDocument, never as a
// crash.
type FileStore interface {
	ReadDocument(name string) (string, error)
	WriteDocument(name, content string) error
}

// CandidateError reports which candidate failed against which file, with
// the document left unmodified.
type CandidateError struct {
	File        string
	CandidateID string
	Reason      string
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %s against %s: %s", e.CandidateID, e.File, e.Reason)
}

// Executor binds the response parsers, the patch engine, and the file
// collaborator. Candidates are applied strictly in the order presented:
// each operates on the output of the previous one (a sequential fold), and
// a failure aborts before anything is written.
type Executor struct {
	files FileStore
	vcfg  config.VaultConfig
	log   *logging.Logger

	mu        sync.Mutex
	summaries map[string]string
}

// NewExecutor creates an executor over one project's documents.
func NewExecutor(files FileStore, vcfg config.VaultConfig) *Executor {
	return &Executor{
		files:     files,
		vcfg:      vcfg,
		log:       logging.Get(logging.CategoryWorkflow),
		summaries: make(map[string]string),
	}
}

// InvalidateDocument drops the cached summary for a document. Wired to the
// vault watcher so external edits are picked up.
func (x *Executor) InvalidateDocument(name string) {
	x.mu.Lock()
	delete(x.summaries, name)
	x.mu.Unlock()
}

// TasksSummary returns a cached one-line description of the tasks document.
func (x *Executor) TasksSummary() (string, error) {
	name := x.vcfg.TasksFile
	x.mu.Lock()
	if s, okCached := x.summaries[name]; okCached {
		x.mu.Unlock()
		return s, nil
	}
	x.mu.Unlock()

	content, err := x.files.ReadDocument(name)
	if err != nil {
		return "", err
	}
	s := fmt.Sprintf("%d unchecked tasks", len(patch.UncheckedTasks(content)))

	x.mu.Lock()
	x.summaries[name] = s
	x.mu.Unlock()
	return s, nil
}

// readPlanDocuments fetches the tasks, roadmap, and archive documents
// concurrently.
func (x *Executor) readPlanDocuments(ctx context.Context) (tasks, roadmap, archive string, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var readErr error
		tasks, readErr = x.files.ReadDocument(x.vcfg.TasksFile)
		return readErr
	})
	g.Go(func() error {
		var readErr error
		roadmap, readErr = x.files.ReadDocument(x.vcfg.RoadmapFile)
		return readErr
	})
	g.Go(func() error {
		var readErr error
		archive, readErr = x.files.ReadDocument(x.vcfg.ArchiveFile)
		return readErr
	})
	err = g.Wait()
	return tasks, roadmap, archive, err
}

// PrepareSync parses a sync-commits response against the locally observed
// unchecked-task list.
func (x *Executor) PrepareSync(raw string) (*SyncResult, error) {
	tasks, err := x.files.ReadDocument(x.vcfg.TasksFile)
	if err != nil {
		return nil, err
	}
	result := ParseSyncResponse(raw, patch.UncheckedTasks(tasks))
	if !result.Success {
		x.log.Warn("sync response did not parse; no candidates")
	}
	return result, nil
}

// ApplySync applies the user-approved commit matches: mark-complete flips
// the checkbox, mark-archive flips it and records an archive entry. The
// tasks document is patched as one sequential fold and written once;
// archive entries are inserted afterwards.
func (x *Executor) ApplySync(matches []CommitMatch) error {
	tasks, err := x.files.ReadDocument(x.vcfg.TasksFile)
	if err != nil {
		return err
	}
	original := tasks

	var archiveEntries []string
	for _, m := range matches {
		switch m.Action {
		case ActionMarkComplete, ActionMarkArchive:
			patched, flipped := patch.CompleteTask(tasks, m.TaskText)
			if !flipped {
				return &CandidateError{File: x.vcfg.TasksFile, CandidateID: m.ID, Reason: "no unchecked task matches"}
			}
			tasks = patched
			if m.Action == ActionMarkArchive {
				archiveEntries = append(archiveEntries, archiveEntryLine(m.TaskText, m.CommitSha))
			}
		case ActionSkip:
			// untouched
		default:
			return &CandidateError{File: x.vcfg.TasksFile, CandidateID: m.ID, Reason: fmt.Sprintf("unsupported action %q", m.Action)}
		}
	}

	if tasks != original {
		x.log.Info("%s", patch.Preview(x.vcfg.TasksFile, original, tasks))
		if err := x.files.WriteDocument(x.vcfg.TasksFile, tasks); err != nil {
			return err
		}
		x.InvalidateDocument(x.vcfg.TasksFile)
	}
	if len(archiveEntries) > 0 {
		if err := x.insertArchiveEntries(archiveEntries); err != nil {
			return err
		}
	}
	return nil
}

// ApplyArchive moves approved completed tasks into the archive document and
// removes their checked lines from the tasks document.
func (x *Executor) ApplyArchive(ctx context.Context, candidates []ArchiveCandidate) error {
	tasks, _, archive, err := x.readPlanDocuments(ctx)
	if err != nil {
		return err
	}
	originalTasks := tasks

	var entries []string
	for _, c := range candidates {
		if c.Action != ActionArchive || c.Destination != DestinationArchive {
			continue
		}
		patched, removed := patch.RemoveCompletedTask(tasks, c.TaskText)
		if removed {
			tasks = patched
		}
		entries = append(entries, archiveEntryLine(c.TaskText, c.CompletedDate))
	}
	if len(entries) == 0 {
		return nil
	}

	newArchive := patch.InsertArchiveEntries(archive, entries)
	if newArchive != archive {
		x.log.Info("%s", patch.Preview(x.vcfg.ArchiveFile, archive, newArchive))
		if err := x.files.WriteDocument(x.vcfg.ArchiveFile, newArchive); err != nil {
			return err
		}
		x.InvalidateDocument(x.vcfg.ArchiveFile)
	}

	if tasks != originalTasks {
		if err := x.files.WriteDocument(x.vcfg.TasksFile, tasks); err != nil {
			return err
		}
		x.InvalidateDocument(x.vcfg.TasksFile)
	}
	return nil
}

// ApplyEnrich adds the approved context notes below their tasks.
func (x *Executor) ApplyEnrich(suggestions []EnrichmentSuggestion) error {
	tasks, err := x.files.ReadDocument(x.vcfg.TasksFile)
	if err != nil {
		return err
	}
	original := tasks

	for _, s := range suggestions {
		if s.Action != ActionApply {
			continue
		}
		patched, added := patch.AddTaskNote(tasks, s.TaskText, s.AddedContext)
		if !added {
			return &CandidateError{File: x.vcfg.TasksFile, CandidateID: s.ID, Reason: "no unchecked task matches"}
		}
		tasks = patched
	}

	if tasks == original {
		return nil
	}
	x.log.Info("%s", patch.Preview(x.vcfg.TasksFile, original, tasks))
	if err := x.files.WriteDocument(x.vcfg.TasksFile, tasks); err != nil {
		return err
	}
	x.InvalidateDocument(x.vcfg.TasksFile)
	return nil
}

// ApplyPlan inserts approved roadmap slices: current slices before the
// Later section, later slices at the end of the roadmap.
func (x *Executor) ApplyPlan(slices []PlanSlice) error {
	roadmap, err := x.files.ReadDocument(x.vcfg.RoadmapFile)
	if err != nil {
		return err
	}
	original := roadmap

	for _, sl := range slices {
		if sl.Action != ActionApply {
			continue
		}
		taskLines := make([]string, 0, len(sl.Tasks))
		for _, t := range sl.Tasks {
			taskLines = append(taskLines, "- [ ] "+t)
		}
		if sl.Destination == SliceCurrent {
			roadmap = patch.InsertRoadmapSlice(roadmap, sl.Heading, taskLines)
		} else {
			roadmap = patch.AppendSection(roadmap, sl.Heading, taskLines)
		}
	}

	if roadmap == original {
		return nil
	}
	x.log.Info("%s", patch.Preview(x.vcfg.RoadmapFile, original, roadmap))
	if err := x.files.WriteDocument(x.vcfg.RoadmapFile, roadmap); err != nil {
		return err
	}
	x.InvalidateDocument(x.vcfg.RoadmapFile)
	return nil
}

// ApplyPromote moves approved candidates from Next into Now.
func (x *Executor) ApplyPromote(candidates []PromoteCandidate) error {
	tasks, err := x.files.ReadDocument(x.vcfg.TasksFile)
	if err != nil {
		return err
	}
	original := tasks

	for _, c := range candidates {
		if c.Action != ActionPromote {
			continue
		}
		patched, promoteErr := patch.PromoteTask(tasks, c.TaskText)
		if promoteErr != nil {
			return &CandidateError{File: x.vcfg.TasksFile, CandidateID: c.ID, Reason: promoteErr.Error()}
		}
		tasks = patched
	}

	if tasks == original {
		return nil
	}
	x.log.Info("%s", patch.Preview(x.vcfg.TasksFile, original, tasks))
	if err := x.files.WriteDocument(x.vcfg.TasksFile, tasks); err != nil {
		return err
	}
	x.InvalidateDocument(x.vcfg.TasksFile)
	return nil
}

// ApplyDiff applies a user-selected subset of hunks from a parsed diff to
// the named document. The document is written only when every selected
// hunk anchors cleanly.
func (x *Executor) ApplyDiff(d patch.ParsedDiff, selected []int) error {
	name := d.FileName
	if name == "" {
		name = x.vcfg.TasksFile
	}
	content, err := x.files.ReadDocument(name)
	if err != nil {
		return err
	}

	patched, err := patch.ApplyHunks(content, d, selected)
	if err != nil {
		return err
	}
	if patched == content {
		return nil
	}
	x.log.Info("%s", patch.Preview(name, content, patched))
	if err := x.files.WriteDocument(name, patched); err != nil {
		return err
	}
	x.InvalidateDocument(name)
	return nil
}

// insertArchiveEntries records entries under the archive document's
// completed-work heading.
func (x *Executor) insertArchiveEntries(entries []string) error {
	archive, err := x.files.ReadDocument(x.vcfg.ArchiveFile)
	if err != nil {
		return err
	}
	updated := patch.InsertArchiveEntries(archive, entries)
	if updated == archive {
		return nil
	}
	x.log.Info("%s", patch.Preview(x.vcfg.ArchiveFile, archive, updated))
	if err := x.files.WriteDocument(x.vcfg.ArchiveFile, updated); err != nil {
		return err
	}
	x.InvalidateDocument(x.vcfg.ArchiveFile)
	return nil
}

func archiveEntryLine(taskText, evidence string) string {
	if evidence == "" {
		return "- [x] " + taskText
	}
	return fmt.Sprintf("- [x] %s (%s)", taskText, evidence)
}

// InitDocumentsContent renders the init-from-summary document set into the
// three plan files, returned as name -> content. Used when initializing a
// plan for an existing project from an AI summary.
func (x *Executor) InitDocumentsContent(docs *InitDocuments) map[string]string {
	if docs == nil {
		return nil
	}

	var tasks strings.Builder
	tasks.WriteString("# Tasks\n\n## Now\n\n")
	for _, t := range docs.NowTasks {
		fmt.Fprintf(&tasks, "- [ ] %s\n", t)
	}
	tasks.WriteString("\n## Next\n\n")
	for _, t := range docs.Next {
		fmt.Fprintf(&tasks, "- [ ] %s\n", t)
	}
	tasks.WriteString("\n## Later\n\n")
	for _, t := range docs.Later {
		fmt.Fprintf(&tasks, "- [ ] %s\n", t)
	}

	var roadmap strings.Builder
	roadmap.WriteString("# Roadmap\n\n## Vision\n\n")
	roadmap.WriteString(docs.Vision)
	roadmap.WriteString("\n")
	for _, sl := range docs.Slices {
		fmt.Fprintf(&roadmap, "\n## %s\n\n", sl.Heading)
		for _, t := range sl.Tasks {
			fmt.Fprintf(&roadmap, "- [ ] %s\n", t)
		}
	}
	roadmap.WriteString("\n## Later\n")

	return map[string]string{
		x.vcfg.TasksFile:   tasks.String(),
		x.vcfg.RoadmapFile: roadmap.String(),
		x.vcfg.ArchiveFile: "# Archive\n\n## Completed Work\n",
	}
}

// WriteInitDocuments writes the rendered init documents, refusing to
// overwrite an existing tasks document.
func (x *Executor) WriteInitDocuments(docs *InitDocuments) error {
	contents := x.InitDocumentsContent(docs)
	if contents == nil {
		return fmt.Errorf("init summary did not parse; nothing to write")
	}
	if _, err := x.files.ReadDocument(x.vcfg.TasksFile); err == nil {
		return fmt.Errorf("%s already exists; refusing to overwrite", x.vcfg.TasksFile)
	}
	for name, content := range contents {
		if err := x.files.WriteDocument(name, content); err != nil {
			return err
		}
		x.InvalidateDocument(name)
	}
	return nil
}
