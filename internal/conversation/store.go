// Package conversation holds in-memory conversation snapshots keyed by
// project path, plus one slot for an in-progress new-project draft and one
// for the currently active project. Pure key/value semantics: keys are
// exact strings with no path normalization, so trailing slashes or case
// differences are distinct keys. The three namespaces (per-path entries,
// draft slot, active slot) are mutually independent.
//
// State is process-lifetime; persistence is a collaborator concern. Stores
// are explicitly constructed and injectable, never ambient singletons.
package conversation

import (
	"sync"
	"time"

	"valet/internal/session"
)

// Snapshot is a serializable conversation state for one project.
type Snapshot struct {
	SessionID     string            `json:"session_id"`
	SessionType   session.Type      `json:"session_type"`
	Step          session.Step      `json:"step"`
	Messages      []session.Message `json:"messages"`
	CoveredTopics []string          `json:"covered_topics"`
	SavedAt       time.Time         `json:"saved_at"`
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = append([]session.Message(nil), s.Messages...)
	cp.CoveredTopics = append([]string(nil), s.CoveredTopics...)
	return &cp
}

// Draft is the new-project-in-progress slot value. It is a distinct type
// rather than a Snapshot with fields bolted on, so no structural
// reinterpretation is ever needed when reading it back.
type Draft struct {
	Snapshot      Snapshot `json:"snapshot"`
	ProjectName   string   `json:"project_name"`
	OneLiner      string   `json:"one_liner"`
	PlanningLevel string   `json:"planning_level"`
}

func (d *Draft) clone() *Draft {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Snapshot = *d.Snapshot.clone()
	return &cp
}

// ActiveProject is the active-project slot value: name and path only, no
// conversation payload.
type ActiveProject struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Store is the keyed holder. Last-writer-wins; no versioning.
type Store struct {
	mu     sync.RWMutex
	byPath map[string]*Snapshot
	draft  *Draft
	active *ActiveProject
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byPath: make(map[string]*Snapshot)}
}

// Get returns the snapshot for a project path, or nil if none was saved.
func (s *Store) Get(path string) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byPath[path].clone()
}

// Save stores a deep copy of snap under path.
func (s *Store) Save(path string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPath[path] = snap.clone()
}

// Clear removes the entry for path. Other paths and both slots are
// unaffected.
func (s *Store) Clear(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPath, path)
}

// Has reports whether a snapshot exists for path.
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPath[path]
	return ok
}

// Draft returns the new-project draft, or nil.
func (s *Store) Draft() *Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.clone()
}

// SaveDraft stores a deep copy of the new-project draft.
func (s *Store) SaveDraft(d *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d.clone()
}

// ClearDraft empties the draft slot. Per-path entries and the active slot
// are unaffected.
func (s *Store) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// Active returns the active-project pointer, or nil.
func (s *Store) Active() *ActiveProject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	cp := *s.active
	return &cp
}

// SetActive records the active project.
func (s *Store) SetActive(a *ActiveProject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.active = nil
		return
	}
	cp := *a
	s.active = &cp
}

// ClearActive empties the active slot.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}
