package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry creates and holds session records keyed by opaque session id.
// It is the unit of mutation for the FSM: Update clones the stored state,
// applies the mutation, validates the step transition, and stores the
// result, so readers only ever observe complete snapshots.
//
// Registries are explicitly constructed and injectable; there is no ambient
// singleton, so tests run in isolation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*State)}
}

// Create adds a new session of the given type, starting in
// generating_question, and returns its snapshot.
func (r *Registry) Create(t Type) *State {
	st := &State{
		ID:   uuid.NewString(),
		Type: t,
		Step: StepGeneratingQuestion,
	}

	r.mu.Lock()
	r.sessions[st.ID] = st
	r.mu.Unlock()

	return st.Clone()
}

// CreateWithSeed adds a new session pre-populated with the user's initial
// project hints.
func (r *Registry) CreateWithSeed(t Type, projectName, oneLiner, planningLevel string) *State {
	st := &State{
		ID:            uuid.NewString(),
		Type:          t,
		Step:          StepGeneratingQuestion,
		ProjectName:   projectName,
		OneLiner:      oneLiner,
		PlanningLevel: planningLevel,
	}

	r.mu.Lock()
	r.sessions[st.ID] = st
	r.mu.Unlock()

	return st.Clone()
}

// Get returns a snapshot of the session, or false if it does not exist.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.RLock()
	st, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// Update applies mutate to a clone of the stored state and swaps it in.
// If the mutation changes Step, the transition must be legal per the step
// table. The returned snapshot is independent of registry internals.
func (r *Registry) Update(id string, mutate func(*State)) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}

	next := st.Clone()
	mutate(next)
	next.ID = st.ID // immutable

	if next.Step != st.Step && !st.Step.CanAdvanceTo(next.Step) {
		return nil, fmt.Errorf("illegal step transition %s -> %s for session %s", st.Step, next.Step, id)
	}

	r.sessions[id] = next
	return next.Clone(), nil
}

// Remove deletes a session. Used by external restart after a terminal error.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
