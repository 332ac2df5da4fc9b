// Package session implements the conversation state machine that drives an
// AI-guided planning conversation: question streaming, topic tracking,
// naming, data extraction, and scaffolding hand-off.
package session

import (
	"valet/internal/ai"
)

// Type distinguishes the two conversation variants.
type Type string

const (
	TypeNewProject      Type = "new_project"
	TypeExistingProject Type = "existing_project"
)

// Step is the state-machine position of a session. It is a closed set;
// transitions are validated against the table below so an illegal move is a
// construction-time failure rather than silent corruption.
type Step string

const (
	StepGeneratingQuestion Step = "generating_question"
	StepWaitingForAnswer   Step = "waiting_for_answer"
	StepGeneratingNames    Step = "generating_names"
	StepNamingProject      Step = "naming_project"
	StepExtractingData     Step = "extracting_data"
	StepReadyToScaffold    Step = "ready_to_scaffold"
	StepScaffolding        Step = "scaffolding"
	StepComplete           Step = "complete"
	StepError              Step = "error"
)

// validNext maps each step to the steps reachable from it. StepError is
// reachable from anywhere and terminal; only an external restart leaves it.
var validNext = map[Step][]Step{
	StepGeneratingQuestion: {StepWaitingForAnswer},
	StepWaitingForAnswer:   {StepGeneratingQuestion, StepGeneratingNames, StepExtractingData},
	StepGeneratingNames:    {StepNamingProject, StepWaitingForAnswer},
	StepNamingProject:      {StepExtractingData},
	StepExtractingData:     {StepReadyToScaffold},
	StepReadyToScaffold:    {StepScaffolding},
	StepScaffolding:        {StepComplete},
	StepComplete:           {},
	StepError:              {},
}

// CanAdvanceTo reports whether moving from s to next is a legal transition.
func (s Step) CanAdvanceTo(next Step) bool {
	if next == StepError {
		return s != StepError
	}
	for _, n := range validNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Assistant messages carry a monotonic
// stream id as their timestamp rather than wall-clock time, so ordering is
// stable even under clock skew; user messages carry Unix milliseconds.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// State is one session's full record. Owned exclusively by the Registry;
// mutated only through Registry.Update, which replaces-and-returns a new
// snapshot so observers never see a torn write.
type State struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
	Step Step   `json:"step"`

	Messages      []Message `json:"messages"`
	CoveredTopics []string  `json:"covered_topics"`

	ProjectName   string `json:"project_name"`
	OneLiner      string `json:"one_liner"`
	PlanningLevel string `json:"planning_level"`

	SelectedName    string   `json:"selected_name"`
	NameSuggestions []string `json:"name_suggestions"`

	Extracted      *ai.ProjectData `json:"extracted,omitempty"`
	ScaffoldedPath string          `json:"scaffolded_path"`

	Error        string `json:"error,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	cp.CoveredTopics = append([]string(nil), s.CoveredTopics...)
	cp.NameSuggestions = append([]string(nil), s.NameSuggestions...)
	if s.Extracted != nil {
		ex := *s.Extracted
		ex.TargetUsers = append([]string(nil), s.Extracted.TargetUsers...)
		ex.CoreFeatures = append([]string(nil), s.Extracted.CoreFeatures...)
		ex.Constraints = append([]string(nil), s.Extracted.Constraints...)
		ex.SuccessCriteria = append([]string(nil), s.Extracted.SuccessCriteria...)
		cp.Extracted = &ex
	}
	return &cp
}

// hasTopic reports whether a topic is already covered.
func (s *State) hasTopic(topic string) bool {
	for _, t := range s.CoveredTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// EffectiveName returns the best available name for prompt building.
func (s *State) EffectiveName() string {
	if s.SelectedName != "" {
		return s.SelectedName
	}
	return s.ProjectName
}

// Result is the uniform outcome of an engine operation. Operations never
// panic; failures are reported here.
type Result struct {
	Success      bool
	Error        string
	DebugDetails string
}

func ok() Result {
	return Result{Success: true}
}

func fail(msg, details string) Result {
	return Result{Success: false, Error: msg, DebugDetails: details}
}
