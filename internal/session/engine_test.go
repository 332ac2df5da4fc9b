package session

import (
	"context"
	"strings"
	"testing"

	"valet/internal/ai"
	"valet/internal/config"
)

// stubCollaborator scripts collaborator behavior per test.
type stubCollaborator struct {
	questionResult ai.StreamResult
	agenticResult  ai.AgenticResult
	extractResult  ai.ExtractResult
	namesResult    ai.NamesResult
	nameResult     ai.NameResult

	questionCalls int
	extractCalls  int
}

func (s *stubCollaborator) StreamNextQuestion(_ context.Context, _ ai.QuestionContext, _ string, _ config.LLMConfig, onPartial func(string)) ai.StreamResult {
	s.questionCalls++
	if s.questionResult.Success && onPartial != nil {
		onPartial(s.questionResult.Content)
	}
	return s.questionResult
}

func (s *stubCollaborator) StreamAgenticConversation(_ context.Context, _ config.LLMConfig, req ai.AgenticRequest) ai.AgenticResult {
	if s.agenticResult.Success && req.OnTextUpdate != nil {
		req.OnTextUpdate(s.agenticResult.Response)
	}
	return s.agenticResult
}

func (s *stubCollaborator) ExtractProjectData(_ context.Context, _ ai.QuestionContext, _ config.LLMConfig) ai.ExtractResult {
	s.extractCalls++
	return s.extractResult
}

func (s *stubCollaborator) GenerateProjectNameSuggestions(_ context.Context, _ ai.QuestionContext, _ config.LLMConfig) ai.NamesResult {
	return s.namesResult
}

func (s *stubCollaborator) ExtractProjectName(_ context.Context, _ string, _ config.LLMConfig) ai.NameResult {
	return s.nameResult
}

// stubScaffolder records whether it was invoked.
type stubScaffolder struct {
	called bool
	result ScaffoldResult
}

func (s *stubScaffolder) ScaffoldProject(_, _ string, _ ScaffoldRequest) ScaffoldResult {
	s.called = true
	return s.result
}

func newTestEngine(collab *stubCollaborator, scaff *stubScaffolder) (*Engine, *Registry) {
	reg := NewRegistry()
	if scaff == nil {
		scaff = &stubScaffolder{result: ScaffoldResult{Success: true, ProjectPath: "/tmp/p"}}
	}
	return NewEngine(reg, NewBus(), collab, scaff), reg
}

func TestStreamQuestion_CoversTopics(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "Who are the target users of this product?"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil)
	if !res.Success {
		t.Fatalf("StreamQuestion failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepWaitingForAnswer {
		t.Errorf("expected step waiting_for_answer, got %s", got.Step)
	}
	if !got.hasTopic(TopicTargetUsers) {
		t.Errorf("expected target_users topic to be covered, got %v", got.CoveredTopics)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleAssistant {
		t.Fatalf("expected one assistant message, got %v", got.Messages)
	}
}

func TestStreamQuestion_TransitionPhraseSkipsTopicDetection(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "Very well, sir. Let us proceed."},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil)
	if !res.Success {
		t.Fatalf("StreamQuestion failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if len(got.CoveredTopics) != 0 {
		t.Errorf("topic detection should be skipped on transition phrase, got %v", got.CoveredTopics)
	}
	if got.Step != StepWaitingForAnswer {
		t.Errorf("expected step waiting_for_answer, got %s", got.Step)
	}
}

func TestStreamQuestion_FailureEntersErrorState(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: false, Error: "model overloaded", DebugDetails: "429"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil)
	if res.Success {
		t.Fatal("expected failure")
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepError {
		t.Errorf("expected error step, got %s", got.Step)
	}
	if got.Error != "model overloaded" || got.ErrorDetails != "429" {
		t.Errorf("error fields not recorded: %q / %q", got.Error, got.ErrorDetails)
	}
	if len(got.Messages) != 0 {
		t.Errorf("prior messages must be untouched on failure, got %d", len(got.Messages))
	}
}

func TestStreamQuestion_SessionNotFound(t *testing.T) {
	engine, _ := newTestEngine(&stubCollaborator{}, nil)
	res := engine.StreamQuestion(context.Background(), "missing", config.LLMConfig{}, nil)
	if res.Success {
		t.Fatal("expected not-found failure")
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("expected descriptive not-found error, got %q", res.Error)
	}
}

func TestStreamQuestion_PublishesStreamingEvents(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What problem does this solve?"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	var kinds []EventKind
	unsub := engine.Bus().Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })
	defer unsub()

	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("StreamQuestion failed: %s", res.Error)
	}

	want := map[EventKind]bool{EventAIStreaming: false, EventMessageAdded: false, EventAIComplete: false, EventStepChanged: false}
	for _, k := range kinds {
		if _, tracked := want[k]; tracked {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected %s event, saw %v", k, kinds)
		}
	}
}

func TestGenerateNameSuggestions_FailureIsRecoverable(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the core problem?"},
		namesResult:    ai.NamesResult{Success: false, Error: "timeout"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)
	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("setup failed: %s", res.Error)
	}

	before, _ := reg.Get(st.ID)
	res := engine.GenerateNameSuggestions(context.Background(), st.ID, config.LLMConfig{})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error != "timeout" {
		t.Errorf("expected error to propagate, got %q", res.Error)
	}

	after, _ := reg.Get(st.ID)
	if after.Step != before.Step {
		t.Errorf("step must be restored on naming failure: before %s, after %s", before.Step, after.Step)
	}
	if after.Step == StepError {
		t.Error("naming failure must never drive the session into error")
	}
}

func TestGenerateNameSuggestions_StoresOrderedList(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the core problem?"},
		namesResult:    ai.NamesResult{Success: true, Suggestions: []string{"Ledger", "Tally", "Quill"}},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)
	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("setup failed: %s", res.Error)
	}

	if res := engine.GenerateNameSuggestions(context.Background(), st.ID, config.LLMConfig{}); !res.Success {
		t.Fatalf("GenerateNameSuggestions failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepNamingProject {
		t.Errorf("expected naming_project step, got %s", got.Step)
	}
	if len(got.NameSuggestions) != 3 || got.NameSuggestions[0] != "Ledger" {
		t.Errorf("suggestions not stored in order: %v", got.NameSuggestions)
	}
}

func TestSelectProjectName_CustomInputFallsBackToRaw(t *testing.T) {
	collab := &stubCollaborator{
		nameResult: ai.NameResult{Success: false, Error: "parse failure"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	res := engine.SelectProjectName(context.Background(), st.ID, "call it something like Tally maybe?", true, config.LLMConfig{})
	if !res.Success {
		t.Fatalf("SelectProjectName failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.SelectedName != "call it something like Tally maybe?" {
		t.Errorf("expected raw input fallback, got %q", got.SelectedName)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser {
		t.Errorf("user's original text must be recorded as a message, got %v", got.Messages)
	}
}

func TestExtractProjectData_FallbackOnFailure(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the core problem?"},
		extractResult:  ai.ExtractResult{Success: false, Error: "bad JSON"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.CreateWithSeed(TypeNewProject, "", "track my reading list", "")
	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("setup failed: %s", res.Error)
	}

	res := engine.ExtractProjectData(context.Background(), st.ID, config.LLMConfig{})
	if !res.Success {
		t.Fatalf("extraction must never block the flow, got: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepReadyToScaffold {
		t.Errorf("expected ready_to_scaffold, got %s", got.Step)
	}
	if got.Extracted == nil {
		t.Fatal("fallback data must be synthesized")
	}
	if got.Extracted.Vision != "track my reading list" {
		t.Errorf("fallback vision should reuse the one-liner, got %q", got.Extracted.Vision)
	}
}

func TestScaffoldProject_PreconditionsRejectedWithoutScaffolderCall(t *testing.T) {
	scaff := &stubScaffolder{result: ScaffoldResult{Success: true}}
	engine, reg := newTestEngine(&stubCollaborator{}, scaff)
	st := reg.Create(TypeNewProject)

	res := engine.ScaffoldProject(st.ID, t.TempDir())
	if res.Success {
		t.Fatal("expected precondition failure")
	}
	if !strings.Contains(res.Error, "extracted") {
		t.Errorf("expected descriptive message about extraction, got %q", res.Error)
	}
	if scaff.called {
		t.Error("scaffolder must not be invoked when preconditions fail")
	}

	got, _ := reg.Get(st.ID)
	if got.Step == StepError {
		t.Error("precondition violation is a synchronous rejection, not an error state")
	}
}

func TestScaffoldProject_SuccessRecordsPathAndCompletes(t *testing.T) {
	scaff := &stubScaffolder{result: ScaffoldResult{Success: true, ProjectPath: "/vault/reading-list"}}
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the core problem?"},
		extractResult:  ai.ExtractResult{Success: true, Data: &ai.ProjectData{Vision: "v"}},
	}
	engine, reg := newTestEngine(collab, scaff)
	st := reg.Create(TypeNewProject)
	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("setup failed: %s", res.Error)
	}

	if res := engine.SelectProjectName(context.Background(), st.ID, "Reading List", false, config.LLMConfig{}); !res.Success {
		t.Fatalf("name selection failed: %s", res.Error)
	}
	if res := engine.ExtractProjectData(context.Background(), st.ID, config.LLMConfig{}); !res.Success {
		t.Fatalf("extraction failed: %s", res.Error)
	}
	if res := engine.ScaffoldProject(st.ID, "/vault"); !res.Success {
		t.Fatalf("scaffolding failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepComplete {
		t.Errorf("expected complete, got %s", got.Step)
	}
	if got.ScaffoldedPath != "/vault/reading-list" {
		t.Errorf("scaffolded path not recorded: %q", got.ScaffoldedPath)
	}
}

func TestProcessUserMessage_AppendsUserMessageThenStreams(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "And what constraints do you have?"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	res := engine.ProcessUserMessage(context.Background(), st.ID, "It is a habit tracker.", config.LLMConfig{}, ProcessOptions{}, AgenticCallbacks{})
	if !res.Success {
		t.Fatalf("ProcessUserMessage failed: %s", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != RoleUser || got.Messages[1].Role != RoleAssistant {
		t.Errorf("unexpected message order: %v, %v", got.Messages[0].Role, got.Messages[1].Role)
	}
	if collab.questionCalls != 1 {
		t.Errorf("expected plain streaming path, question calls = %d", collab.questionCalls)
	}
}

func TestProcessUserMessage_AgenticPath(t *testing.T) {
	collab := &stubCollaborator{
		agenticResult: ai.AgenticResult{Success: true, Response: "Your Tasks.md lists three stale items."},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeExistingProject)

	opts := ProcessOptions{AgenticEnabled: true, ProjectPath: "/projects/app", MaxToolCalls: 10}
	res := engine.ProcessUserMessage(context.Background(), st.ID, "Anything out of date?", config.LLMConfig{}, opts, AgenticCallbacks{})
	if !res.Success {
		t.Fatalf("agentic path failed: %s", res.Error)
	}
	if collab.questionCalls != 0 {
		t.Error("agentic options must not fall through to plain question streaming")
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepWaitingForAnswer {
		t.Errorf("expected waiting_for_answer, got %s", got.Step)
	}
}

func TestFinalizeSession_ShortCircuitsOnScaffoldFailure(t *testing.T) {
	scaff := &stubScaffolder{result: ScaffoldResult{Success: false, Error: "disk full"}}
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the core problem?"},
		extractResult:  ai.ExtractResult{Success: true, Data: &ai.ProjectData{Vision: "v"}},
	}
	engine, reg := newTestEngine(collab, scaff)
	st := reg.Create(TypeNewProject)
	if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
		t.Fatalf("setup failed: %s", res.Error)
	}

	res := engine.FinalizeSession(context.Background(), st.ID, "Tally", false, config.LLMConfig{}, "/vault")
	if res.Success {
		t.Fatal("expected scaffold failure to propagate")
	}
	if res.Error != "disk full" {
		t.Errorf("expected propagated error, got %q", res.Error)
	}

	got, _ := reg.Get(st.ID)
	if got.Step != StepError {
		t.Errorf("scaffold failure is fatal, expected error step, got %s", got.Step)
	}
}

func TestAssistantTimestampsAreMonotonic(t *testing.T) {
	collab := &stubCollaborator{
		questionResult: ai.StreamResult{Success: true, Content: "What is the timeline?"},
	}
	engine, reg := newTestEngine(collab, nil)
	st := reg.Create(TypeNewProject)

	for i := 0; i < 3; i++ {
		if res := engine.StreamQuestion(context.Background(), st.ID, config.LLMConfig{}, nil); !res.Success {
			t.Fatalf("stream %d failed: %s", i, res.Error)
		}
	}

	got, _ := reg.Get(st.ID)
	var prev int64
	for _, m := range got.Messages {
		if m.Timestamp <= prev {
			t.Fatalf("timestamps not strictly increasing: %d after %d", m.Timestamp, prev)
		}
		prev = m.Timestamp
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Reading List":      "reading-list",
		"  Tally!  ":        "tally",
		"My App 2.0":        "my-app-2-0",
		"---":               "untitled-project",
		"Crème Brûlée Club": "cr-me-br-l-e-club",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
