package session

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"valet/internal/ai"
	"valet/internal/config"
	"valet/internal/logging"
)

// Collaborator is the slice of the AI contract the session engine consumes.
// Mirrors ai.Client minus the workflow-only completion call.
type Collaborator interface {
	StreamNextQuestion(ctx context.Context, qctx ai.QuestionContext, systemPrompt string, cfg config.LLMConfig, onPartial func(string)) ai.StreamResult
	StreamAgenticConversation(ctx context.Context, cfg config.LLMConfig, req ai.AgenticRequest) ai.AgenticResult
	ExtractProjectData(ctx context.Context, qctx ai.QuestionContext, cfg config.LLMConfig) ai.ExtractResult
	GenerateProjectNameSuggestions(ctx context.Context, qctx ai.QuestionContext, cfg config.LLMConfig) ai.NamesResult
	ExtractProjectName(ctx context.Context, rawText string, cfg config.LLMConfig) ai.NameResult
}

// ScaffoldRequest carries everything the scaffolder needs to create the
// initial plan documents.
type ScaffoldRequest struct {
	ProjectName string
	ProjectSlug string
	OneLiner    string
	Extracted   *ai.ProjectData
}

// ScaffoldResult is the scaffolder collaborator's outcome.
type ScaffoldResult struct {
	Success     bool
	ProjectPath string
	Error       string
}

// Scaffolder creates the on-disk project plan from extracted data.
type Scaffolder interface {
	ScaffoldProject(rootPath, slug string, req ScaffoldRequest) ScaffoldResult
}

// AgenticCallbacks forwards agentic streaming activity to the caller.
type AgenticCallbacks struct {
	OnPartial    func(string)
	OnToolCall   func(ai.ToolCall)
	OnToolResult func(ai.ToolResult)
}

// ProcessOptions selects the streaming path for a user message.
type ProcessOptions struct {
	AgenticEnabled bool
	ProjectPath    string
	MaxToolCalls   int
}

// Engine orchestrates one conversation per session id. It does not enforce
// mutual exclusion across concurrent callers on the same session; callers
// serialize their own calls.
type Engine struct {
	reg        *Registry
	bus        *Bus
	ai         Collaborator
	scaffolder Scaffolder
	log        *logging.Logger

	// streamSeq issues monotonic timestamps for assistant messages so their
	// ordering is stable even under clock skew.
	streamSeq atomic.Int64
}

// NewEngine wires an engine to its collaborators.
func NewEngine(reg *Registry, bus *Bus, collaborator Collaborator, scaffolder Scaffolder) *Engine {
	return &Engine{
		reg:        reg,
		bus:        bus,
		ai:         collaborator,
		scaffolder: scaffolder,
		log:        logging.Get(logging.CategorySession),
	}
}

// Registry exposes the engine's session registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Bus exposes the engine's event bus.
func (e *Engine) Bus() *Bus { return e.bus }

// setStep moves the session to next and broadcasts the change.
func (e *Engine) setStep(id string, next Step) error {
	var prev Step
	st, err := e.reg.Update(id, func(s *State) {
		prev = s.Step
		s.Step = next
	})
	if err != nil {
		return err
	}
	if prev != next {
		e.bus.Publish(Event{Kind: EventStepChanged, SessionID: st.ID, PrevStep: prev, NextStep: next})
	}
	return nil
}

// enterError drives the session into the terminal error step, keeping the
// human-readable message and the technical detail separate.
func (e *Engine) enterError(id, msg, details string) {
	st, err := e.reg.Update(id, func(s *State) {
		s.Step = StepError
		s.Error = msg
		s.ErrorDetails = details
	})
	if err != nil {
		e.log.Error("cannot enter error state for %s: %v", id, err)
		return
	}
	e.bus.Publish(Event{Kind: EventError, SessionID: st.ID, Err: msg})
	e.log.Error("session %s failed: %s (%s)", id, msg, details)
}

// StreamQuestion asks the collaborator for the next planning question,
// streaming partial text through onPartial and the bus. On success it
// appends the assistant message, runs topic detection unless the transition
// phrase is present, and leaves the session waiting for an answer.
func (e *Engine) StreamQuestion(ctx context.Context, id string, cfg config.LLMConfig, onPartial func(string)) Result {
	st, okFound := e.reg.Get(id)
	if !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}

	if err := e.setStep(id, StepGeneratingQuestion); err != nil {
		return fail("cannot begin question generation", err.Error())
	}

	res := e.ai.StreamNextQuestion(ctx, buildQuestionContext(st), questionSystemPrompt, cfg, func(chunk string) {
		if onPartial != nil {
			onPartial(chunk)
		}
		e.bus.Publish(Event{Kind: EventAIStreaming, SessionID: id, Partial: chunk})
	})
	if !res.Success {
		e.enterError(id, res.Error, res.DebugDetails)
		return fail(res.Error, res.DebugDetails)
	}

	e.completeAssistantTurn(id, res.Content)
	return ok()
}

// StreamAgenticResponse is the existing-project variant of StreamQuestion:
// same streaming and completion contract, but the collaborator may invoke
// tools, capped at opts.MaxToolCalls.
func (e *Engine) StreamAgenticResponse(ctx context.Context, id string, cfg config.LLMConfig, projectPath string, maxToolCalls int, cb AgenticCallbacks) Result {
	st, okFound := e.reg.Get(id)
	if !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}

	if err := e.setStep(id, StepGeneratingQuestion); err != nil {
		return fail("cannot begin agentic response", err.Error())
	}

	qctx := buildQuestionContext(st)
	res := e.ai.StreamAgenticConversation(ctx, cfg, ai.AgenticRequest{
		SystemPrompt: agenticSystemPrompt,
		Messages:     qctx.Messages,
		ProjectPath:  projectPath,
		MaxToolCalls: maxToolCalls,
		OnToolCall:   cb.OnToolCall,
		OnToolResult: cb.OnToolResult,
		OnTextUpdate: func(chunk string) {
			if cb.OnPartial != nil {
				cb.OnPartial(chunk)
			}
			e.bus.Publish(Event{Kind: EventAIStreaming, SessionID: id, Partial: chunk})
		},
	})
	if !res.Success {
		e.enterError(id, res.Error, res.DebugDetails)
		return fail(res.Error, res.DebugDetails)
	}

	e.completeAssistantTurn(id, res.Response)
	return ok()
}

// completeAssistantTurn appends the assistant message, runs the transition
// phrase check and topic detection, and moves to waiting_for_answer.
func (e *Engine) completeAssistantTurn(id, content string) {
	msg := Message{Role: RoleAssistant, Content: content, Timestamp: e.streamSeq.Add(1)}

	var newTopics []string
	phrasePresent := ContainsTransitionPhrase(content)

	st, err := e.reg.Update(id, func(s *State) {
		s.Messages = append(s.Messages, msg)
		if !phrasePresent {
			updated := DetectTopics(content, s.CoveredTopics)
			if len(updated) > len(s.CoveredTopics) {
				s.CoveredTopics = updated
				newTopics = updated
			}
		}
	})
	if err != nil {
		e.log.Error("cannot record assistant turn for %s: %v", id, err)
		return
	}

	e.bus.Publish(Event{Kind: EventMessageAdded, SessionID: st.ID, Message: &msg})
	if newTopics != nil {
		e.bus.Publish(Event{Kind: EventTopicsUpdated, SessionID: st.ID, Topics: newTopics})
	}
	e.bus.Publish(Event{Kind: EventAIComplete, SessionID: st.ID})

	if err := e.setStep(id, StepWaitingForAnswer); err != nil {
		e.log.Error("cannot return %s to waiting_for_answer: %v", id, err)
	}
}

// ProcessUserMessage appends the user's message (wall-clock timestamp) and
// dispatches to the agentic or plain streaming path.
func (e *Engine) ProcessUserMessage(ctx context.Context, id, text string, cfg config.LLMConfig, opts ProcessOptions, cb AgenticCallbacks) Result {
	msg := Message{Role: RoleUser, Content: text, Timestamp: time.Now().UnixMilli()}
	st, err := e.reg.Update(id, func(s *State) {
		s.Messages = append(s.Messages, msg)
	})
	if err != nil {
		return fail(fmt.Sprintf("session %s not found", id), err.Error())
	}
	e.bus.Publish(Event{Kind: EventMessageAdded, SessionID: st.ID, Message: &msg})

	if opts.AgenticEnabled && opts.ProjectPath != "" {
		return e.StreamAgenticResponse(ctx, id, cfg, opts.ProjectPath, opts.MaxToolCalls, cb)
	}
	return e.StreamQuestion(ctx, id, cfg, cb.OnPartial)
}

// GenerateNameSuggestions asks the collaborator for an ordered name list.
// Failure here is recoverable, not fatal: the session step is restored to
// what it was before the call and the error is returned so the caller can
// fall back to a default name.
func (e *Engine) GenerateNameSuggestions(ctx context.Context, id string, cfg config.LLMConfig) Result {
	st, okFound := e.reg.Get(id)
	if !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}
	prevStep := st.Step

	if err := e.setStep(id, StepGeneratingNames); err != nil {
		return fail("cannot begin name generation", err.Error())
	}

	res := e.ai.GenerateProjectNameSuggestions(ctx, buildQuestionContext(st), cfg)
	if !res.Success {
		if err := e.setStep(id, prevStep); err != nil {
			e.log.Error("cannot restore step for %s after naming failure: %v", id, err)
		}
		e.log.Warn("name suggestion failed for %s: %s", id, res.Error)
		return Result{Success: false, Error: res.Error}
	}

	updated, err := e.reg.Update(id, func(s *State) {
		s.NameSuggestions = append([]string(nil), res.Suggestions...)
		s.Step = StepNamingProject
	})
	if err != nil {
		return fail("cannot store name suggestions", err.Error())
	}

	e.bus.Publish(Event{Kind: EventStepChanged, SessionID: id, PrevStep: StepGeneratingNames, NextStep: StepNamingProject})
	e.bus.Publish(Event{Kind: EventNamesGenerated, SessionID: id, Names: updated.NameSuggestions})
	return ok()
}

// SelectProjectName records the user's choice. When isCustomInput is set the
// collaborator distills a clean name from the free text; if that fails the
// raw input is used as-is (logged, not surfaced). The user's original text
// always lands in the conversation first.
func (e *Engine) SelectProjectName(ctx context.Context, id, name string, isCustomInput bool, cfg config.LLMConfig) Result {
	if _, okFound := e.reg.Get(id); !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}

	resolved := name
	if isCustomInput {
		res := e.ai.ExtractProjectName(ctx, name, cfg)
		if res.Success {
			resolved = res.Name
		} else {
			e.log.Warn("name extraction failed for %s, using raw input: %s", id, res.Error)
		}
	}

	userMsg := Message{Role: RoleUser, Content: name, Timestamp: time.Now().UnixMilli()}
	st, err := e.reg.Update(id, func(s *State) {
		s.Messages = append(s.Messages, userMsg)
		s.SelectedName = resolved
	})
	if err != nil {
		return fail("cannot record name selection", err.Error())
	}

	e.bus.Publish(Event{Kind: EventMessageAdded, SessionID: st.ID, Message: &userMsg})
	e.bus.Publish(Event{Kind: EventNameSelected, SessionID: st.ID, Name: resolved})
	return ok()
}

// ExtractProjectData runs structured extraction over the conversation.
// Extraction never blocks the flow: on collaborator failure a minimal
// placeholder structure is synthesized so scaffolding can still proceed.
func (e *Engine) ExtractProjectData(ctx context.Context, id string, cfg config.LLMConfig) Result {
	st, okFound := e.reg.Get(id)
	if !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}

	if err := e.setStep(id, StepExtractingData); err != nil {
		return fail("cannot begin data extraction", err.Error())
	}

	res := e.ai.ExtractProjectData(ctx, buildQuestionContext(st), cfg)
	data := res.Data
	if !res.Success || data == nil {
		e.log.Warn("extraction failed for %s, synthesizing fallback: %s", id, res.Error)
		data = fallbackProjectData(st)
	}

	if _, err := e.reg.Update(id, func(s *State) {
		s.Extracted = data
		s.Step = StepReadyToScaffold
	}); err != nil {
		return fail("cannot store extracted data", err.Error())
	}

	e.bus.Publish(Event{Kind: EventStepChanged, SessionID: id, PrevStep: StepExtractingData, NextStep: StepReadyToScaffold})
	e.bus.Publish(Event{Kind: EventExtractionComplete, SessionID: id})
	return ok()
}

// fallbackProjectData synthesizes a minimal structure when extraction fails.
func fallbackProjectData(st *State) *ai.ProjectData {
	vision := st.OneLiner
	if vision == "" {
		vision = "Project vision to be refined."
	}
	return &ai.ProjectData{
		Vision:          vision,
		Problem:         "To be defined.",
		TargetUsers:     []string{"To be defined"},
		CoreFeatures:    []string{"To be defined"},
		Constraints:     []string{"To be defined"},
		SuccessCriteria: []string{"To be defined"},
		Timeline:        "To be defined",
	}
}

// ScaffoldProject hands off to the scaffolder collaborator. Hard
// precondition: extracted data and a selected name must already exist;
// otherwise the call is rejected without touching the scaffolder.
func (e *Engine) ScaffoldProject(id, vaultPath string) Result {
	st, okFound := e.reg.Get(id)
	if !okFound {
		return fail(fmt.Sprintf("session %s not found", id), "")
	}

	if st.Extracted == nil {
		return fail("cannot scaffold: project data has not been extracted yet", "")
	}
	if st.SelectedName == "" {
		return fail("cannot scaffold: no project name has been selected", "")
	}

	if err := e.setStep(id, StepScaffolding); err != nil {
		return fail("cannot begin scaffolding", err.Error())
	}

	slug := Slugify(st.SelectedName)
	res := e.scaffolder.ScaffoldProject(vaultPath, slug, ScaffoldRequest{
		ProjectName: st.SelectedName,
		ProjectSlug: slug,
		OneLiner:    st.OneLiner,
		Extracted:   st.Extracted,
	})
	if !res.Success {
		e.enterError(id, res.Error, fmt.Sprintf("scaffolding %q under %q", slug, vaultPath))
		return fail(res.Error, "")
	}

	if _, err := e.reg.Update(id, func(s *State) {
		s.ScaffoldedPath = res.ProjectPath
		s.Step = StepComplete
	}); err != nil {
		return fail("cannot record scaffold result", err.Error())
	}

	e.bus.Publish(Event{Kind: EventStepChanged, SessionID: id, PrevStep: StepScaffolding, NextStep: StepComplete})
	e.bus.Publish(Event{Kind: EventScaffoldComplete, SessionID: id, Path: res.ProjectPath})
	return ok()
}

// FinalizeSession runs name selection, extraction, and scaffolding as one
// pipeline, short-circuiting on the first failure.
func (e *Engine) FinalizeSession(ctx context.Context, id, name string, isCustomInput bool, cfg config.LLMConfig, vaultPath string) Result {
	if res := e.SelectProjectName(ctx, id, name, isCustomInput, cfg); !res.Success {
		return res
	}
	if res := e.ExtractProjectData(ctx, id, cfg); !res.Success {
		return res
	}
	return e.ScaffoldProject(id, vaultPath)
}

// Slugify derives a filesystem-safe slug from a project name.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled-project"
	}
	return slug
}
