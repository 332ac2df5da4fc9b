package ai

import (
	"context"

	"valet/internal/config"
)

// Client is the full AI collaborator contract. All calls are long-running,
// may fail, and report failure through their result value rather than a
// panic. Streaming calls surface partial text through the provided callback
// for every increment; there is no buffering.
type Client interface {
	// StreamNextQuestion produces the next planning question, streaming
	// partial text through onPartial.
	StreamNextQuestion(ctx context.Context, qctx QuestionContext, systemPrompt string, cfg config.LLMConfig, onPartial func(string)) StreamResult

	// StreamAgenticConversation runs one agentic turn with bounded tool
	// invocation. Tool-call and tool-result callbacks are forwarded verbatim.
	StreamAgenticConversation(ctx context.Context, cfg config.LLMConfig, req AgenticRequest) AgenticResult

	// ExtractProjectData turns a finished conversation into structured
	// project data.
	ExtractProjectData(ctx context.Context, qctx QuestionContext, cfg config.LLMConfig) ExtractResult

	// GenerateProjectNameSuggestions proposes names, most-preferred first.
	GenerateProjectNameSuggestions(ctx context.Context, qctx QuestionContext, cfg config.LLMConfig) NamesResult

	// ExtractProjectName pulls a clean project name out of free-form text.
	ExtractProjectName(ctx context.Context, rawText string, cfg config.LLMConfig) NameResult

	// Complete runs a single non-streaming prompt and returns the full
	// response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, cfg config.LLMConfig) (string, error)
}
