// Package ai defines the AI collaborator contract consumed by the session
// engine and workflow executor, plus the Gemini-backed implementation.
// The core never assumes these calls are idempotent; retries are the
// collaborator's concern.
package ai

// Message is one turn of a conversation forwarded to the collaborator.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ToolCall describes one tool invocation requested by the agentic collaborator.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of executing one ToolCall.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// ProjectData is the structured project vision extracted from a completed
// planning conversation.
type ProjectData struct {
	Vision          string   `json:"vision"`
	Problem         string   `json:"problem"`
	TargetUsers     []string `json:"target_users"`
	CoreFeatures    []string `json:"core_features"`
	Constraints     []string `json:"constraints"`
	SuccessCriteria []string `json:"success_criteria"`
	Timeline        string   `json:"timeline"`
}

// QuestionContext carries everything the collaborator needs to produce the
// next planning question.
type QuestionContext struct {
	ProjectName    string
	OneLiner       string
	PlanningLevel  string
	CoveredTopics  []string
	Messages       []Message
	IsFirstMessage bool
}

// StreamResult is the outcome of a streaming question call.
type StreamResult struct {
	Success      bool
	Content      string
	Error        string
	DebugDetails string
}

// AgenticRequest parameterizes one agentic (tool-using) conversation turn.
type AgenticRequest struct {
	SystemPrompt string
	Messages     []Message
	ProjectPath  string
	MaxToolCalls int
	OnToolCall   func(ToolCall)
	OnToolResult func(ToolResult)
	OnTextUpdate func(string)
}

// AgenticResult is the outcome of an agentic conversation turn.
type AgenticResult struct {
	Success      bool
	Response     string
	ToolCalls    []ToolCall
	Error        string
	DebugDetails string
}

// ExtractResult is the outcome of structured project-data extraction.
type ExtractResult struct {
	Success      bool
	Data         *ProjectData
	Error        string
	DebugDetails string
}

// NamesResult is the outcome of project-name suggestion generation.
type NamesResult struct {
	Success     bool
	Suggestions []string // most-preferred first
	Error       string
}

// NameResult is the outcome of extracting a clean project name from free text.
type NameResult struct {
	Success bool
	Name    string
	Error   string
}
