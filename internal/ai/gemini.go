package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/genai"

	"valet/internal/config"
	"valet/internal/logging"
)

// Gemini implements Client on top of Google's Gemini API.
type Gemini struct {
	client *genai.Client
	log    *logging.Logger
}

// NewGemini creates a Gemini-backed collaborator.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		log:    logging.Get(logging.CategoryAI),
	}, nil
}

func genConfig(cfg config.LLMConfig, systemPrompt string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return gc
}

func contentsFromMessages(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// StreamNextQuestion implements Client.
func (g *Gemini) StreamNextQuestion(ctx context.Context, qctx QuestionContext, systemPrompt string, cfg config.LLMConfig, onPartial func(string)) StreamResult {
	contents := contentsFromMessages(qctx.Messages)
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText(describeProject(qctx), genai.RoleUser))
	}

	var sb strings.Builder
	for chunk, err := range g.client.Models.GenerateContentStream(ctx, cfg.Model, contents, genConfig(cfg, systemPrompt)) {
		if err != nil {
			g.log.Error("question stream failed: %v", err)
			return StreamResult{
				Success:      false,
				Error:        "the AI collaborator could not produce a question",
				DebugDetails: err.Error(),
			}
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		sb.WriteString(text)
		if onPartial != nil {
			onPartial(text)
		}
	}

	content := sb.String()
	if content == "" {
		return StreamResult{
			Success:      false,
			Error:        "the AI collaborator returned an empty response",
			DebugDetails: "stream completed with no text chunks",
		}
	}
	return StreamResult{Success: true, Content: content}
}

// agenticTools declares the bounded tool surface available to existing-project
// conversations: read-only access to files under the project path.
func agenticTools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "read_file",
				Description: "Read a file relative to the project directory",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"path": {Type: genai.TypeString, Description: "relative file path"},
					},
					Required: []string{"path"},
				},
			},
			{
				Name:        "list_files",
				Description: "List files in the project directory",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"dir": {Type: genai.TypeString, Description: "relative directory, defaults to project root"},
					},
				},
			},
		},
	}}
}

// StreamAgenticConversation implements Client. Tool invocation is capped at
// req.MaxToolCalls; when the cap is reached the model is asked to conclude
// without further tools.
func (g *Gemini) StreamAgenticConversation(ctx context.Context, cfg config.LLMConfig, req AgenticRequest) AgenticResult {
	gc := genConfig(cfg, req.SystemPrompt)
	gc.Tools = agenticTools()

	contents := contentsFromMessages(req.Messages)
	var executed []ToolCall
	var finalText strings.Builder

	for {
		resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, gc)
		if err != nil {
			g.log.Error("agentic turn failed: %v", err)
			return AgenticResult{
				Success:      false,
				Error:        "the AI collaborator failed mid-conversation",
				DebugDetails: err.Error(),
			}
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 || len(executed) >= req.MaxToolCalls {
			text := resp.Text()
			finalText.WriteString(text)
			if req.OnTextUpdate != nil && text != "" {
				req.OnTextUpdate(text)
			}
			break
		}

		// Echo the model's tool-call turn before appending results.
		for _, c := range resp.Candidates {
			if c.Content != nil {
				contents = append(contents, c.Content)
			}
		}

		var parts []*genai.Part
		for _, fc := range calls {
			if len(executed) >= req.MaxToolCalls {
				break
			}
			call := ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args}
			executed = append(executed, call)
			if req.OnToolCall != nil {
				req.OnToolCall(call)
			}

			result := g.executeTool(req.ProjectPath, call)
			if req.OnToolResult != nil {
				req.OnToolResult(result)
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(fc.Name, map[string]any{
				"output":   result.Content,
				"is_error": result.IsError,
			}))
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}

	if finalText.Len() == 0 {
		return AgenticResult{
			Success:      false,
			ToolCalls:    executed,
			Error:        "the AI collaborator produced no final response",
			DebugDetails: fmt.Sprintf("%d tool calls executed, no closing text", len(executed)),
		}
	}
	return AgenticResult{Success: true, Response: finalText.String(), ToolCalls: executed}
}

// executeTool runs one local tool call confined to the project path.
func (g *Gemini) executeTool(projectPath string, call ToolCall) ToolResult {
	fail := func(msg string) ToolResult {
		return ToolResult{CallID: call.ID, Content: msg, IsError: true}
	}

	switch call.Name {
	case "read_file":
		rel, _ := call.Args["path"].(string)
		path, err := securePath(projectPath, rel)
		if err != nil {
			return fail(err.Error())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fail(fmt.Sprintf("read %s: %v", rel, err))
		}
		return ToolResult{CallID: call.ID, Content: string(data)}

	case "list_files":
		rel, _ := call.Args["dir"].(string)
		path, err := securePath(projectPath, rel)
		if err != nil {
			return fail(err.Error())
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return fail(fmt.Sprintf("list %s: %v", rel, err))
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		return ToolResult{CallID: call.ID, Content: strings.Join(names, "\n")}

	default:
		return fail(fmt.Sprintf("unknown tool %q", call.Name))
	}
}

// securePath resolves rel inside root and rejects traversal outside it.
func securePath(root, rel string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("no project path configured for tool access")
	}
	path := filepath.Join(root, filepath.Clean("/"+rel))
	if !strings.HasPrefix(path, filepath.Clean(root)+string(os.PathSeparator)) && path != filepath.Clean(root) {
		return "", fmt.Errorf("path %q escapes the project directory", rel)
	}
	return path, nil
}

// ExtractProjectData implements Client. The response is requested as bare
// JSON matching the ProjectData shape.
func (g *Gemini) ExtractProjectData(ctx context.Context, qctx QuestionContext, cfg config.LLMConfig) ExtractResult {
	gc := genConfig(cfg, extractionSystemPrompt)
	gc.ResponseMIMEType = "application/json"

	contents := contentsFromMessages(qctx.Messages)
	contents = append(contents, genai.NewContentFromText(
		"Extract the project data from this conversation as JSON.", genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, gc)
	if err != nil {
		return ExtractResult{Success: false, Error: "extraction call failed", DebugDetails: err.Error()}
	}

	var data ProjectData
	if err := json.Unmarshal([]byte(resp.Text()), &data); err != nil {
		return ExtractResult{Success: false, Error: "extraction returned malformed JSON", DebugDetails: err.Error()}
	}
	return ExtractResult{Success: true, Data: &data}
}

// GenerateProjectNameSuggestions implements Client.
func (g *Gemini) GenerateProjectNameSuggestions(ctx context.Context, qctx QuestionContext, cfg config.LLMConfig) NamesResult {
	gc := genConfig(cfg, namingSystemPrompt)
	gc.ResponseMIMEType = "application/json"

	contents := contentsFromMessages(qctx.Messages)
	contents = append(contents, genai.NewContentFromText(
		fmt.Sprintf("Suggest 5 short project names for: %s. Respond with a JSON array of strings, best first.", describeProject(qctx)),
		genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, gc)
	if err != nil {
		return NamesResult{Success: false, Error: err.Error()}
	}

	var names []string
	if err := json.Unmarshal([]byte(resp.Text()), &names); err != nil || len(names) == 0 {
		return NamesResult{Success: false, Error: "no usable name suggestions returned"}
	}
	return NamesResult{Success: true, Suggestions: names}
}

// ExtractProjectName implements Client.
func (g *Gemini) ExtractProjectName(ctx context.Context, rawText string, cfg config.LLMConfig) NameResult {
	contents := []*genai.Content{genai.NewContentFromText(
		fmt.Sprintf("Extract just the project name from this text, with no commentary: %q", rawText),
		genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, genConfig(cfg, ""))
	if err != nil {
		return NameResult{Success: false, Error: err.Error()}
	}
	name := strings.TrimSpace(strings.Trim(resp.Text(), "\"` \n"))
	if name == "" {
		return NameResult{Success: false, Error: "empty name extraction"}
	}
	return NameResult{Success: true, Name: name}
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg config.LLMConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, genConfig(cfg, systemPrompt))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return resp.Text(), nil
}

func describeProject(qctx QuestionContext) string {
	var parts []string
	if qctx.ProjectName != "" {
		parts = append(parts, "name: "+qctx.ProjectName)
	}
	if qctx.OneLiner != "" {
		parts = append(parts, "idea: "+qctx.OneLiner)
	}
	if qctx.PlanningLevel != "" {
		parts = append(parts, "planning level: "+qctx.PlanningLevel)
	}
	if len(parts) == 0 {
		return "a new project idea the user has not described yet"
	}
	return strings.Join(parts, "; ")
}

const extractionSystemPrompt = `You extract structured project planning data from a conversation.
Respond with a single JSON object: {"vision", "problem", "target_users", "core_features", "constraints", "success_criteria", "timeline"}.
Arrays for target_users, core_features, constraints and success_criteria; strings elsewhere. No markdown.`

const namingSystemPrompt = `You suggest concise, memorable project names. Two words maximum, no punctuation.`
