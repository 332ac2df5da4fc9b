package session

import (
	"fmt"
	"strings"

	"valet/internal/ai"
)

// questionSystemPrompt drives the butler persona for new-project planning
// conversations. When every topic is covered the model closes with the
// transition phrase, which the engine and UI key off.
const questionSystemPrompt = `You are a meticulous planning assistant with the manner of an English butler.
You are helping the user turn a vague project idea into a concrete plan.
Ask exactly one focused question at a time, building on their previous answers.
Work through: the core problem, target users, key features, constraints, success criteria, and timeline.
When you judge that every topic has been discussed adequately, respond with exactly:
"Very well, sir. Let us proceed."`

// agenticSystemPrompt drives existing-project maintenance conversations,
// where the model may consult project files through tools.
const agenticSystemPrompt = `You are a meticulous planning assistant with the manner of an English butler.
You are helping the user maintain an existing project plan. You may read the
project's files with the provided tools to ground your questions and advice
in what is actually there. Ask one focused question or give one concrete
recommendation at a time.
When the user's plan needs no further discussion, respond with exactly:
"Very well, sir. Let us proceed."`

// buildQuestionContext assembles the collaborator context from a session
// snapshot.
func buildQuestionContext(st *State) ai.QuestionContext {
	msgs := make([]ai.Message, 0, len(st.Messages)+1)
	for _, m := range st.Messages {
		msgs = append(msgs, ai.Message{Role: string(m.Role), Content: m.Content})
	}

	if len(st.Messages) == 0 {
		msgs = append(msgs, ai.Message{Role: string(RoleUser), Content: firstMessagePrimer(st)})
	}

	return ai.QuestionContext{
		ProjectName:    st.EffectiveName(),
		OneLiner:       st.OneLiner,
		PlanningLevel:  st.PlanningLevel,
		CoveredTopics:  append([]string(nil), st.CoveredTopics...),
		Messages:       msgs,
		IsFirstMessage: len(st.Messages) == 0,
	}
}

// firstMessagePrimer seeds the very first turn with whatever the user has
// told us so far.
func firstMessagePrimer(st *State) string {
	var b strings.Builder
	b.WriteString("I would like to plan a new project.")
	if st.EffectiveName() != "" {
		fmt.Fprintf(&b, " Working name: %s.", st.EffectiveName())
	}
	if st.OneLiner != "" {
		fmt.Fprintf(&b, " The idea: %s.", st.OneLiner)
	}
	if st.PlanningLevel != "" {
		fmt.Fprintf(&b, " Planning depth: %s.", st.PlanningLevel)
	}
	if len(st.CoveredTopics) > 0 {
		fmt.Fprintf(&b, " Topics already discussed: %s.", strings.Join(st.CoveredTopics, ", "))
	}
	return b.String()
}
