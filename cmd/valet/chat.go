package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"valet/internal/ai"
	"valet/internal/conversation"
	"valet/internal/scaffold"
	"valet/internal/session"
)

var (
	flagOneLiner      string
	flagPlanningLevel string
	flagProjectPath   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run a guided planning conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		collaborator, err := newCollaborator(ctx)
		if err != nil {
			return err
		}

		reg := session.NewRegistry()
		bus := session.NewBus()
		engine := session.NewEngine(reg, bus, collaborator, scaffold.New())
		convo := conversation.NewStore()

		sessionType := session.TypeNewProject
		if flagProjectPath != "" {
			sessionType = session.TypeExistingProject
		}
		st := reg.CreateWithSeed(sessionType, "", flagOneLiner, flagPlanningLevel)

		opts := session.ProcessOptions{
			AgenticEnabled: cfg.Session.AgenticEnabled && sessionType == session.TypeExistingProject,
			ProjectPath:    flagProjectPath,
			MaxToolCalls:   cfg.Session.MaxToolCalls,
		}
		callbacks := session.AgenticCallbacks{
			OnPartial: func(chunk string) { fmt.Print(chunk) },
			OnToolCall: func(tc ai.ToolCall) {
				fmt.Printf("\n[consulting %s]\n", tc.Name)
			},
		}

		if res := engine.StreamQuestion(ctx, st.ID, cfg.LLM, callbacks.OnPartial); !res.Success {
			return fmt.Errorf("%s", res.Error)
		}
		fmt.Println()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			current, okFound := reg.Get(st.ID)
			if !okFound {
				return fmt.Errorf("session vanished")
			}
			recordConversation(convo, current)
			if last := lastAssistantMessage(current); last != "" && session.ContainsTransitionPhrase(last) {
				break
			}

			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if res := engine.ProcessUserMessage(ctx, st.ID, text, cfg.LLM, opts, callbacks); !res.Success {
				return fmt.Errorf("%s", res.Error)
			}
			fmt.Println()
		}

		return finalize(cmd, engine, convo, st.ID, scanner)
	},
}

func init() {
	chatCmd.Flags().StringVar(&flagOneLiner, "idea", "", "one-line description of the project idea")
	chatCmd.Flags().StringVar(&flagPlanningLevel, "level", "", "planning depth hint (light, standard, thorough)")
	chatCmd.Flags().StringVar(&flagProjectPath, "project", "", "existing project directory (enables the agentic path)")
}

func lastAssistantMessage(st *session.State) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == session.RoleAssistant {
			return st.Messages[i].Content
		}
	}
	return ""
}

// recordConversation keeps the store current after every turn: existing
// projects are keyed by their path, a new project lives in the draft slot
// until it is scaffolded.
func recordConversation(convo *conversation.Store, st *session.State) {
	if st.Type == session.TypeExistingProject && flagProjectPath != "" {
		convo.Save(flagProjectPath, snapshotOf(st))
		return
	}
	convo.SaveDraft(&conversation.Draft{
		Snapshot:      *snapshotOf(st),
		ProjectName:   st.EffectiveName(),
		OneLiner:      st.OneLiner,
		PlanningLevel: st.PlanningLevel,
	})
}

func snapshotOf(st *session.State) *conversation.Snapshot {
	return &conversation.Snapshot{
		SessionID:     st.ID,
		SessionType:   st.Type,
		Step:          st.Step,
		Messages:      st.Messages,
		CoveredTopics: st.CoveredTopics,
		SavedAt:       time.Now(),
	}
}

// finalize runs naming, extraction, and scaffolding once the Q&A phase ends.
func finalize(cmd *cobra.Command, engine *session.Engine, convo *conversation.Store, id string, scanner *bufio.Scanner) error {
	ctx := cmd.Context()

	chosen := "Untitled Project"
	isCustom := false
	if res := engine.GenerateNameSuggestions(ctx, id, cfg.LLM); res.Success {
		st, _ := engine.Registry().Get(id)
		fmt.Println("Name suggestions:")
		for i, n := range st.NameSuggestions {
			fmt.Printf("  %d. %s\n", i+1, n)
		}
		fmt.Print("Pick a number or type a name: ")
		if scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if idx := parseIndex(input, len(st.NameSuggestions)); idx >= 0 {
				chosen = st.NameSuggestions[idx]
			} else if input != "" {
				chosen = input
				isCustom = true
			} else if len(st.NameSuggestions) > 0 {
				chosen = st.NameSuggestions[0]
			}
		}
	} else {
		fmt.Printf("Name suggestions unavailable (%s); using a default.\n", res.Error)
	}

	if res := engine.FinalizeSession(ctx, id, chosen, isCustom, cfg.LLM, flagVault); !res.Success {
		return fmt.Errorf("%s", res.Error)
	}

	st, _ := engine.Registry().Get(id)
	convo.ClearDraft()
	convo.SetActive(&conversation.ActiveProject{Name: st.SelectedName, Path: st.ScaffoldedPath})
	convo.Save(st.ScaffoldedPath, snapshotOf(st))

	fmt.Printf("Project scaffolded at %s\n", st.ScaffoldedPath)
	return nil
}

func parseIndex(input string, n int) int {
	idx := 0
	for _, c := range input {
		if c < '0' || c > '9' {
			return -1
		}
		idx = idx*10 + int(c-'0')
	}
	if input == "" || idx < 1 || idx > n {
		return -1
	}
	return idx - 1
}
