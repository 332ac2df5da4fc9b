package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"valet/internal/workflow"
)

var flagResponse string

// readResponse loads the AI response to a workflow prompt from a file, or
// stdin when the flag is "-".
func readResponse() (string, error) {
	if flagResponse == "" {
		return "", fmt.Errorf("--response is required (path to the AI response, or - for stdin)")
	}
	if flagResponse == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(flagResponse)
	return string(data), err
}

func addResponseFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagResponse, "response", "", "AI response to parse (file path or - for stdin)")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync commits against the task list",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		if s := workflow.SyncSummary(raw); s != nil {
			fmt.Println(s.OneLine)
		}
		result, err := x.PrepareSync(raw)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("response did not parse as a sync-commits result")
		}
		for _, m := range result.Matches {
			fmt.Printf("  %s %s -> %s [%s]\n", m.CommitSha, m.TaskText, m.Action, m.Confidence)
		}
		return x.ApplySync(result.Matches)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move completed tasks into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		result := workflow.ParseArchiveResponse(raw)
		if !result.Success {
			return fmt.Errorf("response did not parse as an archive-completed result")
		}
		return x.ApplyArchive(cmd.Context(), result.Candidates)
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add AI-suggested context to existing tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		result := workflow.ParseEnrichResponse(raw)
		if !result.Success {
			return fmt.Errorf("response did not parse as an enrich-tasks result")
		}
		return x.ApplyEnrich(result.Suggestions)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Insert proposed roadmap slices",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		result := workflow.ParsePlanResponse(raw)
		if !result.Success {
			return fmt.Errorf("response did not parse as a plan-work result")
		}
		return x.ApplyPlan(result.Slices)
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote tasks from Next into Now",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		result := workflow.ParsePromoteResponse(raw)
		if !result.Success {
			return fmt.Errorf("response did not parse as a promote-next result")
		}
		return x.ApplyPromote(result.Candidates)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize plan documents from an AI project summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readResponse()
		if err != nil {
			return err
		}
		x, w, err := newExecutor()
		if err != nil {
			return err
		}
		defer w.Close()

		docs := workflow.ParseInitSummary(raw)
		if docs == nil {
			return fmt.Errorf("response did not parse as an init-from-summary result")
		}
		return x.WriteInitDocuments(docs)
	},
}

func init() {
	for _, c := range []*cobra.Command{syncCmd, archiveCmd, enrichCmd, planCmd, promoteCmd, initCmd} {
		addResponseFlag(c)
	}
}
