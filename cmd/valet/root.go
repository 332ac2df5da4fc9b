package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"valet/internal/ai"
	"valet/internal/config"
	"valet/internal/logging"
	"valet/internal/vault"
	"valet/internal/workflow"
)

var (
	flagVault string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "valet",
	Short: "AI-assisted project planning companion",
	Long: `valet drives a guided planning conversation that turns a vague project
idea into markdown plan documents, and keeps those documents in sync with
work actually done.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagVault)
		if err != nil {
			return err
		}
		return logging.Initialize(flagVault, cfg.Logging.DebugMode, cfg.Logging.Level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", ".", "vault directory holding the plan documents")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(initCmd)
}

// newCollaborator builds the AI collaborator from config. Returning the
// interface keeps the rest of cmd off the concrete client.
func newCollaborator(ctx context.Context) (ai.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set VALET_API_KEY or llm.api_key in .valet/config.json")
	}
	return ai.NewGemini(ctx, cfg.LLM.APIKey)
}

// newExecutor opens the vault and binds a workflow executor to it, wiring
// the watcher so external edits invalidate cached summaries.
func newExecutor() (*workflow.Executor, *vault.Watcher, error) {
	v, err := vault.Open(flagVault)
	if err != nil {
		return nil, nil, err
	}
	x := workflow.NewExecutor(v, cfg.Vault)
	w, err := v.Watch(x.InvalidateDocument)
	if err != nil {
		return nil, nil, err
	}
	return x, w, nil
}
