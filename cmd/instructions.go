package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/reformulate"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/workflow"
)

var instructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Configuration des instructions de reformulation IA",
	RunE:  runInstructions,
}

func runInstructions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := reformulate.NewInstructionStore(reformulate.DefaultInstructionsFile, logger)

	// The test menu entry needs a live gateway; editing works without one.
	var gateway *reformulate.Gateway
	if cfg.Perplexity.APIKey != "" {
		gateway = reformulate.NewGateway(cfg.Perplexity, store, logger)
	}

	editor := reformulate.NewEditor(store, gateway, prompt.New(os.Stdin, os.Stdout))
	if err := editor.Run(ctx); err != nil {
		if err == io.EOF {
			return workflow.ErrInterrupted
		}
		return err
	}
	return nil
}
