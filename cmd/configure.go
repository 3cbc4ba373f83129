package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/setup"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/workflow"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration interactive des tokens GLPI et de la clé Perplexity",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
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

	wizard := setup.NewWizard(prompt.New(os.Stdin, os.Stdout), logger, ".env")
	if err := wizard.Run(ctx); err != nil {
		if err == io.EOF {
			return workflow.ErrInterrupted
		}
		return err
	}
	return nil
}
