package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/events"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/glpi"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/observability"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/reformulate"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:           "glpi-ticket",
	Short:         "Création interactive de tickets GLPI avec reformulation IA",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCreate,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(instructionsCmd)
}

// newLogger builds the run logger with a fresh correlation id.
func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration incomplète", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := reformulate.NewInstructionStore(reformulate.DefaultInstructionsFile, logger)
	dispatcher := events.NewDispatcher()
	workflow.NewNotifier(dispatcher, logger).RegisterHandlers()

	wf := workflow.New(workflow.Dependencies{
		Session:    glpi.NewSession(cfg.GLPI, logger),
		Rewriter:   reformulate.NewGateway(cfg.Perplexity, store, logger),
		Resolver:   glpi.NewEntityResolver(cfg.Workflow.PriorityEntities, logger),
		Dispatcher: dispatcher,
		Prompter:   prompt.New(os.Stdin, os.Stdout),
		Logger:     logger,
		Config:     cfg.Workflow,
	})
	return wf.Run(ctx)
}
