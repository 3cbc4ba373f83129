// Package setup implements the interactive credential wizard behind the
// config subcommand: it collects the GLPI and Perplexity credentials,
// writes them to .env, and smoke-tests both backends.
package setup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/glpi"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/reformulate"
)

// Wizard drives the interactive .env configuration.
type Wizard struct {
	prompt  *prompt.Prompter
	logger  *zap.Logger
	envPath string
}

// NewWizard creates a wizard writing to envPath (normally ".env").
func NewWizard(prompter *prompt.Prompter, logger *zap.Logger, envPath string) *Wizard {
	return &Wizard{prompt: prompter, logger: logger, envPath: envPath}
}

// Run collects the credentials, persists them, and reports connectivity.
func (w *Wizard) Run(ctx context.Context) error {
	w.prompt.Println("\n=== CONFIGURATION DU SCRIPT GLPI ===")

	notEmpty := func(s string) bool { return s != "" }

	rawURL, err := w.prompt.Line(
		"\nURL de l'API GLPI (ex: https://glpi.monentreprise.com/apirest.php):",
		"l'URL ne peut pas être vide", notEmpty)
	if err != nil {
		return err
	}
	apiURL := config.NormalizeGLPIURL(rawURL)

	appToken, err := w.prompt.Line("\nApp-Token GLPI:", "l'App-Token ne peut pas être vide", notEmpty)
	if err != nil {
		return err
	}
	userToken, err := w.prompt.Line("\nUser-Token GLPI:", "le User-Token ne peut pas être vide", notEmpty)
	if err != nil {
		return err
	}

	var apiKey string
	for {
		apiKey, err = w.prompt.Line("\nClé API Perplexity (ex: pplx-xxxxx):",
			"la clé ne peut pas être vide", notEmpty)
		if err != nil {
			return err
		}
		if strings.HasPrefix(apiKey, "pplx-") {
			break
		}
		keep, err := w.prompt.Confirm("⚠ La clé devrait commencer par 'pplx-', continuer quand même ?")
		if err != nil {
			return err
		}
		if keep {
			break
		}
	}

	if err := w.writeEnv(apiURL, appToken, userToken, apiKey); err != nil {
		return fmt.Errorf("sauvegarde de %s: %w", w.envPath, err)
	}
	w.prompt.Printf("\n✓ Configuration sauvegardée dans %s\n", w.envPath)

	w.prompt.Println("\nTest de la configuration...")
	w.testGLPI(ctx, config.GLPIConfig{APIURL: apiURL, AppToken: appToken, UserToken: userToken, TimeoutSeconds: 10})
	w.testPerplexity(ctx, config.PerplexityConfig{
		APIKey:         apiKey,
		APIURL:         "https://api.perplexity.ai/chat/completions",
		Model:          "sonar-pro",
		TimeoutSeconds: 10,
	})
	return nil
}

func (w *Wizard) writeEnv(apiURL, appToken, userToken, apiKey string) error {
	content := fmt.Sprintf(`# Configuration des API - GLPI et Perplexity
# Généré automatiquement le %s

# Configuration GLPI
GLPI_API_URL=%s
GLPI_APP_TOKEN=%s
GLPI_USER_TOKEN=%s

# Configuration Perplexity
PERPLEXITY_API_KEY=%s
`, time.Now().Format("2006-01-02 15:04:05"), apiURL, appToken, userToken, apiKey)

	return os.WriteFile(w.envPath, []byte(content), 0o600)
}

// testGLPI opens and immediately closes a session to prove the credentials
// work.
func (w *Wizard) testGLPI(ctx context.Context, cfg config.GLPIConfig) {
	session := glpi.NewSession(cfg, w.logger)
	if err := session.Authenticate(ctx); err != nil {
		w.prompt.Println("   ✗ Échec de la connexion GLPI")
		w.logger.Warn("test de connexion GLPI", zap.Error(err))
		return
	}
	session.Close(ctx)
	w.prompt.Println("   ✓ Connexion GLPI réussie")
}

func (w *Wizard) testPerplexity(ctx context.Context, cfg config.PerplexityConfig) {
	store := reformulate.NewInstructionStore(reformulate.DefaultInstructionsFile, w.logger)
	gateway := reformulate.NewGateway(cfg, store, w.logger)
	if err := gateway.Ping(ctx); err != nil {
		w.prompt.Println("   ✗ Échec de la connexion Perplexity")
		w.logger.Warn("test de connexion Perplexity", zap.Error(err))
		return
	}
	w.prompt.Println("   ✓ Connexion Perplexity réussie")
}
