package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/Adjenz/perplexity-glpi-ticket/pkg/util"
)

// Config aggregates runtime configuration for the tool.
type Config struct {
	GLPI       GLPIConfig
	Perplexity PerplexityConfig
	Logger     LoggerConfig
	Workflow   WorkflowConfig
}

// GLPIConfig holds the helpdesk API endpoint and credentials.
type GLPIConfig struct {
	APIURL         string
	AppToken       string
	UserToken      string
	TimeoutSeconds int
}

// PerplexityConfig holds the reformulation API settings.
type PerplexityConfig struct {
	APIKey         string
	APIURL         string
	Model          string
	TimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	File  string
}

// WorkflowConfig carries the operational defaults applied when GLPI
// resolution fails or the operator accepts a default.
type WorkflowConfig struct {
	DefaultEntityID     int
	DefaultTechnicianID int
	PriorityEntities    []string
}

// Load reads configuration from environment variables, applying defaults
// where possible. A .env file in the working directory is honored.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GLPI: GLPIConfig{
			APIURL:         getEnv("GLPI_API_URL", ""),
			AppToken:       os.Getenv("GLPI_APP_TOKEN"),
			UserToken:      os.Getenv("GLPI_USER_TOKEN"),
			TimeoutSeconds: getEnvAsInt("GLPI_TIMEOUT_SECONDS", 30),
		},
		Perplexity: PerplexityConfig{
			APIKey:         os.Getenv("PERPLEXITY_API_KEY"),
			APIURL:         getEnv("PERPLEXITY_API_URL", "https://api.perplexity.ai/chat/completions"),
			Model:          getEnv("PERPLEXITY_MODEL", "sonar-pro"),
			TimeoutSeconds: getEnvAsInt("PERPLEXITY_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "glpi_automation.log"),
		},
		Workflow: WorkflowConfig{
			DefaultEntityID:     getEnvAsInt("GLPI_DEFAULT_ENTITY_ID", 1),
			DefaultTechnicianID: getEnvAsInt("GLPI_DEFAULT_TECHNICIAN_ID", 233),
			PriorityEntities:    getEnvAsList("GLPI_PRIORITY_ENTITIES", defaultPriorityEntities),
		},
	}

	return cfg, nil
}

// defaultPriorityEntities encode the organizational convention for where
// client entities live in the GLPI tree, most specific first.
var defaultPriorityEntities = []string{
	"CLIENTS_HORS_CONTRAT",
	"CLIENTS_SOUS_CONTRAT",
	"COPIEUR",
}

// Validate checks that the credentials required before any network call are
// present.
func (c *Config) Validate() error {
	if c.GLPI.APIURL == "" {
		return apperrors.NewConfigError("GLPI_API_URL is required (run with the config command to set it)")
	}
	if c.GLPI.AppToken == "" || c.GLPI.UserToken == "" {
		return apperrors.NewConfigError("GLPI_APP_TOKEN and GLPI_USER_TOKEN are required (run with the config command to set them)")
	}
	if c.Perplexity.APIKey == "" {
		return apperrors.NewConfigError("PERPLEXITY_API_KEY is required (run with the config command to set it)")
	}
	return nil
}

// Timeout returns the bounded per-call timeout for GLPI requests.
func (g GLPIConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Timeout returns the bounded per-call timeout for reformulation requests.
func (p PerplexityConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// NormalizeGLPIURL completes a user-entered GLPI URL with the https scheme
// and the apirest.php suffix the REST API is served under.
func NormalizeGLPIURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return url
	}
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	if !strings.HasSuffix(url, "/apirest.php") {
		url = strings.TrimSuffix(url, "/") + "/apirest.php"
	}
	return url
}
