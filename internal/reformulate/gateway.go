// Package reformulate wraps the Perplexity chat-completion API used to
// rewrite operator-entered free text. Rewrites are best effort: any failure
// hands back the original text so ticket creation is never blocked.
package reformulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
)

// rewriteTemperature keeps generation near-deterministic so repeated calls
// on identical input are stable.
const rewriteTemperature = 0.05

// Gateway issues single-attempt rewrite calls against the configured
// chat-completion endpoint.
type Gateway struct {
	cfg    config.PerplexityConfig
	client *http.Client
	logger *zap.Logger
	store  *InstructionStore
}

// NewGateway creates a gateway using the instruction profiles in store.
func NewGateway(cfg config.PerplexityConfig, store *InstructionStore, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
		store:  store,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Rewrite sends text through the rewrite instruction for kind and returns
// the result. An unknown kind is a programmer error and returns an error;
// every runtime failure (transport, non-2xx, malformed body) is logged and
// yields the original text unchanged.
func (g *Gateway) Rewrite(ctx context.Context, text string, kind FieldKind) (string, error) {
	instruction, ok := g.store.Get(kind)
	if !ok {
		return "", fmt.Errorf("unknown reformulation field kind %q", kind)
	}

	payload := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
		Temperature: rewriteTemperature,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("encodage de la requête de reformulation", zap.Error(err))
		return text, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(encoded))
	if err != nil {
		g.logger.Error("construction de la requête de reformulation", zap.Error(err))
		return text, nil
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	g.logger.Info("reformulation via Perplexity", zap.String("field", string(kind)))
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("erreur lors de la reformulation", zap.String("field", string(kind)), zap.Error(err))
		return text, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		g.logger.Error("la reformulation a échoué",
			zap.String("field", string(kind)), zap.String("status", resp.Status))
		return text, nil
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		g.logger.Error("réponse de reformulation illisible", zap.Error(err))
		return text, nil
	}
	if len(decoded.Choices) == 0 {
		g.logger.Error("réponse de reformulation sans résultat")
		return text, nil
	}

	rewritten := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if rewritten == "" {
		g.logger.Error("réponse de reformulation vide")
		return text, nil
	}
	g.logger.Info("reformulation réussie", zap.String("field", string(kind)))
	return rewritten, nil
}

// Ping issues a minimal completion request to verify the endpoint and
// credentials, without touching the instruction profiles.
func (g *Gateway) Ping(ctx context.Context) error {
	payload := chatRequest{
		Model:       g.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: "Test"}},
		Temperature: rewriteTemperature,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("perplexity replied %s", resp.Status)
	}
	return nil
}
