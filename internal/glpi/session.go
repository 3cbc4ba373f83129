package glpi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	apperrors "github.com/Adjenz/perplexity-glpi-ticket/pkg/util"
)

// searchRange caps bulk directory and catalog fetches.
const searchRange = "0-1000"

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// errNotAuthenticated signals a programming-contract violation: the
// orchestrator called an operation outside the Authenticated state.
var errNotAuthenticated = apperrors.NewDomainError(apperrors.CodeAuth, "glpi session is not authenticated", nil)

// Session owns one authenticated GLPI run: the session token, and the
// entity/category catalogs cached for the session's lifetime. It is not safe
// for concurrent use; the workflow drives it from a single goroutine.
type Session struct {
	cfg    config.GLPIConfig
	client *http.Client
	logger *zap.Logger

	state      sessionState
	token      string
	entities   map[int]Entity
	categories map[int]Category
}

// NewSession creates an unauthenticated session against the configured GLPI
// instance.
func NewSession(cfg config.GLPIConfig, logger *zap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

// Authenticate exchanges the static app/user tokens for a session token.
// Failure is fatal to the run: nothing else can be attempted without a
// token.
func (s *Session) Authenticate(ctx context.Context) error {
	if s.state != stateUnauthenticated {
		return errNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"/initSession", nil)
	if err != nil {
		return apperrors.NewAuthError("build initSession request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "user_token "+s.cfg.UserToken)
	req.Header.Set("App-Token", s.cfg.AppToken)

	s.logger.Info("initialisation de la session GLPI")
	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewAuthError("initSession", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewAuthError(fmt.Sprintf("initSession returned %s", resp.Status), nil)
	}

	var payload struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return apperrors.NewAuthError("decode initSession response", err)
	}
	if payload.SessionToken == "" {
		return apperrors.NewAuthError("initSession response carries no session_token", nil)
	}

	s.token = payload.SessionToken
	s.state = stateAuthenticated
	s.logger.Info("authentification GLPI réussie")
	return nil
}

// Close terminates the session. Best effort: failures are logged and never
// escalated, and calling Close on an already-closed or never-authenticated
// session is a no-op with no network traffic.
func (s *Session) Close(ctx context.Context) {
	if s.state != stateAuthenticated {
		return
	}
	s.state = stateClosed

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"/killSession", nil)
	if err != nil {
		s.logger.Warn("fermeture de session", zap.Error(err))
		return
	}
	s.setHeaders(req)

	s.logger.Info("fermeture de la session GLPI")
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("erreur lors de la fermeture de session", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("erreur lors de la fermeture de session", zap.String("status", resp.Status))
		return
	}
	s.logger.Info("session GLPI fermée")
}

// SearchUsers fetches the requester-flagged directory entries and filters
// them client-side by case-insensitive substring match against the name,
// real-name and first-name fields. An empty slice with a nil error means "no
// match"; a non-nil error means the directory could not be consulted at all.
func (s *Session) SearchUsers(ctx context.Context, term string) ([]DirectoryUser, error) {
	if s.state != stateAuthenticated {
		return nil, errNotAuthenticated
	}

	query := url.Values{}
	query.Set("is_requester", "true")
	query.Set("range", searchRange)

	var users []DirectoryUser
	if err := s.get(ctx, "/User?"+query.Encode(), &users); err != nil {
		s.logger.Error("recherche d'utilisateurs", zap.String("term", term), zap.Error(err))
		return nil, err
	}

	var matching []DirectoryUser
	for _, u := range users {
		if u.Matches(term) {
			matching = append(matching, u)
		}
	}
	if len(matching) == 0 {
		s.logger.Warn("aucun utilisateur ne correspond", zap.String("term", term))
	} else {
		s.logger.Info("utilisateurs trouvés", zap.String("term", term), zap.Int("count", len(matching)))
	}
	return matching, nil
}

// LoadEntities returns the full entity catalog, fetching it on first use and
// caching it for the session's lifetime. A fetch failure degrades to an
// empty map; the workflow falls back to the default entity.
func (s *Session) LoadEntities(ctx context.Context) map[int]Entity {
	if s.entities != nil {
		return s.entities
	}
	if s.state != stateAuthenticated {
		s.logger.Warn("chargement des entités sans session authentifiée")
		return map[int]Entity{}
	}

	var entities []Entity
	if err := s.get(ctx, "/Entity?range="+searchRange, &entities); err != nil {
		s.logger.Error("chargement des entités", zap.Error(err))
		return map[int]Entity{}
	}

	s.entities = make(map[int]Entity, len(entities))
	for _, e := range entities {
		s.entities[e.ID] = e
	}
	s.logger.Info("entités chargées", zap.Int("count", len(s.entities)))
	return s.entities
}

// LoadCategories returns the ITIL category catalog, with the same caching
// and degradation policy as LoadEntities.
func (s *Session) LoadCategories(ctx context.Context) map[int]Category {
	if s.categories != nil {
		return s.categories
	}
	if s.state != stateAuthenticated {
		s.logger.Warn("chargement des catégories sans session authentifiée")
		return map[int]Category{}
	}

	var categories []Category
	if err := s.get(ctx, "/ITILCategory", &categories); err != nil {
		s.logger.Error("chargement des catégories", zap.Error(err))
		return map[int]Category{}
	}

	s.categories = make(map[int]Category, len(categories))
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	s.logger.Info("catégories chargées", zap.Int("count", len(s.categories)))
	return s.categories
}

// ResolveUserEntity looks up the entity bound to the user's directory
// record. The second return is false when the record carries no binding or
// cannot be fetched; the caller falls back to the name heuristic.
func (s *Session) ResolveUserEntity(ctx context.Context, userID int) (int, bool) {
	if s.state != stateAuthenticated {
		return 0, false
	}

	var user DirectoryUser
	if err := s.get(ctx, fmt.Sprintf("/User/%d", userID), &user); err != nil {
		s.logger.Warn("lecture de l'entité de l'utilisateur", zap.Int("user_id", userID), zap.Error(err))
		return 0, false
	}
	if user.EntityID == 0 {
		return 0, false
	}
	s.logger.Info("entité trouvée directement pour l'utilisateur",
		zap.Int("user_id", userID), zap.Int("entity_id", user.EntityID))
	return user.EntityID, true
}

// CreateTicket submits the ticket and returns the server-assigned id. GLPI
// answers with either a single object or a one-element array; both shapes
// are accepted.
func (s *Session) CreateTicket(ctx context.Context, input TicketInput) (int, error) {
	if s.state != stateAuthenticated {
		return 0, errNotAuthenticated
	}

	s.logger.Info("création du ticket dans GLPI", zap.String("title", input.Title))
	body, err := s.post(ctx, "/Ticket", map[string]any{"input": input})
	if err != nil {
		s.logger.Error("création du ticket", zap.Error(err))
		return 0, err
	}

	id, ok := decodeCreatedID(body)
	if !ok {
		s.logger.Error("réponse inattendue lors de la création", zap.ByteString("body", body))
		return 0, apperrors.NewResponseShapeError("ticket creation response carries no id")
	}
	s.logger.Info("ticket créé", zap.Int("ticket_id", id))
	return id, nil
}

// AttachSolution records a solution on the ticket via ITILSolution.
func (s *Session) AttachSolution(ctx context.Context, ticketID int, content string) error {
	if s.state != stateAuthenticated {
		return errNotAuthenticated
	}

	input := map[string]any{
		"itemtype":        "Ticket",
		"items_id":        ticketID,
		"content":         content,
		"solutiontype_id": 1,
	}
	s.logger.Info("ajout de solution au ticket", zap.Int("ticket_id", ticketID))
	if _, err := s.post(ctx, "/ITILSolution", map[string]any{"input": input}); err != nil {
		s.logger.Error("ajout de solution", zap.Int("ticket_id", ticketID), zap.Error(err))
		return err
	}
	s.logger.Info("solution ajoutée")
	return nil
}

// SetStatus updates the ticket status (StatusClosed for closure).
func (s *Session) SetStatus(ctx context.Context, ticketID, status int) error {
	if s.state != stateAuthenticated {
		return errNotAuthenticated
	}

	payload, err := json.Marshal(map[string]any{"input": map[string]int{"status": status}})
	if err != nil {
		return apperrors.NewTransportError("encode status payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/Ticket/%d", s.cfg.APIURL, ticketID), bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewTransportError("build status request", err)
	}
	s.setHeaders(req)

	s.logger.Info("mise à jour du statut du ticket",
		zap.Int("ticket_id", ticketID), zap.Int("status", status))
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("mise à jour du statut", zap.Error(err))
		return apperrors.NewTransportError("update ticket status", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("mise à jour du statut",
			zap.String("status", resp.Status), zap.ByteString("body", body))
		return apperrors.NewTransportError(fmt.Sprintf("update ticket status returned %s", resp.Status), nil)
	}
	s.logger.Info("statut mis à jour")
	return nil
}

func (s *Session) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Session-Token", s.token)
	req.Header.Set("App-Token", s.cfg.AppToken)
}

// get issues an authenticated GET and decodes the JSON body into out.
// 206 Partial Content is a success for range queries.
func (s *Session) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+path, nil)
	if err != nil {
		return apperrors.NewTransportError("build request", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewTransportError("GET "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return apperrors.NewTransportError(fmt.Sprintf("GET %s returned %s", path, resp.Status), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewResponseShapeError(fmt.Sprintf("GET %s: %v", path, err))
	}
	return nil
}

// post issues an authenticated POST and returns the raw response body.
func (s *Session) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewTransportError("encode payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperrors.NewTransportError("build request", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError("POST "+path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, apperrors.NewTransportError(fmt.Sprintf("POST %s returned %s: %s", path, resp.Status, body), nil)
	}
	return body, nil
}

// decodeCreatedID extracts the id from a creation response, accepting both
// the single-object and one-element-array shapes GLPI produces.
func decodeCreatedID(body []byte) (int, bool) {
	var obj struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.ID != 0 {
		return obj.ID, true
	}
	var list []struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].ID != 0 {
		return list[0].ID, true
	}
	return 0, false
}
