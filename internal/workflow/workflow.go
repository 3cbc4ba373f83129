// Package workflow sequences one interactive ticket-creation run: operator
// input, requester and entity resolution, AI-assisted reformulation gated on
// operator approval, submission, and the optional solution/closure branch.
package workflow

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/events"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/glpi"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/prompt"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/reformulate"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/validate"
)

// ErrInterrupted reports that the operator aborted the run. The session is
// torn down normally and the process exits cleanly.
var ErrInterrupted = errors.New("run interrupted by operator")

// teardownTimeout bounds the killSession call issued during teardown, which
// must run even when the run context is already cancelled.
const teardownTimeout = 10 * time.Second

// Session is the authenticated helpdesk surface the workflow drives. It is
// satisfied by *glpi.Session and by test fakes.
type Session interface {
	Authenticate(ctx context.Context) error
	Close(ctx context.Context)
	SearchUsers(ctx context.Context, term string) ([]glpi.DirectoryUser, error)
	LoadEntities(ctx context.Context) map[int]glpi.Entity
	LoadCategories(ctx context.Context) map[int]glpi.Category
	ResolveUserEntity(ctx context.Context, userID int) (int, bool)
	CreateTicket(ctx context.Context, input glpi.TicketInput) (int, error)
	AttachSolution(ctx context.Context, ticketID int, content string) error
	SetStatus(ctx context.Context, ticketID, status int) error
}

// Rewriter is the best-effort text reformulation surface.
type Rewriter interface {
	Rewrite(ctx context.Context, text string, kind reformulate.FieldKind) (string, error)
}

// Dependencies bundles the workflow's collaborators.
type Dependencies struct {
	Session    Session
	Rewriter   Rewriter
	Resolver   *glpi.EntityResolver
	Dispatcher events.Dispatcher
	Prompter   *prompt.Prompter
	Logger     *zap.Logger
	Config     config.WorkflowConfig
}

// Workflow drives one ticket-creation run.
type Workflow struct {
	session    Session
	rewriter   Rewriter
	resolver   *glpi.EntityResolver
	dispatcher events.Dispatcher
	prompt     *prompt.Prompter
	logger     *zap.Logger
	cfg        config.WorkflowConfig
}

// New creates the workflow.
func New(deps Dependencies) *Workflow {
	return &Workflow{
		session:    deps.Session,
		rewriter:   deps.Rewriter,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		prompt:     deps.Prompter,
		logger:     deps.Logger,
		cfg:        deps.Config,
	}
}

// Run executes the full ticket-creation sequence. The session is torn down
// exactly once whatever the outcome, including operator interruption.
func (w *Workflow) Run(ctx context.Context) error {
	if err := w.session.Authenticate(ctx); err != nil {
		return err
	}
	defer func() {
		// The run context may already be cancelled; teardown gets its own
		// bounded context so the session is still released.
		closeCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		w.session.Close(closeCtx)
	}()

	w.session.LoadEntities(ctx)
	categories := w.session.LoadCategories(ctx)

	draft, err := w.collectDraft()
	if err != nil {
		return w.asInterrupt(err)
	}

	w.prompt.Println("\n=== RÉSUMÉ DES INFORMATIONS COLLECTÉES ===")
	w.prompt.Printf("Titre: %s\n", draft.Title)
	w.prompt.Printf("Appelant: %s\n", draft.CallerName)
	w.prompt.Printf("Demandeur recherché: %s\n", draft.RequesterQuery)
	w.prompt.Printf("Type: %s\n", draft.Type)

	requester, err := w.resolveRequester(ctx, draft)
	if err != nil {
		return w.asInterrupt(err)
	}

	technicianID, err := w.assignTechnician()
	if err != nil {
		return w.asInterrupt(err)
	}

	description, err := w.approveRewrite(ctx, draft.Description, reformulate.FieldDescription)
	if err != nil {
		return w.asInterrupt(err)
	}

	body := ComposeBody(draft, requester.clientName, description)
	w.prompt.Println("\n=== APERÇU DU TICKET FINAL ===")
	w.prompt.Println(body)

	input := glpi.TicketInput{
		Title:       draft.Title,
		Content:     body,
		EntityID:    requester.entityID,
		Type:        draft.Type,
		Status:      glpi.StatusOpen,
		AssigneeID:  technicianID,
		RequesterID: requester.userID,
	}

	categoryID, err := w.selectCategory(categories)
	if err != nil {
		return w.asInterrupt(err)
	}
	input.CategoryID = categoryID

	ticketID, err := w.session.CreateTicket(ctx, input)
	if err != nil {
		w.prompt.Println("✗ Échec de la création du ticket")
		return nil
	}
	w.prompt.Printf("\n✓ Ticket créé avec l'ID %d\n", ticketID)
	_ = w.dispatcher.Publish(ctx, events.NewEvent(events.EventTicketCreated, ticketID, events.TicketCreatedPayload{
		Title:    draft.Title,
		EntityID: requester.entityID,
		Type:     draft.Type.String(),
	}))

	if err := w.solutionBranch(ctx, ticketID); err != nil {
		return w.asInterrupt(err)
	}

	w.prompt.Printf("\n=== PROCESSUS TERMINÉ — Ticket ID: %d ===\n", ticketID)
	return nil
}

// asInterrupt maps prompt-source exhaustion and context cancellation onto
// the operator-interrupt outcome.
func (w *Workflow) asInterrupt(err error) error {
	if err == io.EOF || errors.Is(err, context.Canceled) {
		w.logger.Info("run interrompu par l'opérateur")
		return ErrInterrupted
	}
	return err
}

// collectDraft gathers and validates every ticket field. Required fields
// re-prompt until valid; optional fields accept empty input.
func (w *Workflow) collectDraft() (TicketDraft, error) {
	var draft TicketDraft
	var err error

	w.prompt.Println("\n=== COLLECTE DES INFORMATIONS DU TICKET ===")

	notEmpty := func(s string) bool { return s != "" }
	if draft.Title, err = w.prompt.Line("\n🎯 Titre du ticket:", "le titre ne peut pas être vide", notEmpty); err != nil {
		return draft, err
	}
	if draft.CallerName, err = w.prompt.Line("\n👤 Nom de l'appelant:", "le nom ne peut pas être vide", notEmpty); err != nil {
		return draft, err
	}
	if draft.Phone, err = w.prompt.Line("\n📱 Numéro de téléphone:", "format invalide (ex: 01 23 45 67 89)", validate.Phone); err != nil {
		return draft, err
	}
	if draft.SerialNumber, err = w.prompt.Line("\n🖨️ Numéro de série du copieur (optionnel):",
		"lettres, chiffres, tirets et underscores uniquement", validate.Serial); err != nil {
		return draft, err
	}
	if draft.Email, err = w.prompt.Line("\n📧 Adresse email (optionnelle):", "format d'email invalide", validate.Email); err != nil {
		return draft, err
	}
	for {
		if draft.Description, err = w.prompt.MultiLine("\n📝 Description du problème/incident:"); err != nil {
			return draft, err
		}
		if strings.TrimSpace(draft.Description) != "" {
			break
		}
		w.prompt.Println("   ✗ La description ne peut pas être vide")
	}
	if draft.RequesterQuery, err = w.prompt.Line("\n🏢 Nom du demandeur (utilisateur GLPI):",
		"le nom du demandeur ne peut pas être vide", notEmpty); err != nil {
		return draft, err
	}

	w.prompt.Println("\n🎫 Type de ticket:")
	w.prompt.Println("   1. Incident")
	w.prompt.Println("   2. Demande")
	kind, err := w.prompt.Line("   Votre choix (1-2):", "choix invalide", func(s string) bool {
		return s == "1" || s == "2"
	})
	if err != nil {
		return draft, err
	}
	if kind == "2" {
		draft.Type = glpi.TypeRequest
	} else {
		draft.Type = glpi.TypeIncident
	}

	return draft, nil
}

// requesterBinding is the outcome of requester resolution: the directory
// user (0 when unresolved), the display name stored in the ticket body, and
// the billing entity.
type requesterBinding struct {
	userID     int
	clientName string
	entityID   int
}

// resolveRequester searches the directory for the requester query and binds
// user, display name and entity. Zero matches and transport failures both
// degrade to the raw query string and the default entity; multiple matches
// ask the operator to disambiguate.
func (w *Workflow) resolveRequester(ctx context.Context, draft TicketDraft) (requesterBinding, error) {
	binding := requesterBinding{
		clientName: draft.RequesterQuery,
		entityID:   w.cfg.DefaultEntityID,
	}

	w.prompt.Println("\n=== RECHERCHE DE L'UTILISATEUR DANS GLPI ===")
	users, err := w.session.SearchUsers(ctx, draft.RequesterQuery)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return binding, err
		}
		w.prompt.Println("⚠ L'annuaire GLPI est injoignable, poursuite avec les valeurs par défaut")
		return binding, nil
	}

	switch len(users) {
	case 0:
		w.prompt.Printf("⚠ Utilisateur '%s' non trouvé, entité par défaut (ID: %d)\n",
			draft.RequesterQuery, w.cfg.DefaultEntityID)
		return binding, nil
	case 1:
		w.bindUser(ctx, &binding, users[0])
		return binding, nil
	default:
		w.prompt.Printf("Plusieurs utilisateurs trouvés (%d):\n", len(users))
		labels := make([]string, len(users))
		for i, u := range users {
			labels[i] = u.Label()
		}
		idx, err := w.prompt.Select("Choisir un utilisateur", labels)
		if err != nil {
			return binding, err
		}
		if idx < 0 {
			w.prompt.Printf("⚠ Aucune sélection, entité par défaut (ID: %d)\n", w.cfg.DefaultEntityID)
			return binding, nil
		}
		w.bindUser(ctx, &binding, users[idx])
		return binding, nil
	}
}

// bindUser fixes the requester id and upper-cased display name, then
// resolves the billing entity: the directory binding when present, the name
// heuristic otherwise, the default entity as last resort.
func (w *Workflow) bindUser(ctx context.Context, binding *requesterBinding, user glpi.DirectoryUser) {
	binding.userID = user.ID
	binding.clientName = strings.ToUpper(user.Name)
	w.prompt.Printf("✓ Utilisateur: %s (ID: %d)\n", user.Name, user.ID)

	if entityID, ok := w.session.ResolveUserEntity(ctx, user.ID); ok {
		binding.entityID = entityID
		return
	}
	entities := w.session.LoadEntities(ctx)
	if entityID, ok := w.resolver.Resolve(entities, user.Name); ok {
		binding.entityID = entityID
		return
	}
	binding.entityID = w.cfg.DefaultEntityID
	w.prompt.Printf("⚠ Utilisation de l'entité par défaut (ID: %d)\n", w.cfg.DefaultEntityID)
}

// assignTechnician asks for a technician id. Empty or non-numeric input
// falls back to the configured default. The id is not checked against the
// directory: the operator is trusted.
func (w *Workflow) assignTechnician() (int, error) {
	w.prompt.Println("\n=== ATTRIBUTION DU TECHNICIEN ===")
	entry, err := w.prompt.Line(
		"ID du technicien (vide pour le défaut):", "", nil)
	if err != nil {
		return 0, err
	}
	id, convErr := strconv.Atoi(entry)
	if entry == "" || convErr != nil || id <= 0 {
		w.prompt.Printf("✓ Technicien par défaut: ID %d\n", w.cfg.DefaultTechnicianID)
		return w.cfg.DefaultTechnicianID, nil
	}
	w.prompt.Printf("✓ Technicien sélectionné: ID %d\n", id)
	return id, nil
}

// approveRewrite runs the text through the reformulation gateway, shows
// both versions, and keeps the rewrite only on an explicit affirmative
// answer.
func (w *Workflow) approveRewrite(ctx context.Context, original string, kind reformulate.FieldKind) (string, error) {
	w.prompt.Printf("\n=== REFORMULATION IA (%s) ===\n", strings.ToUpper(string(kind)))
	rewritten, err := w.rewriter.Rewrite(ctx, original, kind)
	if err != nil {
		// Unknown field kind is a programming error; surface it.
		return "", err
	}

	w.prompt.Println("\n📝 Texte original:")
	w.prompt.Printf("   %s\n", original)
	w.prompt.Println("\n🤖 Texte reformulé:")
	w.prompt.Printf("   %s\n", rewritten)

	accepted, err := w.prompt.Confirm("\nAccepter la reformulation ?")
	if err != nil {
		return "", err
	}
	if accepted {
		w.prompt.Println("✓ Reformulation acceptée")
		return rewritten, nil
	}
	w.prompt.Println("⏹ Utilisation du texte original")
	return original, nil
}

// selectCategory lists the catalog (ascending id, so listings are stable)
// and lets the operator pick one or skip. Returns 0 when skipped or when
// the catalog is empty.
func (w *Workflow) selectCategory(categories map[int]glpi.Category) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}

	ids := make([]int, 0, len(categories))
	for id := range categories {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	w.prompt.Println("\n=== SÉLECTION DE CATÉGORIE (OPTIONNEL) ===")
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = categories[id].Name
	}
	idx, err := w.prompt.Select("Choisir une catégorie", labels)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		w.prompt.Println("⏩ Aucune catégorie sélectionnée")
		return 0, nil
	}
	w.prompt.Printf("✓ Catégorie sélectionnée: %s\n", labels[idx])
	return ids[idx], nil
}

// solutionBranch runs the optional post-creation steps: solution capture
// with its own reformulation gate, then optional closure. Failures are
// reported but never roll back the ticket already created.
func (w *Workflow) solutionBranch(ctx context.Context, ticketID int) error {
	w.prompt.Println("\n=== AJOUT D'UNE SOLUTION (OPTIONNEL) ===")
	wanted, err := w.prompt.Confirm("Voulez-vous ajouter une solution à ce ticket ?")
	if err != nil {
		return err
	}
	if !wanted {
		return nil
	}

	solution, err := w.prompt.MultiLine("\n💡 Saisissez la solution:")
	if err != nil {
		return err
	}
	if strings.TrimSpace(solution) == "" {
		w.prompt.Println("⏹ Solution vide, étape ignorée")
		return nil
	}

	finalSolution, err := w.approveRewrite(ctx, solution, reformulate.FieldSolution)
	if err != nil {
		return err
	}

	if err := w.session.AttachSolution(ctx, ticketID, finalSolution); err != nil {
		w.prompt.Println("✗ Échec de l'ajout de la solution")
		return nil
	}
	w.prompt.Println("✓ Solution ajoutée avec succès")
	_ = w.dispatcher.Publish(ctx, events.NewEvent(events.EventSolutionAttached, ticketID, events.SolutionAttachedPayload{
		Accepted: finalSolution != solution,
	}))

	closeIt, err := w.prompt.Confirm("\nVoulez-vous clôturer ce ticket ?")
	if err != nil {
		return err
	}
	if !closeIt {
		return nil
	}
	if err := w.session.SetStatus(ctx, ticketID, glpi.StatusClosed); err != nil {
		w.prompt.Println("✗ Échec de la clôture du ticket")
		return nil
	}
	w.prompt.Println("✓ Ticket clôturé avec succès")
	_ = w.dispatcher.Publish(ctx, events.NewEvent(events.EventTicketClosed, ticketID, events.TicketClosedPayload{
		Status: glpi.StatusClosed,
	}))
	return nil
}
