package workflow

import (
	"fmt"
	"strings"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/glpi"
	"github.com/Adjenz/perplexity-glpi-ticket/internal/validate"
	apperrors "github.com/Adjenz/perplexity-glpi-ticket/pkg/util"
)

// emailNotProvided is the marker stored in the ticket body when the
// operator left the email field empty.
const emailNotProvided = "Non renseigné"

// TicketDraft carries everything the operator entered before submission
// begins. It is collected once per run and never mutated afterwards.
type TicketDraft struct {
	Title          string
	CallerName     string
	Phone          string
	SerialNumber   string
	Email          string
	Description    string
	RequesterQuery string
	Type           glpi.TicketType
}

// Validate checks the draft invariant: required fields non-empty, optional
// fields well formed. Interactive collection re-prompts on each field, so a
// failure here means a programming error in a non-interactive caller.
func (d TicketDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return apperrors.NewValidationError("title must not be empty")
	}
	if strings.TrimSpace(d.CallerName) == "" {
		return apperrors.NewValidationError("caller name must not be empty")
	}
	if !validate.Phone(d.Phone) {
		return apperrors.NewValidationError("phone number is not a valid national number")
	}
	if !validate.Serial(d.SerialNumber) {
		return apperrors.NewValidationError("serial number contains invalid characters")
	}
	if !validate.Email(d.Email) {
		return apperrors.NewValidationError("email address is malformed")
	}
	if strings.TrimSpace(d.Description) == "" {
		return apperrors.NewValidationError("description must not be empty")
	}
	if strings.TrimSpace(d.RequesterQuery) == "" {
		return apperrors.NewValidationError("requester query must not be empty")
	}
	if d.Type != glpi.TypeIncident && d.Type != glpi.TypeRequest {
		return apperrors.NewValidationError("ticket type must be incident or request")
	}
	return nil
}

// ComposeBody renders the stored ticket content: one labeled line per
// contact field in fixed order, the serial line only when present, then the
// approved description. clientName is the resolved directory name, or the
// raw requester query when no directory match was bound.
func ComposeBody(draft TicketDraft, clientName, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Nom du client : %s\n", clientName)
	fmt.Fprintf(&b, "👤 Nom de l'appelant : %s\n", draft.CallerName)
	fmt.Fprintf(&b, "📱 Numéro de téléphone : %s", draft.Phone)
	if draft.SerialNumber != "" {
		fmt.Fprintf(&b, "\n🖨️ Numéro de série du copieur : %s", draft.SerialNumber)
	}
	email := draft.Email
	if email == "" {
		email = emailNotProvided
	}
	fmt.Fprintf(&b, "\n📧 E-mail : %s", email)
	fmt.Fprintf(&b, "\n\n📝 Description de l'incident :\n%s", description)
	return b.String()
}
