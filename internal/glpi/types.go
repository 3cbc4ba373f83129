package glpi

import (
	"fmt"
	"strings"
)

// TicketType enumerates the GLPI ticket kinds.
type TicketType int

const (
	TypeIncident TicketType = 1
	TypeRequest  TicketType = 2
)

func (t TicketType) String() string {
	switch t {
	case TypeIncident:
		return "Incident"
	case TypeRequest:
		return "Demande"
	default:
		return fmt.Sprintf("TicketType(%d)", int(t))
	}
}

// Ticket status values as stored by GLPI. Only the open/closed transition is
// driven by this tool.
const (
	StatusOpen   = 1
	StatusClosed = 6
)

// DirectoryUser is a requester record held by the GLPI directory.
type DirectoryUser struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	RealName  string `json:"realname"`
	FirstName string `json:"firstname"`
	EntityID  int    `json:"entities_id"`
}

// Matches reports whether term is a case-insensitive substring of any of the
// user's name fields.
func (u DirectoryUser) Matches(term string) bool {
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(u.Name), t) ||
		strings.Contains(strings.ToLower(u.RealName), t) ||
		strings.Contains(strings.ToLower(u.FirstName), t)
}

// Label renders the user for a disambiguation listing.
func (u DirectoryUser) Label() string {
	parts := []string{fmt.Sprintf("ID: %d", u.ID)}
	if u.Name != "" {
		parts = append(parts, "Nom: "+u.Name)
	}
	if u.FirstName != "" {
		parts = append(parts, "Prénom: "+u.FirstName)
	}
	if u.RealName != "" {
		parts = append(parts, "Nom complet: "+u.RealName)
	}
	return strings.Join(parts, " - ")
}

// Entity is an organizational unit node in the GLPI hierarchy.
type Entity struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	CompleteName string `json:"completename"`
}

// Category is an ITIL category catalog entry.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TicketInput is the field set submitted to POST /Ticket, wrapped in the
// API's {"input": ...} envelope by the session.
type TicketInput struct {
	Title       string     `json:"name"`
	Content     string     `json:"content"`
	EntityID    int        `json:"entities_id"`
	Type        TicketType `json:"type"`
	Status      int        `json:"status"`
	AssigneeID  int        `json:"_users_id_assign"`
	RequesterID int        `json:"_users_id_requester,omitempty"`
	CategoryID  int        `json:"itilcategories_id,omitempty"`
}
