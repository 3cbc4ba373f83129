package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventSolutionAttached EventType = "solution_attached"
	EventTicketClosed     EventType = "ticket_closed"
)

// Event represents a workflow milestone emitted after a successful GLPI
// write.
type Event struct {
	ID        string
	Type      EventType
	TicketID  int
	Timestamp time.Time
	Payload   any
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType EventType, ticketID int, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string
	EntityID int
	Type     string
}

// SolutionAttachedPayload payload.
type SolutionAttachedPayload struct {
	Accepted bool
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Status int
}
