package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/events"
)

// Notifier mirrors workflow milestones into the structured log, giving the
// log file an audit trail of every GLPI write performed during the run.
type Notifier struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotifier creates the notifier.
func NewNotifier(dispatcher events.Dispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes the notifier to the event stream.
func (n *Notifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(n.handle)
}

func (n *Notifier) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
