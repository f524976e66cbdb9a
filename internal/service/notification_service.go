package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/safe2go/support-import/internal/config"
	"github.com/safe2go/support-import/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	forwarder *events.Forwarder
	logger    *zap.Logger
	cfg       config.NotificationConfig
}

// NewNotificationService creates the service. forwarder may be nil when no
// broker is configured.
func NewNotificationService(forwarder *events.Forwarder, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		forwarder: forwarder,
		logger:    logger,
		cfg:       cfg,
	}
}

// EventTypes lists the events Handle reacts to.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{events.EventTicketImported, events.EventImportCompleted}
}

// Handle notifies about one event. Unknown event types are ignored.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketImported:
		return n.handleTicketImported(ctx, event)
	case events.EventImportCompleted:
		return n.handleImportCompleted(ctx, event)
	}
	return nil
}

func (n *NotificationService) handleTicketImported(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketImported",
		zap.String("import_id", event.ImportID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return n.forwarder.Handle(ctx, event)
}

func (n *NotificationService) handleImportCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("ImportCompleted",
		zap.String("import_id", event.ImportID),
		zap.String("operator", event.Actor.Name),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return n.forwarder.Handle(ctx, event)
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("import_id", event.ImportID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("import_id", event.ImportID),
		zap.String("event_type", string(event.Type)))
}
