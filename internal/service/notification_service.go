package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldserve/fieldserve/internal/config"
	"github.com/fieldserve/fieldserve/internal/events"
)

// NotificationService handles emitting notifications for lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleEvent)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleEvent)
	n.dispatcher.Subscribe(events.EventPathSelected, n.handleEvent)
	n.dispatcher.Subscribe(events.EventCustodyRecorded, n.handleEvent)
	n.dispatcher.Subscribe(events.EventWarrantyDecided, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("notification",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor", event.Actor.Name))
	n.sendEmailStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
