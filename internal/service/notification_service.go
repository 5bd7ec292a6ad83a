package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
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
	n.dispatcher.Subscribe(events.EventIncidentCreated, n.handleIncidentCreated)
	n.dispatcher.Subscribe(events.EventIncidentUpdated, n.handleIncidentUpdated)
	n.dispatcher.Subscribe(events.EventIncidentAssigned, n.handleIncidentAssigned)
	n.dispatcher.Subscribe(events.EventIncidentClosed, n.handleIncidentClosed)
	n.dispatcher.Subscribe(events.EventIncidentCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentCreated", zap.String("incident_id", event.IncidentID.String()), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIncidentUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentUpdated", zap.String("incident_id", event.IncidentID.String()), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIncidentAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentAssigned", zap.String("incident_id", event.IncidentID.String()), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIncidentClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentClosed", zap.String("incident_id", event.IncidentID.String()), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentCommentAdded", zap.String("incident_id", event.IncidentID.String()), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("incident_id", event.IncidentID.String()),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("incident_id", event.IncidentID.String()),
		zap.String("event_type", string(event.Type)))
}
