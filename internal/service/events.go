package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifestyle-api/internal/models"
)

const sideEffectTimeout = 2 * time.Second

// NopPublisher is used when no event stream is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.DomainEvent) error { return nil }

// NopAuditSink is used when no audit store is configured
type NopAuditSink struct{}

func (NopAuditSink) RecordSecurityEvent(context.Context, models.SecurityEvent, string) error {
	return nil
}

// notifier sends best-effort events. Failures are logged and dropped;
// the request context's cancellation does not abort them.
type notifier struct {
	events EventPublisher
	audit  AuditSink
	logger *zap.Logger
	now    func() time.Time
}

func newNotifier(events EventPublisher, audit AuditSink, logger *zap.Logger) notifier {
	if events == nil {
		events = NopPublisher{}
	}
	if audit == nil {
		audit = NopAuditSink{}
	}
	return notifier{events: events, audit: audit, logger: logger, now: time.Now}
}

func (n notifier) publish(ctx context.Context, eventType, key string, payload map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	event := models.DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: n.now().UTC(),
		Payload:    payload,
	}
	if err := n.events.Publish(ctx, event); err != nil {
		n.logger.Warn("Failed to publish domain event",
			zap.String("type", eventType),
			zap.Error(err))
	}
}

func (n notifier) record(ctx context.Context, eventType models.SecurityEventType, userID, identifier string, meta RequestMeta) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	event := models.SecurityEvent{
		UserID:    userID,
		EventType: eventType,
		EventTime: n.now().UTC(),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := n.audit.RecordSecurityEvent(ctx, event, identifier); err != nil {
		n.logger.Warn("Failed to record security event",
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
