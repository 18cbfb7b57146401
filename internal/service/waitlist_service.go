package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"lifestyle-api/internal/metrics"
	"lifestyle-api/internal/models"
	"lifestyle-api/internal/util"
)

const countTimeout = 5 * time.Second

type WaitlistService struct {
	store  WaitlistStore
	limit  limitCheck
	notify notifier
	logger *zap.Logger
	group  singleflight.Group
}

func NewWaitlistService(
	store WaitlistStore,
	limiter RateLimiter,
	joinRule LimitRule,
	events EventPublisher,
	logger *zap.Logger,
) *WaitlistService {
	return &WaitlistService{
		store:  store,
		limit:  limitCheck{limiter: limiter, rule: joinRule, scope: "waitlist", logger: logger},
		notify: newNotifier(events, nil, logger),
		logger: logger,
	}
}

// Join records email once. created is false when it was already present.
func (s *WaitlistService) Join(ctx context.Context, email string, meta RequestMeta) (bool, error) {
	email = util.NormalizeEmail(email)
	if !util.IsValidEmail(email) {
		metrics.WaitlistJoins.WithLabelValues("invalid").Inc()
		return false, newValidationError("email", "Invalid email address")
	}

	if err := s.limit.allow(ctx, meta.IPAddress); err != nil {
		return false, err
	}

	created, err := s.store.InsertIfAbsent(ctx, email)
	if err != nil {
		s.logger.Error("Failed to insert waitlist entry", util.Email("email", email), zap.Error(err))
		return false, fmt.Errorf("%w: waitlist insert: %v", ErrInternal, err)
	}

	if !created {
		metrics.WaitlistJoins.WithLabelValues("duplicate").Inc()
		return false, nil
	}

	metrics.WaitlistJoins.WithLabelValues("created").Inc()
	s.notify.publish(ctx, models.DomainEventWaitlistJoined, email, map[string]interface{}{
		"joinedAt": time.Now().UTC(),
	})
	s.logger.Info("Waitlist entry created", util.Email("email", email))
	return true, nil
}

// Count reports the number of entries, or 0 when the store is unavailable.
// Concurrent callers share one query.
func (s *WaitlistService) Count(ctx context.Context) int64 {
	v, err, _ := s.group.Do("count", func() (interface{}, error) {
		// Shared by every waiting caller, so one caller's cancellation must not end it
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), countTimeout)
		defer cancel()
		return s.store.Count(qctx)
	})
	if err != nil {
		s.logger.Warn("Waitlist count unavailable, reporting zero", zap.Error(err))
		return 0
	}
	return v.(int64)
}
