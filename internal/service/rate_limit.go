package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lifestyle-api/internal/metrics"
)

// LimitRule is a fixed-window allowance for one scope
type LimitRule struct {
	Limit  int
	Window time.Duration
}

type limitCheck struct {
	limiter RateLimiter
	rule    LimitRule
	scope   string
	logger  *zap.Logger
}

// allow fails open: a limiter error is logged and the request proceeds
func (c limitCheck) allow(ctx context.Context, key string) error {
	if c.limiter == nil || c.rule.Limit <= 0 {
		return nil
	}

	ok, retryAfter, err := c.limiter.Allow(ctx, c.scope+":"+key, c.rule.Limit, c.rule.Window)
	if err != nil {
		c.logger.Warn("Rate limiter unavailable, allowing request",
			zap.String("scope", c.scope),
			zap.Error(err))
		return nil
	}
	if !ok {
		metrics.RateLimited.WithLabelValues(c.scope).Inc()
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}
