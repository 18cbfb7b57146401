package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifestyle-api/internal/metrics"
	"lifestyle-api/internal/models"
	"lifestyle-api/internal/session"
)

type SubscriptionStatus struct {
	Tier        models.MembershipTier `json:"tier"`
	Active      bool                  `json:"active"`
	ExpiresDate *string               `json:"expiresDate"`
}

type SubscriptionService struct {
	appStore ReceiptClient
	notify   notifier
	logger   *zap.Logger
}

func NewSubscriptionService(appStore ReceiptClient, events EventPublisher, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		appStore: appStore,
		notify:   newNotifier(events, nil, logger),
		logger:   logger,
	}
}

// Verify checks a purchase receipt with its platform. The verified state is
// returned to the caller only; nothing is persisted.
func (s *SubscriptionService) Verify(ctx context.Context, userID string, receipt models.PurchaseReceipt) (*models.ReceiptVerification, error) {
	if receipt.Platform == "" || receipt.Receipt == "" || receipt.ProductID == "" {
		return nil, newValidationError("receipt", "Missing required fields")
	}

	switch receipt.Platform {
	case models.PlatformIOS:
		return s.verifyIOS(ctx, userID, receipt)
	case models.PlatformAndroid:
		metrics.ReceiptVerifications.WithLabelValues("android", "not_implemented").Inc()
		return nil, &NotImplementedError{Message: "Android receipt validation is not implemented"}
	default:
		metrics.ReceiptVerifications.WithLabelValues("other", "unsupported").Inc()
		return nil, ErrUnsupportedPlatform
	}
}

func (s *SubscriptionService) verifyIOS(ctx context.Context, userID string, receipt models.PurchaseReceipt) (*models.ReceiptVerification, error) {
	resp, err := s.appStore.VerifyReceipt(ctx, receipt.Receipt)
	if err != nil {
		metrics.ReceiptVerifications.WithLabelValues("ios", "error").Inc()
		s.logger.Error("App Store verification failed",
			zap.String("user_id", userID),
			zap.String("product_id", receipt.ProductID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: app store: %v", ErrInternal, err)
	}

	if resp.Status != 0 {
		metrics.ReceiptVerifications.WithLabelValues("ios", "invalid").Inc()
		s.logger.Info("App Store rejected receipt",
			zap.String("user_id", userID),
			zap.Int("status", resp.Status))
		return nil, &InvalidReceiptError{Status: resp.Status}
	}

	result := &models.ReceiptVerification{
		Platform:  models.PlatformIOS,
		ProductID: receipt.ProductID,
	}
	if len(resp.LatestReceiptInfo) > 0 {
		result.ExpiresDate = resp.LatestReceiptInfo[0].ExpiresDateMs
	}

	metrics.ReceiptVerifications.WithLabelValues("ios", "valid").Inc()

	// TODO: persist to a subscriptions table (user_id, product_id, original_transaction_id, expires_at) and update membership_tier.
	s.logger.Warn("Subscription verified but not persisted",
		zap.String("user_id", userID),
		zap.String("product_id", receipt.ProductID),
		zap.String("environment", resp.Environment))

	s.notify.publish(ctx, models.DomainEventSubscriptionVerified, userID, map[string]interface{}{
		"userId":      userID,
		"platform":    string(result.Platform),
		"productId":   result.ProductID,
		"expiresDate": result.ExpiresDate,
	})
	return result, nil
}

// Status reports the tier carried by the session. Expiry is unknown
// until subscriptions are persisted.
func (s *SubscriptionService) Status(sess *session.Session) SubscriptionStatus {
	tier := sess.User.MembershipTier
	if !tier.Valid() {
		tier = models.TierFree
	}
	return SubscriptionStatus{
		Tier:   tier,
		Active: tier != models.TierFree,
	}
}
