package service

import (
	"go.uber.org/zap"
)

// Dependencies are the collaborators shared by the services. Optional
// ones may be nil: Limiter disables rate limiting, Events and Audit fall
// back to no-ops.
type Dependencies struct {
	Users         UserStore
	Waitlist      WaitlistStore
	Hasher        PasswordHasher
	AppStore      ReceiptClient
	Profiles      ProfileSource
	Conversations ConversationStore
	Limiter       RateLimiter
	Events        EventPublisher
	Audit         AuditSink
	LoginRule     LimitRule
	WaitlistRule  LimitRule
}

// ServiceFactory creates and caches service instances
type ServiceFactory struct {
	deps   Dependencies
	logger *zap.Logger

	authService         *AuthService
	waitlistService     *WaitlistService
	subscriptionService *SubscriptionService
	discoverService     *DiscoverService
	messagingService    *MessagingService
}

func NewServiceFactory(deps Dependencies, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{deps: deps, logger: logger}
}

func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.deps.Users,
			f.deps.Hasher,
			f.deps.Limiter,
			f.deps.LoginRule,
			f.deps.Events,
			f.deps.Audit,
			f.logger.Named("auth"),
		)
	}
	return f.authService
}

func (f *ServiceFactory) WaitlistService() *WaitlistService {
	if f.waitlistService == nil {
		f.waitlistService = NewWaitlistService(
			f.deps.Waitlist,
			f.deps.Limiter,
			f.deps.WaitlistRule,
			f.deps.Events,
			f.logger.Named("waitlist"),
		)
	}
	return f.waitlistService
}

func (f *ServiceFactory) SubscriptionService() *SubscriptionService {
	if f.subscriptionService == nil {
		f.subscriptionService = NewSubscriptionService(f.deps.AppStore, f.deps.Events, f.logger.Named("subscription"))
	}
	return f.subscriptionService
}

func (f *ServiceFactory) DiscoverService() *DiscoverService {
	if f.discoverService == nil {
		f.discoverService = NewDiscoverService(f.deps.Profiles, f.logger.Named("discover"))
	}
	return f.discoverService
}

func (f *ServiceFactory) MessagingService() *MessagingService {
	if f.messagingService == nil {
		f.messagingService = NewMessagingService(f.deps.Conversations, f.logger.Named("messaging"))
	}
	return f.messagingService
}
