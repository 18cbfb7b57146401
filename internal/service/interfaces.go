package service

import (
	"context"
	"time"

	"lifestyle-api/internal/client"
	"lifestyle-api/internal/models"
)

// UserStore is the credential store
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastActive(ctx context.Context, userID string, at time.Time) error
}

type WaitlistStore interface {
	InsertIfAbsent(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type ReceiptClient interface {
	VerifyReceipt(ctx context.Context, receiptData string) (*client.AppStoreResponse, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

type AuditSink interface {
	RecordSecurityEvent(ctx context.Context, event models.SecurityEvent, identifier string) error
}

// ProfileSource pages through discoverable profiles, never returning viewerID
type ProfileSource interface {
	ListProfiles(ctx context.Context, viewerID string, offset, limit int) ([]models.Profile, error)
}

// ConversationStore returns repository.ErrNotFound from GetConversation
// when userID is not a participant.
type ConversationStore interface {
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	AppendMessage(ctx context.Context, conv *models.Conversation, senderName string, msg *models.Message) error
}

// RequestMeta describes the caller for audit rows
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
