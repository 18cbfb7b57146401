package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
	"lifestyle-api/internal/session"
)

const (
	maxMessageLength = 2000
	messagePageSize  = 100
)

type MessagingService struct {
	store  ConversationStore
	logger *zap.Logger
}

func NewMessagingService(store ConversationStore, logger *zap.Logger) *MessagingService {
	return &MessagingService{store: store, logger: logger}
}

func (s *MessagingService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: list conversations: %v", ErrInternal, err)
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *MessagingService) Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conversationID, messagePageSize)
	if err != nil {
		s.logger.Error("Failed to list messages", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, fmt.Errorf("%w: list messages: %v", ErrInternal, err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *MessagingService) Send(ctx context.Context, sender session.SessionUser, conversationID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > maxMessageLength {
		return nil, newValidationError("body", "Message must be between 1 and 2000 characters")
	}

	conv, err := s.participant(ctx, sender.ID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{SenderID: sender.ID, Body: body}
	if err := s.store.AppendMessage(ctx, conv, sender.Name, msg); err != nil {
		return nil, fmt.Errorf("%w: append message: %v", ErrInternal, err)
	}
	return msg, nil
}

func (s *MessagingService) participant(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionDenied
		}
		s.logger.Error("Failed to load conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, fmt.Errorf("%w: get conversation: %v", ErrInternal, err)
	}
	return conv, nil
}
