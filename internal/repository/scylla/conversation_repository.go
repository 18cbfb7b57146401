package scylla

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
	"lifestyle-api/internal/util"
)

// ConversationRepository reads and writes the two messaging tables:
//
//	conversations_by_user    PRIMARY KEY (user_id, conversation_id)
//	messages_by_conversation PRIMARY KEY (conversation_id, message_id) CLUSTERING ORDER BY (message_id DESC)
type ConversationRepository struct {
	client *ScyllaClient
}

func NewConversationRepository(client *ScyllaClient) *ConversationRepository {
	return &ConversationRepository{client: client}
}

// ListConversations returns the user's conversations, most recent first
func (r *ConversationRepository) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	iter := r.client.Session.Query(r.client.Statements.ListConversations, userID).WithContext(ctx).Iter()

	var (
		out  []models.Conversation
		conv models.Conversation
	)
	for iter.Scan(&conv.ID, &conv.PeerID, &conv.PeerName, &conv.LastMessage, &conv.LastMessageAt) {
		conv.UserID = userID
		out = append(out, conv)
		conv = models.Conversation{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	sortConversations(out)
	return out, nil
}

// GetConversation returns repository.ErrNotFound when userID is not a participant
func (r *ConversationRepository) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv := &models.Conversation{UserID: userID}
	err := r.client.Session.Query(r.client.Statements.GetConversation, userID, conversationID).
		WithContext(ctx).
		Scan(&conv.ID, &conv.PeerID, &conv.PeerName, &conv.LastMessage, &conv.LastMessageAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListMessages returns up to limit of the newest messages, oldest first
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	iter := r.client.Session.Query(r.client.Statements.ListMessages, conversationID, limit).WithContext(ctx).Iter()

	var (
		out []models.Message
		id  gocql.UUID
		msg models.Message
	)
	for iter.Scan(&id, &msg.SenderID, &msg.Body, &msg.SentAt) {
		msg.ID = id.String()
		msg.ConversationID = conversationID
		out = append(out, msg)
		msg = models.Message{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	reverseMessages(out)
	return out, nil
}

// AppendMessage stores msg and bumps the conversation row of both participants
// in one logged batch. msg.ID and msg.SentAt are assigned here.
func (r *ConversationRepository) AppendMessage(ctx context.Context, conv *models.Conversation, senderName string, msg *models.Message) error {
	id := gocql.TimeUUID()
	msg.ID = id.String()
	msg.ConversationID = conv.ID
	msg.SentAt = id.Time().UTC().Truncate(time.Millisecond)

	batch := r.client.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Statements.InsertMessage, conv.ID, id, msg.SenderID, msg.Body, msg.SentAt)
	batch.Query(r.client.Statements.UpsertConversation,
		conv.PeerID, conv.PeerName, msg.Body, msg.SentAt, conv.UserID, conv.ID)
	batch.Query(r.client.Statements.UpsertConversation,
		conv.UserID, senderName, msg.Body, msg.SentAt, conv.PeerID, conv.ID)

	if err := r.client.Session.ExecuteBatch(batch); err != nil {
		util.Error("Failed to append message",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func sortConversations(convs []models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})
}

func reverseMessages(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
