package fixture

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
)

// ConversationStore keeps conversations in memory. It is safe for
// concurrent use. A new store is empty: there is no API to start a
// conversation, so without Scylla every user sees an empty inbox.
type ConversationStore struct {
	mu       sync.RWMutex
	byUser   map[string]map[string]models.Conversation
	messages map[string][]models.Message
	now      func() time.Time
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		byUser:   make(map[string]map[string]models.Conversation),
		messages: make(map[string][]models.Message),
		now:      time.Now,
	}
}

// StartConversation links two users and returns the conversation id
func (s *ConversationStore) StartConversation(userA, nameA, userB, nameB string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	at := s.now().UTC()
	s.put(models.Conversation{ID: id, UserID: userA, PeerID: userB, PeerName: nameB, LastMessageAt: at})
	s.put(models.Conversation{ID: id, UserID: userB, PeerID: userA, PeerName: nameA, LastMessageAt: at})
	return id
}

func (s *ConversationStore) put(c models.Conversation) {
	convs, ok := s.byUser[c.UserID]
	if !ok {
		convs = make(map[string]models.Conversation)
		s.byUser[c.UserID] = convs
	}
	convs[c.ID] = c
}

func (s *ConversationStore) ListConversations(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Conversation, 0, len(s.byUser[userID]))
	for _, c := range s.byUser[userID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (s *ConversationStore) GetConversation(_ context.Context, userID, conversationID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byUser[userID][conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *ConversationStore) ListMessages(_ context.Context, conversationID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.Message(nil), msgs...), nil
}

func (s *ConversationStore) AppendMessage(_ context.Context, conv *models.Conversation, senderName string, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.ConversationID = conv.ID
	msg.SentAt = s.now().UTC()
	s.messages[conv.ID] = append(s.messages[conv.ID], *msg)

	for _, side := range []struct{ user, peer, peerName string }{
		{conv.UserID, conv.PeerID, conv.PeerName},
		{conv.PeerID, conv.UserID, senderName},
	} {
		s.put(models.Conversation{
			ID:            conv.ID,
			UserID:        side.user,
			PeerID:        side.peer,
			PeerName:      side.peerName,
			LastMessage:   msg.Body,
			LastMessageAt: msg.SentAt,
		})
	}
	return nil
}
