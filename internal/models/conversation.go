package models

import "time"

type Conversation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	PeerID        string    `json:"peerId"`
	PeerName      string    `json:"peerName"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sentAt"`
}
