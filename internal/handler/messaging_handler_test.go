package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifestyle-api/internal/models"
)

func TestMessaging_SendAndRead(t *testing.T) {
	env := newTestEnv(t)
	convID := env.conversations.StartConversation("u-alice", "Alice", "u-bob", "Bob")
	alice := env.tokenFor(t, "u-alice", "Alice", models.TierFree)
	bob := env.tokenFor(t, "u-bob", "Bob", models.TierFree)

	sent := env.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", map[string]string{"body": "hey"}, alice)
	require.Equal(t, http.StatusCreated, sent.Code, sent.Body.String())

	read := env.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", nil, bob)
	require.Equal(t, http.StatusOK, read.Code)
	msgs := decodeBody(t, read)["messages"].([]interface{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "hey", msgs[0].(map[string]interface{})["body"])

	list := env.do(t, http.MethodGet, "/api/v1/conversations", nil, bob)
	require.Equal(t, http.StatusOK, list.Code)
	convs := decodeBody(t, list)["conversations"].([]interface{})
	require.Len(t, convs, 1)
	assert.Equal(t, "Alice", convs[0].(map[string]interface{})["peerName"])
}

func TestMessaging_NonParticipantForbidden(t *testing.T) {
	env := newTestEnv(t)
	convID := env.conversations.StartConversation("u-alice", "Alice", "u-bob", "Bob")
	mallory := env.tokenFor(t, "u-mallory", "Mallory", models.TierFree)

	rec := env.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", nil, mallory)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", map[string]string{"body": "hi"}, mallory)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
