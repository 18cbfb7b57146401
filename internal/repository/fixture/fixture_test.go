package fixture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
)

func TestProfileSource_PagesAndExcludesViewer(t *testing.T) {
	src := NewProfileSource(DemoProfiles())
	ctx := context.Background()

	first, err := src.ListProfiles(ctx, "demo-0002", 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "demo-0001", first[0].UserID)
	assert.Equal(t, "demo-0003", first[1].UserID)

	rest, err := src.ListProfiles(ctx, "demo-0002", 2, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "demo-0004", rest[0].UserID)

	empty, err := src.ListProfiles(ctx, "demo-0002", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConversationStore_Flow(t *testing.T) {
	store := NewConversationStore()
	tick := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { tick = tick.Add(time.Second); return tick }
	ctx := context.Background()

	id := store.StartConversation("alice", "Alice", "bob", "Bob")

	conv, err := store.GetConversation(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "bob", conv.PeerID)

	_, err = store.GetConversation(ctx, "mallory", id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	msg := &models.Message{SenderID: "alice", Body: "hi"}
	require.NoError(t, store.AppendMessage(ctx, conv, "Alice", msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, id, msg.ConversationID)

	bobView, err := store.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, "hi", bobView[0].LastMessage)
	assert.Equal(t, "Alice", bobView[0].PeerName)

	require.NoError(t, store.AppendMessage(ctx, conv, "Alice", &models.Message{SenderID: "alice", Body: "second"}))
	msgs, err := store.ListMessages(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second", msgs[0].Body)
}

func TestConversationStore_ConcurrentAppend(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	id := store.StartConversation("a", "A", "b", "B")
	conv, err := store.GetConversation(ctx, "a", id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := *conv
			assert.NoError(t, store.AppendMessage(ctx, &c, "A", &models.Message{SenderID: "a", Body: "x"}))
		}()
	}
	wg.Wait()

	msgs, err := store.ListMessages(ctx, id, 100)
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}

func TestConversationStore_StartsEmpty(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	convs, err := store.ListConversations(ctx, "demo-0001")
	require.NoError(t, err)
	assert.Empty(t, convs)

	_, err = store.GetConversation(ctx, "demo-0001", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
