package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/model"
)

// newTestChatService returns a service whose friend list holds f1 and f9.
func newTestChatService(t *testing.T) *ChatService {
	t.Helper()
	repo := newTestRepo(t)
	require.NoError(t, repo.SetFriends(context.Background(), []model.Friend{
		{ID: "f1", Name: "Ann"},
		{ID: "f9", Name: "Bo"},
	}))
	return NewChatService(repo, newTestLogger())
}

func TestSend(t *testing.T) {
	svc := newTestChatService(t)
	ctx := context.Background()
	at := time.UnixMilli(1_750_000_000_123)
	svc.now = func() time.Time { return at }

	m, err := svc.Send(ctx, "f1", "me00", "  hello  ")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(m.ID, MessageIDPrefix))
	assert.Equal(t, "me00", m.SenderID)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, at.UnixMilli(), m.Timestamp)
	assert.False(t, m.Read)

	chats, err := svc.List(ctx)
	require.NoError(t, err)
	require.Contains(t, chats, "f1")
	assert.Equal(t, []model.Message{m}, chats["f1"].Messages)
	assert.Equal(t, 0, chats["f1"].UnreadCount)
}

func TestSend_UniqueIDs(t *testing.T) {
	svc := newTestChatService(t)
	ctx := context.Background()
	at := time.UnixMilli(1_750_000_000_000)
	svc.now = func() time.Time { return at }

	a, err := svc.Send(ctx, "f1", "me00", "one")
	require.NoError(t, err)
	b, err := svc.Send(ctx, "f1", "me00", "two")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "same millisecond must still give distinct ids")
}

func TestSend_Invalid(t *testing.T) {
	svc := newTestChatService(t)

	tests := []struct {
		name     string
		friendID string
		text     string
	}{
		{name: "empty text", friendID: "f1", text: ""},
		{name: "whitespace text", friendID: "f1", text: " \n\t "},
		{name: "too long", friendID: "f1", text: strings.Repeat("a", MaxMessageLength+1)},
		{name: "no friend", friendID: "", text: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), tt.friendID, "me00", tt.text)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestOpen_ReturnsThenMarksRead(t *testing.T) {
	svc := newTestChatService(t)
	ctx := context.Background()

	require.NoError(t, svc.repo.SetChats(ctx, map[string]model.Chat{
		"f1": {
			FriendID:    "f1",
			UnreadCount: 2,
			Messages: []model.Message{
				{ID: "m1", SenderID: "f1", Text: "hey"},
				{ID: "m2", SenderID: "f1", Text: "you there?"},
			},
		},
	}))

	opened, err := svc.Open(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, opened.UnreadCount, "the caller sees the state it opened")
	assert.False(t, opened.Messages[0].Read)

	after, _, err := svc.repo.GetChat(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 0, after.UnreadCount)
	for _, m := range after.Messages {
		assert.True(t, m.Read)
	}
}

func TestOpen_NoChatYet(t *testing.T) {
	svc := newTestChatService(t)

	c, err := svc.Open(context.Background(), "f9")
	require.NoError(t, err)
	assert.Equal(t, "f9", c.FriendID)
	assert.NotNil(t, c.Messages)
	assert.Empty(t, c.Messages)

	chats, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chats, "opening does not create a chat")
}

func TestChat_UnknownFriend(t *testing.T) {
	svc := newTestChatService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "stranger", "me00", "hi")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Open(ctx, "stranger")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.MarkAsRead(ctx, "stranger")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	chats, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats, "nothing is written for a non-friend")
}
