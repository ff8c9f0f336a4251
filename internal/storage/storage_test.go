package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/repository/memory"
)

func newTestRepo(t *testing.T) (*Repository, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(store, logger), store
}

func strPtr(s string) *string { return &s }

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingStore) Set(context.Context, string, []byte) error { return f.err }
func (f failingStore) Remove(context.Context, string) error { return f.err }

// readOnlyStore serves reads from the wrapped store and fails every write.
type readOnlyStore struct{ *memory.Store }

func (readOnlyStore) Set(context.Context, string, []byte) error { return errors.New("read-only") }

// =========================================================================
// EMPTY STORE
// =========================================================================

func TestEmptyStore(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.GetUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no user on an empty store")

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	assert.NotNil(t, friends)
	assert.Empty(t, friends)

	chats, err := repo.GetChats(ctx)
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)

	links, err := repo.GetInviteLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	_, ok, err = repo.GetPendingVerification(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =========================================================================
// USER
// =========================================================================

func TestUpdateUser_MergesPatch(t *testing.T) {
	base := model.User{
		Phone:      "+79990000001",
		UserID:     "user_1",
		Username:   "old",
		Avatar:     "data:image/png;base64,AAA",
		CoverImage: "data:image/png;base64,BBB",
	}

	tests := []struct {
		name  string
		patch model.UserPatch
		want  model.User
	}{
		{
			name:  "empty patch leaves user unchanged",
			patch: model.UserPatch{},
			want:  base,
		},
		{
			name:  "username only",
			patch: model.UserPatch{Username: strPtr("sakif")},
			want: model.User{
				Phone: base.Phone, UserID: base.UserID, Username: "sakif",
				Avatar: base.Avatar, CoverImage: base.CoverImage,
			},
		},
		{
			name:  "avatar and cover",
			patch: model.UserPatch{Avatar: strPtr("a2"), CoverImage: strPtr("c2")},
			want: model.User{
				Phone: base.Phone, UserID: base.UserID, Username: base.Username,
				Avatar: "a2", CoverImage: "c2",
			},
		},
		{
			name:  "explicit empty string clears a field",
			patch: model.UserPatch{Username: strPtr("")},
			want: model.User{
				Phone: base.Phone, UserID: base.UserID,
				Avatar: base.Avatar, CoverImage: base.CoverImage,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepo(t)
			ctx := context.Background()
			require.NoError(t, repo.SetUser(ctx, base))

			got, ok, err := repo.UpdateUser(ctx, tt.patch)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			stored, _, err := repo.GetUser(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored, "merged user must be persisted")
		})
	}
}

func TestUpdateUser_NoUserWritesNothing(t *testing.T) {
	repo, store := newTestRepo(t)

	_, ok, err := repo.UpdateUser(context.Background(), model.UserPatch{Username: strPtr("x")})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "no key may be written")
}

func TestUpdateUser_EmptyPatchSkipsWrite(t *testing.T) {
	base, store := newTestRepo(t)
	ctx := context.Background()
	want := model.User{Phone: "+79990000001", UserID: "u1", Username: "ann"}
	require.NoError(t, base.SetUser(ctx, want))

	repo := New(readOnlyStore{store}, base.logger)
	got, ok, err := repo.UpdateUser(ctx, model.UserPatch{})
	require.NoError(t, err, "an empty patch must not reach Set")
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, _, err = repo.UpdateUser(ctx, model.UserPatch{Username: strPtr("bo")})
	assert.Error(t, err, "a real patch still writes")
}

func TestRemoveUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetUser(ctx, model.User{Phone: "+79990000001", UserID: "u1"}))
	require.NoError(t, repo.AddFriend(ctx, model.Friend{ID: "f1"}))
	require.NoError(t, repo.RemoveUser(ctx))

	_, ok, err := repo.GetUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	assert.Len(t, friends, 1, "logout keeps the friend list")
}

// =========================================================================
// FRIENDS
// =========================================================================

func TestAddFriend_AppendsInOrder(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddFriend(ctx, model.Friend{ID: "a"}))
	require.NoError(t, repo.AddFriend(ctx, model.Friend{ID: "b"}))
	// AddFriend itself does not deduplicate
	require.NoError(t, repo.AddFriend(ctx, model.Friend{ID: "a"}))

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	ids := make([]string, len(friends))
	for i, f := range friends {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"a", "b", "a"}, ids)
}

func TestAddFriendIfAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	added, err := repo.AddFriendIfAbsent(ctx, model.Friend{ID: "a", Name: "first"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddFriendIfAbsent(ctx, model.Friend{ID: "a", Name: "second"})
	require.NoError(t, err)
	assert.False(t, added)

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "first", friends[0].Name)

	has, err := repo.HasFriend(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasFriend(ctx, "b")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSetFriends_NilStoresEmptyList(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetFriends(ctx, nil))

	raw, ok, err := store.Get(ctx, KeyFriends)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
}

// =========================================================================
// CHATS
// =========================================================================

func TestAddMessage_CreatesChat(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	m1 := model.Message{ID: "m1", SenderID: "u1", Text: "hi", Timestamp: 1000, Read: false}
	require.NoError(t, repo.AddMessage(ctx, "f1", m1))

	chats, err := repo.GetChats(ctx)
	require.NoError(t, err)
	require.Contains(t, chats, "f1")

	c := chats["f1"]
	assert.Equal(t, "f1", c.FriendID)
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, []model.Message{m1}, c.Messages)
}

func TestAddMessage_AppendsLast(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := range 5 {
		before, _, err := repo.GetChat(ctx, "f1")
		require.NoError(t, err)

		m := model.Message{ID: fmt.Sprintf("m%d", i), SenderID: "u1", Text: "x", Timestamp: int64(1000 + i)}
		require.NoError(t, repo.AddMessage(ctx, "f1", m))

		after, ok, err := repo.GetChat(ctx, "f1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, after.Messages, len(before.Messages)+1)

		last, ok := after.LastMessage()
		require.True(t, ok)
		assert.Equal(t, m, last)
	}
}

func TestAddMessage_KeepsUnreadCount(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetChats(ctx, map[string]model.Chat{
		"f1": {FriendID: "f1", Messages: []model.Message{}, UnreadCount: 3},
	}))
	require.NoError(t, repo.AddMessage(ctx, "f1", model.Message{ID: "m1", SenderID: "f1"}))

	c, _, err := repo.GetChat(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.UnreadCount)
}

func TestMarkAsRead(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetChats(ctx, map[string]model.Chat{
		"f1": {
			FriendID:    "f1",
			UnreadCount: 2,
			Messages: []model.Message{
				{ID: "m1", SenderID: "f1", Read: false},
				{ID: "m2", SenderID: "f1", Read: false},
			},
		},
		"f2": {
			FriendID:    "f2",
			UnreadCount: 1,
			Messages:    []model.Message{{ID: "m3", SenderID: "f2"}},
		},
	}))

	require.NoError(t, repo.MarkAsRead(ctx, "f1"))
	once, err := repo.GetChats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, once["f1"].UnreadCount)
	for _, m := range once["f1"].Messages {
		assert.True(t, m.Read, "message %s should be read", m.ID)
	}
	assert.Equal(t, 1, once["f2"].UnreadCount, "other chats are untouched")
	assert.False(t, once["f2"].Messages[0].Read)

	// idempotent
	require.NoError(t, repo.MarkAsRead(ctx, "f1"))
	twice, err := repo.GetChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMarkAsRead_MissingChatIsNoop(t *testing.T) {
	repo, store := newTestRepo(t)

	require.NoError(t, repo.MarkAsRead(context.Background(), "nobody"))
	assert.Equal(t, 0, store.Len())
}

func TestAddMessage_ConcurrentWritersAllLand(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := model.Message{ID: fmt.Sprintf("m%d", i), SenderID: "u1", Timestamp: int64(i)}
			assert.NoError(t, repo.AddMessage(ctx, "f1", m))
		}()
	}
	wg.Wait()

	c, _, err := repo.GetChat(ctx, "f1")
	require.NoError(t, err)
	assert.Len(t, c.Messages, n)
}

// =========================================================================
// INVITE LINKS
// =========================================================================

func TestInviteLinks(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveInviteLink(ctx, "u1", "INV123"))

	userID, ok, err := repo.GetUserByInviteCode(ctx, "INV123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", userID)

	_, ok, err = repo.GetUserByInviteCode(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, ok)

	// same pair again is harmless
	require.NoError(t, repo.SaveInviteLink(ctx, "u1", "INV123"))
	links, err := repo.GetInviteLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"INV123": "u1"}, links)
}

// =========================================================================
// PENDING VERIFICATION
// =========================================================================

func TestPendingVerification(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := model.PendingVerification{
		Phone:     "+79990000001",
		CodeHash:  "$2a$04$abc",
		ExpiresAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SetPendingVerification(ctx, p))

	got, ok, err := repo.GetPendingVerification(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.Phone, got.Phone)
	assert.Equal(t, p.CodeHash, got.CodeHash)
	assert.True(t, p.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, repo.ClearPendingVerification(ctx))
	_, ok, err = repo.GetPendingVerification(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =========================================================================
// MALFORMED VALUES AND STORE FAILURES
// =========================================================================

func TestMalformedBlobsReadAsEmpty(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	for _, key := range []string{KeyUser, KeyFriends, KeyChats, KeyInviteLinks, KeyPendingVerification} {
		require.NoError(t, store.Set(ctx, key, []byte(`{not json`)))
	}

	_, ok, err := repo.GetUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	assert.Empty(t, friends)

	chats, err := repo.GetChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)

	_, ok, err = repo.GetUserByInviteCode(ctx, "INV1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.GetPendingVerification(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a write over a corrupt blob starts from the empty value
	require.NoError(t, repo.AddFriend(ctx, model.Friend{ID: "a"}))
	friends, err = repo.GetFriends(ctx)
	require.NoError(t, err)
	assert.Len(t, friends, 1)
}

func TestNullBlobsReadAsEmpty(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyFriends, []byte(`null`)))
	require.NoError(t, store.Set(ctx, KeyChats, []byte(`null`)))
	require.NoError(t, store.Set(ctx, KeyUser, []byte(` null `)))
	require.NoError(t, store.Set(ctx, KeyPendingVerification, []byte(`null`)))

	friends, err := repo.GetFriends(ctx)
	require.NoError(t, err)
	assert.NotNil(t, friends)

	chats, err := repo.GetChats(ctx)
	require.NoError(t, err)
	assert.NotNil(t, chats)

	_, ok, err := repo.GetUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a null user blob means nobody is logged in")

	username := "ghost"
	_, ok, err = repo.UpdateUser(ctx, model.UserPatch{Username: &username})
	require.NoError(t, err)
	assert.False(t, ok, "no user to patch")

	_, ok, err = repo.GetPendingVerification(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := New(failingStore{err: boom}, logger)
	ctx := context.Background()

	_, _, err := repo.GetUser(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetFriends(ctx)
	assert.ErrorIs(t, err, boom)

	err = repo.AddMessage(ctx, "f1", model.Message{ID: "m1"})
	assert.ErrorIs(t, err, boom)

	err = repo.SetUser(ctx, model.User{UserID: "u1"})
	assert.ErrorIs(t, err, boom)

	err = repo.RemoveUser(ctx)
	assert.ErrorIs(t, err, boom)
}
