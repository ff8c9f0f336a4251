// Package storage is the typed Domain Repository over a repository.Store.
//
// LAYOUT:
// Each record family is one JSON blob under its own key:
//
//	user                 → model.User (absent when logged out)
//	friends              → []model.Friend
//	chats                → map[friendID]model.Chat
//	invite_links         → map[code]userID
//	pending_verification → model.PendingVerification
//
// MISSING AND MALFORMED VALUES:
// A missing key reads as the family's empty value. So does a stored JSON
// null, and a blob that no longer decodes: it is logged at Warn and treated as absent, so one corrupt
// record never takes the whole app down. Only real store I/O errors are
// returned to the caller.
//
// READ-MODIFY-WRITE:
// Every mutation that reads a blob, changes it and writes it back runs under
// one mutex. Two concurrent AddMessage calls therefore both land; without the
// lock the second write would silently drop the first message.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"github.com/sakif/rilmas/internal/repository"
)

// Store keys. These are the persisted layout; changing one orphans old data.
const (
	KeyUser                = "user"
	KeyFriends             = "friends"
	KeyChats               = "chats"
	KeyInviteLinks         = "invite_links"
	KeyPendingVerification = "pending_verification"
)

var jsonNull = []byte("null")

type Repository struct {
	store  repository.Store
	logger *slog.Logger

	// mu serializes every read-modify-write sequence.
	mu sync.Mutex
}

func New(store repository.Store, logger *slog.Logger) *Repository {
	return &Repository{
		store:  store,
		logger: logger,
	}
}

// load decodes the blob under key into dst.
// It reports false when the key is missing, the blob is a JSON null or the
// blob is malformed. On false the caller must ignore dst, which may hold a
// partial decode.
func (r *Repository) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.Warn("discarding malformed stored value",
			slog.String("key", key),
			slog.Int("bytes", len(raw)),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
