package storage

import (
	"context"
	"fmt"

	"github.com/sakif/rilmas/internal/model"
)

// GetUser returns the device user. ok is false when nobody is logged in.
func (r *Repository) GetUser(ctx context.Context) (model.User, bool, error) {
	var u model.User
	ok, err := r.load(ctx, KeyUser, &u)
	if err != nil || !ok {
		return model.User{}, false, err
	}
	return u, true, nil
}

// SetUser overwrites the device user wholesale.
func (r *Repository) SetUser(ctx context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.save(ctx, KeyUser, u)
}

// UpdateUser merges patch over the stored user and persists the result.
//
// With no stored user it writes nothing and returns ok=false. An empty patch
// returns the stored user without a write.
func (r *Repository) UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current model.User
	ok, err := r.load(ctx, KeyUser, &current)
	if err != nil || !ok {
		return model.User{}, false, err
	}

	if patch.IsEmpty() {
		return current, true, nil
	}

	updated := patch.Apply(current)
	if err := r.save(ctx, KeyUser, updated); err != nil {
		return model.User{}, false, err
	}
	return updated, true, nil
}

// RemoveUser deletes the device user (logout). Other records stay.
func (r *Repository) RemoveUser(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, KeyUser); err != nil {
		return fmt.Errorf("removing %s: %w", KeyUser, err)
	}
	return nil
}
