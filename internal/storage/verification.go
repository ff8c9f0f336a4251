package storage

import (
	"context"
	"fmt"

	"github.com/sakif/rilmas/internal/model"
)

// GetPendingVerification returns the login attempt awaiting its code, if any.
func (r *Repository) GetPendingVerification(ctx context.Context) (model.PendingVerification, bool, error) {
	var p model.PendingVerification
	ok, err := r.load(ctx, KeyPendingVerification, &p)
	if err != nil || !ok {
		return model.PendingVerification{}, false, err
	}
	return p, true, nil
}

// SetPendingVerification replaces any earlier attempt.
func (r *Repository) SetPendingVerification(ctx context.Context, p model.PendingVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.save(ctx, KeyPendingVerification, p)
}

func (r *Repository) ClearPendingVerification(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, KeyPendingVerification); err != nil {
		return fmt.Errorf("removing %s: %w", KeyPendingVerification, err)
	}
	return nil
}
