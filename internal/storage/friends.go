package storage

import (
	"context"

	"github.com/sakif/rilmas/internal/model"
)

// GetFriends returns the friend list in insertion order, never nil.
func (r *Repository) GetFriends(ctx context.Context) ([]model.Friend, error) {
	return r.friends(ctx)
}

func (r *Repository) SetFriends(ctx context.Context, friends []model.Friend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if friends == nil {
		friends = []model.Friend{}
	}
	return r.save(ctx, KeyFriends, friends)
}

// AddFriend appends f to the list. It does not check for an existing entry
// with the same ID; use AddFriendIfAbsent for that.
func (r *Repository) AddFriend(ctx context.Context, f model.Friend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	friends, err := r.friends(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, KeyFriends, append(friends, f))
}

// AddFriendIfAbsent appends f unless a friend with the same ID is already
// listed. The check and the append happen under one lock.
func (r *Repository) AddFriendIfAbsent(ctx context.Context, f model.Friend) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	friends, err := r.friends(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range friends {
		if existing.ID == f.ID {
			return false, nil
		}
	}
	if err := r.save(ctx, KeyFriends, append(friends, f)); err != nil {
		return false, err
	}
	return true, nil
}

// HasFriend reports whether id is in the friend list.
func (r *Repository) HasFriend(ctx context.Context, id string) (bool, error) {
	friends, err := r.friends(ctx)
	if err != nil {
		return false, err
	}
	for _, f := range friends {
		if f.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) friends(ctx context.Context) ([]model.Friend, error) {
	var friends []model.Friend
	ok, err := r.load(ctx, KeyFriends, &friends)
	if err != nil {
		return nil, err
	}
	// a stored "null" decodes to nil as well
	if !ok || friends == nil {
		friends = []model.Friend{}
	}
	return friends, nil
}
