package service

import (
	"context"
	"fmt"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/storage"
)

// FriendService reads the friend list. Friends are only ever added through
// invite reconciliation in SessionService.
type FriendService struct {
	repo *storage.Repository
}

func NewFriendService(repo *storage.Repository) *FriendService {
	return &FriendService{repo: repo}
}

// List returns friends in the order they were added.
func (s *FriendService) List(ctx context.Context) ([]model.Friend, error) {
	friends, err := s.repo.GetFriends(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/friends: listing friends: %w", err)
	}
	return friends, nil
}

// Get returns the friend with id, or an apperror.ErrNotFound.
func (s *FriendService) Get(ctx context.Context, id string) (model.Friend, error) {
	friends, err := s.List(ctx)
	if err != nil {
		return model.Friend{}, err
	}
	for _, f := range friends {
		if f.ID == id {
			return f, nil
		}
	}
	return model.Friend{}, apperror.NotFound("friend", id)
}
