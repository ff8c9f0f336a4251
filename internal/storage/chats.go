package storage

import (
	"context"

	"github.com/sakif/rilmas/internal/model"
)

// GetChats returns every chat keyed by friend ID, never nil.
func (r *Repository) GetChats(ctx context.Context) (map[string]model.Chat, error) {
	return r.chats(ctx)
}

// GetChat returns the chat with friendID. ok is false if none exists yet.
func (r *Repository) GetChat(ctx context.Context, friendID string) (model.Chat, bool, error) {
	chats, err := r.chats(ctx)
	if err != nil {
		return model.Chat{}, false, err
	}
	c, ok := chats[friendID]
	return c, ok, nil
}

func (r *Repository) SetChats(ctx context.Context, chats map[string]model.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chats == nil {
		chats = map[string]model.Chat{}
	}
	return r.save(ctx, KeyChats, chats)
}

// AddMessage appends m to the chat with friendID, creating the chat if it
// does not exist. UnreadCount is left as is.
func (r *Repository) AddMessage(ctx context.Context, friendID string, m model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.chats(ctx)
	if err != nil {
		return err
	}

	c, ok := chats[friendID]
	if !ok {
		c = model.Chat{
			FriendID: friendID,
			Messages: []model.Message{},
		}
	}
	c.Messages = append(c.Messages, m)
	chats[friendID] = c

	return r.save(ctx, KeyChats, chats)
}

// MarkAsRead zeroes the unread counter of the chat with friendID and marks
// every message read. A missing chat is a no-op and nothing is written.
func (r *Repository) MarkAsRead(ctx context.Context, friendID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.chats(ctx)
	if err != nil {
		return err
	}

	c, ok := chats[friendID]
	if !ok {
		return nil
	}
	c.UnreadCount = 0
	for i := range c.Messages {
		c.Messages[i].Read = true
	}
	chats[friendID] = c

	return r.save(ctx, KeyChats, chats)
}

func (r *Repository) chats(ctx context.Context) (map[string]model.Chat, error) {
	var chats map[string]model.Chat
	ok, err := r.load(ctx, KeyChats, &chats)
	if err != nil {
		return nil, err
	}
	if !ok || chats == nil {
		chats = map[string]model.Chat{}
	}
	return chats, nil
}
