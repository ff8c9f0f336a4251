package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/storage"
)

// MaxMessageLength bounds a single message, in bytes.
const MaxMessageLength = 4000

// MessageIDPrefix starts every message id.
const MessageIDPrefix = "msg_"

// ChatService sends messages and tracks read state.
//
// There is no delivery: a sent message is appended to the local chat and
// that is all. Nothing ever arrives from the friend's side, so UnreadCount
// only goes down.
type ChatService struct {
	repo   *storage.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewChatService(repo *storage.Repository, logger *slog.Logger) *ChatService {
	return &ChatService{repo: repo, logger: logger, now: time.Now}
}

// Send appends a message from senderID to the chat with friendID.
func (s *ChatService) Send(ctx context.Context, friendID, senderID, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, apperror.ValidationFailed("text", "message must not be empty")
	}
	if len(text) > MaxMessageLength {
		return model.Message{}, apperror.ValidationFailed("text",
			fmt.Sprintf("message must be %d bytes or fewer", MaxMessageLength))
	}
	if friendID == "" {
		return model.Message{}, apperror.ValidationFailed("friendId", "friend id is required")
	}
	if err := s.requireFriend(ctx, friendID); err != nil {
		return model.Message{}, err
	}

	m := model.Message{
		ID:        MessageIDPrefix + xid.New().String(),
		SenderID:  senderID,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
		Read:      false,
	}
	if err := s.repo.AddMessage(ctx, friendID, m); err != nil {
		return model.Message{}, fmt.Errorf("service/chat: adding message to %s: %w", friendID, err)
	}

	s.logger.Debug("message sent",
		slog.String("friendID", friendID),
		slog.String("messageID", m.ID),
	)
	return m, nil
}

// Open returns the chat with friendID as it was, then marks it read.
// A friend with no messages yet gets an empty chat.
func (s *ChatService) Open(ctx context.Context, friendID string) (model.Chat, error) {
	if err := s.requireFriend(ctx, friendID); err != nil {
		return model.Chat{}, err
	}

	c, ok, err := s.repo.GetChat(ctx, friendID)
	if err != nil {
		return model.Chat{}, fmt.Errorf("service/chat: loading chat %s: %w", friendID, err)
	}
	if !ok {
		return model.Chat{FriendID: friendID, Messages: []model.Message{}}, nil
	}

	if err := s.repo.MarkAsRead(ctx, friendID); err != nil {
		return model.Chat{}, fmt.Errorf("service/chat: marking %s read: %w", friendID, err)
	}
	return c, nil
}

func (s *ChatService) MarkAsRead(ctx context.Context, friendID string) error {
	if err := s.requireFriend(ctx, friendID); err != nil {
		return err
	}
	if err := s.repo.MarkAsRead(ctx, friendID); err != nil {
		return fmt.Errorf("service/chat: marking %s read: %w", friendID, err)
	}
	return nil
}

// List returns every chat keyed by friend id.
func (s *ChatService) List(ctx context.Context) (map[string]model.Chat, error) {
	chats, err := s.repo.GetChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing chats: %w", err)
	}
	return chats, nil
}

// requireFriend returns an apperror.ErrNotFound unless friendID is in the
// friend list. Chats only exist with friends.
func (s *ChatService) requireFriend(ctx context.Context, friendID string) error {
	ok, err := s.repo.HasFriend(ctx, friendID)
	if err != nil {
		return fmt.Errorf("service/chat: loading friends: %w", err)
	}
	if !ok {
		return apperror.NotFound("friend", friendID)
	}
	return nil
}
