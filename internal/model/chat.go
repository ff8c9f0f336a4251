package model

// Message is one entry of a chat history.
//
// SenderID is either the local user's UserID or the friend's ID.
// Timestamp is milliseconds since the Unix epoch.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Chat is the message history with one friend, keyed by FriendID.
// Messages are kept in insertion order, which is chronological order.
type Chat struct {
	FriendID    string    `json:"friendId"`
	Messages    []Message `json:"messages"`
	UnreadCount int       `json:"unreadCount"`
}

// LastMessage returns the newest message, or false for an empty chat.
func (c Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
