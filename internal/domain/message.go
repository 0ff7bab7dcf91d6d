package domain

import "time"

// Message is an immutable chat message as persisted by the message store.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Username   string    `json:"username"` // Sender's name at send time
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSelfMessage builds an unsaved message from user addressed to themselves.
func NewSelfMessage(user User, content string) *Message {
	return &Message{
		SenderID:   user.ID,
		ReceiverID: user.ID,
		Username:   user.Username,
		Content:    content,
	}
}

// EchoText is the acknowledgment sent back after the message was stored.
func (m *Message) EchoText() string {
	return m.Username + ": " + m.Content
}
