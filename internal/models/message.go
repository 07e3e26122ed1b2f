package models

import "time"

// MessageRole identifies who authored a message
type MessageRole string

// MessageType identifies what a message carries
type MessageType string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"

	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
)

// Message is one entry of a conversation. History lives on the client and is
// sent back in full on every turn; the server never stores it.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role" binding:"required,oneof=user model"`
	Type      MessageType `json:"type" binding:"required,oneof=text image"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	Audio     string      `json:"audio,omitempty"`
}

// IsModelImage reports whether the message is a photo sent by the character
func (m Message) IsModelImage() bool {
	return m.Role == RoleModel && m.Type == TypeImage
}

// Time converts the millisecond timestamp to a time.Time
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
