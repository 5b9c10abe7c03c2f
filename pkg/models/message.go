package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// Message is a chat line posted into a space
type Message struct {
	ID          string     `json:"id" db:"id"`
	SpaceID     string     `json:"spaceId" db:"space_id"`
	UserID      string     `json:"userId" db:"user_id"`
	Content     string     `json:"content" db:"content"`
	MessageType string     `json:"messageType" db:"message_type"`
	Reactions   []Reaction `json:"reactions"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// AuthorID implements the authored-resource contract used by the guard
func (m *Message) AuthorID() string { return m.UserID }

// Reaction is unique per (message, user, emoji)
type Reaction struct {
	ID        string    `json:"id" db:"id"`
	MessageID string    `json:"messageId" db:"message_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CreateMessageRequest is the body of POST /spaces/{id}/messages
type CreateMessageRequest struct {
	Content     string `json:"content" validate:"required,min=1,max=4000"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text"`
}

// ReactionRequest is the body of POST /spaces/{id}/messages/{messageID}/reactions
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,min=1,max=16"`
}

// MessagePage is one page of history, oldest first
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"nextCursor,omitempty"`
}
