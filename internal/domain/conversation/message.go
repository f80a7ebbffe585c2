package conversation

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type StatusType string

const (
	StatusPending   StatusType = "pending"
	StatusCompleted StatusType = "completed"
	StatusError     StatusType = "error"
)

// MessageStatus is the live progress indicator on a message. A nil status on
// a user message or a settled assistant message means implicit completed.
type MessageStatus struct {
	Type    StatusType `json:"type"`
	Message string     `json:"message,omitempty"`
}

// Terminal reports whether the status can never transition again.
func (s *MessageStatus) Terminal() bool {
	if s == nil {
		return true
	}
	return s.Type == StatusCompleted || s.Type == StatusError
}

// Message is a single turn in a conversation. When IsImage is set, Content
// holds a blob reference rather than text.
type Message struct {
	ID             uint           `json:"-"`
	PublicID       string         `json:"id"`
	UserID         string         `json:"-"`
	ConversationID uint           `json:"-"`
	ModelID        uint           `json:"-"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	Reasoning      *string        `json:"reasoning,omitempty"`
	IsImage        bool           `json:"is_image"`
	Status         *MessageStatus `json:"status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// MessagePatch is the per-chunk write-through snapshot applied to an
// in-flight assistant message.
type MessagePatch struct {
	Content   string
	Reasoning *string
	Status    *MessageStatus
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *Message) error
	// ListByConversation returns messages in ascending creation order.
	ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error)
	LatestByConversation(ctx context.Context, conversationID uint) (*Message, error)
	// PatchInFlight applies the patch only while the row's status is still
	// pending. It reports false once the row has reached a terminal status,
	// which callers treat as an external stop signal.
	PatchInFlight(ctx context.Context, messageID uint, patch MessagePatch) (bool, error)
}
