package responses

import (
	"time"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
)

// ConversationResponse is the wire shape of a conversation.
type ConversationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationListResponse wraps a list of conversations.
type ConversationListResponse struct {
	Object string                  `json:"object"`
	Data   []*ConversationResponse `json:"data"`
}

func BuildConversationResponse(conv *conversation.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        conv.PublicID,
		Name:      conv.Name,
		Tags:      conv.Tags,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func BuildConversationListResponse(convs []*conversation.Conversation) *ConversationListResponse {
	data := make([]*ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		data = append(data, BuildConversationResponse(conv))
	}
	return &ConversationListResponse{Object: "list", Data: data}
}

// SubmitMessageResponse acknowledges an accepted generation. The assistant
// message materializes asynchronously; clients poll the message list.
type SubmitMessageResponse struct {
	ConversationID string           `json:"conversation_id"`
	Message        *MessageResponse `json:"message"`
}

func BuildSubmitMessageResponse(conversationID string, msg *conversation.Message) *SubmitMessageResponse {
	return &SubmitMessageResponse{
		ConversationID: conversationID,
		Message:        BuildMessageResponse(msg),
	}
}

// MessageStatusResponse mirrors the live progress indicator on a message.
type MessageStatusResponse struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the wire shape of a message.
type MessageResponse struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Reasoning *string                `json:"reasoning,omitempty"`
	IsImage   bool                   `json:"is_image"`
	Status    *MessageStatusResponse `json:"status,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// MessageListResponse wraps a conversation's messages.
type MessageListResponse struct {
	Object string             `json:"object"`
	Data   []*MessageResponse `json:"data"`
}

func BuildMessageResponse(msg *conversation.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:        msg.PublicID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Reasoning: msg.Reasoning,
		IsImage:   msg.IsImage,
		CreatedAt: msg.CreatedAt,
	}
	if msg.Status != nil {
		resp.Status = &MessageStatusResponse{
			Type:    string(msg.Status.Type),
			Message: msg.Status.Message,
		}
	}
	return resp
}

func BuildMessageListResponse(msgs []*conversation.Message) *MessageListResponse {
	data := make([]*MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		data = append(data, BuildMessageResponse(msg))
	}
	return &MessageListResponse{Object: "list", Data: data}
}
