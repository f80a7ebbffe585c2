package dbschema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Message{})
}

// Message represents the database schema for messages
type Message struct {
	database.BaseModel
	PublicID       string       `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID         string       `gorm:"type:varchar(64);index;not null"`
	ConversationID uint         `gorm:"index:idx_message_conversation_created;not null"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID"`
	ModelID        uint         `gorm:"index"`
	Role           string       `gorm:"type:varchar(20);not null"`
	Content        string       `gorm:"type:text;not null"`
	Reasoning      *string      `gorm:"type:text"`
	IsImage        bool         `gorm:"not null;default:false"`
	Status         *JSONStatus  `gorm:"type:jsonb"`
}

// JSONStatus stores a MessageStatus as a jsonb column so streaming patches
// can filter on status->>'type'.
type JSONStatus conversation.MessageStatus

func (j JSONStatus) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONStatus) Scan(value any) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, j)
}

// NewSchemaMessage maps the domain object to its entity.
func NewSchemaMessage(msg *conversation.Message) *Message {
	entity := &Message{
		PublicID:       msg.PublicID,
		UserID:         msg.UserID,
		ConversationID: msg.ConversationID,
		ModelID:        msg.ModelID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Reasoning:      msg.Reasoning,
		IsImage:        msg.IsImage,
	}
	entity.ID = msg.ID
	if msg.Status != nil {
		status := JSONStatus(*msg.Status)
		entity.Status = &status
	}
	return entity
}

// EtoD converts the entity to its domain object.
func (m *Message) EtoD() *conversation.Message {
	msg := &conversation.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		UserID:         m.UserID,
		ConversationID: m.ConversationID,
		ModelID:        m.ModelID,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		Reasoning:      m.Reasoning,
		IsImage:        m.IsImage,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Status != nil {
		status := conversation.MessageStatus(*m.Status)
		msg.Status = &status
	}
	return msg
}
