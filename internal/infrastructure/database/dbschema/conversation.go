package dbschema

import (
	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database"

	"gorm.io/datatypes"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
}

// Conversation represents the database schema for conversations
type Conversation struct {
	database.BaseModel
	PublicID string                       `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID   string                       `gorm:"type:varchar(64);index:idx_conversation_user;not null"`
	Name     string                       `gorm:"type:varchar(256);not null"`
	Tags     datatypes.JSONSlice[string]  `gorm:"type:jsonb"`
	Messages []Message                    `gorm:"foreignKey:ConversationID"`
}

// NewSchemaConversation maps the domain object to its entity.
func NewSchemaConversation(conv *conversation.Conversation) *Conversation {
	entity := &Conversation{
		PublicID: conv.PublicID,
		UserID:   conv.UserID,
		Name:     conv.Name,
		Tags:     datatypes.NewJSONSlice(conv.Tags),
	}
	entity.ID = conv.ID
	return entity
}

// EtoD converts the entity to its domain object.
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		UserID:    c.UserID,
		Name:      c.Name,
		Tags:      c.Tags,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
