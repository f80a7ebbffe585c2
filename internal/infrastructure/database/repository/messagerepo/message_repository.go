package messagerepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database/dbschema"
	"github.com/Ponesicek/s4chat/internal/utils/functional"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

type MessageGormRepository struct {
	db *gorm.DB
}

var _ conversation.MessageRepository = (*MessageGormRepository)(nil)

func NewMessageGormRepository(db *gorm.DB) conversation.MessageRepository {
	return &MessageGormRepository{db: db}
}

// Insert implements conversation.MessageRepository.
func (repo *MessageGormRepository) Insert(ctx context.Context, msg *conversation.Message) error {
	entity := dbschema.NewSchemaMessage(msg)
	if err := repo.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to insert message")
	}
	msg.ID = entity.ID
	msg.CreatedAt = entity.CreatedAt
	msg.UpdatedAt = entity.UpdatedAt
	return nil
}

// ListByConversation implements conversation.MessageRepository.
func (repo *MessageGormRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	var rows []*dbschema.Message
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list messages")
	}
	return functional.Map(rows, func(item *dbschema.Message) *conversation.Message {
		return item.EtoD()
	}), nil
}

// LatestByConversation implements conversation.MessageRepository.
func (repo *MessageGormRepository) LatestByConversation(ctx context.Context, conversationID uint) (*conversation.Message, error) {
	var entity dbschema.Message
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "conversation has no messages", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to load latest message")
	}
	return entity.EtoD(), nil
}

// PatchInFlight implements conversation.MessageRepository. The pending guard
// in the WHERE clause makes a terminal status absorbing: once a stop or
// finalization lands, later patches match zero rows.
func (repo *MessageGormRepository) PatchInFlight(ctx context.Context, messageID uint, patch conversation.MessagePatch) (bool, error) {
	updates := map[string]any{
		"content": patch.Content,
	}
	if patch.Reasoning != nil {
		updates["reasoning"] = *patch.Reasoning
	}
	if patch.Status != nil {
		status := dbschema.JSONStatus(*patch.Status)
		updates["status"] = &status
	}

	result := repo.db.WithContext(ctx).
		Model(&dbschema.Message{}).
		Where("id = ?", messageID).
		Where("status->>'type' = ?", string(conversation.StatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to patch in-flight message")
	}
	return result.RowsAffected > 0, nil
}
