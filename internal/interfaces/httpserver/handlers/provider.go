package handlers

import (
	"github.com/rs/zerolog"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/generation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/storage"
)

// Provider wires HTTP handlers.
type Provider struct {
	Conversation *ConversationHandler
	Model        *ModelHandler
	Media        *MediaHandler
}

func NewProvider(
	conversations *conversation.ConversationService,
	generations *generation.Service,
	models *model.Service,
	blobs *storage.LocalBlobStore,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(conversations, generations, models, blobs, log),
		Model:        NewModelHandler(models),
		Media:        NewMediaHandler(blobs, log),
	}
}
