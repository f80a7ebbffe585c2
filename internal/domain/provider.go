package domain

import (
	"github.com/google/wire"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/generation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	conversation.NewConversationService,
	model.NewService,
	generation.NewService,
)
