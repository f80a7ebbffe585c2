package generation

import (
	"context"
	"strings"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/utils/idgen"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

// Service accepts generation submissions, runs them off the request path and
// exposes cancellation. All post-submission progress is reported through the
// assistant message's status field.
type Service struct {
	cfg           *config.Config
	conversations conversation.ConversationRepository
	messages      conversation.MessageRepository
	models        *model.Service
	chat          ChatClient
	image         ImageClient
	blobs         BlobStore
	tools         ToolSource
	queue         Enqueuer
}

func NewService(
	cfg *config.Config,
	conversations conversation.ConversationRepository,
	messages conversation.MessageRepository,
	models *model.Service,
	chat ChatClient,
	image ImageClient,
	blobs BlobStore,
	tools ToolSource,
	queue Enqueuer,
) *Service {
	return &Service{
		cfg:           cfg,
		conversations: conversations,
		messages:      messages,
		models:        models,
		chat:          chat,
		image:         image,
		blobs:         blobs,
		tools:         tools,
		queue:         queue,
	}
}

// SubmitParams describes one generation request.
type SubmitParams struct {
	UserID               string
	ConversationPublicID string
	ModelPublicID        string
	Content              string
	UseTools             bool
	// APIKey optionally overrides the configured provider credential for
	// this generation only. It is never persisted.
	APIKey string
}

// Submit records the user's turn and schedules the generation. The user
// message is durable before this returns; everything after is asynchronous.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*conversation.Message, error) {
	if strings.TrimSpace(params.Content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message content is required", nil, "")
	}

	conv, err := s.ownedConversation(ctx, params.UserID, params.ConversationPublicID)
	if err != nil {
		return nil, err
	}

	m, err := s.models.GetByPublicID(ctx, params.ModelPublicID)
	if err != nil {
		return nil, err
	}

	publicID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
	}
	userMsg := &conversation.Message{
		PublicID:       publicID,
		UserID:         params.UserID,
		ConversationID: conv.ID,
		ModelID:        m.ID,
		Role:           conversation.RoleUser,
		Content:        params.Content,
	}
	if err := s.messages.Insert(ctx, userMsg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record user message")
	}

	job := generationJob{
		userID:         params.UserID,
		conversationID: conv.ID,
		content:        params.Content,
		model:          m,
		useTools:       params.UseTools,
		apiKey:         params.APIKey,
	}
	if err := s.queue.Enqueue(ctx, "generate", func(jobCtx context.Context) {
		s.run(jobCtx, job)
	}); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to schedule generation")
	}

	return userMsg, nil
}

// Stop marks the latest message of the conversation terminal if it is still
// in flight. With one generation per conversation at a time, the latest
// message is the streaming assistant record.
func (s *Service) Stop(ctx context.Context, userID, conversationPublicID string) error {
	conv, err := s.ownedConversation(ctx, userID, conversationPublicID)
	if err != nil {
		return err
	}

	latest, err := s.messages.LatestByConversation(ctx, conv.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load latest message")
	}
	if latest.Status.Terminal() {
		return nil
	}

	_, err = s.messages.PatchInFlight(ctx, latest.ID, conversation.MessagePatch{
		Content:   latest.Content,
		Reasoning: latest.Reasoning,
		Status: &conversation.MessageStatus{
			Type:    conversation.StatusError,
			Message: "Generation stopped",
		},
	})
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to stop generation")
	}
	return nil
}

func (s *Service) ownedConversation(ctx context.Context, userID, publicID string) (*conversation.Conversation, error) {
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	// Ownership failures read as not-found so conversation IDs stay unprobeable
	if conv.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	return conv, nil
}
