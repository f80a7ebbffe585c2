package conversation

import (
	"context"
	"strings"

	"github.com/Ponesicek/s4chat/internal/utils/idgen"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

// ConversationService handles business logic for conversations and their messages.
type ConversationService struct {
	repo     ConversationRepository
	messages MessageRepository
}

// NewConversationService creates a new conversation service
func NewConversationService(repo ConversationRepository, messages MessageRepository) *ConversationService {
	return &ConversationService{repo: repo, messages: messages}
}

// CreateConversation creates a conversation owned by userID with the default name.
func (s *ConversationService) CreateConversation(ctx context.Context, userID string) (*Conversation, error) {
	publicID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate conversation ID")
	}

	conv := &Conversation{
		PublicID: publicID,
		UserID:   userID,
		Name:     DefaultName,
		Tags:     []string{},
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}
	return conv, nil
}

// GetConversationByPublicIDAndUserID retrieves a conversation and validates ownership.
func (s *ConversationService) GetConversationByPublicIDAndUserID(ctx context.Context, publicID, userID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	if conv.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	return conv, nil
}

// ListConversations returns every conversation owned by userID.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	convs, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return convs, nil
}

// RenameConversation applies a user-initiated rename. The title deriver may
// race this write; last writer wins.
func (s *ConversationService) RenameConversation(ctx context.Context, userID, publicID, name string) (*Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "name cannot be empty", nil, "")
	}

	conv, err := s.GetConversationByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateName(ctx, conv.ID, name); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to rename conversation")
	}
	conv.Name = name
	return conv, nil
}

// ListMessages returns the conversation's messages in ascending creation order.
func (s *ConversationService) ListMessages(ctx context.Context, userID, publicID string) ([]*Message, error) {
	conv, err := s.GetConversationByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list messages")
	}
	return msgs, nil
}

// SaveUserImage records an uploaded image attachment as a user turn whose
// content is the blob reference.
func (s *ConversationService) SaveUserImage(ctx context.Context, userID, publicID, blobRef string, modelID uint) (*Message, error) {
	conv, err := s.GetConversationByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}

	messageID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
	}

	msg := &Message{
		PublicID:       messageID,
		UserID:         userID,
		ConversationID: conv.ID,
		ModelID:        modelID,
		Role:           RoleUser,
		Content:        blobRef,
		IsImage:        true,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save image message")
	}
	return msg, nil
}

// DeleteConversation removes a conversation and every message in it.
func (s *ConversationService) DeleteConversation(ctx context.Context, userID, publicID string) error {
	conv, err := s.GetConversationByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, conv.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}
