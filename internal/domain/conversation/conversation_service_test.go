package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

type memConversationRepo struct {
	nextID uint
	rows   map[uint]*Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{rows: make(map[uint]*Conversation)}
}

func (r *memConversationRepo) Create(ctx context.Context, conv *Conversation) error {
	r.nextID++
	conv.ID = r.nextID
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	clone := *conv
	r.rows[conv.ID] = &clone
	return nil
}

func (r *memConversationRepo) FindByPublicID(ctx context.Context, publicID string) (*Conversation, error) {
	for _, conv := range r.rows {
		if conv.PublicID == publicID {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
}

func (r *memConversationRepo) FindByUser(ctx context.Context, userID string) ([]*Conversation, error) {
	var out []*Conversation
	for _, conv := range r.rows {
		if conv.UserID == userID {
			clone := *conv
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memConversationRepo) UpdateName(ctx context.Context, id uint, name string) error {
	conv, ok := r.rows[id]
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	conv.Name = name
	return nil
}

func (r *memConversationRepo) Delete(ctx context.Context, id uint) error {
	delete(r.rows, id)
	return nil
}

type memMessageRepo struct {
	nextID uint
	rows   []*Message
}

func (r *memMessageRepo) Insert(ctx context.Context, msg *Message) error {
	r.nextID++
	msg.ID = r.nextID
	msg.CreatedAt = time.Now()
	clone := *msg
	r.rows = append(r.rows, &clone)
	return nil
}

func (r *memMessageRepo) ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error) {
	var out []*Message
	for _, msg := range r.rows {
		if msg.ConversationID == conversationID {
			clone := *msg
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memMessageRepo) LatestByConversation(ctx context.Context, conversationID uint) (*Message, error) {
	msgs, _ := r.ListByConversation(ctx, conversationID)
	if len(msgs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "no messages", nil, "")
	}
	return msgs[len(msgs)-1], nil
}

func (r *memMessageRepo) PatchInFlight(ctx context.Context, messageID uint, patch MessagePatch) (bool, error) {
	for _, msg := range r.rows {
		if msg.ID == messageID && !msg.Status.Terminal() {
			msg.Content = patch.Content
			msg.Reasoning = patch.Reasoning
			msg.Status = patch.Status
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*ConversationService, *memConversationRepo, *memMessageRepo) {
	convs := newMemConversationRepo()
	msgs := &memMessageRepo{}
	return NewConversationService(convs, msgs), convs, msgs
}

func TestCreateConversationDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	conv, err := svc.CreateConversation(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, conv.Name)
	assert.Equal(t, "user-1", conv.UserID)
	assert.Contains(t, conv.PublicID, "conv_")
}

func TestOwnershipMismatchReadsAsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.GetConversationByPublicIDAndUserID(ctx, conv.PublicID, "user-2")
	require.Error(t, err)
	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, platformerrors.ErrorTypeNotFound, platformErr.GetErrorType())
}

func TestRenameConversation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	renamed, err := svc.RenameConversation(ctx, "user-1", conv.PublicID, "  Trip planning  ")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", renamed.Name)
}

func TestRenameRejectsBlankName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.RenameConversation(ctx, "user-1", conv.PublicID, "   ")
	require.Error(t, err)
	var platformErr *platformerrors.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, platformerrors.ErrorTypeValidation, platformErr.GetErrorType())
}

func TestDeleteConversation(t *testing.T) {
	svc, convs, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, "user-1", conv.PublicID))
	assert.Empty(t, convs.rows)
}

func TestDeleteRejectsForeignConversation(t *testing.T) {
	svc, convs, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	require.Error(t, svc.DeleteConversation(ctx, "user-2", conv.PublicID))
	assert.Len(t, convs.rows, 1)
}

func TestSaveUserImageRecordsBlobReference(t *testing.T) {
	svc, _, msgs := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)

	msg, err := svc.SaveUserImage(ctx, "user-1", conv.PublicID, "blob_abc123", 7)
	require.NoError(t, err)
	assert.True(t, msg.IsImage)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "blob_abc123", msg.Content)
	assert.Equal(t, uint(7), msg.ModelID)
	require.Len(t, msgs.rows, 1)
}

func TestListMessagesRequiresOwnership(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "user-1")
	require.NoError(t, err)
	_, err = svc.SaveUserImage(ctx, "user-1", conv.PublicID, "blob_x", 1)
	require.NoError(t, err)

	msgs, err := svc.ListMessages(ctx, "user-1", conv.PublicID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.ListMessages(ctx, "user-2", conv.PublicID)
	assert.Error(t, err)
}
