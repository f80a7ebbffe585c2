package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Ponesicek/s4chat/internal/domain/conversation"
	"github.com/Ponesicek/s4chat/internal/domain/generation"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/metrics"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/middlewares"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/requests"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/responses"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

// Uploaded images are read fully into memory before storage.
const maxUploadBytes = 20 << 20

// ConversationHandler exposes conversation and message endpoints.
type ConversationHandler struct {
	conversations *conversation.ConversationService
	generations   *generation.Service
	models        *model.Service
	blobs         generation.BlobStore
	log           zerolog.Logger
}

func NewConversationHandler(
	conversations *conversation.ConversationService,
	generations *generation.Service,
	models *model.Service,
	blobs generation.BlobStore,
	log zerolog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		generations:   generations,
		models:        models,
		blobs:         blobs,
		log:           log.With().Str("component", "conversation-handler").Logger(),
	}
}

// List returns every conversation owned by the caller, most recent first.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	convs, err := h.conversations.ListConversations(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, responses.BuildConversationListResponse(convs))
}

// Create creates an empty conversation with the default name.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	conv, err := h.conversations.CreateConversation(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}

	metrics.ConversationsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, responses.BuildConversationResponse(conv))
}

// Get returns a single conversation.
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	conv, err := h.conversations.GetConversationByPublicIDAndUserID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}
	c.JSON(http.StatusOK, responses.BuildConversationResponse(conv))
}

// Rename sets a user-chosen conversation name.
func (h *ConversationHandler) Rename(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	var req requests.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid rename request")
		return
	}

	conv, err := h.conversations.RenameConversation(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		responses.HandleError(c, err, "failed to rename conversation")
		return
	}
	c.JSON(http.StatusOK, responses.BuildConversationResponse(conv))
}

// Delete removes a conversation and its messages.
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	if err := h.conversations.DeleteConversation(c.Request.Context(), userID, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns the conversation's messages in creation order. Clients
// poll this while a generation is in flight to observe streamed progress.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	msgs, err := h.conversations.ListMessages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMessageListResponse(msgs))
}

// SubmitMessage records the user's turn and schedules generation. The
// response carries the durable user message; the assistant message appears
// asynchronously.
func (h *ConversationHandler) SubmitMessage(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	var req requests.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid message request")
		return
	}

	msg, err := h.generations.Submit(c.Request.Context(), generation.SubmitParams{
		UserID:               userID,
		ConversationPublicID: c.Param("id"),
		ModelPublicID:        req.Model,
		Content:              req.Content,
		UseTools:             req.UseTools,
		APIKey:               req.APIKey,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to submit message")
		return
	}
	c.JSON(http.StatusAccepted, responses.BuildSubmitMessageResponse(c.Param("id"), msg))
}

// StopGeneration marks the in-flight assistant message as stopped. Stopping
// an already settled generation is a no-op.
func (h *ConversationHandler) StopGeneration(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)

	if err := h.generations.Stop(c.Request.Context(), userID, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to stop generation")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage attaches an uploaded image to the conversation as a user turn.
func (h *ConversationHandler) UploadImage(c *gin.Context) {
	userID := middlewares.UserIDFromContext(c)
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "image file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "image exceeds the upload size limit")
		return
	}

	modelPublicID := c.PostForm("model")
	if modelPublicID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "model is required")
		return
	}
	m, err := h.models.GetByPublicID(ctx, modelPublicID)
	if err != nil {
		responses.HandleError(c, err, "unknown model")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "only image uploads are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "failed to read uploaded file")
		return
	}

	ref, err := h.blobs.Store(ctx, data, contentType)
	if err != nil {
		responses.HandleError(c, err, "failed to store image")
		return
	}

	msg, err := h.conversations.SaveUserImage(ctx, userID, c.Param("id"), ref, m.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to attach image")
		return
	}

	h.log.Info().
		Str("conversation_id", c.Param("id")).
		Str("blob_ref", ref).
		Int("bytes", len(data)).
		Msg("image attached")
	c.JSON(http.StatusCreated, responses.BuildMessageResponse(msg))
}
