package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Ponesicek/s4chat/internal/infrastructure/storage"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/responses"
)

// MediaHandler serves stored blobs back to clients.
type MediaHandler struct {
	blobs *storage.LocalBlobStore
	log   zerolog.Logger
}

func NewMediaHandler(blobs *storage.LocalBlobStore, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		blobs: blobs,
		log:   log.With().Str("component", "media-handler").Logger(),
	}
}

// Get streams a blob by reference. Blob contents are immutable so the
// response is cacheable.
func (h *MediaHandler) Get(c *gin.Context) {
	ref := c.Param("ref")

	reader, contentType, err := h.blobs.Open(c.Request.Context(), ref)
	if err != nil {
		responses.HandleError(c, err, "media not found")
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Warn().Err(err).Str("ref", ref).Msg("media stream interrupted")
	}
}
