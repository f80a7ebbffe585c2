package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/responses"
)

// ModelHandler exposes the model catalog.
type ModelHandler struct {
	models *model.Service
}

func NewModelHandler(models *model.Service) *ModelHandler {
	return &ModelHandler{models: models}
}

// List returns every selectable model.
func (h *ModelHandler) List(c *gin.Context) {
	models, err := h.models.List(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list models")
		return
	}
	c.JSON(http.StatusOK, responses.BuildModelListResponse(models))
}
