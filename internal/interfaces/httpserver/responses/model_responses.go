package responses

import (
	"github.com/Ponesicek/s4chat/internal/domain/model"
)

// ModelResponse is the wire shape of a catalog model.
type ModelResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	IsImage      bool   `json:"is_image"`
	HasReasoning bool   `json:"has_reasoning"`
}

// ModelListResponse wraps the model catalog.
type ModelListResponse struct {
	Object string           `json:"object"`
	Data   []*ModelResponse `json:"data"`
}

func BuildModelResponse(m *model.Model) *ModelResponse {
	return &ModelResponse{
		ID:           m.PublicID,
		Model:        m.Model,
		Name:         m.Name,
		Description:  m.Description,
		IsImage:      m.IsImage,
		HasReasoning: m.HasReasoning,
	}
}

func BuildModelListResponse(models []*model.Model) *ModelListResponse {
	data := make([]*ModelResponse, 0, len(models))
	for _, m := range models {
		data = append(data, BuildModelResponse(m))
	}
	return &ModelListResponse{Object: "list", Data: data}
}
