package model

import (
	"context"
	"time"
)

// Model is read-only reference data describing a selectable model: its
// provider routing string and the capabilities the orchestrator branches on.
type Model struct {
	ID           uint      `json:"-"`
	PublicID     string    `json:"id"`
	Model        string    `json:"model"` // provider routing string, e.g. "openai/gpt-4o-mini"
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsImage      bool      `json:"is_image"`
	HasReasoning bool      `json:"has_reasoning"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Repository interface {
	FindByPublicID(ctx context.Context, publicID string) (*Model, error)
	FindByID(ctx context.Context, id uint) (*Model, error)
	FindAll(ctx context.Context) ([]*Model, error)
	// Upsert inserts the model or updates the existing row matched on the
	// provider routing string.
	Upsert(ctx context.Context, m *Model) error
}
