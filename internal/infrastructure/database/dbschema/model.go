package dbschema

import (
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Model{})
}

// Model represents the database schema for the curated model catalog
type Model struct {
	database.BaseModel
	PublicID     string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Model        string `gorm:"type:varchar(128);uniqueIndex;not null"`
	Name         string `gorm:"type:varchar(128);not null"`
	Description  string `gorm:"type:text"`
	IsImage      bool   `gorm:"not null;default:false"`
	HasReasoning bool   `gorm:"not null;default:false"`
}

// NewSchemaModel maps the domain object to its entity.
func NewSchemaModel(m *model.Model) *Model {
	entity := &Model{
		PublicID:     m.PublicID,
		Model:        m.Model,
		Name:         m.Name,
		Description:  m.Description,
		IsImage:      m.IsImage,
		HasReasoning: m.HasReasoning,
	}
	entity.ID = m.ID
	return entity
}

// EtoD converts the entity to its domain object.
func (m *Model) EtoD() *model.Model {
	return &model.Model{
		ID:           m.ID,
		PublicID:     m.PublicID,
		Model:        m.Model,
		Name:         m.Name,
		Description:  m.Description,
		IsImage:      m.IsImage,
		HasReasoning: m.HasReasoning,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
