package modelrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database/dbschema"
	"github.com/Ponesicek/s4chat/internal/utils/functional"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

type ModelGormRepository struct {
	db *gorm.DB
}

var _ model.Repository = (*ModelGormRepository)(nil)

func NewModelGormRepository(db *gorm.DB) model.Repository {
	return &ModelGormRepository{db: db}
}

// FindByPublicID implements model.Repository.
func (repo *ModelGormRepository) FindByPublicID(ctx context.Context, publicID string) (*model.Model, error) {
	var entity dbschema.Model
	err := repo.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "model not found", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find model by public ID")
	}
	return entity.EtoD(), nil
}

// FindByID implements model.Repository.
func (repo *ModelGormRepository) FindByID(ctx context.Context, id uint) (*model.Model, error) {
	var entity dbschema.Model
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, "model not found", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find model by ID")
	}
	return entity.EtoD(), nil
}

// FindAll implements model.Repository.
func (repo *ModelGormRepository) FindAll(ctx context.Context) ([]*model.Model, error) {
	var rows []*dbschema.Model
	err := repo.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list models")
	}
	return functional.Map(rows, func(item *dbschema.Model) *model.Model {
		return item.EtoD()
	}), nil
}

// Upsert implements model.Repository. Rows conflict on the provider route so
// seeding and sync refresh metadata without minting new public IDs.
func (repo *ModelGormRepository) Upsert(ctx context.Context, m *model.Model) error {
	entity := dbschema.NewSchemaModel(m)
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "is_image", "has_reasoning", "updated_at"}),
	}).Create(entity).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to upsert model")
	}
	m.ID = entity.ID
	m.CreatedAt = entity.CreatedAt
	m.UpdatedAt = entity.UpdatedAt
	return nil
}
