package model

import (
	"context"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/utils/idgen"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

// CatalogEntry is one model advertised by an inference provider.
type CatalogEntry struct {
	Model       string
	Name        string
	Description string
}

// CatalogSource lists the models an inference provider currently serves.
type CatalogSource interface {
	ListModels(ctx context.Context) ([]CatalogEntry, error)
}

// Service provides lookup and catalog maintenance for models.
type Service struct {
	repo Repository
}

// NewService creates a new model service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByPublicID resolves an opaque model identifier to its routing metadata.
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*Model, error) {
	if publicID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "model ID is required", nil, "")
	}
	m, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "model not found")
	}
	return m, nil
}

// List returns the full model catalog.
func (s *Service) List(ctx context.Context) ([]*Model, error) {
	models, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list models")
	}
	return models, nil
}

// Seed installs the configured model catalog. Existing rows matched on the
// provider routing string keep their numeric ID.
func (s *Service) Seed(ctx context.Context, seed *config.ModelSeed) error {
	if seed == nil {
		return nil
	}
	for _, sm := range seed.Models {
		publicID, err := idgen.GenerateSecureID("model", 16)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate model ID")
		}
		m := &Model{
			PublicID:     publicID,
			Model:        sm.Model,
			Name:         sm.Name,
			Description:  sm.Description,
			IsImage:      sm.IsImage,
			HasReasoning: sm.HasReasoning,
		}
		if err := s.repo.Upsert(ctx, m); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to seed model")
		}
	}
	return nil
}

// Sync refreshes catalog names and descriptions from the provider. New
// provider models are not auto-added; the catalog stays curated.
func (s *Service) Sync(ctx context.Context, source CatalogSource) error {
	entries, err := source.ListModels(ctx)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list provider models")
	}

	byRoute := make(map[string]CatalogEntry, len(entries))
	for _, e := range entries {
		byRoute[e.Model] = e
	}

	existing, err := s.repo.FindAll(ctx)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list models")
	}

	log := logger.GetLogger()
	for _, m := range existing {
		entry, ok := byRoute[m.Model]
		if !ok {
			continue
		}
		changed := false
		if entry.Name != "" && entry.Name != m.Name {
			m.Name = entry.Name
			changed = true
		}
		if entry.Description != "" && entry.Description != m.Description {
			m.Description = entry.Description
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.repo.Upsert(ctx, m); err != nil {
			log.Warn().Err(err).Str("model", m.Model).Msg("failed to update model from provider catalog")
		}
	}
	return nil
}
