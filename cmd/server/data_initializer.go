package main

import (
	"context"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
)

// DataInitializer installs reference data before the application starts
// serving. Schema migration already ran while the database connection was
// being built.
type DataInitializer struct {
	cfg          *config.Config
	modelService *model.Service
}

func (d *DataInitializer) Install(ctx context.Context) error {
	log := logger.Component("data-initializer")

	if d.cfg.ModelSeed == nil || len(d.cfg.ModelSeed.Models) == 0 {
		log.Info().Msg("no model seed configured, skipping")
		return nil
	}

	if err := d.modelService.Seed(ctx, d.cfg.ModelSeed); err != nil {
		return err
	}
	log.Info().Int("models", len(d.cfg.ModelSeed.Models)).Msg("model catalog seeded")
	return nil
}
