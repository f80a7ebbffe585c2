package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/domain/model"
	"github.com/Ponesicek/s4chat/internal/infrastructure/inference"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

const (
	DefaultModelSyncInterval = 60               // in minutes
	CronJobTimeout           = 10 * time.Minute // Timeout for each cron job execution
)

type Crontab struct {
	ctab              *crontab.Crontab
	modelService      *model.Service
	inferenceProvider *inference.InferenceProvider
}

func NewCrontab(
	modelService *model.Service,
	inferenceProvider *inference.InferenceProvider,
) *Crontab {
	return &Crontab{
		ctab:              crontab.New(),
		modelService:      modelService,
		inferenceProvider: inferenceProvider,
	}
}

func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()

	cfg := config.GetGlobal()
	if cfg != nil && cfg.ModelSyncEnabled {
		// execute once on server start
		c.syncModels(ctx)

		syncInterval := cfg.ModelSyncIntervalMinutes
		if syncInterval <= 0 {
			syncInterval = DefaultModelSyncInterval
		}

		// crontab minute steps cap at 59, hourly and above schedule on the hour
		cronExpr := fmt.Sprintf("*/%d * * * *", syncInterval)
		if syncInterval >= 60 {
			cronExpr = "0 * * * *"
		}
		if err := c.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			c.syncModels(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add model sync job")
		}
		log.Info().Msgf("Model sync scheduled: every %d minute(s)", syncInterval)
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) syncModels(ctx context.Context) {
	log := logger.GetLogger()
	if err := c.modelService.Sync(ctx, c.inferenceProvider); err != nil {
		log.Error().Err(err).Msg("Failed to sync model catalog")
		return
	}
	log.Info().Msg("Model catalog synced")
}
