package infrastructure

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/domain/generation"
	"github.com/Ponesicek/s4chat/internal/infrastructure/crontab"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database/repository/conversationrepo"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database/repository/messagerepo"
	"github.com/Ponesicek/s4chat/internal/infrastructure/database/repository/modelrepo"
	"github.com/Ponesicek/s4chat/internal/infrastructure/inference"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/infrastructure/mcp"
	"github.com/Ponesicek/s4chat/internal/infrastructure/storage"
	"github.com/Ponesicek/s4chat/internal/infrastructure/worker"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	if cfg := config.GetGlobal(); cfg != nil {
		return cfg, nil
	}
	return config.Load()
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(cfg.DatabaseURL, cfg.DBPostgresqlReadDSN)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		log.Info().Msg("running database migrations")
		if err := database.Migrate(db); err != nil {
			log.Error().Err(err).Msg("database migrations failed")
			return nil, err
		}
		log.Info().Msg("database migrations completed")
	}

	return db, nil
}

// ProvideToolPool wires the MCP tool pool from configured providers.
func ProvideToolPool(cfg *config.Config) *mcp.Pool {
	return mcp.NewPool(mcp.BuildProviders(cfg))
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	ProvideConfig,
	ProvideDatabase,
	ProvideToolPool,
	logger.GetLogger,

	// Repositories
	conversationrepo.NewConversationGormRepository,
	messagerepo.NewMessageGormRepository,
	modelrepo.NewModelGormRepository,

	// Inference, storage, background work
	inference.NewInferenceProvider,
	storage.NewLocalBlobStore,
	worker.NewDispatcher,
	crontab.NewCrontab,

	// Interface bindings for the generation orchestrator
	wire.Bind(new(generation.ChatClient), new(*inference.InferenceProvider)),
	wire.Bind(new(generation.ImageClient), new(*inference.InferenceProvider)),
	wire.Bind(new(generation.BlobStore), new(*storage.LocalBlobStore)),
	wire.Bind(new(generation.ToolSource), new(*mcp.Pool)),
	wire.Bind(new(generation.Enqueuer), new(*worker.Dispatcher)),
)
