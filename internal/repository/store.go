package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/config"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/database"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/memory"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/mongodb"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/postgresql"
)

// OpenRegistrations connects the employee directory selected by
// STORE_DRIVER. The returned close func releases the connection.
func OpenRegistrations(ctx context.Context, cfg *config.Config) (registration.Repository, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("Employee directory connected", "store", "postgres", "database", cfg.Store.Postgres.Name)
		return postgresql.NewRegistrationRepository(db), db.Close, nil

	case "mongodb":
		db, err := database.NewMongoDB(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = db.Close(context.Background())
			return nil, nil, err
		}
		slog.Info("Employee directory connected", "store", "mongodb", "database", cfg.Store.MongoDB)
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(ctx); err != nil {
				slog.Error("Failed to disconnect MongoDB", "error", err)
			}
		}
		return mongodb.NewRegistrationRepository(db), closeFn, nil

	case "memory":
		slog.Warn("Employee directory is in memory, registrations are lost on restart")
		return memory.NewRegistrationRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported STORE_DRIVER: %s", cfg.Store.Driver)
	}
}
