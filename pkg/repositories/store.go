package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/config"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/database"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/retry"
)

// Store bundles the repositories chosen by repository.driver with the
// resource that backs them.
type Store struct {
	Checkpoints CheckpointRepository
	Datasources DatasourceRepository
	closer      io.Closer
}

// Close releases the backing database, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenStore opens the checkpoint store named by cfg.Repository.Driver.
// Database stores are retried while the server is unreachable or starting
// up; the PostgreSQL store is migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	return openStore(ctx, cfg, retry.StartupConfig(), logger)
}

func openStore(ctx context.Context, cfg *config.Config, retryCfg *retry.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Repository.Driver {
	case config.RepositoryPostgres:
		var db *database.DB
		err := retry.DoIfRetryable(ctx, retryCfg, func() error {
			var err error
			db, err = database.NewConnection(ctx, &database.Config{
				URL:            cfg.Database.ConnectionString(),
				MaxConnections: cfg.Database.MaxConnections,
				MinConnections: cfg.Database.MaxIdleConns,
			})
			if err != nil {
				logger.Warn("PostgreSQL store not ready", zap.String("error", err.Error()))
			}
			return err
		})
		if err != nil {
			return nil, err
		}

		stdDB := db.StdDB()
		err = database.RunMigrations(stdDB, logger)
		_ = stdDB.Close()
		if err != nil {
			db.Close()
			return nil, err
		}

		return &Store{
			Checkpoints: NewCheckpointRepository(db),
			Datasources: NewDatasourceRepository(db),
			closer:      closerFunc(func() error { db.Close(); return nil }),
		}, nil

	case config.RepositoryMySQL:
		var db *sql.DB
		err := retry.DoIfRetryable(ctx, retryCfg, func() error {
			var err error
			db, err = database.OpenMySQL(ctx, &database.MySQLConfig{
				Host:     cfg.MySQL.Host,
				Port:     cfg.MySQL.Port,
				User:     cfg.MySQL.User,
				Password: cfg.MySQL.Password,
				Database: cfg.MySQL.Database,
			})
			if err != nil {
				logger.Warn("MySQL store not ready", zap.String("error", err.Error()))
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return &Store{
			Checkpoints: NewMySQLCheckpointRepository(db),
			Datasources: NewMySQLDatasourceRepository(db),
			closer:      db,
		}, nil

	case config.RepositoryCatalog:
		catalog, err := LoadCatalog(cfg.Repository.CatalogPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded checkpoint catalog", zap.String("path", cfg.Repository.CatalogPath))
		return &Store{
			Checkpoints: catalog.Checkpoints(),
			Datasources: catalog.Datasources(),
		}, nil
	}
	return nil, fmt.Errorf("unknown repository driver %q", cfg.Repository.Driver)
}
