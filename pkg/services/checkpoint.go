package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/repositories"
)

// CheckpointService resolves checkpoints and datasources by ID and runs them.
type CheckpointService interface {
	// List returns every stored checkpoint.
	List(ctx context.Context) ([]*models.Checkpoint, error)

	// Get returns one checkpoint or apperrors.ErrCheckpointNotFound.
	Get(ctx context.Context, id int64) (*models.Checkpoint, error)

	// ListDatasources returns the datasources whose engine matches the checkpoint.
	ListDatasources(ctx context.Context, checkpointID int64) ([]*models.Datasource, error)

	// RunTest runs the checkpoint's test flow against a datasource.
	// Only lookup failures are returned as errors; run failures are ERROR results.
	RunTest(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error)

	// RunDetail runs the checkpoint's detail flow against a datasource.
	RunDetail(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error)
}

type checkpointService struct {
	checkpoints repositories.CheckpointRepository
	datasources repositories.DatasourceRepository
	profiles    profileLoader
	runner      CheckpointRunner
	logger      *zap.Logger
}

// NewCheckpointService creates a checkpoint service. A nil encryptor accepts
// only plaintext passwords; a nil resolver leaves hosts unchanged.
func NewCheckpointService(
	checkpoints repositories.CheckpointRepository,
	datasources repositories.DatasourceRepository,
	encryptor *crypto.CredentialEncryptor,
	resolver HostResolver,
	runner CheckpointRunner,
	logger *zap.Logger,
) CheckpointService {
	return &checkpointService{
		checkpoints: checkpoints,
		datasources: datasources,
		profiles:    newProfileLoader(datasources, encryptor, resolver),
		runner:      runner,
		logger:      logger.Named("checkpoints"),
	}
}

func (s *checkpointService) List(ctx context.Context) ([]*models.Checkpoint, error) {
	checkpoints, err := s.checkpoints.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return checkpoints, nil
}

func (s *checkpointService) Get(ctx context.Context, id int64) (*models.Checkpoint, error) {
	return s.checkpoints.GetByID(ctx, id)
}

func (s *checkpointService) ListDatasources(ctx context.Context, checkpointID int64) ([]*models.Datasource, error) {
	cp, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, err
	}

	datasources, err := s.datasources.ListByDBType(ctx, cp.DBType)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources for checkpoint %d: %w", checkpointID, err)
	}
	return datasources, nil
}

func (s *checkpointService) RunTest(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error) {
	cp, ds, err := s.resolve(ctx, checkpointID, datasourceID)
	if err != nil {
		return nil, err
	}
	return s.runner.RunTest(ctx, cp, ds), nil
}

func (s *checkpointService) RunDetail(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error) {
	cp, ds, err := s.resolve(ctx, checkpointID, datasourceID)
	if err != nil {
		return nil, err
	}
	return s.runner.RunDetail(ctx, cp, ds), nil
}

// resolve loads both records. A datasource for a different engine than the
// checkpoint is reported as not found.
func (s *checkpointService) resolve(ctx context.Context, checkpointID, datasourceID int64) (*models.Checkpoint, *models.Datasource, error) {
	cp, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.datasources.GetByID(ctx, datasourceID)
	if err != nil {
		return nil, nil, err
	}
	if stored.DBType != cp.DBType {
		s.logger.Debug("Datasource engine does not match checkpoint",
			zap.Int64("checkpoint_id", cp.ID),
			zap.String("checkpoint_db_type", string(cp.DBType)),
			zap.Int64("datasource_id", stored.ID),
			zap.String("datasource_db_type", string(stored.DBType)))
		return nil, nil, fmt.Errorf("%w: datasource %d is %s, checkpoint %d needs %s",
			apperrors.ErrDatasourceNotFound, stored.ID, stored.DBType, cp.ID, cp.DBType)
	}

	ds, err := s.profiles.prepare(stored)
	if err != nil {
		return nil, nil, err
	}
	return cp, ds, nil
}

// Ensure checkpointService implements CheckpointService at compile time.
var _ CheckpointService = (*checkpointService)(nil)
