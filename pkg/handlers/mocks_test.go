package handlers

import (
	"context"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

type mockCheckpointService struct {
	checkpoints []*models.Checkpoint
	datasources []*models.Datasource
	result      *models.RunResult
	err         error

	gotCheckpointID int64
	gotDatasourceID int64
}

func (m *mockCheckpointService) List(ctx context.Context) ([]*models.Checkpoint, error) {
	return m.checkpoints, m.err
}

func (m *mockCheckpointService) Get(ctx context.Context, id int64) (*models.Checkpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, cp := range m.checkpoints {
		if cp.ID == id {
			return cp, nil
		}
	}
	return nil, apperrors.ErrCheckpointNotFound
}

func (m *mockCheckpointService) ListDatasources(ctx context.Context, checkpointID int64) ([]*models.Datasource, error) {
	m.gotCheckpointID = checkpointID
	return m.datasources, m.err
}

func (m *mockCheckpointService) RunTest(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error) {
	m.gotCheckpointID, m.gotDatasourceID = checkpointID, datasourceID
	return m.result, m.err
}

func (m *mockCheckpointService) RunDetail(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error) {
	m.gotCheckpointID, m.gotDatasourceID = checkpointID, datasourceID
	return m.result, m.err
}

var _ services.CheckpointService = (*mockCheckpointService)(nil)

type mockDatasourceService struct {
	result *services.CheckResult
	err    error
	gotID  int64
}

func (m *mockDatasourceService) Check(ctx context.Context, id int64) (*services.CheckResult, error) {
	m.gotID = id
	return m.result, m.err
}

func (m *mockDatasourceService) TestPort(ctx context.Context, id int64) (*services.CheckResult, error) {
	m.gotID = id
	return m.result, m.err
}

var _ services.DatasourceService = (*mockDatasourceService)(nil)
