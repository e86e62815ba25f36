package services

import (
	"context"
	"sort"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

type mockCheckpointRepository struct {
	checkpoints map[int64]*models.Checkpoint
	listErr     error
}

func (m *mockCheckpointRepository) GetByID(ctx context.Context, id int64) (*models.Checkpoint, error) {
	cp, ok := m.checkpoints[id]
	if !ok {
		return nil, apperrors.ErrCheckpointNotFound
	}
	return cp, nil
}

func (m *mockCheckpointRepository) List(ctx context.Context) ([]*models.Checkpoint, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*models.Checkpoint, 0, len(m.checkpoints))
	for _, cp := range m.checkpoints {
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type mockDatasourceRepository struct {
	datasources map[int64]*models.Datasource
}

func (m *mockDatasourceRepository) GetByID(ctx context.Context, id int64) (*models.Datasource, error) {
	ds, ok := m.datasources[id]
	if !ok {
		return nil, apperrors.ErrDatasourceNotFound
	}
	return ds, nil
}

func (m *mockDatasourceRepository) ListByDBType(ctx context.Context, dbType models.DBType) ([]*models.Datasource, error) {
	var result []*models.Datasource
	for _, ds := range m.datasources {
		if ds.DBType == dbType {
			result = append(result, ds)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// recordingRunner captures the profiles handed to the runner.
type recordingRunner struct {
	checkpoint *models.Checkpoint
	datasource *models.Datasource
}

func (r *recordingRunner) RunTest(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) *models.RunResult {
	r.checkpoint, r.datasource = cp, ds
	return models.NewRunResult(models.RunKindTest, cp.ID, ds.ID).Finish(models.RunStatusPass)
}

func (r *recordingRunner) RunDetail(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) *models.RunResult {
	r.checkpoint, r.datasource = cp, ds
	return models.NewRunResult(models.RunKindDetail, cp.ID, ds.ID).Finish(models.RunStatusOK)
}

// stubResolver rewrites every host to a fixed value.
type stubResolver struct{ host string }

func (s stubResolver) Resolve(string) string { return s.host }
