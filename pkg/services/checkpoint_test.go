package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

func newCheckpointFixture(t *testing.T, encryptor *crypto.CredentialEncryptor, resolver HostResolver) (CheckpointService, *recordingRunner, *mockDatasourceRepository) {
	t.Helper()
	checkpoints := &mockCheckpointRepository{checkpoints: map[int64]*models.Checkpoint{
		1: {ID: 1, Name: "Locked accounts", DBType: models.DBTypeOracle, SQLTest: "SELECT COUNT(*) FROM dba_users"},
		2: {ID: 2, Name: "Sysadmins", DBType: models.DBTypeMSSQL, SQLTest: "SELECT COUNT(*) FROM sys.server_principals"},
	}}
	datasources := &mockDatasourceRepository{datasources: map[int64]*models.Datasource{
		10: {ID: 10, Name: "prod-ora", DBType: models.DBTypeOracle, Host: "localhost", Password: "tiger", OracleServiceName: "ORCL"},
		11: {ID: 11, Name: "dev-ora", DBType: models.DBTypeOracle, Host: "ora2", OracleSID: "DEV"},
		20: {ID: 20, Name: "prod-sql", DBType: models.DBTypeMSSQL, Host: "sql1"},
	}}
	runner := &recordingRunner{}
	return NewCheckpointService(checkpoints, datasources, encryptor, resolver, runner, zap.NewNop()), runner, datasources
}

func TestCheckpointService_ListAndGet(t *testing.T) {
	svc, _, _ := newCheckpointFixture(t, nil, nil)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Locked accounts", list[0].Name)

	cp, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.DBTypeMSSQL, cp.DBType)

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrCheckpointNotFound)
}

func TestCheckpointService_ListError(t *testing.T) {
	repo := &mockCheckpointRepository{listErr: errors.New("connection refused")}
	svc := NewCheckpointService(repo, &mockDatasourceRepository{}, nil, nil, &recordingRunner{}, zap.NewNop())

	_, err := svc.List(context.Background())
	assert.ErrorContains(t, err, "failed to list checkpoints")
}

func TestCheckpointService_ListDatasourcesMatchesEngine(t *testing.T) {
	svc, _, _ := newCheckpointFixture(t, nil, nil)

	list, err := svc.ListDatasources(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dev-ora", list[0].Name)
	assert.Equal(t, "prod-ora", list[1].Name)

	_, err = svc.ListDatasources(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrCheckpointNotFound)
}

func TestCheckpointService_RunTestPreparesProfile(t *testing.T) {
	svc, runner, datasources := newCheckpointFixture(t, nil, stubResolver{host: "host.docker.internal"})

	result, err := svc.RunTest(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPass, result.Status)

	require.NotNil(t, runner.datasource)
	assert.Equal(t, "host.docker.internal", runner.datasource.Host)
	assert.Equal(t, "tiger", runner.datasource.Password)
	assert.Equal(t, "localhost", datasources.datasources[10].Host, "stored profile must not change")
}

func TestCheckpointService_RunOpensSealedPassword(t *testing.T) {
	encryptor, err := crypto.NewCredentialEncryptor("unit-test-key")
	require.NoError(t, err)
	svc, runner, datasources := newCheckpointFixture(t, encryptor, nil)

	sealed, err := encryptor.Seal("s3cret")
	require.NoError(t, err)
	datasources.datasources[11].Password = sealed

	result, err := svc.RunDetail(context.Background(), 1, 11)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusOK, result.Status)
	assert.Equal(t, "s3cret", runner.datasource.Password)
	assert.Equal(t, sealed, datasources.datasources[11].Password)
}

func TestCheckpointService_RunWrongKey(t *testing.T) {
	sealer, err := crypto.NewCredentialEncryptor("key-one")
	require.NoError(t, err)
	other, err := crypto.NewCredentialEncryptor("key-two")
	require.NoError(t, err)

	svc, runner, datasources := newCheckpointFixture(t, other, nil)
	sealed, err := sealer.Seal("s3cret")
	require.NoError(t, err)
	datasources.datasources[10].Password = sealed

	_, err = svc.RunTest(context.Background(), 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrCredentialsKeyMismatch)
	assert.Nil(t, runner.datasource)
}

func TestCheckpointService_RunLookupErrors(t *testing.T) {
	tests := []struct {
		name         string
		checkpointID int64
		datasourceID int64
		wantErr      error
	}{
		{name: "checkpoint missing", checkpointID: 99, datasourceID: 10, wantErr: apperrors.ErrCheckpointNotFound},
		{name: "datasource missing", checkpointID: 1, datasourceID: 99, wantErr: apperrors.ErrDatasourceNotFound},
		{name: "engine mismatch", checkpointID: 1, datasourceID: 20, wantErr: apperrors.ErrDatasourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, runner, _ := newCheckpointFixture(t, nil, nil)

			result, err := svc.RunTest(context.Background(), tt.checkpointID, tt.datasourceID)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)

			result, err = svc.RunDetail(context.Background(), tt.checkpointID, tt.datasourceID)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Nil(t, runner.checkpoint, "runner must not be called")
		})
	}
}
