package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-checkpoint/pkg/sql"
)

// sqlmockConnector hands out a sqlmock-backed pool for one engine.
type sqlmockConnector struct {
	db      *sql.DB
	openErr error
	opened  int
	probe   string
}

func (c *sqlmockConnector) Open(ctx context.Context, ds *models.Datasource, opts datasource.OpenOptions) (*sql.DB, error) {
	c.opened++
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.db, nil
}

func (c *sqlmockConnector) ProbeQuery() string { return c.probe }

func newSQLMockFactory(t *testing.T) (datasource.DatasourceAdapterFactory, sqlmock.Sqlmock, *sqlmockConnector) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	connector := &sqlmockConnector{db: db, probe: "select 1 from dual"}
	registry := datasource.NewRegistry()
	registry.Register(datasource.DatasourceAdapterRegistration{
		Info:      datasource.DatasourceAdapterInfo{Type: models.DBTypeOracle, DisplayName: "Oracle", DefaultPort: 1521},
		Connector: connector,
	})
	return datasource.NewDatasourceAdapterFactory(registry, datasource.OpenOptions{}, zaptest.NewLogger(t)), mock, connector
}

func newTestRunner(t *testing.T) (CheckpointRunner, sqlmock.Sqlmock, *sqlmockConnector) {
	t.Helper()
	factory, mock, connector := newSQLMockFactory(t)
	return NewCheckpointRunner(factory, zaptest.NewLogger(t)), mock, connector
}

func oracleProfile() *models.Datasource {
	return &models.Datasource{ID: 7, Name: "prod-ora", DBType: models.DBTypeOracle, Host: "ora1", OracleServiceName: "ORCLPDB1"}
}

func countRows(mock sqlmock.Sqlmock, value any) *sqlmock.Rows {
	return mock.NewRowsWithColumnDefinition(mock.NewColumn("CNT").OfType("NUMBER", int64(0))).AddRow(value)
}

func TestRunTest_PassWithSetup(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{
		ID:            1,
		DBType:        models.DBTypeOracle,
		PreSQLTest:    "DELETE FROM audit_tmp; INSERT INTO audit_tmp SELECT username FROM dba_users",
		SQLTest:       "SELECT COUNT(*) FROM audit_tmp;",
		TestCondition: ">= 3",
		TextPass:      "Enough accounts",
		TextFail:      "Too few accounts",
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_tmp").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO audit_tmp SELECT username FROM dba_users").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT COUNT(*) FROM audit_tmp").WillReturnRows(countRows(mock, int64(5)))
	mock.ExpectClose()

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusPass, result.Status)
	assert.Equal(t, int64(5), result.ResultValue)
	assert.Equal(t, "5 >= 3", result.ConditionExpr)
	assert.Equal(t, "Enough accounts", result.Verdict)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, models.RunKindTest, result.Kind)
	assert.Equal(t, int64(1), result.CheckpointID)
	assert.Equal(t, int64(7), result.DatasourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTest_Fail(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 2, DBType: models.DBTypeOracle, SQLTest: "SELECT COUNT(*) FROM dba_users WHERE account_status = 'OPEN'", TestCondition: "== 0", TextFail: "Open accounts found"}

	mock.ExpectQuery(cp.SQLTest).WillReturnRows(countRows(mock, int64(2)))
	mock.ExpectClose()

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusFail, result.Status)
	assert.Equal(t, "2 == 0", result.ConditionExpr)
	assert.Equal(t, "Open accounts found", result.Verdict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTest_NoCondition(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 3, DBType: models.DBTypeOracle, SQLTest: "SELECT COUNT(*) FROM v$session", TestCondition: "   "}

	mock.ExpectQuery(cp.SQLTest).WillReturnRows(countRows(mock, int64(40)))

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusNoCondition, result.Status)
	assert.Equal(t, int64(40), result.ResultValue)
	assert.Empty(t, result.ConditionExpr)
	assert.Empty(t, result.Verdict)
}

func TestRunTest_ConditionErrorKeepsValue(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 4, DBType: models.DBTypeOracle, SQLTest: "SELECT banner FROM v$version", TestCondition: "> 5"}

	rows := mock.NewRowsWithColumnDefinition(mock.NewColumn("BANNER").OfType("VARCHAR2", "")).AddRow("Oracle 19c")
	mock.ExpectQuery(cp.SQLTest).WillReturnRows(rows)

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "Oracle 19c", result.ResultValue)
	assert.Equal(t, "'Oracle 19c' > 5", result.ConditionExpr)
	assert.Contains(t, result.ErrorMessage, "Condition evaluation error: ")
	assert.Contains(t, result.ErrorMessage, "(expr='Oracle 19c' > 5)")
}

func TestRunTest_MalformedCondition(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 5, DBType: models.DBTypeOracle, SQLTest: "SELECT 1 FROM dual", TestCondition: "== abc"}

	mock.ExpectQuery(cp.SQLTest).WillReturnRows(countRows(mock, int64(1)))

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, int64(1), result.ResultValue)
	assert.Contains(t, result.ErrorMessage, "Condition evaluation error: ")
}

func TestRunTest_NoRows(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 6, DBType: models.DBTypeOracle, SQLTest: "SELECT username FROM dba_users WHERE 1 = 0", TestCondition: "== 0"}

	mock.ExpectQuery(cp.SQLTest).
		WillReturnRows(mock.NewRowsWithColumnDefinition(mock.NewColumn("USERNAME").OfType("VARCHAR2", "")))

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "SQL Test returned no rows.", result.ErrorMessage)
	assert.Nil(t, result.ResultValue)
	assert.Empty(t, result.ConditionExpr)
}

func TestRunTest_SQLError(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 7, DBType: models.DBTypeOracle, SQLTest: "SELECT COUNT(*) FROM missing_table", TestCondition: "== 0"}

	mock.ExpectQuery(cp.SQLTest).WillReturnError(errors.New("ORA-00942: table or view does not exist"))
	mock.ExpectClose()

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "SQL Test error: ORA-00942: table or view does not exist", result.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTest_SetupFailureSkipsMainStatement(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 8, DBType: models.DBTypeOracle, PreSQLTest: "INSERT INTO a VALUES (1); INSERT INTO b VALUES (2)", SQLTest: "SELECT COUNT(*) FROM a", TestCondition: "== 1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO a VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO b VALUES (2)").WillReturnError(errors.New("ORA-00942: table or view does not exist"))
	mock.ExpectRollback()
	mock.ExpectClose()

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "Pre SQL Test error: ORA-00942: table or view does not exist", result.ErrorMessage)
	assert.Nil(t, result.ResultValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTest_EmptySQLTest(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 9, DBType: models.DBTypeOracle, SQLTest: " \n", TestCondition: "== 0"}

	mock.ExpectClose()

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "SQL Test is empty.", result.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTest_ConnectError(t *testing.T) {
	runner, _, connector := newTestRunner(t)
	connector.openErr = errors.New("ORA-01017: invalid username/password; logon denied")
	cp := &models.Checkpoint{ID: 10, DBType: models.DBTypeOracle, SQLTest: "SELECT 1 FROM dual"}

	result := runner.RunTest(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "Oracle connection error: ORA-01017: invalid username/password; logon denied", result.ErrorMessage)
}

func TestRunTest_UnsupportedEngine(t *testing.T) {
	runner, _, connector := newTestRunner(t)
	cp := &models.Checkpoint{ID: 11, DBType: models.DBTypePostgres, SQLTest: "SELECT 1"}
	ds := &models.Datasource{ID: 12, DBType: models.DBTypePostgres, Host: "pg"}

	result := runner.RunTest(context.Background(), cp, ds)

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Equal(t, "Unsupported database engine: postgres", result.ErrorMessage)
	assert.Zero(t, connector.opened)
}

func TestRunDetail_ReturnsRows(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{
		ID:           20,
		DBType:       models.DBTypeOracle,
		PreSQLDetail: "DELETE FROM audit_tmp",
		SQLDetail:    "SELECT username, account_status FROM dba_users",
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_tmp").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("USERNAME").OfType("VARCHAR2", ""),
		mock.NewColumn("ACCOUNT_STATUS").OfType("VARCHAR2", ""),
	).AddRow("SYS", "OPEN").AddRow("SCOTT", "LOCKED")
	mock.ExpectQuery(cp.SQLDetail).WillReturnRows(rows)
	mock.ExpectClose()

	result := runner.RunDetail(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusOK, result.Status)
	assert.Equal(t, models.RunKindDetail, result.Kind)
	assert.Equal(t, []string{"USERNAME", "ACCOUNT_STATUS"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, map[string]any{"USERNAME": "SCOTT", "ACCOUNT_STATUS": "LOCKED"}, result.Rows[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDetail_EmptyResultIsOK(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 21, DBType: models.DBTypeOracle, SQLDetail: "SELECT username FROM dba_users WHERE 1 = 0"}

	mock.ExpectQuery(cp.SQLDetail).
		WillReturnRows(mock.NewRowsWithColumnDefinition(mock.NewColumn("USERNAME").OfType("VARCHAR2", "")))

	result := runner.RunDetail(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusOK, result.Status)
	assert.Equal(t, []string{"USERNAME"}, result.Columns)
	assert.Empty(t, result.Rows)
}

func TestRunDetail_Errors(t *testing.T) {
	t.Run("setup", func(t *testing.T) {
		runner, mock, _ := newTestRunner(t)
		cp := &models.Checkpoint{ID: 22, DBType: models.DBTypeOracle, PreSQLDetail: "TRUNCATE TABLE x", SQLDetail: "SELECT * FROM x"}

		mock.ExpectBegin()
		mock.ExpectExec("TRUNCATE TABLE x").WillReturnError(errors.New("ORA-01031: insufficient privileges"))
		mock.ExpectRollback()

		result := runner.RunDetail(context.Background(), cp, oracleProfile())
		assert.Equal(t, "Pre SQL Detail error: ORA-01031: insufficient privileges", result.ErrorMessage)
		assert.Empty(t, result.Columns)
	})

	t.Run("empty statement", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		cp := &models.Checkpoint{ID: 23, DBType: models.DBTypeOracle}

		result := runner.RunDetail(context.Background(), cp, oracleProfile())
		assert.Equal(t, models.RunStatusError, result.Status)
		assert.Equal(t, "SQL Detail is empty.", result.ErrorMessage)
	})

	t.Run("sql error", func(t *testing.T) {
		runner, mock, _ := newTestRunner(t)
		cp := &models.Checkpoint{ID: 24, DBType: models.DBTypeOracle, SQLDetail: "SELEC * FROM x"}

		mock.ExpectQuery(cp.SQLDetail).WillReturnError(errors.New("ORA-00900: invalid SQL statement"))

		result := runner.RunDetail(context.Background(), cp, oracleProfile())
		assert.Equal(t, "SQL Detail error: ORA-00900: invalid SQL statement", result.ErrorMessage)
	})
}

func TestRunTest_ResultsAreIndependent(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 30, DBType: models.DBTypeOracle, SQLTest: "SELECT 1 FROM dual", TestCondition: "== 1"}

	mock.ExpectQuery(cp.SQLTest).WillReturnRows(countRows(mock, int64(1)))
	first := runner.RunTest(context.Background(), cp, oracleProfile())

	runner2, mock2, _ := newTestRunner(t)
	mock2.ExpectQuery(cp.SQLTest).WillReturnRows(countRows(mock2, int64(1)))
	second := runner2.RunTest(context.Background(), cp, oracleProfile())

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, models.RunStatusPass, first.Status)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, "1 == 1", first.ConditionExpr)
	assert.Equal(t, first.ConditionExpr, second.ConditionExpr)
}

func TestRunTest_NaNScalarFails(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	cp := &models.Checkpoint{ID: 31, DBType: models.DBTypeOracle, SQLTest: "SELECT ratio FROM stats", TestCondition: ">= 5", TextFail: "Ratio too low"}

	rows := mock.NewRowsWithColumnDefinition(mock.NewColumn("RATIO").OfType("BINARY_DOUBLE", 0.0)).AddRow(math.NaN())
	mock.ExpectQuery(cp.SQLTest).WillReturnRows(rows)

	result := runner.RunTest(context.Background(), cp, oracleProfile())
	assert.Equal(t, models.RunStatusFail, result.Status)
	assert.Equal(t, "nan >= 5", result.ConditionExpr)
	assert.Equal(t, "Ratio too low", result.Verdict)
	assert.Equal(t, "NaN", result.ResultValue)

	_, err := json.Marshal(result)
	require.NoError(t, err)
}

func TestRunner_AuditsEveryRun(t *testing.T) {
	factory, mock, _ := newSQLMockFactory(t)
	core, recorded := observer.New(zapcore.InfoLevel)
	runner := NewCheckpointRunner(factory, zap.New(core))

	mock.ExpectQuery("SELECT COUNT(*) FROM dba_users").WillReturnRows(countRows(mock, int64(0)))
	mock.ExpectClose()

	cp := &models.Checkpoint{ID: 1, DBType: models.DBTypeOracle, SQLTest: "SELECT COUNT(*) FROM dba_users", TestCondition: "== 0"}
	result := runner.RunTest(context.Background(), cp, oracleProfile())
	require.Equal(t, models.RunStatusPass, result.Status)

	audits := recorded.FilterLoggerName("security_audit").All()
	require.Len(t, audits, 1)
	assert.Equal(t, "Checkpoint executed", audits[0].Message)
	assert.Equal(t, result.RunID.String(), audits[0].ContextMap()["run_id"])
	assert.Equal(t, "PASS", audits[0].ContextMap()["status"])
}

func TestRunner_AuditsRejectedConnectionField(t *testing.T) {
	factory, _, connector := newSQLMockFactory(t)
	connector.openErr = &sqlutil.InjectionCheckResult{Field: "host", Reason: `contains one of "()=;"`}
	core, recorded := observer.New(zapcore.InfoLevel)
	runner := NewCheckpointRunner(factory, zap.New(core))

	cp := &models.Checkpoint{ID: 1, DBType: models.DBTypeOracle, SQLTest: "SELECT 1 FROM dual"}
	result := runner.RunDetail(context.Background(), cp, oracleProfile())

	assert.Equal(t, models.RunStatusError, result.Status)
	assert.Contains(t, result.ErrorMessage, "Oracle connection error: host contains one of")

	rejected := recorded.FilterMessage("Datasource connection field rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.ErrorLevel, rejected[0].Level)
	assert.Equal(t, "host", rejected[0].ContextMap()["field"])
	assert.Equal(t, int64(7), rejected[0].ContextMap()["datasource_id"])
}
