package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/audit"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/condition"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-checkpoint/pkg/sql"
)

// CheckpointRunner executes checkpoint test and detail runs against a
// resolved datasource. Every failure below the runner is reported as an
// ERROR result; neither method returns a Go error.
type CheckpointRunner interface {
	// RunTest runs PreSQLTest (if any) and SQLTest, then evaluates
	// TestCondition against the first value of the first row.
	RunTest(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) *models.RunResult

	// RunDetail runs PreSQLDetail (if any) and returns every row of SQLDetail.
	RunDetail(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) *models.RunResult
}

type checkpointRunner struct {
	factory datasource.DatasourceAdapterFactory
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewCheckpointRunner creates a runner. It holds no per-run state and is safe
// for concurrent use.
func NewCheckpointRunner(factory datasource.DatasourceAdapterFactory, logger *zap.Logger) CheckpointRunner {
	return &checkpointRunner{
		factory: factory,
		auditor: audit.NewSecurityAuditor(logger),
		logger:  logger.Named("runner"),
	}
}

// runPhase labels the user-facing message prefixes of one run kind.
type runPhase struct {
	setupLabel string
	mainLabel  string
}

var (
	testPhase   = runPhase{setupLabel: "Pre SQL Test", mainLabel: "SQL Test"}
	detailPhase = runPhase{setupLabel: "Pre SQL Detail", mainLabel: "SQL Detail"}
)

func (p runPhase) setupFailed(err error) string {
	return fmt.Sprintf("%s error: %s", p.setupLabel, err.Error())
}

func (p runPhase) failed(err error) string {
	return fmt.Sprintf("%s error: %s", p.mainLabel, err.Error())
}

func (p runPhase) empty() string {
	return p.mainLabel + " is empty."
}

func (s *checkpointRunner) RunTest(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) (result *models.RunResult) {
	result = models.NewRunResult(models.RunKindTest, cp.ID, ds.ID)
	logger := s.runLogger(result, cp, ds)
	defer func() { s.auditor.LogCheckpointRun(ctx, result, ds.DBType) }()

	conn, msg := s.prepare(ctx, logger, result, cp.PreSQLTest, ds, testPhase)
	if conn == nil {
		return s.finish(logger, result.Fail(msg))
	}
	defer conn.Close()

	if strings.TrimSpace(cp.SQLTest) == "" {
		return s.finish(logger, result.Fail(testPhase.empty()))
	}

	value, err := conn.RunScalar(ctx, cp.SQLTest)
	// The session is not needed for evaluation.
	conn.Close()
	if err != nil {
		if errors.Is(err, apperrors.ErrNoRows) {
			return s.finish(logger, result.Fail("SQL Test returned no rows."))
		}
		return s.finish(logger, result.Fail(testPhase.failed(err)))
	}
	result.ResultValue = models.JSONValue(value)

	outcome, err := condition.Evaluate(value, cp.TestCondition)
	result.ConditionExpr = outcome.Expr
	switch {
	case err != nil:
		return s.finish(logger, result.Fail(fmt.Sprintf("Condition evaluation error: %v (expr=%s)", err, outcome.Expr)))
	case outcome.NoCondition:
		return s.finish(logger, result.Finish(models.RunStatusNoCondition))
	case outcome.Passed:
		result.Verdict = cp.TextPass
		return s.finish(logger, result.Finish(models.RunStatusPass))
	default:
		result.Verdict = cp.TextFail
		return s.finish(logger, result.Finish(models.RunStatusFail))
	}
}

func (s *checkpointRunner) RunDetail(ctx context.Context, cp *models.Checkpoint, ds *models.Datasource) (result *models.RunResult) {
	result = models.NewRunResult(models.RunKindDetail, cp.ID, ds.ID)
	logger := s.runLogger(result, cp, ds)
	defer func() { s.auditor.LogCheckpointRun(ctx, result, ds.DBType) }()

	conn, msg := s.prepare(ctx, logger, result, cp.PreSQLDetail, ds, detailPhase)
	if conn == nil {
		return s.finish(logger, result.Fail(msg))
	}
	defer conn.Close()

	if strings.TrimSpace(cp.SQLDetail) == "" {
		return s.finish(logger, result.Fail(detailPhase.empty()))
	}

	rows, err := conn.RunTabular(ctx, cp.SQLDetail)
	conn.Close()
	if err != nil {
		return s.finish(logger, result.Fail(detailPhase.failed(err)))
	}

	result.Columns = rows.Columns
	for _, row := range rows.Rows {
		for col, v := range row {
			row[col] = models.JSONValue(v)
		}
	}
	result.Rows = rows.Rows
	return s.finish(logger, result.Finish(models.RunStatusOK))
}

// prepare connects and runs the optional setup batch. On failure it returns a
// nil connection and the user-facing message; the session is already closed.
func (s *checkpointRunner) prepare(ctx context.Context, logger *zap.Logger, result *models.RunResult, setup string, ds *models.Datasource, phase runPhase) (*datasource.Connection, string) {
	conn, err := s.factory.Connect(ctx, ds)
	if err != nil {
		var rejected *sqlutil.InjectionCheckResult
		if errors.As(err, &rejected) {
			s.auditor.LogConnectionFieldRejected(ctx, result.RunID.String(), ds.ID, audit.ConnectionFieldDetails{
				Field:       rejected.Field,
				Fingerprint: rejected.Fingerprint,
				Reason:      rejected.Reason,
			})
		}
		return nil, s.connectMessage(ds.DBType, err)
	}

	if strings.TrimSpace(setup) == "" {
		return conn, ""
	}

	if err := conn.RunSetup(ctx, setup); err != nil {
		conn.Close()
		logger.Debug("Setup failed", zap.String("error", logging.SanitizeError(err)))
		return nil, phase.setupFailed(err)
	}
	return conn, ""
}

func (s *checkpointRunner) connectMessage(dbType models.DBType, err error) string {
	if errors.Is(err, apperrors.ErrUnsupportedEngine) {
		return fmt.Sprintf("Unsupported database engine: %s", dbType)
	}

	engine := string(dbType)
	if info, ok := s.factory.Info(dbType); ok {
		engine = info.DisplayName
	}
	return fmt.Sprintf("%s connection error: %s", engine, err.Error())
}

func (s *checkpointRunner) runLogger(result *models.RunResult, cp *models.Checkpoint, ds *models.Datasource) *zap.Logger {
	return s.logger.With(
		zap.String("run_id", result.RunID.String()),
		zap.String("kind", string(result.Kind)),
		zap.Int64("checkpoint_id", cp.ID),
		zap.Int64("datasource_id", ds.ID),
		zap.String("db_type", string(ds.DBType)),
	)
}

func (s *checkpointRunner) finish(logger *zap.Logger, result *models.RunResult) *models.RunResult {
	fields := []zap.Field{
		zap.String("status", string(result.Status)),
		zap.Int64("duration_ms", result.DurationMs),
	}
	if result.Status == models.RunStatusError {
		logger.Info("Checkpoint run failed", append(fields, zap.String("error", logging.SanitizeMessage(result.ErrorMessage)))...)
		return result
	}
	logger.Info("Checkpoint run finished", fields...)
	return result
}

// Ensure checkpointRunner implements CheckpointRunner at compile time.
var _ CheckpointRunner = (*checkpointRunner)(nil)
