package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/database"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

const checkpointColumns = `
	id, name, db_type, severity, description,
	pre_sql_test, sql_test, test_condition,
	pre_sql_detail, sql_detail,
	text_pass, text_fail, notes`

// checkpointRepository implements CheckpointRepository using PostgreSQL.
type checkpointRepository struct {
	db *database.DB
}

// NewCheckpointRepository creates a PostgreSQL checkpoint repository.
func NewCheckpointRepository(db *database.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) GetByID(ctx context.Context, id int64) (*models.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM engine_checkpoints WHERE id = $1`

	cp, err := scanCheckpoint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint %d: %w", id, err)
	}
	return cp, nil
}

func (r *checkpointRepository) List(ctx context.Context) ([]*models.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM engine_checkpoints ORDER BY name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := make([]*models.Checkpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}
	return checkpoints, nil
}

func scanCheckpoint(row pgx.Row) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var dbType, severity string
	err := row.Scan(
		&cp.ID, &cp.Name, &dbType, &severity, &cp.Description,
		&cp.PreSQLTest, &cp.SQLTest, &cp.TestCondition,
		&cp.PreSQLDetail, &cp.SQLDetail,
		&cp.TextPass, &cp.TextFail, &cp.Notes,
	)
	if err != nil {
		return nil, err
	}
	cp.DBType = normalizeDBType(dbType)
	cp.Severity = normalizeSeverity(severity)
	return &cp, nil
}

// Ensure checkpointRepository implements CheckpointRepository at compile time.
var _ CheckpointRepository = (*checkpointRepository)(nil)
