package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	sqlutil "github.com/ekaya-inc/ekaya-checkpoint/pkg/sql"
)

// Connection is one dedicated session against a target database, owned by a
// single run. It is not safe for concurrent use. Close releases the session
// and its private pool and may be called more than once.
type Connection struct {
	info   DatasourceAdapterInfo
	probe  string
	db     *sql.DB
	conn   *sql.Conn
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

func newConnection(info DatasourceAdapterInfo, probe string, db *sql.DB, conn *sql.Conn, logger *zap.Logger) *Connection {
	return &Connection{info: info, probe: probe, db: db, conn: conn, logger: logger}
}

// Info returns the engine the connection belongs to.
func (c *Connection) Info() DatasourceAdapterInfo {
	return c.info
}

// Close releases the session and then the pool.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		connErr := c.conn.Close()
		dbErr := c.db.Close()
		c.closeErr = errors.Join(connErr, dbErr)
	})
	return c.closeErr
}

// RunSetup executes a semicolon-separated batch inside one transaction and
// commits only after every statement succeeds. On failure the transaction is
// rolled back and the error is classified as apperrors.ErrSetupFailed.
//
// Engines that auto-commit DDL (Oracle) commit those statements regardless.
func (c *Connection) RunSetup(ctx context.Context, batch string) error {
	statements := sqlutil.SplitStatements(batch)
	if len(statements) == 0 {
		return nil
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSetupFailed, err)
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			c.logger.Debug("Setup statement failed",
				zap.Int("statement", i+1),
				zap.String("sql", logging.SanitizeQuery(stmt)),
				zap.String("error", logging.SanitizeError(err)))
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				c.logger.Warn("Failed to roll back setup transaction", zap.String("error", logging.SanitizeError(rbErr)))
			}
			return apperrors.Wrap(apperrors.ErrSetupFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrSetupFailed, err)
	}

	c.logger.Debug("Setup committed", zap.Int("statements", len(statements)))
	return nil
}

// RunScalar executes stmt and returns the first column of the first row.
// Zero rows yields apperrors.ErrNoRows.
func (c *Connection) RunScalar(ctx context.Context, stmt string) (any, error) {
	rows, err := c.conn.QueryContext(ctx, sqlutil.NormalizeStatement(stmt))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, fmt.Errorf("failed to get column types: %w", err))
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSQL, err)
		}
		return nil, apperrors.ErrNoRows
	}

	values, err := scanRow(rows, len(columnTypes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, err)
	}
	if len(values) == 0 {
		return nil, apperrors.ErrNoRows
	}
	return normalizeValue(values[0], columnTypes[0].DatabaseTypeName()), nil
}

// RunTabular executes stmt and returns every column and row. There is no
// paging; detail statements are expected to be bounded by their author.
func (c *Connection) RunTabular(ctx context.Context, stmt string) (*QueryResult, error) {
	rows, err := c.conn.QueryContext(ctx, sqlutil.NormalizeStatement(stmt))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, fmt.Errorf("failed to get columns: %w", err))
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, fmt.Errorf("failed to get column types: %w", err))
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := scanRow(rows, len(columnNames))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSQL, err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			rowMap[col] = normalizeValue(values[i], columnTypes[i].DatabaseTypeName())
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSQL, fmt.Errorf("error iterating rows: %w", err))
	}

	return &QueryResult{
		Columns: columnNames,
		Rows:    resultRows,
	}, nil
}

// Probe runs the engine's probe query on the session.
func (c *Connection) Probe(ctx context.Context) error {
	var discard any
	if err := c.conn.QueryRowContext(ctx, c.probe).Scan(&discard); err != nil {
		return apperrors.Wrap(apperrors.ErrSQL, err)
	}
	return nil
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	values := make([]any, n)
	valuePtrs := make([]any, n)
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return values, nil
}
