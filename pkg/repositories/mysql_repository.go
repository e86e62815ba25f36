package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// The MySQL repositories read the legacy checkpoint schema. Its text columns
// are nullable and its engine names are free text, so every column is read
// through sql.Null* and normalized.

const mysqlCheckpointColumns = `
	Id, Name, DB_Type, Severity, Description,
	Pre_SQL_Test, SQL_Test, Test_Condition,
	Pre_SQL_Detail, SQL_Detail,
	Text_Pass, Text_Fail, Notes`

const mysqlDatasourceColumns = `
	ds_id, ds_name, description, db_type, host, port,
	auth_mode, domain, username, password,
	instance_name, database_name, oracle_service_name, oracle_sid,
	connection_property, custom_url`

type mysqlCheckpointRepository struct {
	db *sql.DB
}

// NewMySQLCheckpointRepository reads checkpoints from the legacy MySQL schema.
func NewMySQLCheckpointRepository(db *sql.DB) CheckpointRepository {
	return &mysqlCheckpointRepository{db: db}
}

func (r *mysqlCheckpointRepository) GetByID(ctx context.Context, id int64) (*models.Checkpoint, error) {
	query := `SELECT ` + mysqlCheckpointColumns + ` FROM checkpoints WHERE Id = ?`

	cp, err := scanMySQLCheckpoint(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint %d: %w", id, err)
	}
	return cp, nil
}

func (r *mysqlCheckpointRepository) List(ctx context.Context) ([]*models.Checkpoint, error) {
	query := `SELECT ` + mysqlCheckpointColumns + ` FROM checkpoints ORDER BY Name, Id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := make([]*models.Checkpoint, 0)
	for rows.Next() {
		cp, err := scanMySQLCheckpoint(rows)
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

type mysqlDatasourceRepository struct {
	db *sql.DB
}

// NewMySQLDatasourceRepository reads datasources from the legacy MySQL schema.
func NewMySQLDatasourceRepository(db *sql.DB) DatasourceRepository {
	return &mysqlDatasourceRepository{db: db}
}

func (r *mysqlDatasourceRepository) GetByID(ctx context.Context, id int64) (*models.Datasource, error) {
	query := `SELECT ` + mysqlDatasourceColumns + ` FROM datasources WHERE ds_id = ?`

	ds, err := scanMySQLDatasource(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrDatasourceNotFound
		}
		return nil, fmt.Errorf("failed to get datasource %d: %w", id, err)
	}
	return ds, nil
}

func (r *mysqlDatasourceRepository) ListByDBType(ctx context.Context, dbType models.DBType) ([]*models.Datasource, error) {
	aliases := dbTypeAliases(dbType)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(aliases)), ",")
	args := make([]any, len(aliases))
	for i, a := range aliases {
		args[i] = a
	}

	query := `SELECT ` + mysqlDatasourceColumns + `
		FROM datasources
		WHERE LOWER(db_type) IN (` + placeholders + `)
		ORDER BY ds_name, ds_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s datasources: %w", dbType, err)
	}
	defer rows.Close()

	datasources := make([]*models.Datasource, 0)
	for rows.Next() {
		ds, err := scanMySQLDatasource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		datasources = append(datasources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasources: %w", err)
	}
	return datasources, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLCheckpoint(row rowScanner) (*models.Checkpoint, error) {
	var (
		id                                          int64
		name, dbType, severity, description         sql.NullString
		preSQLTest, sqlTest, testCondition          sql.NullString
		preSQLDetail, sqlDetail, textPass, textFail sql.NullString
		notes                                       sql.NullString
	)
	err := row.Scan(
		&id, &name, &dbType, &severity, &description,
		&preSQLTest, &sqlTest, &testCondition,
		&preSQLDetail, &sqlDetail,
		&textPass, &textFail, &notes,
	)
	if err != nil {
		return nil, err
	}

	return &models.Checkpoint{
		ID:            id,
		Name:          name.String,
		DBType:        normalizeDBType(dbType.String),
		Severity:      normalizeSeverity(severity.String),
		Description:   description.String,
		PreSQLTest:    preSQLTest.String,
		SQLTest:       sqlTest.String,
		TestCondition: testCondition.String,
		PreSQLDetail:  preSQLDetail.String,
		SQLDetail:     sqlDetail.String,
		TextPass:      textPass.String,
		TextFail:      textFail.String,
		Notes:         notes.String,
	}, nil
}

func scanMySQLDatasource(row rowScanner) (*models.Datasource, error) {
	var (
		id                                        int64
		port                                      sql.NullInt64
		name, description, dbType, host           sql.NullString
		authMode, domain, username, password      sql.NullString
		instanceName, databaseName                sql.NullString
		serviceName, sid, connProperty, customURL sql.NullString
	)
	err := row.Scan(
		&id, &name, &description, &dbType, &host, &port,
		&authMode, &domain, &username, &password,
		&instanceName, &databaseName, &serviceName, &sid,
		&connProperty, &customURL,
	)
	if err != nil {
		return nil, err
	}

	return &models.Datasource{
		ID:                 id,
		Name:               name.String,
		Description:        description.String,
		DBType:             normalizeDBType(dbType.String),
		Host:               strings.TrimSpace(host.String),
		Port:               int(port.Int64),
		AuthMode:           models.AuthMode(strings.ToLower(strings.TrimSpace(authMode.String))),
		Domain:             domain.String,
		Username:           username.String,
		Password:           password.String,
		InstanceName:       instanceName.String,
		DatabaseName:       databaseName.String,
		OracleServiceName:  serviceName.String,
		OracleSID:          sid.String,
		ConnectionProperty: connProperty.String,
		CustomURL:          customURL.String,
	}, nil
}

// Ensure the MySQL repositories implement their interfaces at compile time.
var (
	_ CheckpointRepository = (*mysqlCheckpointRepository)(nil)
	_ DatasourceRepository = (*mysqlDatasourceRepository)(nil)
)
