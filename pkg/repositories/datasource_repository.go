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

const datasourceColumns = `
	id, name, description, db_type, host, port,
	auth_mode, domain, username, password,
	instance_name, database_name, oracle_service_name, oracle_sid,
	connection_property, custom_url`

// datasourceRepository implements DatasourceRepository using PostgreSQL.
type datasourceRepository struct {
	db *database.DB
}

// NewDatasourceRepository creates a PostgreSQL datasource repository.
func NewDatasourceRepository(db *database.DB) DatasourceRepository {
	return &datasourceRepository{db: db}
}

func (r *datasourceRepository) GetByID(ctx context.Context, id int64) (*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM engine_datasources WHERE id = $1`

	ds, err := scanDatasource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDatasourceNotFound
		}
		return nil, fmt.Errorf("failed to get datasource %d: %w", id, err)
	}
	return ds, nil
}

func (r *datasourceRepository) ListByDBType(ctx context.Context, dbType models.DBType) ([]*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + `
		FROM engine_datasources
		WHERE db_type = ANY($1)
		ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, dbTypeAliases(dbType))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s datasources: %w", dbType, err)
	}
	defer rows.Close()

	datasources := make([]*models.Datasource, 0)
	for rows.Next() {
		ds, err := scanDatasource(rows)
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

func scanDatasource(row pgx.Row) (*models.Datasource, error) {
	var ds models.Datasource
	var dbType, authMode string
	err := row.Scan(
		&ds.ID, &ds.Name, &ds.Description, &dbType, &ds.Host, &ds.Port,
		&authMode, &ds.Domain, &ds.Username, &ds.Password,
		&ds.InstanceName, &ds.DatabaseName, &ds.OracleServiceName, &ds.OracleSID,
		&ds.ConnectionProperty, &ds.CustomURL,
	)
	if err != nil {
		return nil, err
	}
	ds.DBType = normalizeDBType(dbType)
	ds.AuthMode = models.AuthMode(authMode)
	return &ds, nil
}

// Ensure datasourceRepository implements DatasourceRepository at compile time.
var _ DatasourceRepository = (*datasourceRepository)(nil)
