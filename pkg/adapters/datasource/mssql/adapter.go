package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// ProbeQuery is used by connection checks.
const ProbeQuery = "SELECT 1"

// Connector opens SQL Server sessions through go-mssqldb.
// Supports SQL authentication and Windows (NTLM) authentication.
type Connector struct{}

// Open builds the connection string for ds. sql.Open does not dial.
func (Connector) Open(ctx context.Context, ds *models.Datasource, opts datasource.OpenOptions) (*sql.DB, error) {
	cfg, err := FromDatasource(ds, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("sqlserver", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open %s auth connection: %w", cfg.AuthMethod, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// ProbeQuery implements datasource.Connector.
func (Connector) ProbeQuery() string {
	return ProbeQuery
}

// Ensure Connector implements datasource.Connector at compile time.
var _ datasource.Connector = Connector{}
