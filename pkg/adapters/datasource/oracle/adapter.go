package oracle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2" // Oracle driver

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// ProbeQuery is the cheapest statement Oracle accepts.
const ProbeQuery = "select 1 from dual"

// Connector opens Oracle sessions through go-ora.
type Connector struct{}

// Open builds the go-ora URL for ds. sql.Open does not dial.
func (Connector) Open(ctx context.Context, ds *models.Datasource, opts datasource.OpenOptions) (*sql.DB, error) {
	cfg, err := FromDatasource(ds, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("oracle", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open oracle connection: %w", err)
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
