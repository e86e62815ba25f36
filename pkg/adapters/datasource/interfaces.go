package datasource

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// Connector opens connections for one database engine.
// Implementations are stateless and safe for concurrent use.
type Connector interface {
	// Open validates the profile and returns a private pool for it.
	// The profile's port is already defaulted. Returning an error here means
	// no network traffic has happened yet.
	Open(ctx context.Context, ds *models.Datasource, opts OpenOptions) (*sql.DB, error)

	// ProbeQuery returns a statement that succeeds on any healthy session.
	ProbeQuery() string
}

// OpenOptions carries process-wide driver settings into a Connector.
type OpenOptions struct {
	ConnectTimeout time.Duration

	// SQL Server only.
	Encrypt                bool
	TrustServerCertificate bool
}

// DefaultConnectTimeout bounds the login handshake when no timeout is configured.
const DefaultConnectTimeout = 30 * time.Second

// QueryResult contains every row of a tabular statement.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}
