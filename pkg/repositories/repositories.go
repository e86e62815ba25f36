package repositories

import (
	"context"
	"strings"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// CheckpointRepository reads stored checkpoint definitions.
type CheckpointRepository interface {
	// GetByID returns apperrors.ErrCheckpointNotFound when no checkpoint has the ID.
	GetByID(ctx context.Context, id int64) (*models.Checkpoint, error)

	// List returns every checkpoint ordered by name.
	List(ctx context.Context) ([]*models.Checkpoint, error)
}

// DatasourceRepository reads datasource connection profiles.
// Passwords are returned exactly as stored; opening sealed values is handled
// by the service layer.
type DatasourceRepository interface {
	// GetByID returns apperrors.ErrDatasourceNotFound when no datasource has the ID.
	GetByID(ctx context.Context, id int64) (*models.Datasource, error)

	// ListByDBType returns the datasources for one engine ordered by name.
	ListByDBType(ctx context.Context, dbType models.DBType) ([]*models.Datasource, error)
}

// normalizeDBType maps stored engine text to a DBType. Unknown engines are
// kept lower-cased so a run can report them as unsupported.
func normalizeDBType(raw string) models.DBType {
	if t, err := models.ParseDBType(raw); err == nil {
		return t
	}
	return models.DBType(strings.ToLower(strings.TrimSpace(raw)))
}

// normalizeSeverity maps stored severity text, defaulting unknown values to medium.
func normalizeSeverity(raw string) models.Severity {
	if s, err := models.ParseSeverity(raw); err == nil {
		return s
	}
	return models.SeverityMedium
}

// dbTypeAliases returns every stored spelling of an engine, for lookups
// against tables written by older tooling.
func dbTypeAliases(t models.DBType) []string {
	switch t {
	case models.DBTypeMSSQL:
		return []string{"mssql", "sqlserver"}
	case models.DBTypePostgres:
		return []string{"postgres", "postgresql"}
	}
	return []string{string(t)}
}
