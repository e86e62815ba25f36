package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// DatasourceAdapterFactory opens run connections from the registry.
type DatasourceAdapterFactory interface {
	// Connect opens one dedicated session for a run. Unsupported engines fail
	// with apperrors.ErrUnsupportedEngine before any connection attempt; every
	// other failure is classified as apperrors.ErrConnect.
	Connect(ctx context.Context, ds *models.Datasource) (*Connection, error)

	// Info returns the registration info for an engine type.
	Info(dbType models.DBType) (DatasourceAdapterInfo, bool)

	// ListTypes returns info for all registered engine types.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	registry *Registry
	opts     OpenOptions
	logger   *zap.Logger
}

// NewDatasourceAdapterFactory returns a factory backed by registry.
// A nil registry means DefaultRegistry().
func NewDatasourceAdapterFactory(registry *Registry, opts OpenOptions, logger *zap.Logger) DatasourceAdapterFactory {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		registry: registry,
		opts:     opts,
		logger:   logger.Named("datasource"),
	}
}

func (f *registryFactory) Connect(ctx context.Context, ds *models.Datasource) (*Connection, error) {
	reg, ok := f.registry.Lookup(ds.DBType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedEngine, ds.DBType)
	}

	// Defaults are applied to a copy; the caller's profile is never mutated.
	profile := *ds
	if profile.Port == 0 {
		profile.Port = reg.Info.DefaultPort
	}

	f.logger.Debug("Opening datasource connection", zap.Object("datasource", &profile))

	db, err := reg.Connector.Open(ctx, &profile, f.opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnect, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		f.logger.Debug("Datasource connection failed",
			zap.Int64("datasource_id", ds.ID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Wrap(apperrors.ErrConnect, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		f.logger.Debug("Datasource ping failed",
			zap.Int64("datasource_id", ds.ID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Wrap(apperrors.ErrConnect, err)
	}

	return newConnection(reg.Info, reg.Connector.ProbeQuery(), db, conn, f.logger), nil
}

func (f *registryFactory) Info(dbType models.DBType) (DatasourceAdapterInfo, bool) {
	reg, ok := f.registry.Lookup(dbType)
	return reg.Info, ok
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return f.registry.RegisteredAdapters()
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
