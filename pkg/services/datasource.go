package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/repositories"
)

// CheckResult is the answer to a connectivity check.
type CheckResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// DatasourceService runs connectivity checks against stored datasources.
type DatasourceService interface {
	// Check logs in and runs the engine's probe query.
	Check(ctx context.Context, id int64) (*CheckResult, error)

	// TestPort opens and closes a plain TCP connection to host:port.
	TestPort(ctx context.Context, id int64) (*CheckResult, error)
}

// DatasourceServiceOptions bounds the two checks.
type DatasourceServiceOptions struct {
	CheckTimeout     time.Duration
	PortProbeTimeout time.Duration
}

type datasourceService struct {
	profiles profileLoader
	factory  datasource.DatasourceAdapterFactory
	opts     DatasourceServiceOptions
	dialer   func(ctx context.Context, network, address string) (net.Conn, error)
	logger   *zap.Logger
}

// NewDatasourceService creates a datasource service. Zero timeouts default to
// 5 seconds for Check and 3 seconds for TestPort.
func NewDatasourceService(
	repo repositories.DatasourceRepository,
	encryptor *crypto.CredentialEncryptor,
	resolver HostResolver,
	factory datasource.DatasourceAdapterFactory,
	opts DatasourceServiceOptions,
	logger *zap.Logger,
) DatasourceService {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Second
	}
	if opts.PortProbeTimeout <= 0 {
		opts.PortProbeTimeout = 3 * time.Second
	}
	return &datasourceService{
		profiles: newProfileLoader(repo, encryptor, resolver),
		factory:  factory,
		opts:     opts,
		dialer:   (&net.Dialer{}).DialContext,
		logger:   logger.Named("datasources"),
	}
}

func (s *datasourceService) Check(ctx context.Context, id int64) (*CheckResult, error) {
	ds, err := s.profiles.load(ctx, id)
	if err != nil {
		return nil, err
	}

	info, ok := s.factory.Info(ds.DBType)
	if !ok {
		switch ds.DBType {
		case models.DBTypePostgres, models.DBTypeMySQL:
			return &CheckResult{OK: true, Message: fmt.Sprintf("%s is not yet supported by 'Check' button.", ds.DBType)}, nil
		}
		return &CheckResult{Message: fmt.Sprintf("Unsupported db_type: %s", ds.DBType)}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.CheckTimeout)
	defer cancel()

	conn, err := s.factory.Connect(ctx, ds)
	if err != nil {
		return s.checkFailed(ds, err), nil
	}
	defer conn.Close()

	if err := conn.Probe(ctx); err != nil {
		return s.checkFailed(ds, err), nil
	}

	s.logger.Debug("Datasource check passed", zap.Int64("datasource_id", ds.ID))
	return &CheckResult{OK: true, Message: info.DisplayName + " connection OK"}, nil
}

func (s *datasourceService) checkFailed(ds *models.Datasource, err error) *CheckResult {
	s.logger.Info("Datasource check failed",
		zap.Int64("datasource_id", ds.ID),
		zap.String("db_type", string(ds.DBType)),
		zap.String("error", logging.SanitizeError(err)))
	return &CheckResult{Message: err.Error()}
}

func (s *datasourceService) TestPort(ctx context.Context, id int64) (*CheckResult, error) {
	ds, err := s.profiles.load(ctx, id)
	if err != nil {
		return nil, err
	}

	host := strings.TrimSpace(ds.Host)
	if host == "" {
		return &CheckResult{Message: "Host is empty."}, nil
	}
	if ds.Port <= 0 {
		return &CheckResult{Message: "Port is empty or invalid."}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.PortProbeTimeout)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(ds.Port))
	conn, err := s.dialer(ctx, "tcp", address)
	if err != nil {
		return &CheckResult{Message: portProbeMessage(host, ds.Port, err)}, nil
	}
	_ = conn.Close()

	return &CheckResult{OK: true, Message: fmt.Sprintf("%s:%d is reachable over TCP.", host, ds.Port)}, nil
}

func portProbeMessage(host string, port int, err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Connection timed out. Host or network may be unreachable, or a firewall is dropping packets."
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused. Host is reachable but the port is closed or no service is listening."
	}
	return fmt.Sprintf("Socket error while connecting to %s:%d: %v", host, port, err)
}

// Ensure datasourceService implements DatasourceService at compile time.
var _ DatasourceService = (*datasourceService)(nil)
