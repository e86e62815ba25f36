package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-checkpoint/pkg/sql"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Instance string
	Database string // empty means the login's default database

	// AuthMethod is "sql" or "windows".
	AuthMethod string
	Domain     string
	Username   string
	Password   string

	// CustomURL replaces the generated connection string when set.
	CustomURL string

	// Extra driver parameters from the profile's connection property.
	Properties map[string]string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromDatasource creates a Config from a profile.
// Host may carry a named instance as host\INSTANCE; the profile's
// instance name takes precedence.
func FromDatasource(ds *models.Datasource, opts datasource.OpenOptions) (*Config, error) {
	cfg := &Config{
		Port:                   ds.Port,
		Database:               ds.Database(),
		AuthMethod:             string(ds.Auth()),
		Domain:                 strings.TrimSpace(ds.Domain),
		Username:               strings.TrimSpace(ds.Username),
		Password:               ds.Password,
		CustomURL:              strings.TrimSpace(ds.CustomURL),
		Properties:             parseProperties(ds.ConnectionProperty),
		Encrypt:                opts.Encrypt,
		TrustServerCertificate: opts.TrustServerCertificate,
		ConnectionTimeout:      int(opts.ConnectTimeout.Seconds()),
	}
	cfg.Host, cfg.Instance = splitInstance(strings.TrimSpace(ds.Host))
	if instance := strings.TrimSpace(ds.InstanceName); instance != "" {
		cfg.Instance = instance
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.CustomURL != "" {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case "sql":
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case "windows":
		if c.Domain != "" && c.Username == "" {
			return fmt.Errorf("username is required when a Windows domain is set")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}

	return sqlutil.CheckConnectionFields(map[string]string{
		"host":     c.Host,
		"instance": c.Instance,
		"database": c.Database,
		"domain":   c.Domain,
	})
}

// Login returns the user name sent to the server. Windows logins with a
// domain use the DOMAIN\user form, which go-mssqldb authenticates via NTLM.
func (c *Config) Login() string {
	if c.AuthMethod == "windows" && c.Domain != "" {
		return c.Domain + `\` + c.Username
	}
	return c.Username
}
