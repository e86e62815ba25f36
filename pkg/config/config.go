package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Repository drivers.
const (
	RepositoryPostgres = "postgres"
	RepositoryMySQL    = "mysql"
	RepositoryCatalog  = "catalog"
)

// Config holds all configuration for ekaya-checkpoint.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Where checkpoints and datasources are read from
	Repository RepositoryConfig `yaml:"repository"`

	// Database configuration (PostgreSQL repository)
	Database DatabaseConfig `yaml:"database"`

	// MySQL configuration (legacy checkpoint schema)
	MySQL MySQLConfig `yaml:"mysql"`

	// Checkpoint execution settings
	Runner RunnerConfig `yaml:"runner"`

	MCP MCPConfig `yaml:"mcp"`

	// Key used to open sealed datasource passwords. Optional when every stored
	// password is plaintext. Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CHECKPOINT_CREDENTIALS_KEY"` // Secret - not in YAML
}

// RepositoryConfig selects the checkpoint/datasource store.
type RepositoryConfig struct {
	Driver      string `yaml:"driver" env:"REPOSITORY_DRIVER" env-default:"postgres"`
	CatalogPath string `yaml:"catalog_path" env:"CHECKPOINT_CATALOG" env-default:"checkpoints.yaml"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_checkpoint"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"2"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// MySQLConfig holds the connection settings for the legacy MySQL store.
type MySQLConfig struct {
	Host     string `yaml:"host" env:"MYSQL_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"MYSQL_USER" env-default:"checkpoint"`
	Password string `yaml:"-" env:"MYSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"MYSQL_DATABASE" env-default:"checkpoint"`
}

// RunnerConfig holds checkpoint execution settings.
type RunnerConfig struct {
	// ConnectTimeoutSeconds is handed to the drivers as their login timeout.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"RUNNER_CONNECT_TIMEOUT_SECONDS" env-default:"30"`
	// CheckTimeoutSeconds bounds the datasource "Check" probe.
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds" env:"RUNNER_CHECK_TIMEOUT_SECONDS" env-default:"5"`
	// PortProbeTimeoutSeconds bounds the TCP reachability probe.
	PortProbeTimeoutSeconds int `yaml:"port_probe_timeout_seconds" env:"RUNNER_PORT_PROBE_TIMEOUT_SECONDS" env-default:"3"`

	MSSQLEncrypt                bool `yaml:"mssql_encrypt" env:"RUNNER_MSSQL_ENCRYPT" env-default:"false"`
	MSSQLTrustServerCertificate bool `yaml:"mssql_trust_server_certificate" env:"RUNNER_MSSQL_TRUST_SERVER_CERTIFICATE" env-default:"true"`

	// RewriteLocalhostInDocker maps localhost datasources to host.docker.internal
	// when the engine itself runs in a container.
	RewriteLocalhostInDocker bool `yaml:"rewrite_localhost_in_docker" env:"RUNNER_REWRITE_LOCALHOST_IN_DOCKER" env-default:"true"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile reads configuration from path with environment variable overrides.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadEnv builds the configuration from environment variables and defaults
// only. Used by tools that run without a config.yaml.
func LoadEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.Repository.Driver = strings.ToLower(strings.TrimSpace(c.Repository.Driver))
	switch c.Repository.Driver {
	case RepositoryPostgres, RepositoryMySQL:
	case RepositoryCatalog:
		if c.Repository.CatalogPath == "" {
			return fmt.Errorf("repository.catalog_path is required for the catalog driver")
		}
	default:
		return fmt.Errorf("unknown repository driver %q (want postgres, mysql or catalog)", c.Repository.Driver)
	}

	if c.Runner.ConnectTimeoutSeconds < 0 || c.Runner.CheckTimeoutSeconds < 0 || c.Runner.PortProbeTimeoutSeconds < 0 {
		return fmt.Errorf("runner timeouts must not be negative")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ConnectTimeout returns the driver login timeout.
func (r RunnerConfig) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectTimeoutSeconds) * time.Second
}

// CheckTimeout returns the datasource check timeout.
func (r RunnerConfig) CheckTimeout() time.Duration {
	return time.Duration(r.CheckTimeoutSeconds) * time.Second
}

// PortProbeTimeout returns the TCP probe timeout.
func (r RunnerConfig) PortProbeTimeout() time.Duration {
	return time.Duration(r.PortProbeTimeoutSeconds) * time.Second
}
