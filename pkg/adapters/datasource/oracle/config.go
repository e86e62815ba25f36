package oracle

import (
	"fmt"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-checkpoint/pkg/sql"
)

// Config contains Oracle-specific connection options.
type Config struct {
	Host        string
	Port        int
	ServiceName string
	SID         string
	Username    string
	Password    string

	// Descriptor replaces the generated connect descriptor when set.
	Descriptor string

	// Options are extra go-ora URL options ("SSL", "PREFETCH_ROWS", ...).
	Options map[string]string

	ConnectionTimeout int // seconds
}

// DefaultPort returns the default Oracle listener port.
func DefaultPort() int {
	return 1521
}

// FromDatasource builds a Config from a profile. A profile without a service
// name or SID fails with apperrors.ErrMissingIdentifier; when both are stored
// the service name wins.
func FromDatasource(ds *models.Datasource, opts datasource.OpenOptions) (*Config, error) {
	cfg := &Config{
		Host:              strings.TrimSpace(ds.Host),
		Port:              ds.Port,
		ServiceName:       strings.TrimSpace(ds.OracleServiceName),
		SID:               strings.TrimSpace(ds.OracleSID),
		Username:          ds.Username,
		Password:          ds.Password,
		Descriptor:        strings.TrimSpace(ds.CustomURL),
		Options:           parseProperties(ds.ConnectionProperty),
		ConnectionTimeout: int(opts.ConnectTimeout.Seconds()),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.ServiceName != "" {
		cfg.SID = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config before anything is dialed.
func (c *Config) Validate() error {
	if c.Descriptor != "" {
		return nil
	}
	if c.ServiceName == "" && c.SID == "" {
		return fmt.Errorf("%w: Oracle requires service_name or SID", apperrors.ErrMissingIdentifier)
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return sqlutil.CheckConnectionFields(map[string]string{
		"host":         c.Host,
		"service_name": c.ServiceName,
		"sid":          c.SID,
	})
}

// ConnectDescriptor returns the TNS descriptor for the config.
func (c *Config) ConnectDescriptor() string {
	if c.Descriptor != "" {
		return c.Descriptor
	}
	target := "SERVICE_NAME=" + c.ServiceName
	if c.ServiceName == "" {
		target = "SID=" + c.SID
	}
	return fmt.Sprintf("(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(%s)))",
		c.Host, c.Port, target)
}

// DSN returns the go-ora connection URL. A custom URL that is already an
// oracle:// URL is used verbatim.
func (c *Config) DSN() string {
	if strings.HasPrefix(strings.ToLower(c.Descriptor), "oracle://") {
		return c.Descriptor
	}

	options := make(map[string]string, len(c.Options)+1)
	for k, v := range c.Options {
		options[k] = v
	}
	if c.ConnectionTimeout > 0 {
		if _, ok := options["TIMEOUT"]; !ok {
			options["TIMEOUT"] = fmt.Sprintf("%d", c.ConnectionTimeout)
		}
	}
	return go_ora.BuildJDBC(c.Username, c.Password, c.ConnectDescriptor(), options)
}

// parseProperties reads "key=value" pairs separated by ';' or '&'.
func parseProperties(s string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '&' }) {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		props[strings.ToUpper(key)] = strings.TrimSpace(value)
	}
	return props
}
