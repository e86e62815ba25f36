package mssql

import (
	"fmt"
	"net/url"
	"strings"
)

// splitInstance splits "host\INSTANCE" into its parts.
func splitInstance(host string) (string, string) {
	if i := strings.IndexByte(host, '\\'); i >= 0 {
		return host[:i], host[i+1:]
	}
	return host, ""
}

// parseProperties reads "key=value" pairs separated by ';' or '&'.
// Keys keep their case; go-mssqldb matches parameter names case-insensitively.
func parseProperties(s string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '&' }) {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		props[key] = strings.TrimSpace(value)
	}
	return props
}

// ConnectionString builds the sqlserver:// URL for the config. Properties
// from the profile are applied last and may override the defaults.
func (c *Config) ConnectionString() string {
	if c.CustomURL != "" {
		return c.CustomURL
	}

	query := url.Values{}
	if c.Database != "" {
		query.Add("database", c.Database)
	}

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "disable")
	}

	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
		query.Add("dial timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	for k, v := range c.Properties {
		query.Set(k, v)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     c.Host,
		RawQuery: query.Encode(),
	}
	// A named instance on the default port is resolved through SQL Browser.
	if c.Instance == "" || c.Port != DefaultPort() {
		u.Host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	if c.Instance != "" {
		u.Path = "/" + c.Instance
	}
	if login := c.Login(); login != "" {
		u.User = url.UserPassword(login, c.Password)
	}
	return u.String()
}
