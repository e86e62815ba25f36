package models

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// AuthMode selects how a datasource authenticates.
type AuthMode string

const (
	AuthModeSQL     AuthMode = "sql"
	AuthModeWindows AuthMode = "windows"
)

// Datasource is a connection profile for a target database.
// Password holds the decrypted secret and is never serialized or logged.
type Datasource struct {
	ID                 int64    `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Description        string   `json:"description,omitempty" yaml:"description"`
	DBType             DBType   `json:"db_type" yaml:"db_type"`
	Host               string   `json:"host" yaml:"host"`
	Port               int      `json:"port,omitempty" yaml:"port"`
	AuthMode           AuthMode `json:"auth_mode,omitempty" yaml:"auth_mode"`
	Domain             string   `json:"domain,omitempty" yaml:"domain"`
	Username           string   `json:"username,omitempty" yaml:"username"`
	Password           string   `json:"-" yaml:"password"`
	InstanceName       string   `json:"instance_name,omitempty" yaml:"instance_name"`
	DatabaseName       string   `json:"database_name,omitempty" yaml:"database_name"`
	OracleServiceName  string   `json:"oracle_service_name,omitempty" yaml:"oracle_service_name"`
	OracleSID          string   `json:"oracle_sid,omitempty" yaml:"oracle_sid"`
	ConnectionProperty string   `json:"connection_property,omitempty" yaml:"connection_property"`
	CustomURL          string   `json:"custom_url,omitempty" yaml:"custom_url"`
}

// Database returns the database name to connect to, or "" when none is set.
// Stored values of "none" in any case count as unset.
func (d *Datasource) Database() string {
	name := strings.TrimSpace(d.DatabaseName)
	if strings.EqualFold(name, "none") {
		return ""
	}
	return name
}

// Auth returns the effective auth mode; unset means SQL authentication.
func (d *Datasource) Auth() AuthMode {
	if d.AuthMode == "" {
		return AuthModeSQL
	}
	return d.AuthMode
}

// Validate checks the structural invariants of a profile.
func (d *Datasource) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("datasource name is required")
	}
	if !d.DBType.IsValid() {
		return fmt.Errorf("invalid db_type %q for datasource %d", d.DBType, d.ID)
	}
	if d.CustomURL == "" && d.Host == "" {
		return fmt.Errorf("host is required for datasource %d", d.ID)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("invalid port: %d", d.Port)
	}
	switch d.Auth() {
	case AuthModeSQL, AuthModeWindows:
	default:
		return fmt.Errorf("invalid auth_mode %q (must be sql or windows)", d.AuthMode)
	}
	if d.DBType == DBTypeOracle && d.CustomURL == "" {
		hasService := strings.TrimSpace(d.OracleServiceName) != ""
		hasSID := strings.TrimSpace(d.OracleSID) != ""
		if hasService == hasSID {
			return fmt.Errorf("oracle datasource %d must set exactly one of oracle_service_name or oracle_sid", d.ID)
		}
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler without the password.
func (d *Datasource) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("id", d.ID)
	enc.AddString("name", d.Name)
	enc.AddString("db_type", string(d.DBType))
	enc.AddString("host", d.Host)
	enc.AddInt("port", d.Port)
	enc.AddString("auth_mode", string(d.Auth()))
	if db := d.Database(); db != "" {
		enc.AddString("database", db)
	}
	return nil
}
