package models

import (
	"fmt"
	"strings"
)

// DBType identifies a relational engine a checkpoint or datasource targets.
type DBType string

const (
	DBTypeOracle   DBType = "oracle"
	DBTypeMSSQL    DBType = "mssql"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// ValidDBTypes lists every recognized engine, whether or not a connector exists for it.
var ValidDBTypes = []DBType{DBTypeOracle, DBTypeMSSQL, DBTypePostgres, DBTypeMySQL}

// ParseDBType normalizes stored engine names. Legacy records use "sqlserver"
// and "postgresql" spellings.
func ParseDBType(s string) (DBType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oracle":
		return DBTypeOracle, nil
	case "mssql", "sqlserver":
		return DBTypeMSSQL, nil
	case "postgres", "postgresql":
		return DBTypePostgres, nil
	case "mysql":
		return DBTypeMySQL, nil
	}
	return "", fmt.Errorf("unknown database type: %q", s)
}

// IsValid reports whether t is one of ValidDBTypes.
func (t DBType) IsValid() bool {
	for _, v := range ValidDBTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Severity ranks how serious a failing checkpoint is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps stored text to a Severity. Empty text means medium.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case "":
		return SeverityMedium, nil
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity: %q", s)
}

// Checkpoint is a stored test definition. It is read-only during a run.
type Checkpoint struct {
	ID            int64    `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	DBType        DBType   `json:"db_type" yaml:"db_type"`
	Severity      Severity `json:"severity" yaml:"severity"`
	Description   string   `json:"description,omitempty" yaml:"description"`
	PreSQLTest    string   `json:"pre_sql_test,omitempty" yaml:"pre_sql_test"`
	SQLTest       string   `json:"sql_test" yaml:"sql_test"`
	TestCondition string   `json:"test_condition,omitempty" yaml:"test_condition"`
	PreSQLDetail  string   `json:"pre_sql_detail,omitempty" yaml:"pre_sql_detail"`
	SQLDetail     string   `json:"sql_detail,omitempty" yaml:"sql_detail"`
	TextPass      string   `json:"text_pass,omitempty" yaml:"text_pass"`
	TextFail      string   `json:"text_fail,omitempty" yaml:"text_fail"`
	Notes         string   `json:"notes,omitempty" yaml:"notes"`
}

// Validate checks the fields every stored checkpoint must carry.
func (c *Checkpoint) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("checkpoint name is required")
	}
	if !c.DBType.IsValid() {
		return fmt.Errorf("invalid db_type %q for checkpoint %d", c.DBType, c.ID)
	}
	if _, err := ParseSeverity(string(c.Severity)); err != nil {
		return err
	}
	return nil
}
