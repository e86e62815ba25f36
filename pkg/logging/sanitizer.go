package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a checkpoint statement to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches: user:pass@host in sqlserver://, oracle://, postgres://, mysql DSNs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?'"]+`)

	// Matches the user:pass@tcp(host) form used by go-sql-driver/mysql
	mysqlDSNPattern = regexp.MustCompile(`[^:/\s]+:[^@\s]+@tcp\(`)

	// Matches IDENTIFIED BY <secret> in Oracle user DDL
	oraclePasswordPattern = regexp.MustCompile(`(?i)(identified\s+by)\s+("[^"]*"|\S+)`)
)

// SanitizeConnectionString removes credentials from a datasource
// connection string. Use this before logging any DSN.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = mysqlDSNPattern.ReplaceAllString(sanitized, RedactedText+"@tcp(")

	return sanitized
}

// SanitizeError sanitizes driver error messages that might echo the
// connection string or a credential back to us.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	return SanitizeMessage(err.Error())
}

// SanitizeMessage applies the error redactions to an already formatted
// message, such as a run's user-facing error text.
func SanitizeMessage(msg string) string {
	sanitized := SanitizeConnectionString(msg)
	return oraclePasswordPattern.ReplaceAllString(sanitized, "${1} "+RedactedText)
}

// SanitizeQuery truncates a checkpoint statement for logging and removes
// password literals such as ALTER USER ... IDENTIFIED BY.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := TruncateString(query, MaxQueryLogLength)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = oraclePasswordPattern.ReplaceAllString(sanitized, "${1} "+RedactedText)

	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
