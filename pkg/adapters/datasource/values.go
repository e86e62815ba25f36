package datasource

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how temporal values appear in results.
const TimestampLayout = "2006-01-02 15:04:05"

// normalizeValue folds a scanned driver value into nil, int64, float64 or
// string so that results compare and serialize the same on every engine.
// dbTypeName is the driver's column type name and may be empty.
func normalizeValue(v any, dbTypeName string) any {
	switch n := v.(type) {
	case nil:
		return nil
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int8:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= 1<<63-1 {
			return int64(n)
		}
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case bool:
		if n {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return n.Format(TimestampLayout)
	case []byte:
		return normalizeText(string(n), dbTypeName)
	case string:
		return normalizeText(n, dbTypeName)
	}
	return fmt.Sprint(v)
}

// normalizeText parses numeric columns that drivers hand back as text
// (SQL Server DECIMAL and MONEY, some Oracle NUMBER values).
func normalizeText(s, dbTypeName string) any {
	if !isNumericType(dbTypeName) {
		return s
	}
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return s
}

func isNumericType(dbTypeName string) bool {
	switch strings.ToUpper(dbTypeName) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY", "NUMBER", "FLOAT", "REAL",
		"BINARY_FLOAT", "BINARY_DOUBLE", "INT", "BIGINT", "SMALLINT", "TINYINT":
		return true
	}
	return false
}
