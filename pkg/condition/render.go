package condition

import (
	"math"
	"strconv"
	"strings"
)

// Render formats the expression "<scalar> <op> <literal>".
func (c *Condition) Render(scalar any) string {
	return Render(scalar) + " " + string(c.Op) + " " + Render(c.Literal)
}

// Render formats a single value the way it appears in a rendered expression:
// integers plainly, floats in shortest form with a ".0" suffix when integral,
// strings single-quoted with backslash escapes and NULL for nil.
func Render(v any) string {
	switch n := normalize(v).(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return formatFloat(n)
	case string:
		escaped := strings.ReplaceAll(n, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `'`, `\'`)
		return "'" + escaped + "'"
	}
	return "?"
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	var s string
	if abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
