// Package condition implements the expected-result grammar used by checkpoint
// tests: an optional comparison operator followed by a single literal, for
// example "> 0", "== 'OPEN'" or "0". Nothing else is accepted.
package condition

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGt Op = ">"
	OpGe Op = ">="
	OpLt Op = "<"
	OpLe Op = "<="
)

// Two-character operators must be tried before their one-character prefixes.
var operators = []Op{OpEq, OpNe, OpGe, OpLe, OpGt, OpLt}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Condition is a parsed condition.
type Condition struct {
	Op      Op
	Literal any // int64, float64 or string
}

// Outcome is the result of evaluating a condition against a scalar.
type Outcome struct {
	Passed      bool
	Expr        string
	NoCondition bool
}

// Parse parses condition text. Blank text yields (nil, nil).
func Parse(text string) (*Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	op := OpEq
	for _, candidate := range operators {
		if strings.HasPrefix(text, string(candidate)) {
			op = candidate
			text = strings.TrimSpace(text[len(candidate):])
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("%w: operator %s has no literal", apperrors.ErrConditionParse, op)
	}

	literal, err := parseLiteral(text)
	if err != nil {
		return nil, err
	}
	return &Condition{Op: op, Literal: literal}, nil
}

func parseLiteral(text string) (any, error) {
	switch text[0] {
	case '\'', '"':
		return parseQuoted(text)
	}

	if !numberPattern.MatchString(text) {
		return nil, fmt.Errorf("%w: unsupported literal %q", apperrors.ErrConditionParse, text)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid number %q", apperrors.ErrConditionParse, text)
	}
	return f, nil
}

// parseQuoted reads a quoted string where a backslash escapes the next rune.
// The closing quote must end the text.
func parseQuoted(text string) (string, error) {
	quote := rune(text[0])
	var b strings.Builder
	escaped := false

	runes := []rune(text)
	for i := 1; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == quote:
			if rest := strings.TrimSpace(string(runes[i+1:])); rest != "" {
				return "", fmt.Errorf("%w: unexpected %q after string literal", apperrors.ErrConditionParse, rest)
			}
			return b.String(), nil
		default:
			b.WriteRune(r)
		}
	}
	return "", fmt.Errorf("%w: unterminated string literal", apperrors.ErrConditionParse)
}

// Evaluate parses text and applies it to scalar. Blank text yields an
// Outcome with NoCondition set. On failure the returned Outcome still carries
// the rendered expression for diagnostics.
func Evaluate(scalar any, text string) (Outcome, error) {
	cond, err := Parse(text)
	if err != nil {
		return Outcome{Expr: Render(scalar) + " " + strings.TrimSpace(text)}, err
	}
	if cond == nil {
		return Outcome{NoCondition: true}, nil
	}

	out := Outcome{Expr: cond.Render(scalar)}
	out.Passed, err = cond.Eval(scalar)
	return out, err
}

// Eval compares scalar against the condition's literal.
func (c *Condition) Eval(scalar any) (bool, error) {
	scalar = normalize(scalar)

	if scalar == nil {
		switch c.Op {
		case OpEq:
			return false, nil
		case OpNe:
			return true, nil
		}
		return false, fmt.Errorf("%w: NULL cannot be ordered with %s", apperrors.ErrTypeMismatch, c.Op)
	}

	switch lit := c.Literal.(type) {
	case string:
		s, ok := scalar.(string)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare %T with string literal", apperrors.ErrTypeMismatch, scalar)
		}
		return compare(strings.Compare(s, lit), c.Op), nil
	case int64, float64:
		// NaN is unordered: it equals nothing and only != holds.
		if f, ok := scalar.(float64); ok && math.IsNaN(f) {
			return c.Op == OpNe, nil
		}
		cmp, ok := compareNumbers(scalar, lit)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare %T with numeric literal", apperrors.ErrTypeMismatch, scalar)
		}
		return compare(cmp, c.Op), nil
	}
	return false, fmt.Errorf("%w: unsupported literal type %T", apperrors.ErrConditionParse, c.Literal)
}

func compareNumbers(a, b any) (int, bool) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		}
		return 0, true
	}

	af, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compare(cmp int, op Op) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	}
	return false
}

// normalize folds driver-shaped scalars into nil, int64, float64 or string.
func normalize(v any) any {
	switch n := v.(type) {
	case nil, int64, float64, string:
		return n
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return float64(n)
	case float32:
		return float64(n)
	case bool:
		if n {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(n)
	}
	return fmt.Sprint(v)
}
