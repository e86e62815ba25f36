package sql

import (
	"fmt"
	"sort"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a connection field that failed screening.
type InjectionCheckResult struct {
	Field       string
	Fingerprint string // libinjection fingerprint, empty for descriptor metacharacters
	Reason      string
}

func (r *InjectionCheckResult) Error() string {
	return fmt.Sprintf("%s %s", r.Field, r.Reason)
}

// descriptorMeta are characters that would alter an Oracle connect descriptor
// or a key=value connection string if interpolated unescaped.
const descriptorMeta = "()=;"

// CheckConnectionField screens one profile value before it is interpolated
// into a connect descriptor or DSN. Empty values pass.
func CheckConnectionField(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	if strings.ContainsAny(value, descriptorMeta) {
		return &InjectionCheckResult{
			Field:  field,
			Reason: fmt.Sprintf("contains one of %q", descriptorMeta),
		}
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &InjectionCheckResult{
			Field:       field,
			Fingerprint: string(fingerprint),
			Reason:      "looks like SQL injection",
		}
	}
	return nil
}

// CheckConnectionFields screens every value and returns the first failure in
// field-name order, or nil when all values are clean.
func CheckConnectionFields(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if result := CheckConnectionField(name, fields[name]); result != nil {
			return result
		}
	}
	return nil
}
