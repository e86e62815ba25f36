package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrCheckpointNotFound     = errors.New("checkpoint not found")
	ErrDatasourceNotFound     = errors.New("datasource not found")
	ErrCredentialsKeyMismatch = errors.New("datasource credentials were encrypted with a different key")
)

// Run failure kinds. Everything below the executors is classified with one of
// these and surfaced as an ERROR result, never as a Go error.
var (
	ErrUnsupportedEngine = errors.New("unsupported database engine")
	ErrMissingIdentifier = errors.New("missing connection identifier")
	ErrConnect           = errors.New("connection failed")
	ErrSetupFailed       = errors.New("setup SQL failed")
	ErrSQL               = errors.New("SQL execution failed")
	ErrNoRows            = errors.New("statement returned no rows")
	ErrConditionParse    = errors.New("invalid condition")
	ErrTypeMismatch      = errors.New("type mismatch")
)

// Error pairs a failure kind with the error that caused it. errors.Is matches
// both the kind and anything in the cause's chain, while Error() reports the
// cause's own message so driver text reaches the caller unchanged.
type Error struct {
	Kind  error
	Cause error
}

// Wrap classifies cause as kind. A nil cause yields nil.
func Wrap(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
