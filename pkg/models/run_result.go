package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RunKind distinguishes the two executor flows.
type RunKind string

const (
	RunKindTest   RunKind = "test"
	RunKindDetail RunKind = "detail"
)

// RunStatus is the outcome of one run.
type RunStatus string

const (
	RunStatusPass        RunStatus = "PASS"
	RunStatusFail        RunStatus = "FAIL"
	RunStatusError       RunStatus = "ERROR"
	RunStatusNoCondition RunStatus = "NO_CONDITION"
	RunStatusOK          RunStatus = "OK"
)

// RunResult is produced fresh by every test or detail run.
type RunResult struct {
	RunID         uuid.UUID        `json:"run_id"`
	Kind          RunKind          `json:"kind"`
	CheckpointID  int64            `json:"checkpoint_id"`
	DatasourceID  int64            `json:"datasource_id"`
	Status        RunStatus        `json:"status"`
	ResultValue   any              `json:"result_value"`
	ConditionExpr string           `json:"condition_expr,omitempty"`
	Verdict       string           `json:"verdict,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Columns       []string         `json:"columns,omitempty"`
	Rows          []map[string]any `json:"rows,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	DurationMs    int64            `json:"duration_ms"`
}

// NewRunResult starts a result for the given checkpoint and datasource.
func NewRunResult(kind RunKind, checkpointID, datasourceID int64) *RunResult {
	return &RunResult{
		RunID:        uuid.New(),
		Kind:         kind,
		CheckpointID: checkpointID,
		DatasourceID: datasourceID,
		StartedAt:    time.Now(),
	}
}

// Finish records the final status and elapsed time.
func (r *RunResult) Finish(status RunStatus) *RunResult {
	r.Status = status
	r.DurationMs = time.Since(r.StartedAt).Milliseconds()
	return r
}

// Fail marks the run as ERROR with a user-facing message.
func (r *RunResult) Fail(message string) *RunResult {
	r.ErrorMessage = message
	return r.Finish(RunStatusError)
}

// JSONValue returns v unchanged unless it is a non-finite float, which
// encoding/json cannot represent. Those become "NaN", "+Inf" or "-Inf".
func JSONValue(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}
