// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/middleware"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventConnectionFieldRejected is logged when a datasource field fails injection screening.
	EventConnectionFieldRejected SecurityEventType = "connection_field_rejected"
	// EventCheckpointRun is logged for every finished checkpoint run.
	EventCheckpointRun SecurityEventType = "checkpoint_run"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp    time.Time         `json:"timestamp"`
	EventType    SecurityEventType `json:"event_type"`
	RequestID    string            `json:"request_id,omitempty"`
	RunID        string            `json:"run_id,omitempty"`
	CheckpointID int64             `json:"checkpoint_id,omitempty"`
	DatasourceID int64             `json:"datasource_id"`
	Details      any               `json:"details"`
	Severity     string            `json:"severity"` // info, warning, critical
}

// ConnectionFieldDetails describes a rejected datasource field. The value
// itself is never logged.
type ConnectionFieldDetails struct {
	Field       string `json:"field"`
	Fingerprint string `json:"fingerprint,omitempty"` // libinjection fingerprint for pattern analysis
	Reason      string `json:"reason"`
}

// RunDetails summarizes a finished run.
type RunDetails struct {
	Kind       models.RunKind   `json:"kind"`
	Status     models.RunStatus `json:"status"`
	DBType     models.DBType    `json:"db_type"`
	DurationMs int64            `json:"duration_ms"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor under the
// "security_audit" logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogConnectionFieldRejected records a datasource whose host or identifier
// would have altered the connect descriptor. Logged at ERROR with critical
// severity: stored profiles are written by administrators, so this points at
// a tampered repository.
func (a *SecurityAuditor) LogConnectionFieldRejected(
	ctx context.Context,
	runID string,
	datasourceID int64,
	details ConnectionFieldDetails,
) {
	event := SecurityEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    EventConnectionFieldRejected,
		RequestID:    middleware.RequestIDFromContext(ctx),
		RunID:        runID,
		DatasourceID: datasourceID,
		Details:      details,
		Severity:     "critical",
	}

	// Marshaling known types does not fail.
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Datasource connection field rejected",
		zap.String("event_json", string(eventJSON)),
		zap.Int64("datasource_id", datasourceID),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("request_id", event.RequestID),
		zap.String("severity", "critical"),
	)
}

// LogCheckpointRun records which checkpoint ran against which datasource and
// how it ended. Runs execute stored SQL against production systems, so every
// run is kept in the audit trail.
func (a *SecurityAuditor) LogCheckpointRun(ctx context.Context, result *models.RunResult, dbType models.DBType) {
	event := SecurityEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    EventCheckpointRun,
		RequestID:    middleware.RequestIDFromContext(ctx),
		RunID:        result.RunID.String(),
		CheckpointID: result.CheckpointID,
		DatasourceID: result.DatasourceID,
		Details: RunDetails{
			Kind:       result.Kind,
			Status:     result.Status,
			DBType:     dbType,
			DurationMs: result.DurationMs,
		},
		Severity: "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Checkpoint executed",
		zap.String("event_json", string(eventJSON)),
		zap.String("run_id", event.RunID),
		zap.Int64("checkpoint_id", result.CheckpointID),
		zap.Int64("datasource_id", result.DatasourceID),
		zap.String("status", string(result.Status)),
		zap.String("request_id", event.RequestID),
		zap.String("severity", "info"),
	)
}
