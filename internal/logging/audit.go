package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the kind of audited profile operation.
type AuditEventType string

const (
	AuditProfileCreate AuditEventType = "profile_create"
	AuditProfileReset  AuditEventType = "profile_reset"
	AuditFieldUpdate   AuditEventType = "field_update"
	AuditFieldReject   AuditEventType = "field_reject"
	AuditStatusChange  AuditEventType = "status_change"

	AuditToolComplete AuditEventType = "tool_complete"
	AuditToolError    AuditEventType = "tool_error"
)

// AuditEvent is one structured audit entry. Field values are never recorded,
// only which field changed.
type AuditEvent struct {
	EventType  AuditEventType
	AccountID  string
	Target     string // section.field, tool name, or status transition
	Success    bool
	DurationMs int64
	Error      string
	Fields     map[string]interface{}
}

// AuditLogger writes audit events to the audit category.
type AuditLogger struct {
	accountID string
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithAccount returns an audit logger scoped to an account.
func AuditWithAccount(accountID string) *AuditLogger {
	return &AuditLogger{accountID: accountID}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsCategoryEnabled(CategoryAudit) {
		return
	}
	if event.AccountID == "" {
		event.AccountID = a.accountID
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("account_id", event.AccountID),
		zap.Bool("success", event.Success),
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.DurationMs))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Fields) > 0 {
		fields = append(fields, zap.Any("fields", event.Fields))
	}

	zapLogger().Named(string(CategoryAudit)).Info("audit", fields...)
}

// ProfileCreated records the lazy creation of a blank profile.
func (a *AuditLogger) ProfileCreated(accountID string) {
	a.Log(AuditEvent{EventType: AuditProfileCreate, AccountID: accountID, Success: true})
}

// ProfileReset records a destructive reset.
func (a *AuditLogger) ProfileReset(accountID string) {
	a.Log(AuditEvent{EventType: AuditProfileReset, AccountID: accountID, Success: true})
}

// FieldUpdated records a committed field write.
func (a *AuditLogger) FieldUpdated(accountID, sectionKey, fieldKey string) {
	a.Log(AuditEvent{
		EventType: AuditFieldUpdate,
		AccountID: accountID,
		Target:    sectionKey + "." + fieldKey,
		Success:   true,
	})
}

// FieldRejected records an update that failed validation and wrote nothing.
func (a *AuditLogger) FieldRejected(accountID, sectionKey, fieldKey string, err error) {
	a.Log(AuditEvent{
		EventType: AuditFieldReject,
		AccountID: accountID,
		Target:    sectionKey + "." + fieldKey,
		Error:     errString(err),
	})
}

// StatusChanged records an onboarding status transition.
func (a *AuditLogger) StatusChanged(accountID, from, to string) {
	a.Log(AuditEvent{
		EventType: AuditStatusChange,
		AccountID: accountID,
		Target:    from + "->" + to,
		Success:   true,
	})
}

// ToolCompleted records the outcome of a tool invocation.
func (a *AuditLogger) ToolCompleted(tool, accountID string, dur time.Duration, err error) {
	ev := AuditEvent{
		EventType:  AuditToolComplete,
		AccountID:  accountID,
		Target:     tool,
		Success:    err == nil,
		DurationMs: dur.Milliseconds(),
	}
	if err != nil {
		ev.EventType = AuditToolError
		ev.Error = err.Error()
	}
	a.Log(ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
