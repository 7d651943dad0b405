package models

import "time"

// Audit actions recorded by the mutation gateway.
const (
	AuditActionClientCreate = "CLIENT_CREATE"
	AuditActionClientDelete = "CLIENT_DELETE"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp"`
	UserID     string                 `json:"userId" firestore:"userId"` // Who performed the action
	Action     string                 `json:"action" firestore:"action"` // e.g., "CLIENT_CREATE"
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}

// Fields flattens the entry into document fields.
func (a AuditLog) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"timestamp": a.Timestamp,
		"userId":    a.UserID,
		"action":    a.Action,
	}
	if a.TargetType != "" {
		fields["targetType"] = a.TargetType
	}
	if a.TargetID != "" {
		fields["targetId"] = a.TargetID
	}
	if len(a.Details) > 0 {
		fields["details"] = a.Details
	}
	return fields
}
