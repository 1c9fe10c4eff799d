package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditAction names the operator action that produced an audit entry.
type AuditAction string

const (
	AuditActionExecute      AuditAction = "EXECUTE"
	AuditActionRerun        AuditAction = "RERUN"
	AuditActionDeclineRerun AuditAction = "DECLINE_RERUN"
)

// AuditOutcome is how the action ended.
type AuditOutcome string

const (
	AuditOutcomeCompleted AuditOutcome = "COMPLETED"
	AuditOutcomeConflict  AuditOutcome = "CONFLICT"
	AuditOutcomeFailed    AuditOutcome = "FAILED"
	AuditOutcomeDeclined  AuditOutcome = "DECLINED"
)

// DrawAudit records one console action against the draw backend.
type DrawAudit struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Operator         string             `bson:"operator" json:"operator"`
	Action           AuditAction        `bson:"action" json:"action"`
	Outcome          AuditOutcome       `bson:"outcome" json:"outcome"`
	DrawDate         time.Time          `bson:"drawDate" json:"drawDate"`
	PrizeStructureID string             `bson:"prizeStructureId" json:"prizeStructureId"`
	Mode             DrawMode           `bson:"mode" json:"mode"`
	EntryCount       int                `bson:"entryCount" json:"entryCount"`
	DrawID           string             `bson:"drawId,omitempty" json:"drawId,omitempty"`
	ExistingDrawID   string             `bson:"existingDrawId,omitempty" json:"existingDrawId,omitempty"`
	Message          string             `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}
