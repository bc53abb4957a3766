package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Log actions. One row is written for every lifecycle transition and every
// undo; rows are never updated or deleted.
const (
	LogActionCreated = "created"
	LogActionSent    = "sent"
	LogActionSkipped = "skipped"
	LogActionDeleted = "deleted"
	LogActionUndo    = "undo"
)

type RelationshipLog struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	StudentID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"student_id"`
	TaskID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"task_id"`
	Task           *RelationshipTask `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Action         string            `gorm:"not null;index" json:"action"`
	Channel        string            `gorm:"column:channel" json:"channel"`
	Meta           datatypes.JSON    `gorm:"type:jsonb;column:meta" json:"meta,omitempty"`
	At             time.Time         `gorm:"column:at;not null;default:now()" json:"at"`
}

func (RelationshipLog) TableName() string { return "relationship_log" }
