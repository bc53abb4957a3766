package types

import (
	"time"

	"github.com/google/uuid"
)

// Task status values. Deleted is a status, not a row removal: tasks are never
// hard-deleted so the audit trail and the undo path stay intact.
const (
	TaskStatusPending = "pending"
	TaskStatusSent    = "sent"
	TaskStatusSkipped = "skipped"
	TaskStatusDeleted = "deleted"
)

func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusSent, TaskStatusSkipped, TaskStatusDeleted:
		return true
	}
	return false
}

// RelationshipTask is one scheduled outreach to one student, produced by
// expanding an active template. DeletedAt is a plain nullable marker owned by
// the lifecycle engine, deliberately not gorm.DeletedAt: deleted rows must
// remain visible to the classifier and the undo engine.
type RelationshipTask struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	StudentID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_task_student_template" json:"student_id"`
	Student        *Student   `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	TemplateCode   string     `gorm:"not null;index:idx_task_student_template" json:"template_code"`
	Anchor         string     `gorm:"not null" json:"anchor"`
	Status         string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledFor   time.Time  `gorm:"not null;index" json:"scheduled_for"`
	Channel        string     `gorm:"column:channel" json:"channel"`
	Payload        string     `gorm:"column:payload" json:"payload"`
	DeletedAt      *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (RelationshipTask) TableName() string { return "relationship_task" }
