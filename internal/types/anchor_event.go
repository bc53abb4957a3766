package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Anchor names the business event a template hangs off of.
const (
	AnchorSaleClose          = "sale_close"
	AnchorFirstWorkout       = "first_workout"
	AnchorWeeklyFollowup     = "weekly_followup"
	AnchorMonthlyReview      = "monthly_review"
	AnchorBirthday           = "birthday"
	AnchorRenewalWindow      = "renewal_window"
	AnchorOccurrenceFollowup = "occurrence_followup"
)

func ValidAnchor(anchor string) bool {
	switch anchor {
	case AnchorSaleClose, AnchorFirstWorkout, AnchorWeeklyFollowup,
		AnchorMonthlyReview, AnchorBirthday, AnchorRenewalWindow,
		AnchorOccurrenceFollowup:
		return true
	}
	return false
}

// AnchorEvent is a read-mostly record of a business event for one student.
// Fields holds optional named reference timestamps (RFC3339 strings) that a
// template may point at through its temporal_anchor_field.
type AnchorEvent struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	StudentID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	Student        *Student       `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Type           string         `gorm:"not null;index" json:"type"`
	OccurredAt     time.Time      `gorm:"not null" json:"occurred_at"`
	Fields         datatypes.JSON `gorm:"type:jsonb;column:fields" json:"fields,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (AnchorEvent) TableName() string { return "anchor_event" }
