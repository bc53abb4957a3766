package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Student struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization  `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrganizationID;references:ID" json:"organization,omitempty"`
	Name           string         `gorm:"not null" json:"name"`
	Phone          string         `gorm:"column:phone" json:"phone"`
	Email          string         `gorm:"column:email" json:"email"`
	BirthDate      *time.Time     `gorm:"column:birth_date" json:"birth_date,omitempty"`
	PlanName       string         `gorm:"column:plan_name" json:"plan_name"`
	Active         bool           `gorm:"not null;default:true" json:"active"`
	Attributes     datatypes.JSON `gorm:"type:jsonb;column:attributes" json:"attributes,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Student) TableName() string { return "student" }

func (s *Student) FirstName() string {
	if s == nil {
		return ""
	}
	parts := strings.Fields(strings.TrimSpace(s.Name))
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
