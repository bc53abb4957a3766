package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageTemplate is an org-defined outreach template anchored to a business
// event. Code is assigned by the server on creation and never changes; it is
// unique per organization, not globally.
type MessageTemplate struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_template_org_code" json:"organization_id"`
	Organization        *Organization  `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrganizationID;references:ID" json:"organization,omitempty"`
	Code                string         `gorm:"not null;uniqueIndex:idx_template_org_code" json:"code"`
	Anchor              string         `gorm:"not null;index" json:"anchor"`
	Touchpoint          string         `gorm:"column:touchpoint" json:"touchpoint"`
	ChannelDefault      string         `gorm:"column:channel_default" json:"channel_default"`
	MessageV1           string         `gorm:"column:message_v1;not null" json:"message_v1"`
	MessageV2           *string        `gorm:"column:message_v2" json:"message_v2,omitempty"`
	Active              bool           `gorm:"not null;default:true" json:"active"`
	TemporalOffsetDays  *int           `gorm:"column:temporal_offset_days" json:"temporal_offset_days,omitempty"`
	TemporalAnchorField *string        `gorm:"column:temporal_anchor_field" json:"temporal_anchor_field,omitempty"`
	AudienceFilter      datatypes.JSON `gorm:"type:jsonb;column:audience_filter" json:"audience_filter,omitempty"`
	Variables           datatypes.JSON `gorm:"type:jsonb;column:variables" json:"variables,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MessageTemplate) TableName() string { return "message_template" }
