package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type CreateTemplateInput struct {
	Anchor              string         `json:"anchor"`
	Touchpoint          string         `json:"touchpoint"`
	ChannelDefault      string         `json:"channel_default"`
	MessageV1           string         `json:"message_v1"`
	MessageV2           *string        `json:"message_v2,omitempty"`
	Active              *bool          `json:"active,omitempty"`
	TemporalOffsetDays  *int           `json:"temporal_offset_days,omitempty"`
	TemporalAnchorField *string        `json:"temporal_anchor_field,omitempty"`
	AudienceFilter      datatypes.JSON `json:"audience_filter,omitempty"`
	Variables           datatypes.JSON `json:"variables,omitempty"`
}

type UpdateTemplateInput struct {
	Touchpoint          *string         `json:"touchpoint,omitempty"`
	ChannelDefault      *string         `json:"channel_default,omitempty"`
	MessageV1           *string         `json:"message_v1,omitempty"`
	MessageV2           *string         `json:"message_v2,omitempty"`
	Active              *bool           `json:"active,omitempty"`
	TemporalOffsetDays  *int            `json:"temporal_offset_days,omitempty"`
	TemporalAnchorField *string         `json:"temporal_anchor_field,omitempty"`
	AudienceFilter      *datatypes.JSON `json:"audience_filter,omitempty"`
}

type TemplatePreview struct {
	Code      string  `json:"code"`
	MessageV1 string  `json:"message_v1"`
	MessageV2 *string `json:"message_v2,omitempty"`
}

// TemplateService owns template CRUD. The code is assigned server-side and
// never changes afterwards; neither does the owning organization.
type TemplateService interface {
	Create(ctx context.Context, input CreateTemplateInput) (*types.MessageTemplate, error)
	Update(ctx context.Context, templateID uuid.UUID, input UpdateTemplateInput) (*types.MessageTemplate, error)
	Get(ctx context.Context, templateID uuid.UUID) (*types.MessageTemplate, error)
	List(ctx context.Context) ([]*types.MessageTemplate, error)
	Preview(ctx context.Context, templateID uuid.UUID) (*TemplatePreview, error)
}

type templateService struct {
	db           *gorm.DB
	log          *logger.Logger
	templateRepo repos.TemplateRepo
	codeService  TemplateCodeService
}

func NewTemplateService(db *gorm.DB, baseLog *logger.Logger, templateRepo repos.TemplateRepo, codeService TemplateCodeService) TemplateService {
	return &templateService{
		db:           db,
		log:          baseLog.With("service", "TemplateService"),
		templateRepo: templateRepo,
		codeService:  codeService,
	}
}

func (s *templateService) Create(ctx context.Context, input CreateTemplateInput) (*types.MessageTemplate, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}
	if !types.ValidAnchor(input.Anchor) {
		return nil, ValidationError(fmt.Sprintf("unknown anchor %q", input.Anchor))
	}
	if strings.TrimSpace(input.MessageV1) == "" {
		return nil, ValidationError("message_v1 required")
	}
	if _, err := ParseAudienceFilter(input.AudienceFilter); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	// The read-then-increment is racy by design; the (org, code) constraint
	// breaks ties. One retry with a fresh read covers the common race, a
	// second loss is surfaced as a conflict.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		code, err := s.codeService.NextCode(ctx, nil, rd.OrganizationID)
		if err != nil {
			return nil, err
		}

		template := &types.MessageTemplate{
			OrganizationID:      rd.OrganizationID,
			Code:                code,
			Anchor:              input.Anchor,
			Touchpoint:          input.Touchpoint,
			ChannelDefault:      input.ChannelDefault,
			MessageV1:           input.MessageV1,
			MessageV2:           input.MessageV2,
			Active:              active,
			TemporalOffsetDays:  input.TemporalOffsetDays,
			TemporalAnchorField: input.TemporalAnchorField,
			AudienceFilter:      input.AudienceFilter,
			Variables:           input.Variables,
		}

		created, err := s.templateRepo.Create(ctx, nil, template)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repos.ErrDuplicate) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("Template code taken by concurrent creation, retrying with fresh read", "org_id", rd.OrganizationID, "code", code)
	}

	return nil, errors.Join(ConflictError("template code collision"), lastErr)
}

func (s *templateService) Update(ctx context.Context, templateID uuid.UUID, input UpdateTemplateInput) (*types.MessageTemplate, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}

	updates := map[string]any{}
	if input.Touchpoint != nil {
		updates["touchpoint"] = *input.Touchpoint
	}
	if input.ChannelDefault != nil {
		updates["channel_default"] = *input.ChannelDefault
	}
	if input.MessageV1 != nil {
		if strings.TrimSpace(*input.MessageV1) == "" {
			return nil, ValidationError("message_v1 cannot be emptied")
		}
		updates["message_v1"] = *input.MessageV1
	}
	if input.MessageV2 != nil {
		updates["message_v2"] = *input.MessageV2
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.TemporalOffsetDays != nil {
		updates["temporal_offset_days"] = *input.TemporalOffsetDays
	}
	if input.TemporalAnchorField != nil {
		updates["temporal_anchor_field"] = *input.TemporalAnchorField
	}
	if input.AudienceFilter != nil {
		if _, err := ParseAudienceFilter(*input.AudienceFilter); err != nil {
			return nil, err
		}
		updates["audience_filter"] = *input.AudienceFilter
	}
	if len(updates) == 0 {
		return nil, ValidationError("no updatable fields supplied")
	}

	if err := s.templateRepo.UpdateFields(ctx, nil, rd.OrganizationID, templateID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}

	return s.Get(ctx, templateID)
}

func (s *templateService) Get(ctx context.Context, templateID uuid.UUID) (*types.MessageTemplate, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}

	template, err := s.templateRepo.GetByID(ctx, nil, rd.OrganizationID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}
	return template, nil
}

func (s *templateService) List(ctx context.Context) ([]*types.MessageTemplate, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}
	return s.templateRepo.ListByOrg(ctx, nil, rd.OrganizationID)
}

func (s *templateService) Preview(ctx context.Context, templateID uuid.UUID) (*TemplatePreview, error) {
	template, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	preview := &TemplatePreview{
		Code:      template.Code,
		MessageV1: RenderMessage(template.MessageV1, PreviewContext()),
	}
	if template.MessageV2 != nil {
		rendered := RenderMessage(*template.MessageV2, PreviewContext())
		preview.MessageV2 = &rendered
	}
	return preview, nil
}
