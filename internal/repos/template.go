package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type TemplateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, template *types.MessageTemplate) (*types.MessageTemplate, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID) (*types.MessageTemplate, error)
	GetByCode(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, code string) (*types.MessageTemplate, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error)
	ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error)
	ListCodesByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]string, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID, updates map[string]any) error
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	return &templateRepo{db: db, log: baseLog.With("repo", "TemplateRepo")}
}

func (tr *templateRepo) Create(ctx context.Context, tx *gorm.DB, template *types.MessageTemplate) (*types.MessageTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if err := transaction.WithContext(ctx).Create(template).Error; err != nil {
		return nil, mapWriteError(err)
	}

	return template, nil
}

func (tr *templateRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID) (*types.MessageTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.MessageTemplate
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, templateID).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (tr *templateRepo) GetByCode(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, code string) (*types.MessageTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.MessageTemplate
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND code = ?", orgID, code).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (tr *templateRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.MessageTemplate
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("code ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (tr *templateRepo) ListActiveByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.MessageTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.MessageTemplate
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND active = ?", orgID, true).
		Order("code ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (tr *templateRepo) ListCodesByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var codes []string
	if err := transaction.WithContext(ctx).
		Model(&types.MessageTemplate{}).
		Where("organization_id = ?", orgID).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}

	return codes, nil
}

func (tr *templateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, orgID, templateID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(updates) == 0 {
		return nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.MessageTemplate{}).
		Where("organization_id = ? AND id = ?", orgID, templateID).
		Updates(updates)
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
