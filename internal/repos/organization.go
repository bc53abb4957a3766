package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type OrganizationRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (or *organizationRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Organization
	if err := transaction.WithContext(ctx).
		Where("id = ?", orgID).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}
