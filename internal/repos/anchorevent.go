package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
)

type AnchorEventRepo interface {
	ListByOrgAndType(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, anchorType string) ([]*types.AnchorEvent, error)
}

type anchorEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnchorEventRepo(db *gorm.DB, baseLog *logger.Logger) AnchorEventRepo {
	return &anchorEventRepo{db: db, log: baseLog.With("repo", "AnchorEventRepo")}
}

func (ar *anchorEventRepo) ListByOrgAndType(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, anchorType string) ([]*types.AnchorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.AnchorEvent
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND type = ?", orgID, anchorType).
		Order("occurred_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
