package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
	"github.com/fitlink/fitlink-backend/internal/requestdata"
	"github.com/fitlink/fitlink-backend/internal/types"
)

// LogService is the read side of the relationship log.
type LogService interface {
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*types.RelationshipLog, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*types.RelationshipLog, error)
}

type logService struct {
	db      *gorm.DB
	log     *logger.Logger
	logRepo repos.LogRepo
}

func NewLogService(db *gorm.DB, baseLog *logger.Logger, logRepo repos.LogRepo) LogService {
	return &logService{
		db:      db,
		log:     baseLog.With("service", "LogService"),
		logRepo: logRepo,
	}
}

func (s *logService) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*types.RelationshipLog, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}
	return s.logRepo.ListByTask(ctx, nil, rd.OrganizationID, taskID)
}

func (s *logService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*types.RelationshipLog, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.OrganizationID == uuid.Nil {
		return nil, ValidationError("organization context required")
	}
	return s.logRepo.ListByStudent(ctx, nil, rd.OrganizationID, studentID)
}
