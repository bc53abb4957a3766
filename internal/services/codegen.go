package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/repos"
)

// TemplateCodeService computes the next sequential template code for one
// organization. It is read-only and deliberately does not lock: the composite
// uniqueness constraint on (organization_id, code) is the final arbiter when
// two creations race, and the caller retries with a fresh read.
type TemplateCodeService interface {
	NextCode(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (string, error)
}

type templateCodeService struct {
	log          *logger.Logger
	templateRepo repos.TemplateRepo
}

func NewTemplateCodeService(baseLog *logger.Logger, templateRepo repos.TemplateRepo) TemplateCodeService {
	return &templateCodeService{
		log:          baseLog.With("service", "TemplateCodeService"),
		templateRepo: templateRepo,
	}
}

func (s *templateCodeService) NextCode(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (string, error) {
	codes, err := s.templateRepo.ListCodesByOrg(ctx, tx, orgID)
	if err != nil {
		return "", err
	}

	// Codes are monotonically increasing per org with no gap-filling: take
	// the numeric maximum and increment. Unparseable codes are skipped.
	max := 0
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return fmt.Sprintf("%04d", max+1), nil
}
