package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/types"
	"github.com/fitlink/fitlink-backend/internal/utils"
)

type DatabaseService struct {
	db       *gorm.DB
	log      *logger.Logger
	postgres bool
}

// NewDatabaseService connects to Postgres, or to a local sqlite file when
// DB_DRIVER=sqlite (dev convenience only; production invariants depend on
// Postgres constraints).
func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
	serviceLog := log.With("service", "DatabaseService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	if driver == "sqlite" {
		path := utils.GetEnv("SQLITE_PATH", "fitlink.db", log)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		serviceLog.Warn("Running on sqlite, store-level uniqueness races are not covered")
		return &DatabaseService{db: gdb, log: serviceLog}, nil
	}

	host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	port := utils.GetEnv("POSTGRES_PORT", "5432", log)
	user := utils.GetEnv("POSTGRES_USER", "postgres", log)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	name := utils.GetEnv("POSTGRES_NAME", "fitlink", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &DatabaseService{db: gdb, log: serviceLog, postgres: true}, nil
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Organization{},
		&types.Student{},
		&types.AnchorEvent{},
		&types.MessageTemplate{},
		&types.RelationshipTask{},
		&types.RelationshipLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}

	if !s.postgres {
		return nil
	}

	// Partial unique index backing the generator's dedupe guarantee: at most
	// one pending task per student/template pair. AutoMigrate cannot express
	// the WHERE clause.
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_task_pending_once
		ON "relationship_task" ("student_id", "template_code")
		WHERE "status" = 'pending'
	`).Error; err != nil {
		return fmt.Errorf("failed to create idx_task_pending_once: %w", err)
	}

	return nil
}

func (s *DatabaseService) DB() *gorm.DB {
	return s.db
}
