package store

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

// Store wraps the database handle and owns all persistence for the pipeline.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to postgres, runs migrations and seeds the admission slot
// rows. The vector extension must exist before the profile table migrates.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(
		&Opportunity{},
		&CandidateProfile{},
		&ApplicationLog{},
		&RejectionReason{},
		&ReviewQueueEntry{},
		&ScoreHistory{},
		&AdmissionSlot{},
	); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSlots(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) ensureSlots() error {
	for _, p := range []opportunity.Pipeline{opportunity.PipelineFreelance, opportunity.PipelineTender} {
		slot := AdmissionSlot{Pipeline: string(p)}
		if err := s.db.FirstOrCreate(&slot, AdmissionSlot{Pipeline: string(p)}).Error; err != nil {
			return fmt.Errorf("seed admission slot %q: %w", p, err)
		}
	}

	return nil
}

// DB exposes the raw handle for migrations and tests.
func (s *Store) DB() *gorm.DB { return s.db }

func toDomain(rec *Opportunity) *opportunity.Opportunity {
	return &opportunity.Opportunity{
		Source:       rec.Source,
		ExternalID:   rec.ExternalID,
		URL:          rec.URL,
		Title:        rec.Title,
		ClientName:   rec.ClientName,
		Description:  rec.Description,
		Skills:       rec.Skills,
		BudgetMin:    rec.BudgetMin,
		BudgetMax:    rec.BudgetMax,
		Location:     rec.Location,
		Remote:       rec.Remote,
		PublicSector: rec.PublicSector,
		Pipeline:     opportunity.Pipeline(rec.Pipeline),
		Status:       opportunity.Status(rec.Status),
		Research:     rec.Research,
	}
}

func fromDomain(opp *opportunity.Opportunity) *Opportunity {
	return &Opportunity{
		Source:       opp.Source,
		ExternalID:   opp.ExternalID,
		URL:          opp.URL,
		Title:        opp.Title,
		ClientName:   opp.ClientName,
		Description:  opp.Description,
		Skills:       opp.Skills,
		BudgetMin:    opp.BudgetMin,
		BudgetMax:    opp.BudgetMax,
		Location:     opp.Location,
		Remote:       opp.Remote,
		PublicSector: opp.PublicSector,
		Pipeline:     string(opp.Pipeline),
		Status:       string(opp.Status),
		Research:     opp.Research,
	}
}
