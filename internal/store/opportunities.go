package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

// ErrOpportunityNotFound is returned when an identity lookup misses.
var ErrOpportunityNotFound = errors.New("opportunity not found")

// SaveOpportunities inserts sourced records, silently skipping any whose
// (source, external_id) already exists. Returns the number actually inserted.
func (s *Store) SaveOpportunities(ctx context.Context, opps []*opportunity.Opportunity) (int, error) {
	inserted := 0
	for _, opp := range opps {
		rec := fromDomain(opp)
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
			DoNothing: true,
		}).Create(rec)
		if res.Error != nil {
			return inserted, fmt.Errorf("save opportunity %s: %w", opp.Key(), res.Error)
		}
		if res.RowsAffected == 0 {
			s.logger.Debug("duplicate opportunity skipped", zap.String("opportunity", opp.Key()))
			continue
		}
		inserted++
	}

	return inserted, nil
}

// PendingOpportunities returns opportunities awaiting a decision, oldest
// first. Opportunities in error state are retried alongside new ones.
func (s *Store) PendingOpportunities(ctx context.Context, limit int) ([]*opportunity.Opportunity, error) {
	var recs []Opportunity
	q := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(opportunity.StatusNew), string(opportunity.StatusError)}).
		Order("scraped_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load pending opportunities: %w", err)
	}

	opps := make([]*opportunity.Opportunity, 0, len(recs))
	for i := range recs {
		opps = append(opps, toDomain(&recs[i]))
	}

	return opps, nil
}

func (s *Store) findOpportunity(ctx context.Context, db *gorm.DB, source, externalID string) (*Opportunity, error) {
	if db == nil {
		db = s.db
	}
	var rec Opportunity
	err := db.WithContext(ctx).
		Where("source = ? AND external_id = ?", source, externalID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", source, externalID, ErrOpportunityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load opportunity %s/%s: %w", source, externalID, err)
	}

	return &rec, nil
}

// MarkError flags an opportunity whose pipeline run failed so the next batch
// picks it up again.
func (s *Store) MarkError(ctx context.Context, opp *opportunity.Opportunity) error {
	err := s.db.WithContext(ctx).Model(&Opportunity{}).
		Where("source = ? AND external_id = ?", opp.Source, opp.ExternalID).
		Update("status", string(opportunity.StatusError)).Error
	if err != nil {
		return fmt.Errorf("mark opportunity %s as errored: %w", opp.Key(), err)
	}

	return nil
}
