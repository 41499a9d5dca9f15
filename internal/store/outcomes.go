package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamwerk/akquise-pilot/internal/match"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/policy"
)

var (
	// ErrApplicationNotFound is returned when an outcome references an
	// opportunity without a submitted application.
	ErrApplicationNotFound = errors.New("no open application for opportunity")
	// ErrOutcomeAlreadyRecorded guards against double outcome entry.
	ErrOutcomeAlreadyRecorded = errors.New("application outcome already recorded")
	// ErrPipelineFull is returned when approving a review would exceed the
	// pipeline's admission cap.
	ErrPipelineFull = errors.New("pipeline is at capacity")
)

// RecordOutcome persists a single match result: the status transition, the
// score history row and, depending on the decision, an application log,
// review queue entry or rejection reason. One transaction per opportunity.
func (s *Store) RecordOutcome(ctx context.Context, opp *opportunity.Opportunity, result *match.Result) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.findOpportunity(ctx, tx, opp.Source, opp.ExternalID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":      decisionStatus(result.Decision),
			"analyzed_at": now,
		}
		if result.Decision == policy.DecisionApply && opp.Pipeline == opportunity.PipelineFreelance {
			updates["proposed_rate"] = result.ProposedRate
			updates["rate_reasoning"] = result.RateReasoning
		}
		if err := tx.Model(&Opportunity{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update opportunity %s: %w", opp.Key(), err)
		}

		history := &ScoreHistory{
			OpportunityID: rec.ID,
			CandidateID:   result.BestCandidateID,
			Score:         result.Score,
			Breakdown:     breakdownItems(result),
			Decision:      string(result.Decision),
			ReasonCode:    string(result.ReasonCode),
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("record score history for %s: %w", opp.Key(), err)
		}

		switch result.Decision {
		case policy.DecisionApply:
			return s.recordApplication(tx, rec.ID, opp, result)
		case policy.DecisionReview:
			entry := &ReviewQueueEntry{OpportunityID: rec.ID, Reason: result.ReasonText}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("queue %s for review: %w", opp.Key(), err)
			}
		case policy.DecisionReject:
			reason := &RejectionReason{
				OpportunityID:      rec.ID,
				ReasonCode:         string(result.ReasonCode),
				Explanation:        result.ReasonText,
				SuccessProbability: result.Probability,
			}
			if err := tx.Create(reason).Error; err != nil {
				return fmt.Errorf("record rejection for %s: %w", opp.Key(), err)
			}
		}

		return nil
	})
}

func (s *Store) recordApplication(tx *gorm.DB, oppID uuid.UUID, opp *opportunity.Opportunity, result *match.Result) error {
	log := &ApplicationLog{
		OpportunityID: oppID,
		CandidateID:   result.BestCandidateID,
		MatchScore:    result.Score,
		ProposedRate:  result.ProposedRate,
		PublicSector:  opp.PublicSector,
	}
	if err := tx.Create(log).Error; err != nil {
		return fmt.Errorf("record application for %s: %w", opp.Key(), err)
	}

	return nil
}

// RecordApplicationOutcome closes an application with won, lost or withdrawn,
// updates the opportunity status and frees the admission slot, atomically.
func (s *Store) RecordApplicationOutcome(ctx context.Context, source, externalID string, outcome opportunity.Status) error {
	switch outcome {
	case opportunity.StatusWon, opportunity.StatusLost, opportunity.StatusWithdrawn:
	default:
		return fmt.Errorf("invalid outcome %q: want won, lost or withdrawn", outcome)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.findOpportunity(ctx, tx, source, externalID)
		if err != nil {
			return err
		}

		var log ApplicationLog
		err = tx.Where("opportunity_id = ?", rec.ID).
			Order("applied_at DESC").First(&log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s/%s: %w", source, externalID, ErrApplicationNotFound)
		}
		if err != nil {
			return fmt.Errorf("load application for %s/%s: %w", source, externalID, err)
		}
		if log.Outcome != nil {
			return fmt.Errorf("%s/%s: %w", source, externalID, ErrOutcomeAlreadyRecorded)
		}

		now := time.Now().UTC()
		out := string(outcome)
		if err := tx.Model(&ApplicationLog{}).Where("id = ?", log.ID).
			Updates(map[string]any{"outcome": out, "outcome_at": now}).Error; err != nil {
			return fmt.Errorf("close application for %s/%s: %w", source, externalID, err)
		}
		if err := tx.Model(&Opportunity{}).Where("id = ?", rec.ID).
			Update("status", out).Error; err != nil {
			return fmt.Errorf("update opportunity %s/%s: %w", source, externalID, err)
		}

		return releaseSlot(tx, rec.Pipeline)
	})
}

// OpenReviews returns unresolved review queue entries, oldest first, with
// their opportunities preloaded.
func (s *Store) OpenReviews(ctx context.Context) ([]ReviewQueueEntry, error) {
	var entries []ReviewQueueEntry
	err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load review queue: %w", err)
	}

	return entries, nil
}

// ResolveReview applies a human verdict to a queued opportunity. Approving
// consumes an admission slot through the same locked counter the matcher
// uses; when the pipeline is full the entry stays open.
func (s *Store) ResolveReview(ctx context.Context, entryID uuid.UUID, approve bool, caps map[string]int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry ReviewQueueEntry
		err := tx.Preload("Opportunity").First(&entry, "id = ?", entryID).Error
		if err != nil {
			return fmt.Errorf("load review entry %s: %w", entryID, err)
		}
		if entry.ResolvedAt != nil {
			return fmt.Errorf("review entry %s already resolved", entryID)
		}

		status := string(opportunity.StatusRejected)
		resolution := "rejected"
		if !approve {
			// A human reject needs the same auditable trail as an automatic
			// one; the enumerated code plus the queue reason explain it.
			reason := &RejectionReason{
				OpportunityID: entry.OpportunityID,
				ReasonCode:    string(policy.ReasonLowSuccessProbability),
				Explanation:   "rejected in manual review: " + entry.Reason,
			}
			if err := tx.Create(reason).Error; err != nil {
				return fmt.Errorf("record rejection for review %s: %w", entryID, err)
			}
		}
		if approve {
			granted, active, err := tryAdmit(tx, entry.Opportunity.Pipeline, caps[entry.Opportunity.Pipeline])
			if err != nil {
				return err
			}
			if !granted {
				return fmt.Errorf("%s (%d active): %w", entry.Opportunity.Pipeline, active, ErrPipelineFull)
			}
			status = string(opportunity.StatusApplied)
			resolution = "approved"

			log := &ApplicationLog{
				OpportunityID: entry.OpportunityID,
				PublicSector:  entry.Opportunity.PublicSector,
			}
			if err := tx.Create(log).Error; err != nil {
				return fmt.Errorf("record application for review %s: %w", entryID, err)
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&ReviewQueueEntry{}).Where("id = ?", entry.ID).
			Updates(map[string]any{"resolved_at": now, "resolution": resolution}).Error; err != nil {
			return fmt.Errorf("resolve review entry %s: %w", entryID, err)
		}
		if err := tx.Model(&Opportunity{}).Where("id = ?", entry.OpportunityID).
			Update("status", status).Error; err != nil {
			return fmt.Errorf("update opportunity for review %s: %w", entryID, err)
		}

		return nil
	})
}

func decisionStatus(d policy.Decision) string {
	switch d {
	case policy.DecisionApply:
		return string(opportunity.StatusApplied)
	case policy.DecisionReview:
		return string(opportunity.StatusReview)
	default:
		return string(opportunity.StatusRejected)
	}
}

func breakdownItems(result *match.Result) []BreakdownItem {
	items := make([]BreakdownItem, 0, len(result.Breakdown))
	for _, award := range result.Breakdown {
		items = append(items, BreakdownItem{
			Name:      award.Name,
			Points:    award.Points,
			Max:       award.Max,
			Rationale: award.Rationale,
		})
	}

	return items
}
