package store

import (
	"context"
	"fmt"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/scoring"
)

// ClientWinRates aggregates closed applications into per-client statistics
// for the client-history criterion. Open applications are excluded; an
// application counts as a win only when its outcome is won.
func (s *Store) ClientWinRates(ctx context.Context) (map[string]scoring.ClientStats, error) {
	type row struct {
		ClientName string
		Outcome    string
	}

	var rows []row
	err := s.db.WithContext(ctx).Model(&ApplicationLog{}).
		Select("opportunities.client_name AS client_name, application_logs.outcome AS outcome").
		Joins("JOIN opportunities ON opportunities.id = application_logs.opportunity_id").
		Where("application_logs.outcome IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate client win rates: %w", err)
	}

	stats := make(map[string]scoring.ClientStats)
	for _, r := range rows {
		key := scoring.NormalizeClient(r.ClientName)
		if key == "" {
			continue
		}
		s := stats[key]
		s.Applications++
		if r.Outcome == string(opportunity.StatusWon) {
			s.Wins++
		}
		stats[key] = s
	}

	return stats, nil
}
