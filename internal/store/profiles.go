package store

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm/clause"

	"github.com/teamwerk/akquise-pilot/internal/profile"
)

// SaveProfile upserts one candidate profile, embedding included. Conflicts
// on the primary key replace the stored row so hash and vector stay in sync.
func (s *Store) SaveProfile(ctx context.Context, c *profile.Candidate) error {
	rec := &CandidateProfile{
		ID:          c.ID,
		Name:        c.Name,
		Role:        c.Role,
		Seniority:   c.Seniority,
		Skills:      c.Skills,
		Industries:  c.Industries,
		Languages:   c.Languages,
		MinRate:     c.MinRate,
		CVPath:      c.CVPath,
		ProfileText: c.ProfileText,
		TextHash:    c.TextHash,
		Embedding:   pgvector.NewVector(c.Embedding),
		Active:      c.Active,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("save profile %d (%s): %w", c.ID, c.Name, err)
	}

	return nil
}

// LoadPool reads all candidate profiles into an in-memory pool.
func (s *Store) LoadPool(ctx context.Context) (*profile.Pool, error) {
	var recs []CandidateProfile
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load candidate profiles: %w", err)
	}

	candidates := make([]*profile.Candidate, 0, len(recs))
	for i := range recs {
		r := &recs[i]
		candidates = append(candidates, &profile.Candidate{
			ID:          r.ID,
			Name:        r.Name,
			Role:        r.Role,
			Seniority:   r.Seniority,
			Skills:      r.Skills,
			Industries:  r.Industries,
			Languages:   r.Languages,
			MinRate:     r.MinRate,
			CVPath:      r.CVPath,
			ProfileText: r.ProfileText,
			TextHash:    r.TextHash,
			Embedding:   r.Embedding.Slice(),
			Active:      r.Active,
		})
	}

	return &profile.Pool{Candidates: candidates}, nil
}

// ProfileHashes returns stored text hashes keyed by candidate id, used to
// skip re-embedding unchanged profiles during a sync.
func (s *Store) ProfileHashes(ctx context.Context) (map[int]string, error) {
	var recs []CandidateProfile
	if err := s.db.WithContext(ctx).Select("id", "text_hash").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load profile hashes: %w", err)
	}

	hashes := make(map[int]string, len(recs))
	for _, r := range recs {
		hashes[r.ID] = r.TextHash
	}

	return hashes, nil
}
