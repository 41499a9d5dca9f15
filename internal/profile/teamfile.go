package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TeamFileEntry is one candidate definition inside the team YAML file. The
// file is the source of truth for the pool; the store mirrors it plus the
// computed embeddings.
type TeamFileEntry struct {
	ID         int      `yaml:"id"`
	Name       string   `yaml:"name"`
	Role       string   `yaml:"role"`
	Seniority  string   `yaml:"seniority"`
	Skills     []string `yaml:"skills"`
	Industries []string `yaml:"industries"`
	Languages  []string `yaml:"languages"`
	MinRate    float64  `yaml:"min-rate"`
	CVPath     string   `yaml:"cv-path"`
	Profile    string   `yaml:"profile"`
	Active     *bool    `yaml:"active"`
}

type teamFile struct {
	Team []TeamFileEntry `yaml:"team"`
}

// LoadTeamFile reads the team YAML file and converts entries into candidates.
// Embeddings are not computed here; the profiles sync command does that for
// entries whose text changed.
func LoadTeamFile(path string) ([]*Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading team file %q: %w", path, err)
	}

	var file teamFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing team file %q: %w", path, err)
	}

	if len(file.Team) == 0 {
		return nil, fmt.Errorf("team file %q contains no candidates", path)
	}

	seen := make(map[int]bool, len(file.Team))
	candidates := make([]*Candidate, 0, len(file.Team))
	for _, entry := range file.Team {
		if entry.ID <= 0 {
			return nil, fmt.Errorf("candidate %q: id must be a positive integer", entry.Name)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("duplicate candidate id %d in team file", entry.ID)
		}
		seen[entry.ID] = true

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}

		candidates = append(candidates, &Candidate{
			ID:          entry.ID,
			Name:        entry.Name,
			Role:        entry.Role,
			Seniority:   entry.Seniority,
			Skills:      entry.Skills,
			Industries:  entry.Industries,
			Languages:   entry.Languages,
			MinRate:     entry.MinRate,
			CVPath:      entry.CVPath,
			ProfileText: entry.Profile,
			TextHash:    HashText(entry.Profile),
			Active:      active,
		})
	}

	return candidates, nil
}
