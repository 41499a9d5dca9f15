package opportunity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileEntry is one sourced listing inside an import YAML file. Sourcing
// scripts hand their results over in this format.
type FileEntry struct {
	Source       string    `yaml:"source"`
	ExternalID   string    `yaml:"external-id"`
	URL          string    `yaml:"url"`
	Title        string    `yaml:"title"`
	ClientName   string    `yaml:"client"`
	Description  string    `yaml:"description"`
	Skills       []string  `yaml:"skills"`
	BudgetMin    float64   `yaml:"budget-min"`
	BudgetMax    float64   `yaml:"budget-max"`
	Location     string    `yaml:"location"`
	Remote       bool      `yaml:"remote"`
	PublicSector bool      `yaml:"public-sector"`
	Pipeline     string    `yaml:"pipeline"`
	Research     *Research `yaml:"research"`
}

type importFile struct {
	Opportunities []FileEntry `yaml:"opportunities"`
}

// LoadFile reads an import YAML file and validates every entry. A single
// invalid entry fails the whole import; partially ingesting a sourcing batch
// would hide the broken records.
func LoadFile(path string) ([]*Opportunity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file %q: %w", path, err)
	}

	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing import file %q: %w", path, err)
	}

	if len(file.Opportunities) == 0 {
		return nil, fmt.Errorf("import file %q contains no opportunities", path)
	}

	opps := make([]*Opportunity, 0, len(file.Opportunities))
	for i, entry := range file.Opportunities {
		opp := &Opportunity{
			Source:       entry.Source,
			ExternalID:   entry.ExternalID,
			URL:          entry.URL,
			Title:        entry.Title,
			ClientName:   entry.ClientName,
			Description:  entry.Description,
			Skills:       entry.Skills,
			BudgetMin:    entry.BudgetMin,
			BudgetMax:    entry.BudgetMax,
			Location:     entry.Location,
			Remote:       entry.Remote,
			PublicSector: entry.PublicSector,
			Pipeline:     Pipeline(entry.Pipeline),
			Status:       StatusNew,
			Research:     entry.Research,
		}
		if err := opp.Validate(); err != nil {
			return nil, fmt.Errorf("import file %q entry %d: %w", path, i+1, err)
		}
		opps = append(opps, opp)
	}

	return opps, nil
}
