package opportunity

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline selects the evaluation profile and the admission slot pool.
type Pipeline string

const (
	PipelineFreelance Pipeline = "freelance"
	PipelineTender    Pipeline = "tender"
)

// Status is owned exclusively by the decision/admission stage. Sourcing
// creates opportunities with StatusNew and never touches the field again.
type Status string

const (
	StatusNew       Status = "new"
	StatusAnalyzed  Status = "analyzed"
	StatusMatched   Status = "matched"
	StatusApplied   Status = "applied"
	StatusReview    Status = "review"
	StatusRejected  Status = "rejected"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusWithdrawn Status = "withdrawn"
	StatusError     Status = "error"
)

var (
	ErrMissingSource     = errors.New("opportunity source is required")
	ErrMissingExternalID = errors.New("opportunity external id is required")
	ErrMissingTitle      = errors.New("opportunity title is required")
)

// Opportunity is a normalized listing produced by sourcing. Identity is
// (Source, ExternalID); no two opportunities share the pair.
type Opportunity struct {
	Source       string
	ExternalID   string
	URL          string
	Title        string
	ClientName   string
	Description  string
	Skills       []string
	BudgetMin    float64
	BudgetMax    float64
	Location     string
	Remote       bool
	PublicSector bool
	Pipeline     Pipeline
	Status       Status

	// Research holds upstream research notes. Nil when research is
	// unavailable; criteria relying on it award zero points.
	Research *Research
}

// Key returns the canonical identity string used for deduplication and logs.
func (o *Opportunity) Key() string {
	return fmt.Sprintf("%s/%s", o.Source, o.ExternalID)
}

// Validate checks the mandatory fields from sourcing. A failing record is a
// caller error and must not be scored.
func (o *Opportunity) Validate() error {
	if strings.TrimSpace(o.Source) == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(o.ExternalID) == "" {
		return ErrMissingExternalID
	}
	if strings.TrimSpace(o.Title) == "" {
		return ErrMissingTitle
	}
	if o.Pipeline != PipelineFreelance && o.Pipeline != PipelineTender {
		return fmt.Errorf("unknown pipeline %q for %s", o.Pipeline, o.Key())
	}
	return nil
}

// Terminal reports whether the opportunity already carries a decision.
// Re-running the matcher on a terminal opportunity is a caller error.
func (s Status) Terminal() bool {
	switch s {
	case StatusNew, StatusError:
		return false
	default:
		return true
	}
}

// Active reports whether the opportunity occupies an admission slot.
func (s Status) Active() bool {
	switch s {
	case StatusAnalyzed, StatusMatched, StatusApplied:
		return true
	default:
		return false
	}
}

// Text returns the text used for embedding queries. Falls back to the title
// when the description is empty.
func (o *Opportunity) Text() string {
	desc := strings.TrimSpace(o.Description)
	if desc == "" {
		return o.Title
	}
	return o.Title + "\n" + desc
}
