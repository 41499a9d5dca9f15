package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

// Opportunity is the persisted form of a sourced listing. The unique index
// on (source, external_id) is the duplicate guard: a second record with the
// same identity never reaches scoring.
type Opportunity struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Source        string    `gorm:"size:50;not null;uniqueIndex:uq_opportunity_identity"`
	ExternalID    string    `gorm:"size:255;not null;uniqueIndex:uq_opportunity_identity"`
	URL           string    `gorm:"type:text"`
	Title         string    `gorm:"size:500;not null"`
	ClientName    string    `gorm:"size:255"`
	Description   string    `gorm:"type:text"`
	Skills        []string  `gorm:"serializer:json"`
	BudgetMin     float64
	BudgetMax     float64
	Location      string `gorm:"size:255"`
	Remote        bool
	PublicSector  bool
	Pipeline      string                `gorm:"size:20;not null"`
	Status        string                `gorm:"size:50;not null;default:'new'"`
	Research      *opportunity.Research `gorm:"serializer:json"`
	ProposedRate  *float64
	RateReasoning *string   `gorm:"type:text"`
	ScrapedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	AnalyzedAt    *time.Time
}

func (Opportunity) TableName() string { return "opportunities" }

// CandidateProfile mirrors the team file plus the computed embedding. The
// embedding column uses pgvector so similarity queries stay possible in SQL,
// even though the matcher scans its in-memory snapshot.
type CandidateProfile struct {
	ID          int      `gorm:"primaryKey"`
	Name        string   `gorm:"size:255;not null"`
	Role        string   `gorm:"size:100"`
	Seniority   string   `gorm:"size:50"`
	Skills      []string `gorm:"serializer:json"`
	Industries  []string `gorm:"serializer:json"`
	Languages   []string `gorm:"serializer:json"`
	MinRate     float64
	CVPath      string          `gorm:"size:500"`
	ProfileText string          `gorm:"type:text"`
	TextHash    string          `gorm:"size:64"`
	Embedding   pgvector.Vector `gorm:"type:vector(3072)"`
	Active      bool            `gorm:"default:true"`
	UpdatedAt   time.Time
}

func (CandidateProfile) TableName() string { return "candidate_profiles" }

// ApplicationLog records one submitted application and, later, its outcome.
// A row with a nil Outcome occupies an admission slot.
type ApplicationLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OpportunityID uuid.UUID `gorm:"type:uuid;not null;index"`
	CandidateID   int       `gorm:"not null"`
	MatchScore    int
	ProposedRate  float64
	PublicSector  bool
	AppliedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	Outcome       *string   `gorm:"size:50"`
	OutcomeAt     *time.Time

	Opportunity Opportunity `gorm:"foreignKey:OpportunityID"`
}

func (ApplicationLog) TableName() string { return "application_logs" }

// RejectionReason is the auditable ground for a rejection. Rows are
// append-only; a recorded reason is never overwritten.
type RejectionReason struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OpportunityID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ReasonCode         string    `gorm:"size:50;not null"`
	Explanation        string    `gorm:"type:text"`
	SuccessProbability float64
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (RejectionReason) TableName() string { return "rejection_reasons" }

// ReviewQueueEntry parks an opportunity for a human decision.
type ReviewQueueEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OpportunityID uuid.UUID `gorm:"type:uuid;not null;index"`
	Reason        string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	ResolvedAt    *time.Time
	Resolution    *string `gorm:"size:50"`

	Opportunity Opportunity `gorm:"foreignKey:OpportunityID"`
}

func (ReviewQueueEntry) TableName() string { return "review_queue" }

// ScoreHistory keeps every scoring run for audit and for the offline
// aggregation that recomputes prior statistics.
type ScoreHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OpportunityID uuid.UUID `gorm:"type:uuid;not null;index"`
	CandidateID   int
	Score         int
	Breakdown     []BreakdownItem `gorm:"serializer:json"`
	Decision      string          `gorm:"size:20"`
	ReasonCode    string          `gorm:"size:50"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP"`
}

func (ScoreHistory) TableName() string { return "score_history" }

// BreakdownItem is the serialized form of one criterion award.
type BreakdownItem struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Max       int    `json:"max"`
	Rationale string `json:"rationale"`
}

// AdmissionSlot is the per-pipeline active counter. All mutations go through
// a SELECT ... FOR UPDATE inside one transaction.
type AdmissionSlot struct {
	Pipeline    string `gorm:"size:20;primaryKey"`
	ActiveCount int    `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

func (AdmissionSlot) TableName() string { return "admission_slots" }
