package domain

import "time"

// LeadStatus enumerates the lifecycle states of a lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// LeadTransitions is the legal-transition table for lead statuses.
// Converted and lost are terminal: leads are never hard-deleted, only
// parked in a terminal state.
var LeadTransitions = NewTransitions("lead", map[LeadStatus][]LeadStatus{
	LeadNew:       {LeadContacted, LeadQualified, LeadLost},
	LeadContacted: {LeadQualified, LeadLost},
	LeadQualified: {LeadConverted, LeadLost},
	LeadConverted: {},
	LeadLost:      {},
})

// IsTerminal returns true if no further transitions are possible.
func (s LeadStatus) IsTerminal() bool { return LeadTransitions.IsTerminal(s) }

// CanBeQualified reports whether the lead may still move to qualified.
func (s LeadStatus) CanBeQualified() bool { return LeadTransitions.CanTransition(s, LeadQualified) }

// CanBeConverted reports whether the lead may move to converted.
func (s LeadStatus) CanBeConverted() bool { return LeadTransitions.CanTransition(s, LeadConverted) }

// Score bounds for leads. The raw delta sum is clamped into this range;
// callers are told when clamping happened (see ScoreChange.Clamped).
const (
	LeadScoreMin = 0
	LeadScoreMax = 100
)

// Lead represents a sales lead captured from a marketing source.
type Lead struct {
	ID         string     `json:"id" db:"id"`
	ProjectID  string     `json:"project_id" db:"project_id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Phone      string     `json:"phone" db:"phone"`
	Company    string     `json:"company" db:"company"`
	Source     string     `json:"source" db:"source"`
	Status     LeadStatus `json:"status" db:"status"`
	Score      int        `json:"score" db:"score"`
	SegmentIDs []string   `json:"segment_ids" db:"segment_ids"`
	Tags       []string   `json:"tags" db:"tags"`

	ConvertedAt *time.Time `json:"converted_at" db:"converted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ScoreChange is the audit record of one scoring-engine application.
// Append-only; created exactly once per accepted delta.
type ScoreChange struct {
	ID        string    `json:"id" db:"id"`
	LeadID    string    `json:"lead_id" db:"lead_id"`
	Delta     int       `json:"delta" db:"delta"`
	OldScore  int       `json:"old_score" db:"old_score"`
	NewScore  int       `json:"new_score" db:"new_score"`
	Clamped   bool      `json:"clamped" db:"clamped"`
	Reason    string    `json:"reason" db:"reason"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
