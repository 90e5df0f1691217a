package domain

import "time"

// EmailListStatus enumerates the lifecycle states of a mailing list.
type EmailListStatus string

const (
	EmailListActive   EmailListStatus = "active"
	EmailListInactive EmailListStatus = "inactive"
	EmailListArchived EmailListStatus = "archived"
)

// EmailListTransitions is the legal-transition table for mailing lists.
// Archived is terminal: an archived list cannot be reactivated.
var EmailListTransitions = NewTransitions("email list", map[EmailListStatus][]EmailListStatus{
	EmailListActive:   {EmailListInactive, EmailListArchived},
	EmailListInactive: {EmailListActive, EmailListArchived},
	EmailListArchived: {},
})

// IsTerminal returns true if the list is archived.
func (s EmailListStatus) IsTerminal() bool { return EmailListTransitions.IsTerminal(s) }

// CanBeArchived reports whether the list may move to archived.
func (s EmailListStatus) CanBeArchived() bool {
	return EmailListTransitions.CanTransition(s, EmailListArchived)
}

// CanReceiveCampaigns reports whether campaigns may target this list.
func (s EmailListStatus) CanReceiveCampaigns() bool { return s == EmailListActive }

// EmailList represents a mailing list of subscribers. Metrics aggregates
// the funnel counters across every campaign sent to the list and is owned
// exclusively by it.
type EmailList struct {
	ID              string          `json:"id" db:"id"`
	ProjectID       string          `json:"project_id" db:"project_id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	Status          EmailListStatus `json:"status" db:"status"`
	SubscriberCount int             `json:"subscriber_count" db:"subscriber_count"`
	Metrics         EmailMetrics    `json:"metrics"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
