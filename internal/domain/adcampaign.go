package domain

import "time"

// AdCampaignStatus enumerates the lifecycle states of an ad campaign.
type AdCampaignStatus string

const (
	AdCampaignDraft     AdCampaignStatus = "draft"
	AdCampaignActive    AdCampaignStatus = "active"
	AdCampaignPaused    AdCampaignStatus = "paused"
	AdCampaignCompleted AdCampaignStatus = "completed"
	AdCampaignCancelled AdCampaignStatus = "cancelled"
)

// AdCampaignTransitions is the legal-transition table for ad campaigns.
var AdCampaignTransitions = NewTransitions("ad campaign", map[AdCampaignStatus][]AdCampaignStatus{
	AdCampaignDraft:     {AdCampaignActive, AdCampaignCancelled},
	AdCampaignActive:    {AdCampaignPaused, AdCampaignCompleted, AdCampaignCancelled},
	AdCampaignPaused:    {AdCampaignActive, AdCampaignCompleted, AdCampaignCancelled},
	AdCampaignCompleted: {},
	AdCampaignCancelled: {},
})

// IsTerminal returns true if the campaign is in a final state.
func (s AdCampaignStatus) IsTerminal() bool { return AdCampaignTransitions.IsTerminal(s) }

// CanBeActivated reports whether the campaign may move to active.
func (s AdCampaignStatus) CanBeActivated() bool {
	return AdCampaignTransitions.CanTransition(s, AdCampaignActive)
}

// CanBePaused reports whether the campaign may move to paused.
func (s AdCampaignStatus) CanBePaused() bool {
	return AdCampaignTransitions.CanTransition(s, AdCampaignPaused)
}

// CanBeCancelled reports whether the campaign may move to cancelled.
func (s AdCampaignStatus) CanBeCancelled() bool {
	return AdCampaignTransitions.CanTransition(s, AdCampaignCancelled)
}

// CanBeEdited reports whether campaign settings may still change.
// Only non-terminal campaigns are editable.
func (s AdCampaignStatus) CanBeEdited() bool {
	return AdCampaignTransitions.Known(s) && !AdCampaignTransitions.IsTerminal(s)
}

// AdCampaign represents a paid advertising campaign on one platform.
//
// Spent is not validated against Budget: overspend is a real condition
// reported through budget utilization, not rejected at write time.
type AdCampaign struct {
	ID        string           `json:"id" db:"id"`
	ProjectID string           `json:"project_id" db:"project_id"`
	UserID    string           `json:"user_id" db:"user_id"`
	AccountID string           `json:"account_id" db:"account_id"`
	Name      string           `json:"name" db:"name"`
	Platform  string           `json:"platform" db:"platform"`
	Status    AdCampaignStatus `json:"status" db:"status"`

	Budget      float64 `json:"budget" db:"budget"`
	Spent       float64 `json:"spent" db:"spent"`
	Impressions int64   `json:"impressions" db:"impressions"`
	Clicks      int64   `json:"clicks" db:"clicks"`
	Conversions int64   `json:"conversions" db:"conversions"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CTR returns the click-through rate as a percentage, 0 when there are no
// impressions.
func (c *AdCampaign) CTR() float64 {
	if c.Impressions == 0 {
		return 0
	}
	return float64(c.Clicks) / float64(c.Impressions) * 100
}

// CPC returns the cost per click, 0 when there are no clicks.
func (c *AdCampaign) CPC() float64 {
	if c.Clicks == 0 {
		return 0
	}
	return c.Spent / float64(c.Clicks)
}
