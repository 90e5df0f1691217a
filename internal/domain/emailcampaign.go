package domain

import "time"

// EmailCampaignStatus enumerates the lifecycle states of an email campaign.
type EmailCampaignStatus string

const (
	EmailCampaignDraft     EmailCampaignStatus = "draft"
	EmailCampaignScheduled EmailCampaignStatus = "scheduled"
	EmailCampaignSending   EmailCampaignStatus = "sending"
	EmailCampaignSent      EmailCampaignStatus = "sent"
	EmailCampaignPaused    EmailCampaignStatus = "paused"
	EmailCampaignCancelled EmailCampaignStatus = "cancelled"
	EmailCampaignFailed    EmailCampaignStatus = "failed"
)

// EmailCampaignTransitions is the legal-transition table for email
// campaigns. Sent, cancelled, and failed are terminal.
var EmailCampaignTransitions = NewTransitions("email campaign", map[EmailCampaignStatus][]EmailCampaignStatus{
	EmailCampaignDraft:     {EmailCampaignScheduled, EmailCampaignSending, EmailCampaignCancelled, EmailCampaignFailed},
	EmailCampaignScheduled: {EmailCampaignDraft, EmailCampaignSending, EmailCampaignPaused, EmailCampaignCancelled, EmailCampaignFailed},
	EmailCampaignSending:   {EmailCampaignSent, EmailCampaignPaused, EmailCampaignCancelled, EmailCampaignFailed},
	EmailCampaignPaused:    {EmailCampaignSending, EmailCampaignCancelled, EmailCampaignFailed},
	EmailCampaignSent:      {},
	EmailCampaignCancelled: {},
	EmailCampaignFailed:    {},
})

// IsTerminal returns true if the campaign is in a final state.
func (s EmailCampaignStatus) IsTerminal() bool { return EmailCampaignTransitions.IsTerminal(s) }

// CanBeEdited reports whether content/settings may still change. A campaign
// is editable while it is a draft or can still return to draft.
func (s EmailCampaignStatus) CanBeEdited() bool {
	return s == EmailCampaignDraft || EmailCampaignTransitions.CanTransition(s, EmailCampaignDraft)
}

// CanBeSent reports whether the campaign may start sending.
func (s EmailCampaignStatus) CanBeSent() bool {
	return EmailCampaignTransitions.CanTransition(s, EmailCampaignSending)
}

// CanBePaused reports whether the campaign may be paused.
func (s EmailCampaignStatus) CanBePaused() bool {
	return EmailCampaignTransitions.CanTransition(s, EmailCampaignPaused)
}

// CanBeCancelled reports whether the campaign may be cancelled.
func (s EmailCampaignStatus) CanBeCancelled() bool {
	return EmailCampaignTransitions.CanTransition(s, EmailCampaignCancelled)
}

// CanBeDeleted reports whether the campaign row may be removed. Only drafts
// and cancelled campaigns qualify; everything else is history.
func (s EmailCampaignStatus) CanBeDeleted() bool {
	return s == EmailCampaignDraft || s == EmailCampaignCancelled
}

// EmailCampaign represents one outbound email campaign against a list.
// Metrics is owned exclusively by this campaign; no other entity shares the
// record.
type EmailCampaign struct {
	ID        string              `json:"id" db:"id"`
	ProjectID string              `json:"project_id" db:"project_id"`
	ListID    string              `json:"list_id" db:"list_id"`
	Name      string              `json:"name" db:"name"`
	Subject   string              `json:"subject" db:"subject"`
	Content   string              `json:"content" db:"content"`
	FromName  string              `json:"from_name" db:"from_name"`
	FromEmail string              `json:"from_email" db:"from_email"`
	ReplyTo   string              `json:"reply_to" db:"reply_to"`
	Status    EmailCampaignStatus `json:"status" db:"status"`
	Metrics   EmailMetrics        `json:"metrics"`

	ScheduledAt *time.Time `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ReadyForSending reports whether the campaign has everything it needs to
// go out: an editable-to-sending status plus subject, content, and a list.
func (c *EmailCampaign) ReadyForSending() bool {
	return c.Status.CanBeSent() &&
		c.Name != "" && c.Subject != "" && c.Content != "" && c.ListID != ""
}
