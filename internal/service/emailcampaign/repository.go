package emailcampaign

import (
	"context"
	"time"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// CampaignRepository defines the data access contract for email campaigns.
// Implementations must be safe for concurrent use.
type CampaignRepository interface {
	// Get returns a single campaign. Returns domain.ErrNotFound if it
	// doesn't exist within the project.
	Get(ctx context.Context, projectID, id string) (*domain.EmailCampaign, error)

	// List returns campaigns matching the filter, newest first, plus the
	// total match count. Recognized keys: status, search, per_page,
	// date_from, date_to. Unknown keys are ignored.
	List(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailCampaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.EmailCampaign) (string, error)

	// Update persists content/settings changes.
	Update(ctx context.Context, projectID, id string, u UpdateFields) error

	// UpdateStatus persists a new status. No transition validation here;
	// the service owns the table.
	UpdateStatus(ctx context.Context, projectID, id string, status domain.EmailCampaignStatus) error

	// UpdateSchedule persists the scheduled send time (nil clears it).
	UpdateSchedule(ctx context.Context, projectID, id string, at *time.Time) error

	// UpdateMetrics persists a full metrics record; records are validated
	// by the service before they get here.
	UpdateMetrics(ctx context.Context, projectID, id string, m domain.EmailMetrics) error

	// SetSentAt stamps the completion time of a send.
	SetSentAt(ctx context.Context, projectID, id string, at time.Time) error

	// Delete removes a campaign row.
	Delete(ctx context.Context, projectID, id string) error

	// AppendStatusHistory records one accepted transition.
	AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error
}

// ListRepository defines the data access contract for mailing lists and
// their subscribers.
type ListRepository interface {
	// Get returns a single list. Returns domain.ErrNotFound if it doesn't
	// exist within the project.
	Get(ctx context.Context, projectID, id string) (*domain.EmailList, error)

	// List returns lists matching the filter plus the total match count.
	List(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailList, int, error)

	// Create inserts a new list and returns its ID.
	Create(ctx context.Context, l *domain.EmailList) (string, error)

	// UpdateStatus persists a new list status.
	UpdateStatus(ctx context.Context, projectID, id string, status domain.EmailListStatus) error

	// UpdateMetrics persists the list-level aggregate metrics record.
	UpdateMetrics(ctx context.Context, projectID, id string, m domain.EmailMetrics) error

	// Subscribers returns all subscribers of a list.
	Subscribers(ctx context.Context, projectID, listID string) ([]domain.Subscriber, error)

	// AppendStatusHistory records one accepted transition.
	AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error
}
