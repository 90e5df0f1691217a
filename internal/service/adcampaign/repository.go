package adcampaign

import (
	"context"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Repository defines the data access contract for ad campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns domain.ErrNotFound if it
	// doesn't exist within the project.
	Get(ctx context.Context, projectID, id string) (*domain.AdCampaign, error)

	// List returns campaigns matching the filter, ordered by created_at
	// DESC, plus the total match count. Recognized filter keys: status,
	// platform, account_id, user_id, search, per_page, date_from, date_to.
	// Unknown keys are ignored. A nil slice means no matches.
	List(ctx context.Context, projectID string, f stats.Filters) ([]domain.AdCampaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.AdCampaign) (string, error)

	// Update modifies a campaign. Only non-nil fields are applied.
	Update(ctx context.Context, projectID, id string, u UpdateFields) error

	// UpdateStatus persists a new status (plus started/completed stamps).
	// It does not validate the transition; the service does.
	UpdateStatus(ctx context.Context, projectID, id string, status domain.AdCampaignStatus) error

	// AppendStatusHistory records one accepted transition.
	AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name        *string
	Platform    *string
	Budget      *float64
	Spent       *float64
	Impressions *int64
	Clicks      *int64
	Conversions *int64
}
