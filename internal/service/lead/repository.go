package lead

import (
	"context"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Repository defines the data access contract for leads.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single lead. Returns domain.ErrNotFound if it doesn't
	// exist within the project.
	Get(ctx context.Context, projectID, id string) (*domain.Lead, error)

	// List returns leads matching the filter, newest first, plus the total
	// match count. Recognized keys: status, source, search, per_page,
	// date_from, date_to. Unknown keys are ignored.
	List(ctx context.Context, projectID string, f stats.Filters) ([]domain.Lead, int, error)

	// Create inserts a new lead and returns its ID.
	Create(ctx context.Context, l *domain.Lead) (string, error)

	// UpdateStatus persists a new status. No transition validation here;
	// the service owns the table.
	UpdateStatus(ctx context.Context, projectID, id string, status domain.LeadStatus) error

	// UpdateScore persists a new score value.
	UpdateScore(ctx context.Context, projectID, id string, score int) error

	// AppendStatusHistory records one accepted transition.
	AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error

	// AppendScoreChange records one accepted scoring application.
	AppendScoreChange(ctx context.Context, c *domain.ScoreChange) error
}
