package lead

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/logger"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Service implements lead business logic. Concurrent writes to the same
// lead id must be serialized by the caller; the service performs no
// per-entity locking.
type Service struct {
	repo  Repository
	cache *cache.ResultCache
}

// NewService creates a lead service backed by the given repository and
// result cache (used by the analytics queries).
func NewService(repo Repository, rc *cache.ResultCache) *Service {
	return &Service{repo: repo, cache: rc}
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, projectID, id string) (*domain.Lead, error) {
	return oplog.Get(ctx, "lead.Get", oplog.Fields("project_id", projectID, "lead_id", id),
		func(ctx context.Context) (*domain.Lead, error) {
			return s.repo.Get(ctx, projectID, id)
		})
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.Lead, int, error) {
	var total int
	out, err := oplog.Get(ctx, "lead.List", oplog.Fields("project_id", projectID),
		func(ctx context.Context) ([]domain.Lead, error) {
			var err error
			var leads []domain.Lead
			leads, total, err = s.repo.List(ctx, projectID, f)
			return leads, err
		})
	return out, total, err
}

// CreateInput holds the fields for lead intake.
type CreateInput struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Company string   `json:"company"`
	Source  string   `json:"source"`
	Tags    []string `json:"tags"`
}

// Create captures a new lead in status new with a zero score.
func (s *Service) Create(ctx context.Context, projectID string, input CreateInput) (*domain.Lead, error) {
	return oplog.Get(ctx, "lead.Create", oplog.Fields("project_id", projectID, "source", input.Source),
		func(ctx context.Context) (*domain.Lead, error) {
			if input.Email == "" && input.Phone == "" {
				return nil, fmt.Errorf("email or phone is required")
			}

			l := &domain.Lead{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Name:      input.Name,
				Email:     input.Email,
				Phone:     input.Phone,
				Company:   input.Company,
				Source:    input.Source,
				Status:    domain.LeadNew,
				Tags:      input.Tags,
			}
			id, err := s.repo.Create(ctx, l)
			if err != nil {
				return nil, err
			}
			l.ID = id
			return l, nil
		})
}

// ApplyScoreDelta is the scoring engine: it applies a bounded delta to the
// lead's score with an audit reason. The delta may be negative. The raw
// sum is clamped into [LeadScoreMin, LeadScoreMax]; clamping is reported
// through the audit record and a warning log, never silently absorbed.
// The score is independent of the status machine.
func (s *Service) ApplyScoreDelta(ctx context.Context, projectID, id string, delta int, reason, actorID string) (*domain.Lead, error) {
	return oplog.Get(ctx, "lead.ApplyScoreDelta",
		oplog.Fields("project_id", projectID, "lead_id", id, "delta", delta, "reason", reason),
		func(ctx context.Context) (*domain.Lead, error) {
			if reason == "" {
				return nil, fmt.Errorf("scoring reason is required")
			}

			l, err := s.repo.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			raw := l.Score + delta
			next := raw
			if next < domain.LeadScoreMin {
				next = domain.LeadScoreMin
			}
			if next > domain.LeadScoreMax {
				next = domain.LeadScoreMax
			}
			clamped := next != raw
			if clamped {
				logger.Warn("lead score clamped",
					"lead_id", id, "raw", raw, "clamped_to", next)
			}

			if err := s.repo.UpdateScore(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist score: %w", err)
			}
			if err := s.repo.AppendScoreChange(ctx, &domain.ScoreChange{
				ID:        uuid.New().String(),
				LeadID:    id,
				Delta:     delta,
				OldScore:  l.Score,
				NewScore:  next,
				Clamped:   clamped,
				Reason:    reason,
				ActorID:   actorID,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return nil, fmt.Errorf("append score change: %w", err)
			}

			l.Score = next
			s.invalidateAnalytics(ctx, projectID)
			return l, nil
		})
}

// Transition moves a lead to a new status per the lead transition table
// and records the change in the status history.
func (s *Service) Transition(ctx context.Context, projectID, id string, to domain.LeadStatus, reason, actorID string) (*domain.Lead, error) {
	return oplog.Get(ctx, "lead.Transition",
		oplog.Fields("project_id", projectID, "lead_id", id, "to", string(to)),
		func(ctx context.Context) (*domain.Lead, error) {
			l, err := s.repo.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			next, err := domain.LeadTransitions.Transition(l.Status, to)
			if err != nil {
				return nil, err
			}

			if err := s.repo.UpdateStatus(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist status: %w", err)
			}
			if err := s.repo.AppendStatusHistory(ctx, &domain.StatusHistoryEntry{
				ID:         uuid.New().String(),
				EntityType: "lead",
				EntityID:   id,
				FromStatus: string(l.Status),
				ToStatus:   string(next),
				Reason:     reason,
				ActorID:    actorID,
				CreatedAt:  time.Now().UTC(),
			}); err != nil {
				return nil, fmt.Errorf("append status history: %w", err)
			}

			l.Status = next
			if next == domain.LeadConverted {
				now := time.Now().UTC()
				l.ConvertedAt = &now
			}
			s.invalidateAnalytics(ctx, projectID)
			return l, nil
		})
}

// invalidateAnalytics drops the cached unfiltered analytics for a project.
// Mutations call it so dashboards converge faster than the TTL.
func (s *Service) invalidateAnalytics(ctx context.Context, projectID string) {
	for _, prefix := range []string{"lead_metrics", "lead_analytics"} {
		key := cache.Fingerprint(prefix, stats.Filters{stats.FilterProjectID: projectID})
		if err := s.cache.Invalidate(ctx, key); err != nil {
			logger.Warn("lead analytics invalidation failed", "key", key, "error", err.Error())
		}
	}
}
