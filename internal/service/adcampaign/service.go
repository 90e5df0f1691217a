package adcampaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Service implements ad-campaign business logic. All public methods are
// safe for concurrent use if the underlying repository is; the service
// itself performs no per-entity locking, so concurrent writers to the same
// campaign id must be serialized by the caller.
type Service struct {
	repo      Repository
	cache     *cache.ResultCache
	platforms map[string]bool
}

// NewService creates an ad-campaign service backed by the given repository
// and result cache. platforms is the accepted platform vocabulary; an empty
// list accepts any platform.
func NewService(repo Repository, rc *cache.ResultCache, platforms []string) *Service {
	set := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		set[p] = true
	}
	return &Service{repo: repo, cache: rc, platforms: set}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, projectID, id string) (*domain.AdCampaign, error) {
	return oplog.Get(ctx, "adcampaign.Get", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) (*domain.AdCampaign, error) {
			return s.repo.Get(ctx, projectID, id)
		})
}

// List returns campaigns matching the filter. Unknown filter keys are
// ignored by the repository.
func (s *Service) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.AdCampaign, int, error) {
	var total int
	out, err := oplog.Get(ctx, "adcampaign.List", oplog.Fields("project_id", projectID),
		func(ctx context.Context) ([]domain.AdCampaign, error) {
			var err error
			var campaigns []domain.AdCampaign
			campaigns, total, err = s.repo.List(ctx, projectID, f)
			return campaigns, err
		})
	return out, total, err
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name      string  `json:"name"`
	Platform  string  `json:"platform"`
	AccountID string  `json:"account_id"`
	UserID    string  `json:"user_id"`
	Budget    float64 `json:"budget"`
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, projectID string, input CreateInput) (*domain.AdCampaign, error) {
	return oplog.Get(ctx, "adcampaign.Create", oplog.Fields("project_id", projectID, "name", input.Name),
		func(ctx context.Context) (*domain.AdCampaign, error) {
			if input.Name == "" {
				return nil, fmt.Errorf("name is required")
			}
			if input.Platform == "" {
				return nil, fmt.Errorf("platform is required")
			}
			if len(s.platforms) > 0 && !s.platforms[input.Platform] {
				return nil, fmt.Errorf("unsupported platform %q", input.Platform)
			}

			c := &domain.AdCampaign{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				UserID:    input.UserID,
				AccountID: input.AccountID,
				Name:      input.Name,
				Platform:  input.Platform,
				Budget:    input.Budget,
				Status:    domain.AdCampaignDraft,
			}
			id, err := s.repo.Create(ctx, c)
			if err != nil {
				return nil, err
			}
			c.ID = id
			return c, nil
		})
}

// Update modifies mutable campaign fields. Terminal campaigns reject edits.
func (s *Service) Update(ctx context.Context, projectID, id string, u UpdateFields) error {
	return oplog.Do(ctx, "adcampaign.Update", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) error {
			c, err := s.repo.Get(ctx, projectID, id)
			if err != nil {
				return err
			}
			if !c.Status.CanBeEdited() {
				return fmt.Errorf("campaign %s is %s: %w", id, c.Status, domain.ErrIllegalTransition)
			}
			return s.repo.Update(ctx, projectID, id, u)
		})
}

// Transition moves a campaign to a new status. The transition table is the
// single source of truth; an accepted transition is persisted and recorded
// in the status history exactly once.
func (s *Service) Transition(ctx context.Context, projectID, id string, to domain.AdCampaignStatus, reason, actorID string) (*domain.AdCampaign, error) {
	return oplog.Get(ctx, "adcampaign.Transition",
		oplog.Fields("project_id", projectID, "campaign_id", id, "to", string(to)),
		func(ctx context.Context) (*domain.AdCampaign, error) {
			c, err := s.repo.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			next, err := domain.AdCampaignTransitions.Transition(c.Status, to)
			if err != nil {
				return nil, err
			}

			if err := s.repo.UpdateStatus(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist status: %w", err)
			}
			if err := s.repo.AppendStatusHistory(ctx, &domain.StatusHistoryEntry{
				ID:         uuid.New().String(),
				EntityType: "ad_campaign",
				EntityID:   id,
				FromStatus: string(c.Status),
				ToStatus:   string(next),
				Reason:     reason,
				ActorID:    actorID,
				CreatedAt:  time.Now().UTC(),
			}); err != nil {
				return nil, fmt.Errorf("append status history: %w", err)
			}

			c.Status = next
			now := time.Now().UTC()
			switch next {
			case domain.AdCampaignActive:
				if c.StartedAt == nil {
					c.StartedAt = &now
				}
			case domain.AdCampaignCompleted:
				c.CompletedAt = &now
			}
			return c, nil
		})
}
