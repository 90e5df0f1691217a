package adcampaign

import (
	"context"
	"sort"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Statistics is the aggregate over a filtered campaign collection. It is a
// transient, derived value: computed on cache miss, discarded on TTL
// expiry, never persisted.
type Statistics struct {
	TotalCampaigns     int `json:"total_campaigns"`
	ActiveCampaigns    int `json:"active_campaigns"`
	PausedCampaigns    int `json:"paused_campaigns"`
	CompletedCampaigns int `json:"completed_campaigns"`

	CampaignsByStatus   map[string]int `json:"campaigns_by_status"`
	CampaignsByPlatform map[string]int `json:"campaigns_by_platform"`

	TotalBudget      float64 `json:"total_budget"`
	AverageBudget    float64 `json:"average_budget"`
	TotalSpent       float64 `json:"total_spent"`
	AverageSpent     float64 `json:"average_spent"`
	TotalImpressions int64   `json:"total_impressions"`
	TotalClicks      int64   `json:"total_clicks"`

	AverageCTR        float64 `json:"average_ctr"`
	AverageCPC        float64 `json:"average_cpc"`
	BudgetUtilization float64 `json:"budget_utilization"`
}

// Aggregate rolls a campaign collection up into Statistics in one streaming
// pass. Entities with missing fields contribute their zero values; no
// entity is ever skipped. The per-status and per-platform maps contain
// exactly the keys observed in the input.
func Aggregate(campaigns []domain.AdCampaign) Statistics {
	st := Statistics{
		CampaignsByStatus:   map[string]int{},
		CampaignsByPlatform: map[string]int{},
	}

	// The running lists exist only to compute arithmetic means at the end.
	budgets := make([]float64, 0, len(campaigns))
	spent := make([]float64, 0, len(campaigns))

	for i := range campaigns {
		c := &campaigns[i]

		status := string(c.Status)
		if status == "" {
			status = "unknown"
		}
		platform := c.Platform
		if platform == "" {
			platform = "unknown"
		}

		if _, ok := st.CampaignsByStatus[status]; !ok {
			st.CampaignsByStatus[status] = 0
		}
		st.CampaignsByStatus[status]++

		if _, ok := st.CampaignsByPlatform[platform]; !ok {
			st.CampaignsByPlatform[platform] = 0
		}
		st.CampaignsByPlatform[platform]++

		st.TotalBudget += c.Budget
		st.TotalSpent += c.Spent
		budgets = append(budgets, c.Budget)
		spent = append(spent, c.Spent)

		st.TotalImpressions += c.Impressions
		st.TotalClicks += c.Clicks

		switch c.Status {
		case domain.AdCampaignActive:
			st.ActiveCampaigns++
		case domain.AdCampaignPaused:
			st.PausedCampaigns++
		case domain.AdCampaignCompleted:
			st.CompletedCampaigns++
		}
	}

	st.TotalCampaigns = len(campaigns)
	if len(budgets) > 0 {
		st.AverageBudget = st.TotalBudget / float64(len(budgets))
	}
	if len(spent) > 0 {
		st.AverageSpent = st.TotalSpent / float64(len(spent))
	}
	if st.TotalImpressions > 0 {
		st.AverageCTR = float64(st.TotalClicks) / float64(st.TotalImpressions) * 100
	}
	if st.TotalClicks > 0 {
		st.AverageCPC = st.TotalSpent / float64(st.TotalClicks)
	}
	if st.TotalBudget > 0 {
		st.BudgetUtilization = st.TotalSpent / st.TotalBudget * 100
	}
	return st
}

// Statistics computes (or serves from cache) the aggregate for the
// filtered campaign collection. Identical filter sets within the TTL
// window hit the memoized result; the fingerprint is stable under filter
// key reordering.
func (s *Service) Statistics(ctx context.Context, projectID string, f stats.Filters) (Statistics, error) {
	return oplog.Get(ctx, "adcampaign.Statistics", oplog.Fields("project_id", projectID),
		func(ctx context.Context) (Statistics, error) {
			key := cache.Fingerprint("ads_campaign_statistics", f.With(stats.FilterProjectID, projectID))
			return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (Statistics, error) {
				campaigns, _, err := s.repo.List(ctx, projectID, f)
				if err != nil {
					return Statistics{}, &domain.AggregationError{Op: "adcampaign.Statistics", Err: err}
				}
				return Aggregate(campaigns), nil
			})
		})
}

// CountByStatus returns the per-status breakdown of the (unfiltered)
// project campaigns, served through the same cache.
func (s *Service) CountByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	st, err := s.Statistics(ctx, projectID, stats.Filters{})
	if err != nil {
		return nil, err
	}
	return st.CampaignsByStatus, nil
}

// CountByPlatform returns the per-platform breakdown of the (unfiltered)
// project campaigns.
func (s *Service) CountByPlatform(ctx context.Context, projectID string) (map[string]int, error) {
	st, err := s.Statistics(ctx, projectID, stats.Filters{})
	if err != nil {
		return nil, err
	}
	return st.CampaignsByPlatform, nil
}

// Dashboard is the nested statistics envelope the admin dashboards
// destructure directly; its shape is load-bearing.
type Dashboard struct {
	Overview           DashboardOverview    `json:"overview"`
	Performance        DashboardPerformance `json:"performance"`
	Budget             DashboardBudget      `json:"budget"`
	Platforms          map[string]int       `json:"platforms"`
	StatusDistribution map[string]int       `json:"status_distribution"`
}

// DashboardOverview summarizes campaign counts.
type DashboardOverview struct {
	TotalCampaigns     int `json:"total_campaigns"`
	ActiveCampaigns    int `json:"active_campaigns"`
	PausedCampaigns    int `json:"paused_campaigns"`
	CompletedCampaigns int `json:"completed_campaigns"`
}

// DashboardPerformance summarizes delivery metrics.
type DashboardPerformance struct {
	TotalImpressions int64   `json:"total_impressions"`
	TotalClicks      int64   `json:"total_clicks"`
	AverageCTR       float64 `json:"average_ctr"`
	AverageCPC       float64 `json:"average_cpc"`
}

// DashboardBudget summarizes spend against budget. Utilization may exceed
// 100: overspend is reported, not rejected.
type DashboardBudget struct {
	TotalBudget       float64 `json:"total_budget"`
	TotalSpent        float64 `json:"total_spent"`
	AverageBudget     float64 `json:"average_budget"`
	AverageSpent      float64 `json:"average_spent"`
	BudgetUtilization float64 `json:"budget_utilization"`
}

// Dashboard assembles the nested envelope from the flat aggregate.
func (s *Service) Dashboard(ctx context.Context, projectID string, f stats.Filters) (Dashboard, error) {
	st, err := s.Statistics(ctx, projectID, f)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Overview: DashboardOverview{
			TotalCampaigns:     st.TotalCampaigns,
			ActiveCampaigns:    st.ActiveCampaigns,
			PausedCampaigns:    st.PausedCampaigns,
			CompletedCampaigns: st.CompletedCampaigns,
		},
		Performance: DashboardPerformance{
			TotalImpressions: st.TotalImpressions,
			TotalClicks:      st.TotalClicks,
			AverageCTR:       st.AverageCTR,
			AverageCPC:       st.AverageCPC,
		},
		Budget: DashboardBudget{
			TotalBudget:       st.TotalBudget,
			TotalSpent:        st.TotalSpent,
			AverageBudget:     st.AverageBudget,
			AverageSpent:      st.AverageSpent,
			BudgetUtilization: st.BudgetUtilization,
		},
		Platforms:          st.CampaignsByPlatform,
		StatusDistribution: st.CampaignsByStatus,
	}, nil
}

// TopPerforming returns the n best campaigns in the filter scope by CTR.
// This is a separate query over the filtered collection, not a view of the
// cached aggregate, so the ranking always reflects the current filter
// scope.
func (s *Service) TopPerforming(ctx context.Context, projectID string, n int, f stats.Filters) ([]domain.AdCampaign, error) {
	return s.rankByCTR(ctx, projectID, n, f, true)
}

// WorstPerforming returns the n weakest campaigns in the filter scope by CTR.
func (s *Service) WorstPerforming(ctx context.Context, projectID string, n int, f stats.Filters) ([]domain.AdCampaign, error) {
	return s.rankByCTR(ctx, projectID, n, f, false)
}

func (s *Service) rankByCTR(ctx context.Context, projectID string, n int, f stats.Filters, desc bool) ([]domain.AdCampaign, error) {
	op := "adcampaign.WorstPerforming"
	if desc {
		op = "adcampaign.TopPerforming"
	}
	return oplog.Get(ctx, op, oplog.Fields("project_id", projectID, "n", n),
		func(ctx context.Context) ([]domain.AdCampaign, error) {
			campaigns, _, err := s.repo.List(ctx, projectID, f)
			if err != nil {
				return nil, &domain.AggregationError{Op: op, Err: err}
			}
			sort.SliceStable(campaigns, func(i, j int) bool {
				if desc {
					return campaigns[i].CTR() > campaigns[j].CTR()
				}
				return campaigns[i].CTR() < campaigns[j].CTR()
			})
			if n > 0 && n < len(campaigns) {
				campaigns = campaigns[:n]
			}
			return campaigns, nil
		})
}
