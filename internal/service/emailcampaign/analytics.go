package emailcampaign

import (
	"context"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Overview is the aggregate email analytics block: campaign counts plus
// funnel totals and the rates derived from them.
type Overview struct {
	TotalCampaigns    int                 `json:"total_campaigns"`
	CampaignsByStatus map[string]int      `json:"campaigns_by_status"`
	Totals            domain.EmailMetrics `json:"totals"`
	DeliveryRate      float64             `json:"delivery_rate"`
	OpenRate          float64             `json:"open_rate"`
	ClickRate         float64             `json:"click_rate"`
	BounceRate        float64             `json:"bounce_rate"`
	UnsubscribeRate   float64             `json:"unsubscribe_rate"`
}

// CampaignPerformance is one row of the per-campaign performance list.
type CampaignPerformance struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    string              `json:"status"`
	Metrics   domain.EmailMetrics `json:"metrics"`
	OpenRate  float64             `json:"open_rate"`
	ClickRate float64             `json:"click_rate"`
}

// AggregateOverview rolls a campaign collection up into an Overview in one
// pass. Summing valid funnel records keeps the ordering invariants, so the
// totals stay a valid record. Status keys are inserted on first sight;
// missing statuses group under "unknown" and campaigns are never skipped.
func AggregateOverview(campaigns []domain.EmailCampaign) Overview {
	o := Overview{CampaignsByStatus: map[string]int{}}

	var t domain.EmailMetrics
	for i := range campaigns {
		c := &campaigns[i]

		status := string(c.Status)
		if status == "" {
			status = "unknown"
		}
		o.CampaignsByStatus[status]++

		t.TotalRecipients += c.Metrics.TotalRecipients
		t.Sent += c.Metrics.Sent
		t.Delivered += c.Metrics.Delivered
		t.Opened += c.Metrics.Opened
		t.Clicked += c.Metrics.Clicked
		t.Bounced += c.Metrics.Bounced
		t.Unsubscribed += c.Metrics.Unsubscribed
	}

	o.TotalCampaigns = len(campaigns)
	o.Totals = t
	o.DeliveryRate = t.DeliveryRate()
	o.OpenRate = t.OpenRate()
	o.ClickRate = t.ClickRate()
	o.BounceRate = t.BounceRate()
	o.UnsubscribeRate = t.UnsubscribeRate()
	return o
}

// AggregatePerformance maps each campaign to its performance row.
func AggregatePerformance(campaigns []domain.EmailCampaign) []CampaignPerformance {
	rows := make([]CampaignPerformance, 0, len(campaigns))
	for i := range campaigns {
		c := &campaigns[i]
		rows = append(rows, CampaignPerformance{
			ID:        c.ID,
			Name:      c.Name,
			Status:    string(c.Status),
			Metrics:   c.Metrics,
			OpenRate:  c.Metrics.OpenRate(),
			ClickRate: c.Metrics.ClickRate(),
		})
	}
	return rows
}

// Overview computes (or serves from cache) the aggregate analytics for the
// filtered campaign collection.
func (s *Service) Overview(ctx context.Context, projectID string, f stats.Filters) (Overview, error) {
	return oplog.Get(ctx, "emailcampaign.Overview", oplog.Fields("project_id", projectID),
		func(ctx context.Context) (Overview, error) {
			key := cache.Fingerprint("email_overview", f.With(stats.FilterProjectID, projectID))
			return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (Overview, error) {
				campaigns, _, err := s.campaigns.List(ctx, projectID, f)
				if err != nil {
					return Overview{}, &domain.AggregationError{Op: "emailcampaign.Overview", Err: err}
				}
				return AggregateOverview(campaigns), nil
			})
		})
}

// Performance computes (or serves from cache) the per-campaign performance
// list for the filtered collection.
func (s *Service) Performance(ctx context.Context, projectID string, f stats.Filters) ([]CampaignPerformance, error) {
	return oplog.Get(ctx, "emailcampaign.Performance", oplog.Fields("project_id", projectID),
		func(ctx context.Context) ([]CampaignPerformance, error) {
			key := cache.Fingerprint("email_performance", f.With(stats.FilterProjectID, projectID))
			return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) ([]CampaignPerformance, error) {
				campaigns, _, err := s.campaigns.List(ctx, projectID, f)
				if err != nil {
					return nil, &domain.AggregationError{Op: "emailcampaign.Performance", Err: err}
				}
				return AggregatePerformance(campaigns), nil
			})
		})
}
