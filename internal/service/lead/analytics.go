package lead

import (
	"context"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Metrics is the compact lead KPI block shown on the overview cards.
type Metrics struct {
	TotalLeads     int     `json:"total_leads"`
	NewLeads       int     `json:"new_leads"`
	QualifiedLeads int     `json:"qualified_leads"`
	ConvertedLeads int     `json:"converted_leads"`
	LostLeads      int     `json:"lost_leads"`
	ConversionRate float64 `json:"conversion_rate"`
	AverageScore   float64 `json:"average_score"`
}

// SourceStats is the per-source row of the source performance table.
type SourceStats struct {
	Total          int     `json:"total"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Analytics is the full lead analytics envelope consumed by the dashboard.
type Analytics struct {
	ConversionFunnel  map[string]int         `json:"conversion_funnel"`
	SourcePerformance map[string]SourceStats `json:"source_performance"`
	ScoreDistribution map[string]int         `json:"score_distribution"`
	TotalLeads        int                    `json:"total_leads"`
	ConversionRate    float64                `json:"conversion_rate"`
	AverageScore      float64                `json:"average_score"`
}

// scoreBucket labels the quartile a score falls into.
func scoreBucket(score int) string {
	switch {
	case score <= 25:
		return "0-25"
	case score <= 50:
		return "26-50"
	case score <= 75:
		return "51-75"
	default:
		return "76-100"
	}
}

// AggregateMetrics rolls a lead collection up into Metrics in one pass.
func AggregateMetrics(leads []domain.Lead) Metrics {
	var m Metrics
	scoreSum := 0
	for i := range leads {
		l := &leads[i]
		switch l.Status {
		case domain.LeadNew:
			m.NewLeads++
		case domain.LeadQualified:
			m.QualifiedLeads++
		case domain.LeadConverted:
			m.ConvertedLeads++
		case domain.LeadLost:
			m.LostLeads++
		}
		scoreSum += l.Score
	}
	m.TotalLeads = len(leads)
	if m.TotalLeads > 0 {
		m.ConversionRate = float64(m.ConvertedLeads) / float64(m.TotalLeads) * 100
		m.AverageScore = float64(scoreSum) / float64(m.TotalLeads)
	}
	return m
}

// AggregateAnalytics rolls a lead collection up into the full analytics
// envelope in one streaming pass. Leads with missing fields contribute
// zero values and are never skipped; the source map contains exactly the
// sources observed.
func AggregateAnalytics(leads []domain.Lead) Analytics {
	a := Analytics{
		ConversionFunnel:  map[string]int{},
		SourcePerformance: map[string]SourceStats{},
		ScoreDistribution: map[string]int{},
	}

	scoreSum := 0
	converted := 0
	for i := range leads {
		l := &leads[i]

		status := string(l.Status)
		if status == "" {
			status = "unknown"
		}
		a.ConversionFunnel[status]++

		source := l.Source
		if source == "" {
			source = "unknown"
		}
		ss := a.SourcePerformance[source]
		ss.Total++
		if l.Status == domain.LeadConverted {
			ss.Converted++
			converted++
		}
		a.SourcePerformance[source] = ss

		a.ScoreDistribution[scoreBucket(l.Score)]++
		scoreSum += l.Score
	}

	for source, ss := range a.SourcePerformance {
		if ss.Total > 0 {
			ss.ConversionRate = float64(ss.Converted) / float64(ss.Total) * 100
		}
		a.SourcePerformance[source] = ss
	}

	a.TotalLeads = len(leads)
	if a.TotalLeads > 0 {
		a.ConversionRate = float64(converted) / float64(a.TotalLeads) * 100
		a.AverageScore = float64(scoreSum) / float64(a.TotalLeads)
	}
	return a
}

// Metrics computes (or serves from cache) the lead KPI block for the
// filtered collection.
func (s *Service) Metrics(ctx context.Context, projectID string, f stats.Filters) (Metrics, error) {
	return oplog.Get(ctx, "lead.Metrics", oplog.Fields("project_id", projectID),
		func(ctx context.Context) (Metrics, error) {
			key := cache.Fingerprint("lead_metrics", f.With(stats.FilterProjectID, projectID))
			return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (Metrics, error) {
				leads, _, err := s.repo.List(ctx, projectID, f)
				if err != nil {
					return Metrics{}, &domain.AggregationError{Op: "lead.Metrics", Err: err}
				}
				return AggregateMetrics(leads), nil
			})
		})
}

// Analytics computes (or serves from cache) the full analytics envelope
// for the filtered collection.
func (s *Service) Analytics(ctx context.Context, projectID string, f stats.Filters) (Analytics, error) {
	return oplog.Get(ctx, "lead.Analytics", oplog.Fields("project_id", projectID),
		func(ctx context.Context) (Analytics, error) {
			key := cache.Fingerprint("lead_analytics", f.With(stats.FilterProjectID, projectID))
			return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (Analytics, error) {
				leads, _, err := s.repo.List(ctx, projectID, f)
				if err != nil {
					return Analytics{}, &domain.AggregationError{Op: "lead.Analytics", Err: err}
				}
				return AggregateAnalytics(leads), nil
			})
		})
}
