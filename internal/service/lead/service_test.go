package lead_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/lead"
	"github.com/ignite/crm-backoffice/internal/stats"
)

const testProject = "proj-1"

// memRepo is an in-memory lead repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	leads     map[string]*domain.Lead
	history   []domain.StatusHistoryEntry
	changes   []domain.ScoreChange
	listCalls int32
	failList  bool
}

func newMemRepo() *memRepo {
	return &memRepo{leads: make(map[string]*domain.Lead)}
}

func (m *memRepo) Get(_ context.Context, projectID, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, projectID string, f stats.Filters) ([]domain.Lead, int, error) {
	atomic.AddInt32(&m.listCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, 0, fmt.Errorf("list leads: connection refused")
	}
	var out []domain.Lead
	for _, l := range m.leads {
		if l.ProjectID != projectID {
			continue
		}
		if v := f.Get(stats.FilterStatus); v != "" && string(l.Status) != v {
			continue
		}
		if v := f.Get(stats.FilterSource); v != "" && l.Source != v {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, l *domain.Lead) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leads[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, projectID, id string, status domain.LeadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.ProjectID != projectID {
		return domain.ErrNotFound
	}
	l.Status = status
	return nil
}

func (m *memRepo) UpdateScore(_ context.Context, projectID, id string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.ProjectID != projectID {
		return domain.ErrNotFound
	}
	l.Score = score
	return nil
}

func (m *memRepo) AppendStatusHistory(_ context.Context, e *domain.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *e)
	return nil
}

func (m *memRepo) AppendScoreChange(_ context.Context, c *domain.ScoreChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, *c)
	return nil
}

func newTestService(t *testing.T) (*lead.Service, *memRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := newMemRepo()
	return lead.NewService(repo, cache.NewResultCache(cache.NewRedisStore(client), time.Minute)), repo
}

func seed(t *testing.T, repo *memRepo, l domain.Lead) string {
	t.Helper()
	if l.ID == "" {
		l.ID = fmt.Sprintf("lead-%d", len(repo.leads)+1)
	}
	if l.ProjectID == "" {
		l.ProjectID = testProject
	}
	id, err := repo.Create(context.Background(), &l)
	require.NoError(t, err)
	return id
}

func TestCreateStartsAsNewWithZeroScore(t *testing.T) {
	svc, _ := newTestService(t)
	l, err := svc.Create(context.Background(), testProject, lead.CreateInput{
		Name: "Ada", Email: "ada@example.com", Source: "landing_page",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadNew, l.Status)
	assert.Equal(t, 0, l.Score)
	assert.NotEmpty(t, l.ID)

	_, err = svc.Create(context.Background(), testProject, lead.CreateInput{Name: "anon"})
	require.Error(t, err, "a lead needs at least one contact channel")
}

func TestApplyScoreDeltaAudited(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.Lead{Status: domain.LeadNew, Score: 40})

	l, err := svc.ApplyScoreDelta(context.Background(), testProject, id, 15, "opened pricing page", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 55, l.Score)

	require.Len(t, repo.changes, 1)
	c := repo.changes[0]
	assert.Equal(t, 15, c.Delta)
	assert.Equal(t, 40, c.OldScore)
	assert.Equal(t, 55, c.NewScore)
	assert.False(t, c.Clamped)
	assert.Equal(t, "opened pricing page", c.Reason)
	assert.Equal(t, "user-1", c.ActorID)
}

func TestApplyScoreDeltaClampsAndReports(t *testing.T) {
	svc, repo := newTestService(t)

	high := seed(t, repo, domain.Lead{Status: domain.LeadQualified, Score: 95})
	l, err := svc.ApplyScoreDelta(context.Background(), testProject, high, 20, "demo attended", "")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadScoreMax, l.Score)
	require.Len(t, repo.changes, 1)
	assert.True(t, repo.changes[0].Clamped)
	assert.Equal(t, 100, repo.changes[0].NewScore)

	low := seed(t, repo, domain.Lead{Status: domain.LeadNew, Score: 5})
	l, err = svc.ApplyScoreDelta(context.Background(), testProject, low, -30, "bounced email", "")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadScoreMin, l.Score)
	assert.True(t, repo.changes[1].Clamped)
}

func TestApplyScoreDeltaRequiresReason(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.Lead{Status: domain.LeadNew, Score: 10})

	_, err := svc.ApplyScoreDelta(context.Background(), testProject, id, 5, "", "user-1")
	require.Error(t, err)
	assert.Empty(t, repo.changes)

	got, err := repo.Get(context.Background(), testProject, id)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Score, "score untouched when the application is rejected")
}

func TestTransitionRecordsHistoryAndConversionTime(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.Lead{Status: domain.LeadQualified})

	l, err := svc.Transition(context.Background(), testProject, id, domain.LeadConverted, "signed contract", "user-2")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadConverted, l.Status)
	require.NotNil(t, l.ConvertedAt)

	require.Len(t, repo.history, 1)
	h := repo.history[0]
	assert.Equal(t, "lead", h.EntityType)
	assert.Equal(t, "qualified", h.FromStatus)
	assert.Equal(t, "converted", h.ToStatus)
	assert.Equal(t, "signed contract", h.Reason)
	assert.Equal(t, "user-2", h.ActorID)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.Lead{Status: domain.LeadConverted})

	_, err := svc.Transition(context.Background(), testProject, id, domain.LeadNew, "", "")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Empty(t, repo.history)

	_, err = svc.Transition(context.Background(), testProject, "missing", domain.LeadContacted, "", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetricsServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, domain.Lead{Status: domain.LeadNew, Score: 20})
	seed(t, repo, domain.Lead{Status: domain.LeadQualified, Score: 60})
	seed(t, repo, domain.Lead{Status: domain.LeadConverted, Score: 80})
	seed(t, repo, domain.Lead{Status: domain.LeadConverted, Score: 100})

	m, err := svc.Metrics(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, m.TotalLeads)
	assert.Equal(t, 1, m.NewLeads)
	assert.Equal(t, 1, m.QualifiedLeads)
	assert.Equal(t, 2, m.ConvertedLeads)
	assert.InDelta(t, 50.0, m.ConversionRate, 0.001)
	assert.InDelta(t, 65.0, m.AverageScore, 0.001)

	calls := atomic.LoadInt32(&repo.listCalls)
	again, err := svc.Metrics(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, m, again)
	assert.Equal(t, calls, atomic.LoadInt32(&repo.listCalls), "second call must hit the cache")
}

func TestMutationInvalidatesCachedAnalytics(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.Lead{Status: domain.LeadQualified, Score: 50})

	before, err := svc.Metrics(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, before.ConvertedLeads)

	_, err = svc.Transition(context.Background(), testProject, id, domain.LeadConverted, "won", "")
	require.NoError(t, err)

	after, err := svc.Metrics(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, after.ConvertedLeads, "mutation drops the cached result")
}

func TestMetricsWrapsRepositoryFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failList = true

	_, err := svc.Metrics(context.Background(), testProject, nil)
	require.Error(t, err)
	var agg *domain.AggregationError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, "lead.Metrics", agg.Op)
}

func TestAnalyticsAggregation(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, domain.Lead{Status: domain.LeadNew, Source: "webinar", Score: 10})
	seed(t, repo, domain.Lead{Status: domain.LeadConverted, Source: "webinar", Score: 90})
	seed(t, repo, domain.Lead{Status: domain.LeadLost, Source: "", Score: 40})

	a, err := svc.Analytics(context.Background(), testProject, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, a.TotalLeads)
	assert.Equal(t, map[string]int{"new": 1, "converted": 1, "lost": 1}, a.ConversionFunnel)

	webinar := a.SourcePerformance["webinar"]
	assert.Equal(t, 2, webinar.Total)
	assert.Equal(t, 1, webinar.Converted)
	assert.InDelta(t, 50.0, webinar.ConversionRate, 0.001)

	unknown := a.SourcePerformance["unknown"]
	assert.Equal(t, 1, unknown.Total, "empty source is grouped, never skipped")
	assert.Zero(t, unknown.ConversionRate)

	assert.Equal(t, map[string]int{"0-25": 1, "26-50": 1, "76-100": 1}, a.ScoreDistribution)
	assert.InDelta(t, 100.0/3, a.ConversionRate, 0.001)
}

func TestAnalyticsEmptyCollection(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Analytics(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Zero(t, a.TotalLeads)
	assert.Zero(t, a.ConversionRate)
	assert.Zero(t, a.AverageScore)
	assert.Empty(t, a.ConversionFunnel)
}
