package adcampaign_test

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
	"github.com/ignite/crm-backoffice/internal/config"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/stats"
)

const testProject = "proj-1"

// memRepo is an in-memory ad-campaign repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.AdCampaign
	history   []domain.StatusHistoryEntry
	listCalls int32
	failList  bool
}

func newMemRepo() *memRepo {
	return &memRepo{campaigns: make(map[string]*domain.AdCampaign)}
}

func (m *memRepo) Get(_ context.Context, projectID, id string) (*domain.AdCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, projectID string, f stats.Filters) ([]domain.AdCampaign, int, error) {
	atomic.AddInt32(&m.listCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, 0, fmt.Errorf("list campaigns: connection refused")
	}
	var out []domain.AdCampaign
	for _, c := range m.campaigns {
		if c.ProjectID != projectID {
			continue
		}
		if v := f.Get(stats.FilterStatus); v != "" && string(c.Status) != v {
			continue
		}
		if v := f.Get(stats.FilterPlatform); v != "" && c.Platform != v {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, c *domain.AdCampaign) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) Update(_ context.Context, projectID, id string, u adcampaign.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Budget != nil {
		c.Budget = *u.Budget
	}
	if u.Spent != nil {
		c.Spent = *u.Spent
	}
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, projectID, id string, status domain.AdCampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *memRepo) AppendStatusHistory(_ context.Context, e *domain.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *e)
	return nil
}

func newTestService(t *testing.T) (*adcampaign.Service, *memRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := newMemRepo()
	rc := cache.NewResultCache(cache.NewRedisStore(client), time.Minute)
	return adcampaign.NewService(repo, rc, config.AdsConfig{}.DefaultPlatforms()), repo
}

func seed(t *testing.T, repo *memRepo, c domain.AdCampaign) string {
	t.Helper()
	if c.ID == "" {
		c.ID = fmt.Sprintf("camp-%d", len(repo.campaigns)+1)
	}
	if c.ProjectID == "" {
		c.ProjectID = testProject
	}
	id, err := repo.Create(context.Background(), &c)
	require.NoError(t, err)
	return id
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create(context.Background(), testProject, adcampaign.CreateInput{
		Name: "Summer Push", Platform: "google_ads", Budget: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AdCampaignDraft, c.Status)
	assert.NotEmpty(t, c.ID)

	_, err = svc.Create(context.Background(), testProject, adcampaign.CreateInput{Platform: "google_ads"})
	require.Error(t, err)
}

func TestCreateRejectsUnknownPlatform(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Create(context.Background(), testProject, adcampaign.CreateInput{
		Name: "Mystery", Platform: "carrier_pigeon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")
	assert.Empty(t, repo.campaigns)
}

func TestTransitionRecordsHistory(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignDraft, Name: "c", Platform: "google_ads"})

	c, err := svc.Transition(context.Background(), testProject, id, domain.AdCampaignActive, "launch", "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AdCampaignActive, c.Status)
	require.NotNil(t, c.StartedAt)

	require.Len(t, repo.history, 1)
	h := repo.history[0]
	assert.Equal(t, "ad_campaign", h.EntityType)
	assert.Equal(t, "draft", h.FromStatus)
	assert.Equal(t, "active", h.ToStatus)
	assert.Equal(t, "launch", h.Reason)
	assert.Equal(t, "user-1", h.ActorID)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignCompleted})

	_, err := svc.Transition(context.Background(), testProject, id, domain.AdCampaignActive, "", "")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Empty(t, repo.history, "rejected transitions must not be recorded")

	_, err = svc.Transition(context.Background(), testProject, id, domain.AdCampaignStatus("bogus"), "", "")
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTransitionUnknownCampaign(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Transition(context.Background(), testProject, "nope", domain.AdCampaignActive, "", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRejectsTerminalCampaign(t *testing.T) {
	svc, repo := newTestService(t)
	id := seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignCancelled})

	name := "renamed"
	err := svc.Update(context.Background(), testProject, id, adcampaign.UpdateFields{Name: &name})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestStatisticsServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignActive, Platform: "google_ads", Impressions: 1000, Clicks: 50})
	seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignPaused, Platform: "facebook_ads", Impressions: 500, Clicks: 10})

	ctx := context.Background()
	st, err := svc.Statistics(ctx, testProject, stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalCampaigns)
	assert.InDelta(t, 4.0, st.AverageCTR, 1e-9)

	// Same filters, any key order: served from cache, repo not hit again.
	before := atomic.LoadInt32(&repo.listCalls)
	st2, err := svc.Statistics(ctx, testProject, stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, st, st2)
	assert.Equal(t, before, atomic.LoadInt32(&repo.listCalls))

	// Different filters miss the cache.
	_, err = svc.Statistics(ctx, testProject, stats.Filters{stats.FilterStatus: "active"})
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&repo.listCalls), before)
}

func TestStatisticsWrapsRepositoryFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failList = true

	_, err := svc.Statistics(context.Background(), testProject, stats.Filters{})
	require.Error(t, err)
	var aggErr *domain.AggregationError
	require.ErrorAs(t, err, &aggErr)
}

func TestTopAndWorstPerforming(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, domain.AdCampaign{ID: "high", Impressions: 100, Clicks: 50})  // 50% ctr
	seed(t, repo, domain.AdCampaign{ID: "mid", Impressions: 100, Clicks: 10})   // 10%
	seed(t, repo, domain.AdCampaign{ID: "low", Impressions: 100, Clicks: 1})    // 1%
	seed(t, repo, domain.AdCampaign{ID: "none", Impressions: 0, Clicks: 0})     // 0%

	ctx := context.Background()
	top, err := svc.TopPerforming(ctx, testProject, 2, stats.Filters{})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].ID)
	assert.Equal(t, "mid", top[1].ID)

	worst, err := svc.WorstPerforming(ctx, testProject, 2, stats.Filters{})
	require.NoError(t, err)
	require.Len(t, worst, 2)
	assert.Equal(t, "none", worst[0].ID)
	assert.Equal(t, "low", worst[1].ID)
}

func TestDashboardEnvelopeShape(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, domain.AdCampaign{Status: domain.AdCampaignActive, Platform: "google_ads", Budget: 1000, Spent: 250, Impressions: 1000, Clicks: 40})

	d, err := svc.Dashboard(context.Background(), testProject, stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Overview.TotalCampaigns)
	assert.Equal(t, 1, d.Overview.ActiveCampaigns)
	assert.Equal(t, int64(1000), d.Performance.TotalImpressions)
	assert.InDelta(t, 4.0, d.Performance.AverageCTR, 1e-9)
	assert.InDelta(t, 25.0, d.Budget.BudgetUtilization, 1e-9)
	assert.Equal(t, map[string]int{"google_ads": 1}, d.Platforms)
	assert.Equal(t, map[string]int{"active": 1}, d.StatusDistribution)
}
