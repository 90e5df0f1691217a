package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backoffice/internal/pkg/distlock"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/service/lead"
	"github.com/ignite/crm-backoffice/internal/stats"
)

type fakeProjects struct {
	ids []string
}

func (f *fakeProjects) ActiveProjects(ctx context.Context) ([]string, error) {
	return f.ids, nil
}

type fakeStats struct {
	leadCalls  int32
	adCalls    int32
	emailCalls int32
}

func (f *fakeStats) Metrics(ctx context.Context, projectID string, _ stats.Filters) (lead.Metrics, error) {
	atomic.AddInt32(&f.leadCalls, 1)
	return lead.Metrics{}, nil
}

func (f *fakeStats) Statistics(ctx context.Context, projectID string, _ stats.Filters) (adcampaign.Statistics, error) {
	atomic.AddInt32(&f.adCalls, 1)
	return adcampaign.Statistics{}, nil
}

func (f *fakeStats) Overview(ctx context.Context, projectID string, _ stats.Filters) (emailcampaign.Overview, error) {
	atomic.AddInt32(&f.emailCalls, 1)
	return emailcampaign.Overview{}, nil
}

func newTestRefresher(t *testing.T, projects []string) (*StatsRefresher, *fakeStats, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fs := &fakeStats{}
	w := NewStatsRefresher(&fakeProjects{ids: projects}, fs, fs, fs, client, time.Hour, time.Minute)
	w.ctx, w.cancel = context.WithCancel(context.Background())
	t.Cleanup(w.cancel)
	return w, fs, client
}

func TestRefreshCycleWarmsEveryProject(t *testing.T) {
	w, fs, _ := newTestRefresher(t, []string{"proj-1", "proj-2"})

	w.refreshCycle()

	assert.Equal(t, int32(2), atomic.LoadInt32(&fs.adCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fs.leadCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fs.emailCalls))
}

func TestRefreshCycleSkipsWhenLockHeld(t *testing.T) {
	w, fs, client := newTestRefresher(t, []string{"proj-1"})

	other := distlock.NewRedisLock(client, "stats_refresh", time.Minute)
	held, err := other.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, held)

	w.refreshCycle()

	assert.Equal(t, int32(0), atomic.LoadInt32(&fs.adCalls))
}

func TestRefreshCycleReleasesLock(t *testing.T) {
	w, _, client := newTestRefresher(t, []string{"proj-1"})

	w.refreshCycle()

	next := distlock.NewRedisLock(client, "stats_refresh", time.Minute)
	held, err := next.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, held)
}
