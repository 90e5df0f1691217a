// Package worker runs the background stats refresh loop. One instance
// across the fleet holds a Redis lock per cycle and recomputes the
// cached analytics blocks so dashboards rarely hit a cold cache.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/crm-backoffice/internal/pkg/distlock"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/service/lead"
	"github.com/ignite/crm-backoffice/internal/stats"
)

const lockKey = "stats_refresh"

// ProjectSource lists the tenants whose analytics should stay warm.
type ProjectSource interface {
	ActiveProjects(ctx context.Context) ([]string, error)
}

type leadStats interface {
	Metrics(ctx context.Context, projectID string, f stats.Filters) (lead.Metrics, error)
}

type adStats interface {
	Statistics(ctx context.Context, projectID string, f stats.Filters) (adcampaign.Statistics, error)
}

type emailStats interface {
	Overview(ctx context.Context, projectID string, f stats.Filters) (emailcampaign.Overview, error)
}

// StatsRefresher periodically recomputes the cached analytics blocks
// for every active project.
type StatsRefresher struct {
	projects ProjectSource
	leads    leadStats
	ads      adStats
	emails   emailStats
	redis    *redis.Client

	interval time.Duration
	lockTTL  time.Duration

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStatsRefresher builds a refresher. interval is how often a cycle
// runs; lockTTL bounds how long a crashed instance blocks the others.
func NewStatsRefresher(projects ProjectSource, leads leadStats, ads adStats, emails emailStats, redisClient *redis.Client, interval, lockTTL time.Duration) *StatsRefresher {
	return &StatsRefresher{
		projects: projects,
		leads:    leads,
		ads:      ads,
		emails:   emails,
		redis:    redisClient,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start begins the refresh loop.
func (w *StatsRefresher) Start() {
	if w.running {
		return
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())

	log.Printf("[StatsRefresher] Starting with interval %v", w.interval)

	w.wg.Add(1)
	go w.runLoop()
}

// Stop gracefully stops the worker.
func (w *StatsRefresher) Stop() {
	if !w.running {
		return
	}
	log.Println("[StatsRefresher] Stopping...")
	w.cancel()
	w.wg.Wait()
	w.running = false
	log.Println("[StatsRefresher] Stopped")
}

func (w *StatsRefresher) runLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.refreshCycle()
		}
	}
}

// refreshCycle runs one locked pass over all active projects.
func (w *StatsRefresher) refreshCycle() {
	ctx, cancel := context.WithTimeout(w.ctx, w.lockTTL)
	defer cancel()

	lock := distlock.NewRedisLock(w.redis, lockKey, w.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[StatsRefresher] Error acquiring lock: %v", err)
		return
	}
	if !acquired {
		log.Println("[StatsRefresher] Another instance holds the lock, skipping cycle")
		return
	}
	defer lock.Release(ctx)

	start := time.Now()
	refreshed, failed := w.refreshAll(ctx)
	log.Printf("[StatsRefresher] Cycle done: %d projects refreshed, %d failed in %v",
		refreshed, failed, time.Since(start).Round(time.Millisecond))
}

func (w *StatsRefresher) refreshAll(ctx context.Context) (refreshed, failed int) {
	projects, err := w.projects.ActiveProjects(ctx)
	if err != nil {
		log.Printf("[StatsRefresher] Error listing projects: %v", err)
		return 0, 0
	}

	for _, projectID := range projects {
		if ctx.Err() != nil {
			return refreshed, failed
		}
		if err := w.refreshProject(ctx, projectID); err != nil {
			log.Printf("[StatsRefresher] Error refreshing project %s: %v", projectID, err)
			failed++
			continue
		}
		refreshed++
	}
	return refreshed, failed
}

// refreshProject recomputes the three analytics blocks. A block that is
// still cached is served from cache; only expired ones cost a
// repository pass.
func (w *StatsRefresher) refreshProject(ctx context.Context, projectID string) error {
	if _, err := w.ads.Statistics(ctx, projectID, nil); err != nil {
		return err
	}
	if _, err := w.leads.Metrics(ctx, projectID, nil); err != nil {
		return err
	}
	if _, err := w.emails.Overview(ctx, projectID, nil); err != nil {
		return err
	}
	return nil
}
