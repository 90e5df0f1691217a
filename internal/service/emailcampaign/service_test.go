package emailcampaign_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/delivery"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/mailing"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/stats"
)

const testProject = "proj-1"

// memCampaignRepo is an in-memory campaign repository for unit testing.
type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.EmailCampaign
	history   []domain.StatusHistoryEntry
	failList  bool
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: make(map[string]*domain.EmailCampaign)}
}

func (m *memCampaignRepo) Get(_ context.Context, projectID, id string) (*domain.EmailCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) List(_ context.Context, projectID string, f stats.Filters) ([]domain.EmailCampaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, 0, fmt.Errorf("list campaigns: connection refused")
	}
	var out []domain.EmailCampaign
	for _, c := range m.campaigns {
		if c.ProjectID != projectID {
			continue
		}
		if v := f.Get(stats.FilterStatus); v != "" && string(c.Status) != v {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memCampaignRepo) Create(_ context.Context, c *domain.EmailCampaign) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memCampaignRepo) Update(_ context.Context, projectID, id string, u emailcampaign.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Subject != nil {
		c.Subject = *u.Subject
	}
	if u.Content != nil {
		c.Content = *u.Content
	}
	return nil
}

func (m *memCampaignRepo) UpdateStatus(_ context.Context, projectID, id string, status domain.EmailCampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *memCampaignRepo) UpdateSchedule(_ context.Context, projectID, id string, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	c.ScheduledAt = at
	return nil
}

func (m *memCampaignRepo) UpdateMetrics(_ context.Context, projectID, id string, metrics domain.EmailMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	c.Metrics = metrics
	return nil
}

func (m *memCampaignRepo) SetSentAt(_ context.Context, projectID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	c.SentAt = &at
	return nil
}

func (m *memCampaignRepo) Delete(_ context.Context, projectID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.ProjectID != projectID {
		return domain.ErrNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memCampaignRepo) AppendStatusHistory(_ context.Context, e *domain.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *e)
	return nil
}

// memListRepo is an in-memory list repository for unit testing.
type memListRepo struct {
	mu      sync.Mutex
	lists   map[string]*domain.EmailList
	subs    map[string][]domain.Subscriber
	history []domain.StatusHistoryEntry
}

func newMemListRepo() *memListRepo {
	return &memListRepo{
		lists: make(map[string]*domain.EmailList),
		subs:  make(map[string][]domain.Subscriber),
	}
}

func (m *memListRepo) Get(_ context.Context, projectID, id string) (*domain.EmailList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok || l.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memListRepo) List(_ context.Context, projectID string, _ stats.Filters) ([]domain.EmailList, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EmailList
	for _, l := range m.lists {
		if l.ProjectID == projectID {
			out = append(out, *l)
		}
	}
	return out, len(out), nil
}

func (m *memListRepo) Create(_ context.Context, l *domain.EmailList) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.lists[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memListRepo) UpdateStatus(_ context.Context, projectID, id string, status domain.EmailListStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok || l.ProjectID != projectID {
		return domain.ErrNotFound
	}
	l.Status = status
	return nil
}

func (m *memListRepo) UpdateMetrics(_ context.Context, projectID, id string, metrics domain.EmailMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok || l.ProjectID != projectID {
		return domain.ErrNotFound
	}
	l.Metrics = metrics
	return nil
}

func (m *memListRepo) Subscribers(_ context.Context, _, listID string) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[listID], nil
}

func (m *memListRepo) AppendStatusHistory(_ context.Context, e *domain.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *e)
	return nil
}

// fakeSender records dispatched messages; addresses in fail are rejected.
type fakeSender struct {
	mu   sync.Mutex
	sent []delivery.Message
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg delivery.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.To] {
		return "", fmt.Errorf("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fixture struct {
	svc       *emailcampaign.Service
	campaigns *memCampaignRepo
	lists     *memListRepo
	sender    *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	renderer := delivery.NewRenderer()
	f := &fixture{
		campaigns: newMemCampaignRepo(),
		lists:     newMemListRepo(),
		sender:    &fakeSender{fail: map[string]bool{}},
	}
	f.svc = emailcampaign.NewService(
		f.campaigns, f.lists,
		cache.NewResultCache(cache.NewRedisStore(client), time.Minute),
		f.sender, renderer, mailing.NewFeedSource(renderer, 5),
	)
	return f
}

func (f *fixture) seedList(t *testing.T, status domain.EmailListStatus, subs ...domain.Subscriber) string {
	t.Helper()
	id := fmt.Sprintf("list-%d", len(f.lists.lists)+1)
	_, err := f.lists.Create(context.Background(), &domain.EmailList{
		ID: id, ProjectID: testProject, Name: "Newsletter", Status: status,
	})
	require.NoError(t, err)
	f.lists.subs[id] = subs
	return id
}

func (f *fixture) seedCampaign(t *testing.T, c domain.EmailCampaign) string {
	t.Helper()
	if c.ID == "" {
		c.ID = fmt.Sprintf("camp-%d", len(f.campaigns.campaigns)+1)
	}
	if c.ProjectID == "" {
		c.ProjectID = testProject
	}
	id, err := f.campaigns.Create(context.Background(), &c)
	require.NoError(t, err)
	return id
}

func sub(email, firstName string) domain.Subscriber {
	return domain.Subscriber{ID: "sub-" + email, Email: email, FirstName: firstName}
}

func TestCreateCampaignRequiresActiveList(t *testing.T) {
	f := newFixture(t)
	active := f.seedList(t, domain.EmailListActive)
	archived := f.seedList(t, domain.EmailListArchived)

	c, err := f.svc.CreateCampaign(context.Background(), testProject, emailcampaign.CreateInput{
		ListID: active, Name: "Week 34", Subject: "News", Content: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EmailCampaignDraft, c.Status)
	assert.True(t, c.Metrics.Equals(domain.EmptyEmailMetrics()))

	_, err = f.svc.CreateCampaign(context.Background(), testProject, emailcampaign.CreateInput{
		ListID: archived, Name: "Week 35",
	})
	require.Error(t, err)
}

func TestArchivedListStaysArchived(t *testing.T) {
	f := newFixture(t)
	id := f.seedList(t, domain.EmailListArchived)

	_, err := f.svc.TransitionList(context.Background(), testProject, id, domain.EmailListActive)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	got, err := f.lists.Get(context.Background(), testProject, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailListArchived, got.Status)
	assert.Empty(t, f.lists.history, "rejected transitions must not write history")
}

func TestListTransitionRecordsHistory(t *testing.T) {
	f := newFixture(t)
	id := f.seedList(t, domain.EmailListActive)

	l, err := f.svc.TransitionList(context.Background(), testProject, id, domain.EmailListArchived)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailListArchived, l.Status)

	require.Len(t, f.lists.history, 1)
	entry := f.lists.history[0]
	assert.Equal(t, "email_list", entry.EntityType)
	assert.Equal(t, id, entry.EntityID)
	assert.Equal(t, string(domain.EmailListActive), entry.FromStatus)
	assert.Equal(t, string(domain.EmailListArchived), entry.ToStatus)
	assert.NotEmpty(t, entry.ID)
}

func TestScheduleStampsTime(t *testing.T) {
	f := newFixture(t)
	id := f.seedCampaign(t, domain.EmailCampaign{Status: domain.EmailCampaignDraft, Name: "c"})

	at := time.Now().Add(2 * time.Hour).UTC()
	c, err := f.svc.Schedule(context.Background(), testProject, id, at, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EmailCampaignScheduled, c.Status)
	require.NotNil(t, c.ScheduledAt)
	assert.True(t, c.ScheduledAt.Equal(at))
}

func TestSendDeliversToSubscribers(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, domain.EmailListActive,
		sub("ada@example.com", "Ada"), sub("grace@example.com", "Grace"))
	id := f.seedCampaign(t, domain.EmailCampaign{
		Status: domain.EmailCampaignDraft, ListID: list,
		Name: "Week 34", Subject: "Hi {{ first_name }}", Content: "<p>Hello {{ first_name }}</p>",
		FromName: "Team", FromEmail: "team@example.com",
	})

	report, err := f.svc.Send(context.Background(), testProject, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Failed)

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "Hi Ada", f.sender.sent[0].Subject)
	assert.Contains(t, f.sender.sent[0].HTML, "Hello Ada")

	got, err := f.campaigns.Get(context.Background(), testProject, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailCampaignSent, got.Status)
	assert.Equal(t, 2, got.Metrics.TotalRecipients)
	assert.Equal(t, 2, got.Metrics.Sent)
	require.NotNil(t, got.SentAt)

	// draft -> sending -> sent, both recorded
	require.Len(t, f.campaigns.history, 2)
	assert.Equal(t, "sending", f.campaigns.history[0].ToStatus)
	assert.Equal(t, "sent", f.campaigns.history[1].ToStatus)

	// list aggregate picked up the send
	l, err := f.lists.Get(context.Background(), testProject, list)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Metrics.Sent)
}

func TestSendPartialFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, domain.EmailListActive,
		sub("ok@example.com", "A"), sub("bad@example.com", "B"))
	id := f.seedCampaign(t, domain.EmailCampaign{
		Status: domain.EmailCampaignDraft, ListID: list,
		Name: "c", Subject: "s", Content: "b", FromEmail: "team@example.com",
	})
	f.sender.fail["bad@example.com"] = true

	report, err := f.svc.Send(context.Background(), testProject, id, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)

	got, _ := f.campaigns.Get(context.Background(), testProject, id)
	assert.Equal(t, domain.EmailCampaignSent, got.Status)
	assert.Equal(t, 1, got.Metrics.Sent)
	assert.Equal(t, 2, got.Metrics.TotalRecipients)
}

func TestSendTotalFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, domain.EmailListActive, sub("bad@example.com", "B"))
	id := f.seedCampaign(t, domain.EmailCampaign{
		Status: domain.EmailCampaignDraft, ListID: list,
		Name: "c", Subject: "s", Content: "b", FromEmail: "team@example.com",
	})
	f.sender.fail["bad@example.com"] = true

	report, err := f.svc.Send(context.Background(), testProject, id, "")
	require.NoError(t, err)
	assert.Zero(t, report.Sent)

	got, _ := f.campaigns.Get(context.Background(), testProject, id)
	assert.Equal(t, domain.EmailCampaignFailed, got.Status)
	assert.Nil(t, got.SentAt)
}

func TestSendRejectsTerminalCampaign(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, domain.EmailListActive)
	id := f.seedCampaign(t, domain.EmailCampaign{
		Status: domain.EmailCampaignSent, ListID: list,
		Name: "c", Subject: "s", Content: "b",
	})

	_, err := f.svc.Send(context.Background(), testProject, id, "")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestUpdateRejectsWhileSending(t *testing.T) {
	f := newFixture(t)
	id := f.seedCampaign(t, domain.EmailCampaign{Status: domain.EmailCampaignSending, Name: "c"})

	name := "renamed"
	_, err := f.svc.UpdateCampaign(context.Background(), testProject, id, emailcampaign.UpdateFields{Name: &name})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestApplyMetricEvent(t *testing.T) {
	f := newFixture(t)
	id := f.seedCampaign(t, domain.EmailCampaign{
		Status:  domain.EmailCampaignSent,
		Metrics: domain.EmailMetrics{TotalRecipients: 100, Sent: 80},
	})

	c, err := f.svc.ApplyMetricEvent(context.Background(), testProject, id, emailcampaign.EventDelivered, 75)
	require.NoError(t, err)
	assert.Equal(t, 75, c.Metrics.Delivered)

	c, err = f.svc.ApplyMetricEvent(context.Background(), testProject, id, emailcampaign.EventOpened, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Metrics.Opened)

	// opened cannot exceed delivered; stored record stays untouched
	_, err = f.svc.ApplyMetricEvent(context.Background(), testProject, id, emailcampaign.EventOpened, 60)
	require.Error(t, err)
	assert.True(t, domain.IsInvariantViolation(err))

	got, _ := f.campaigns.Get(context.Background(), testProject, id)
	assert.Equal(t, 20, got.Metrics.Opened)

	_, err = f.svc.ApplyMetricEvent(context.Background(), testProject, id, "forwarded", 1)
	require.Error(t, err)
}

func TestDeleteGuard(t *testing.T) {
	f := newFixture(t)
	draft := f.seedCampaign(t, domain.EmailCampaign{Status: domain.EmailCampaignDraft, Name: "d"})
	sent := f.seedCampaign(t, domain.EmailCampaign{Status: domain.EmailCampaignSent, Name: "s"})

	require.NoError(t, f.svc.DeleteCampaign(context.Background(), testProject, draft))
	require.ErrorIs(t, f.svc.DeleteCampaign(context.Background(), testProject, sent), domain.ErrIllegalTransition)
}

func TestOverviewAggregatesRates(t *testing.T) {
	f := newFixture(t)
	f.seedCampaign(t, domain.EmailCampaign{
		Status:  domain.EmailCampaignSent,
		Metrics: domain.EmailMetrics{TotalRecipients: 100, Sent: 80, Delivered: 80, Opened: 20, Clicked: 5},
	})
	f.seedCampaign(t, domain.EmailCampaign{Status: domain.EmailCampaignDraft})

	o, err := f.svc.Overview(context.Background(), testProject, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, o.TotalCampaigns)
	assert.Equal(t, map[string]int{"sent": 1, "draft": 1}, o.CampaignsByStatus)
	assert.InDelta(t, 25.0, o.OpenRate, 0.001)
	assert.InDelta(t, 6.25, o.ClickRate, 0.001)
	assert.InDelta(t, 100.0, o.DeliveryRate, 0.001)
}

func TestOverviewWrapsRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.campaigns.failList = true

	_, err := f.svc.Overview(context.Background(), testProject, nil)
	require.Error(t, err)
	var agg *domain.AggregationError
	require.ErrorAs(t, err, &agg)
}

func TestPerformanceRows(t *testing.T) {
	f := newFixture(t)
	f.seedCampaign(t, domain.EmailCampaign{
		ID: "camp-a", Name: "A", Status: domain.EmailCampaignSent,
		Metrics: domain.EmailMetrics{TotalRecipients: 10, Sent: 10, Delivered: 10, Opened: 5, Clicked: 2},
	})

	rows, err := f.svc.Performance(context.Background(), testProject, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "camp-a", rows[0].ID)
	assert.InDelta(t, 50.0, rows[0].OpenRate, 0.001)
	assert.InDelta(t, 20.0, rows[0].ClickRate, 0.001)
}

func TestDraftsFromFeed(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, domain.EmailListActive)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title>
<item><guid>p1</guid><title>First Post</title><link>https://example.com/p1</link><description>Body</description></item>
</channel></rss>`)
	}))
	defer srv.Close()

	drafts, err := f.svc.DraftsFromFeed(context.Background(), testProject, srv.URL, mailing.DraftDefaults{
		ListID: list, FromEmail: "news@example.com", SubjectTemplate: "New: {{ rss.title }}",
	})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, domain.EmailCampaignDraft, drafts[0].Status)
	assert.Equal(t, "New: First Post", drafts[0].Subject)

	stored, _, err := f.campaigns.List(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
