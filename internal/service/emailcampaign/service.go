package emailcampaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/delivery"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/mailing"
	"github.com/ignite/crm-backoffice/internal/pkg/logger"
	"github.com/ignite/crm-backoffice/internal/pkg/oplog"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// Service implements email campaign and list business logic. Concurrent
// writes to the same campaign id must be serialized by the caller.
type Service struct {
	campaigns CampaignRepository
	lists     ListRepository
	cache     *cache.ResultCache
	sender    delivery.Sender
	renderer  *delivery.Renderer
	feeds     *mailing.FeedSource
}

// NewService creates an email campaign service. sender and feeds may be nil
// when sending/RSS features are disabled; the corresponding operations then
// return an error.
func NewService(campaigns CampaignRepository, lists ListRepository, rc *cache.ResultCache, sender delivery.Sender, renderer *delivery.Renderer, feeds *mailing.FeedSource) *Service {
	return &Service{
		campaigns: campaigns,
		lists:     lists,
		cache:     rc,
		sender:    sender,
		renderer:  renderer,
		feeds:     feeds,
	}
}

// GetCampaign returns a single campaign.
func (s *Service) GetCampaign(ctx context.Context, projectID, id string) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.Get", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			return s.campaigns.Get(ctx, projectID, id)
		})
}

// ListCampaigns returns campaigns matching the filter.
func (s *Service) ListCampaigns(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailCampaign, int, error) {
	var total int
	out, err := oplog.Get(ctx, "emailcampaign.List", oplog.Fields("project_id", projectID),
		func(ctx context.Context) ([]domain.EmailCampaign, error) {
			var err error
			var cs []domain.EmailCampaign
			cs, total, err = s.campaigns.List(ctx, projectID, f)
			return cs, err
		})
	return out, total, err
}

// CreateInput holds the fields for campaign creation.
type CreateInput struct {
	ListID    string `json:"list_id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	ReplyTo   string `json:"reply_to"`
}

// CreateCampaign creates a new campaign in draft against an active list.
func (s *Service) CreateCampaign(ctx context.Context, projectID string, input CreateInput) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.Create", oplog.Fields("project_id", projectID, "list_id", input.ListID),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			if input.Name == "" || input.ListID == "" {
				return nil, fmt.Errorf("name and list_id are required")
			}

			list, err := s.lists.Get(ctx, projectID, input.ListID)
			if err != nil {
				return nil, fmt.Errorf("resolving list: %w", err)
			}
			if !list.Status.CanReceiveCampaigns() {
				return nil, fmt.Errorf("list %s is %s and cannot receive campaigns", list.ID, list.Status)
			}

			c := &domain.EmailCampaign{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				ListID:    input.ListID,
				Name:      input.Name,
				Subject:   input.Subject,
				Content:   input.Content,
				FromName:  input.FromName,
				FromEmail: input.FromEmail,
				ReplyTo:   input.ReplyTo,
				Status:    domain.EmailCampaignDraft,
				Metrics:   domain.EmptyEmailMetrics(),
			}
			id, err := s.campaigns.Create(ctx, c)
			if err != nil {
				return nil, err
			}
			c.ID = id
			return c, nil
		})
}

// UpdateFields carries the mutable campaign fields; nil means unchanged.
type UpdateFields struct {
	Name      *string
	Subject   *string
	Content   *string
	FromName  *string
	FromEmail *string
	ReplyTo   *string
}

// UpdateCampaign changes content/settings of an editable campaign.
func (s *Service) UpdateCampaign(ctx context.Context, projectID, id string, u UpdateFields) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.Update", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			c, err := s.campaigns.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}
			if !c.Status.CanBeEdited() {
				return nil, fmt.Errorf("campaign in status %s cannot be edited: %w", c.Status, domain.ErrIllegalTransition)
			}
			if err := s.campaigns.Update(ctx, projectID, id, u); err != nil {
				return nil, err
			}
			if s.renderer != nil {
				s.renderer.ClearCacheKey(subjectCacheKey(id))
				s.renderer.ClearCacheKey(contentCacheKey(id))
			}
			return s.campaigns.Get(ctx, projectID, id)
		})
}

// Schedule moves a draft campaign to scheduled with a send time.
func (s *Service) Schedule(ctx context.Context, projectID, id string, at time.Time, actorID string) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.Schedule",
		oplog.Fields("project_id", projectID, "campaign_id", id, "at", at.Format(time.RFC3339)),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			c, err := s.Transition(ctx, projectID, id, domain.EmailCampaignScheduled, "scheduled", actorID)
			if err != nil {
				return nil, err
			}
			if err := s.campaigns.UpdateSchedule(ctx, projectID, id, &at); err != nil {
				return nil, fmt.Errorf("persist schedule: %w", err)
			}
			c.ScheduledAt = &at
			return c, nil
		})
}

// Transition moves a campaign to a new status per the campaign transition
// table and records the change in the status history.
func (s *Service) Transition(ctx context.Context, projectID, id string, to domain.EmailCampaignStatus, reason, actorID string) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.Transition",
		oplog.Fields("project_id", projectID, "campaign_id", id, "to", string(to)),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			c, err := s.campaigns.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			next, err := domain.EmailCampaignTransitions.Transition(c.Status, to)
			if err != nil {
				return nil, err
			}

			if err := s.campaigns.UpdateStatus(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist status: %w", err)
			}
			if err := s.campaigns.AppendStatusHistory(ctx, &domain.StatusHistoryEntry{
				ID:         uuid.New().String(),
				EntityType: "email_campaign",
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
			s.invalidateAnalytics(ctx, projectID)
			return c, nil
		})
}

// DeleteCampaign removes a draft or cancelled campaign.
func (s *Service) DeleteCampaign(ctx context.Context, projectID, id string) error {
	return oplog.Do(ctx, "emailcampaign.Delete", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) error {
			c, err := s.campaigns.Get(ctx, projectID, id)
			if err != nil {
				return err
			}
			if !c.Status.CanBeDeleted() {
				return fmt.Errorf("campaign in status %s cannot be deleted: %w", c.Status, domain.ErrIllegalTransition)
			}
			return s.campaigns.Delete(ctx, projectID, id)
		})
}

// SendReport summarizes one send run.
type SendReport struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// Send dispatches a ready campaign to every subscriber of its list. Per
// recipient failures are logged and counted, not fatal; the campaign ends
// in sent when at least one message went out, otherwise failed.
func (s *Service) Send(ctx context.Context, projectID, id, actorID string) (*SendReport, error) {
	return oplog.Get(ctx, "emailcampaign.Send", oplog.Fields("project_id", projectID, "campaign_id", id),
		func(ctx context.Context) (*SendReport, error) {
			if s.sender == nil {
				return nil, fmt.Errorf("sending is not configured")
			}

			c, err := s.campaigns.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}
			if !c.ReadyForSending() {
				if !c.Status.CanBeSent() {
					return nil, fmt.Errorf("campaign in status %s cannot be sent: %w", c.Status, domain.ErrIllegalTransition)
				}
				return nil, fmt.Errorf("campaign %s is missing subject, content, or list", id)
			}

			list, err := s.lists.Get(ctx, projectID, c.ListID)
			if err != nil {
				return nil, fmt.Errorf("resolving list: %w", err)
			}
			if !list.Status.CanReceiveCampaigns() {
				return nil, fmt.Errorf("list %s is %s and cannot receive campaigns", list.ID, list.Status)
			}

			subs, err := s.lists.Subscribers(ctx, projectID, c.ListID)
			if err != nil {
				return nil, fmt.Errorf("loading subscribers: %w", err)
			}

			if _, err := s.Transition(ctx, projectID, id, domain.EmailCampaignSending, "send started", actorID); err != nil {
				return nil, err
			}

			metrics, err := c.Metrics.IncrementRecipients(len(subs))
			if err != nil {
				return nil, err
			}

			report := &SendReport{Recipients: len(subs)}
			for _, sub := range subs {
				msg, err := s.renderMessage(c, sub)
				if err != nil {
					logger.Warn("campaign message render failed",
						"campaign_id", id, "subscriber_id", sub.ID, "error", err.Error())
					report.Failed++
					continue
				}
				if _, err := s.sender.Send(ctx, msg); err != nil {
					logger.Warn("campaign message send failed",
						"campaign_id", id, "subscriber_id", sub.ID, "error", err.Error())
					report.Failed++
					continue
				}
				report.Sent++
				metrics, err = metrics.IncrementSent(1)
				if err != nil {
					return nil, err
				}
			}

			if err := s.campaigns.UpdateMetrics(ctx, projectID, id, metrics); err != nil {
				return nil, fmt.Errorf("persist metrics: %w", err)
			}
			s.rollUpListMetrics(ctx, projectID, list, metrics, c.Metrics)

			final := domain.EmailCampaignSent
			reason := fmt.Sprintf("sent to %d of %d recipients", report.Sent, report.Recipients)
			if report.Sent == 0 && report.Recipients > 0 {
				final = domain.EmailCampaignFailed
				reason = "no messages delivered"
			}
			if _, err := s.Transition(ctx, projectID, id, final, reason, actorID); err != nil {
				return nil, err
			}
			if final == domain.EmailCampaignSent {
				if err := s.campaigns.SetSentAt(ctx, projectID, id, time.Now().UTC()); err != nil {
					return nil, fmt.Errorf("stamp sent_at: %w", err)
				}
			}
			return report, nil
		})
}

func subjectCacheKey(campaignID string) string { return "subject:" + campaignID }
func contentCacheKey(campaignID string) string { return "content:" + campaignID }

func (s *Service) renderMessage(c *domain.EmailCampaign, sub domain.Subscriber) (delivery.Message, error) {
	tplCtx := map[string]interface{}{
		"email":      sub.Email,
		"first_name": sub.FirstName,
		"last_name":  sub.LastName,
	}
	for k, v := range sub.Fields {
		tplCtx[k] = v
	}

	subject, err := s.renderer.Render(subjectCacheKey(c.ID), c.Subject, tplCtx)
	if err != nil {
		return delivery.Message{}, fmt.Errorf("subject: %w", err)
	}
	content, err := s.renderer.Render(contentCacheKey(c.ID), c.Content, tplCtx)
	if err != nil {
		return delivery.Message{}, fmt.Errorf("content: %w", err)
	}

	return delivery.Message{
		To:        sub.Email,
		FromName:  c.FromName,
		FromEmail: c.FromEmail,
		ReplyTo:   c.ReplyTo,
		Subject:   subject,
		HTML:      content,
	}, nil
}

// rollUpListMetrics folds the delta between old and new campaign metrics
// into the list aggregate. Failures degrade to a warning; the campaign
// record stays authoritative.
func (s *Service) rollUpListMetrics(ctx context.Context, projectID string, list *domain.EmailList, next, prev domain.EmailMetrics) {
	m := list.Metrics
	var err error
	if m, err = m.IncrementRecipients(next.TotalRecipients - prev.TotalRecipients); err == nil {
		m, err = m.IncrementSent(next.Sent - prev.Sent)
	}
	if err == nil {
		err = s.lists.UpdateMetrics(ctx, projectID, list.ID, m)
	}
	if err != nil {
		logger.Warn("list metrics roll-up failed", "list_id", list.ID, "error", err.Error())
	}
}

// MetricEvent names one funnel event reported by the delivery provider.
type MetricEvent string

const (
	EventDelivered    MetricEvent = "delivered"
	EventOpened       MetricEvent = "opened"
	EventClicked      MetricEvent = "clicked"
	EventBounced      MetricEvent = "bounced"
	EventUnsubscribed MetricEvent = "unsubscribed"
)

// ApplyMetricEvent folds n provider events into the campaign's metrics
// record. Ordering violations surface as InvariantViolation and leave the
// stored record untouched.
func (s *Service) ApplyMetricEvent(ctx context.Context, projectID, id string, event MetricEvent, n int) (*domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.ApplyMetricEvent",
		oplog.Fields("project_id", projectID, "campaign_id", id, "event", string(event), "n", n),
		func(ctx context.Context) (*domain.EmailCampaign, error) {
			c, err := s.campaigns.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			var next domain.EmailMetrics
			switch event {
			case EventDelivered:
				next, err = c.Metrics.IncrementDelivered(n)
			case EventOpened:
				next, err = c.Metrics.IncrementOpened(n)
			case EventClicked:
				next, err = c.Metrics.IncrementClicked(n)
			case EventBounced:
				next, err = c.Metrics.IncrementBounced(n)
			case EventUnsubscribed:
				next, err = c.Metrics.IncrementUnsubscribed(n)
			default:
				return nil, fmt.Errorf("unknown metric event %q", event)
			}
			if err != nil {
				return nil, err
			}

			if err := s.campaigns.UpdateMetrics(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist metrics: %w", err)
			}
			c.Metrics = next
			s.invalidateAnalytics(ctx, projectID)
			return c, nil
		})
}

// CreateListInput holds the fields for list creation.
type CreateListInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateList creates a new active mailing list.
func (s *Service) CreateList(ctx context.Context, projectID string, input CreateListInput) (*domain.EmailList, error) {
	return oplog.Get(ctx, "emailcampaign.CreateList", oplog.Fields("project_id", projectID),
		func(ctx context.Context) (*domain.EmailList, error) {
			if input.Name == "" {
				return nil, fmt.Errorf("name is required")
			}
			l := &domain.EmailList{
				ID:          uuid.New().String(),
				ProjectID:   projectID,
				Name:        input.Name,
				Description: input.Description,
				Status:      domain.EmailListActive,
				Metrics:     domain.EmptyEmailMetrics(),
			}
			id, err := s.lists.Create(ctx, l)
			if err != nil {
				return nil, err
			}
			l.ID = id
			return l, nil
		})
}

// GetList returns a single mailing list.
func (s *Service) GetList(ctx context.Context, projectID, id string) (*domain.EmailList, error) {
	return oplog.Get(ctx, "emailcampaign.GetList", oplog.Fields("project_id", projectID, "list_id", id),
		func(ctx context.Context) (*domain.EmailList, error) {
			return s.lists.Get(ctx, projectID, id)
		})
}

// Lists returns mailing lists matching the filter.
func (s *Service) Lists(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailList, int, error) {
	var total int
	out, err := oplog.Get(ctx, "emailcampaign.Lists", oplog.Fields("project_id", projectID),
		func(ctx context.Context) ([]domain.EmailList, error) {
			var err error
			var ls []domain.EmailList
			ls, total, err = s.lists.List(ctx, projectID, f)
			return ls, err
		})
	return out, total, err
}

// TransitionList moves a list to a new status per the list table. Archiving
// is final; the table rejects any edge out of archived.
func (s *Service) TransitionList(ctx context.Context, projectID, id string, to domain.EmailListStatus) (*domain.EmailList, error) {
	return oplog.Get(ctx, "emailcampaign.TransitionList",
		oplog.Fields("project_id", projectID, "list_id", id, "to", string(to)),
		func(ctx context.Context) (*domain.EmailList, error) {
			l, err := s.lists.Get(ctx, projectID, id)
			if err != nil {
				return nil, err
			}

			next, err := domain.EmailListTransitions.Transition(l.Status, to)
			if err != nil {
				return nil, err
			}

			if err := s.lists.UpdateStatus(ctx, projectID, id, next); err != nil {
				return nil, fmt.Errorf("persist status: %w", err)
			}
			if err := s.lists.AppendStatusHistory(ctx, &domain.StatusHistoryEntry{
				ID:         uuid.New().String(),
				EntityType: "email_list",
				EntityID:   id,
				FromStatus: string(l.Status),
				ToStatus:   string(next),
				CreatedAt:  time.Now().UTC(),
			}); err != nil {
				return nil, fmt.Errorf("append status history: %w", err)
			}
			l.Status = next
			return l, nil
		})
}

// DraftsFromFeed fetches an RSS/Atom feed and creates one draft campaign
// per item against the given list.
func (s *Service) DraftsFromFeed(ctx context.Context, projectID, feedURL string, def mailing.DraftDefaults) ([]domain.EmailCampaign, error) {
	return oplog.Get(ctx, "emailcampaign.DraftsFromFeed",
		oplog.Fields("project_id", projectID, "feed_url", feedURL, "list_id", def.ListID),
		func(ctx context.Context) ([]domain.EmailCampaign, error) {
			if s.feeds == nil {
				return nil, fmt.Errorf("feed drafts are not configured")
			}

			list, err := s.lists.Get(ctx, projectID, def.ListID)
			if err != nil {
				return nil, fmt.Errorf("resolving list: %w", err)
			}
			if !list.Status.CanReceiveCampaigns() {
				return nil, fmt.Errorf("list %s is %s and cannot receive campaigns", list.ID, list.Status)
			}

			items, err := s.feeds.Fetch(ctx, feedURL)
			if err != nil {
				return nil, err
			}

			def.ProjectID = projectID
			drafts := make([]domain.EmailCampaign, 0, len(items))
			for _, item := range items {
				draft, err := s.feeds.BuildDraft(item, def)
				if err != nil {
					logger.Warn("feed draft build failed", "guid", item.GUID, "error", err.Error())
					continue
				}
				draft.ID = uuid.New().String()
				id, err := s.campaigns.Create(ctx, draft)
				if err != nil {
					return nil, err
				}
				draft.ID = id
				drafts = append(drafts, *draft)
			}
			return drafts, nil
		})
}

// invalidateAnalytics drops the cached unfiltered analytics for a project.
func (s *Service) invalidateAnalytics(ctx context.Context, projectID string) {
	for _, prefix := range []string{"email_overview", "email_performance"} {
		key := cache.Fingerprint(prefix, stats.Filters{stats.FilterProjectID: projectID})
		if err := s.cache.Invalidate(ctx, key); err != nil {
			logger.Warn("email analytics invalidation failed", "key", key, "error", err.Error())
		}
	}
}
