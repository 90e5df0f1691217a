package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// EmailCampaignRepo implements emailcampaign.CampaignRepository against
// PostgreSQL.
type EmailCampaignRepo struct{ db *sql.DB }

// NewEmailCampaignRepo creates a Postgres-backed email campaign repository.
func NewEmailCampaignRepo(db *sql.DB) *EmailCampaignRepo { return &EmailCampaignRepo{db: db} }

const emailCampaignColumns = `id, project_id, list_id, name, subject,
	       COALESCE(content,''), COALESCE(from_name,''), COALESCE(from_email,''),
	       COALESCE(reply_to,''), status,
	       total_recipients, sent, delivered, opened, clicked, bounced, unsubscribed,
	       scheduled_at, sent_at, created_at, updated_at`

func scanEmailCampaign(row interface{ Scan(...interface{}) error }) (*domain.EmailCampaign, error) {
	c := &domain.EmailCampaign{}
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.ListID, &c.Name, &c.Subject,
		&c.Content, &c.FromName, &c.FromEmail, &c.ReplyTo, &c.Status,
		&c.Metrics.TotalRecipients, &c.Metrics.Sent, &c.Metrics.Delivered,
		&c.Metrics.Opened, &c.Metrics.Clicked, &c.Metrics.Bounced, &c.Metrics.Unsubscribed,
		&c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *EmailCampaignRepo) Get(ctx context.Context, projectID, id string) (*domain.EmailCampaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+emailCampaignColumns+`
		FROM email_campaigns
		WHERE id = $1 AND project_id = $2
	`, id, projectID)
	c, err := scanEmailCampaign(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email campaign: %w", err)
	}
	return c, nil
}

func (r *EmailCampaignRepo) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailCampaign, int, error) {
	w := newWhere(projectID)
	w.eq("status", f.Get(stats.FilterStatus))
	w.search(f, "name", "subject")
	w.dateRange("created_at", f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM email_campaigns WHERE "+w.conds, w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count email campaigns: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT `+emailCampaignColumns+`
		FROM email_campaigns
		WHERE %s
		ORDER BY created_at DESC LIMIT $%d`, w.conds, w.idx)
	args := append(w.args, pageSize(f))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list email campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailCampaign
	for rows.Next() {
		c, err := scanEmailCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan email campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *EmailCampaignRepo) Create(ctx context.Context, c *domain.EmailCampaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_campaigns
			(id, project_id, list_id, name, subject, content, from_name, from_email,
			 reply_to, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, c.ID, c.ProjectID, c.ListID, c.Name, c.Subject, c.Content,
		c.FromName, c.FromEmail, c.ReplyTo, c.Status)
	if err != nil {
		return "", fmt.Errorf("create email campaign: %w", err)
	}
	return c.ID, nil
}

func (r *EmailCampaignRepo) Update(ctx context.Context, projectID, id string, u emailcampaign.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Subject != nil {
		add("subject", *u.Subject)
	}
	if u.Content != nil {
		add("content", *u.Content)
	}
	if u.FromName != nil {
		add("from_name", *u.FromName)
	}
	if u.FromEmail != nil {
		add("from_email", *u.FromEmail)
	}
	if u.ReplyTo != nil {
		add("reply_to", *u.ReplyTo)
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	q := fmt.Sprintf("UPDATE email_campaigns SET %s WHERE id = $%d AND project_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, projectID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update email campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) UpdateStatus(ctx context.Context, projectID, id string, status domain.EmailCampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, status, id, projectID)
	if err != nil {
		return fmt.Errorf("update email campaign status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) UpdateSchedule(ctx context.Context, projectID, id string, at *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET scheduled_at = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, at, id, projectID)
	if err != nil {
		return fmt.Errorf("update email campaign schedule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) UpdateMetrics(ctx context.Context, projectID, id string, m domain.EmailMetrics) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET
			total_recipients = $1, sent = $2, delivered = $3, opened = $4,
			clicked = $5, bounced = $6, unsubscribed = $7, updated_at = NOW()
		WHERE id = $8 AND project_id = $9
	`, m.TotalRecipients, m.Sent, m.Delivered, m.Opened,
		m.Clicked, m.Bounced, m.Unsubscribed, id, projectID)
	if err != nil {
		return fmt.Errorf("update email campaign metrics: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) SetSentAt(ctx context.Context, projectID, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET sent_at = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, at, id, projectID)
	if err != nil {
		return fmt.Errorf("stamp sent_at: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) Delete(ctx context.Context, projectID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM email_campaigns
		WHERE id = $1 AND project_id = $2 AND status IN ('draft','cancelled')
	`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete email campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailCampaignRepo) AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error {
	return appendStatusHistory(ctx, r.db, e)
}

// EmailListRepo implements emailcampaign.ListRepository against PostgreSQL.
type EmailListRepo struct{ db *sql.DB }

// NewEmailListRepo creates a Postgres-backed mailing list repository.
func NewEmailListRepo(db *sql.DB) *EmailListRepo { return &EmailListRepo{db: db} }

const emailListColumns = `id, project_id, name, COALESCE(description,''), status, subscriber_count,
	       total_recipients, sent, delivered, opened, clicked, bounced, unsubscribed,
	       created_at, updated_at`

func scanEmailList(row interface{ Scan(...interface{}) error }) (*domain.EmailList, error) {
	l := &domain.EmailList{}
	err := row.Scan(
		&l.ID, &l.ProjectID, &l.Name, &l.Description, &l.Status, &l.SubscriberCount,
		&l.Metrics.TotalRecipients, &l.Metrics.Sent, &l.Metrics.Delivered,
		&l.Metrics.Opened, &l.Metrics.Clicked, &l.Metrics.Bounced, &l.Metrics.Unsubscribed,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *EmailListRepo) Get(ctx context.Context, projectID, id string) (*domain.EmailList, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+emailListColumns+`
		FROM email_lists
		WHERE id = $1 AND project_id = $2
	`, id, projectID)
	l, err := scanEmailList(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email list: %w", err)
	}
	return l, nil
}

func (r *EmailListRepo) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.EmailList, int, error) {
	w := newWhere(projectID)
	w.eq("status", f.Get(stats.FilterStatus))
	w.search(f, "name")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM email_lists WHERE "+w.conds, w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count email lists: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT `+emailListColumns+`
		FROM email_lists
		WHERE %s
		ORDER BY created_at DESC LIMIT $%d`, w.conds, w.idx)
	args := append(w.args, pageSize(f))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list email lists: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailList
	for rows.Next() {
		l, err := scanEmailList(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan email list: %w", err)
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *EmailListRepo) Create(ctx context.Context, l *domain.EmailList) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_lists
			(id, project_id, name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, l.ID, l.ProjectID, l.Name, l.Description, l.Status)
	if err != nil {
		return "", fmt.Errorf("create email list: %w", err)
	}
	return l.ID, nil
}

func (r *EmailListRepo) UpdateStatus(ctx context.Context, projectID, id string, status domain.EmailListStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_lists SET status = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, status, id, projectID)
	if err != nil {
		return fmt.Errorf("update email list status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailListRepo) UpdateMetrics(ctx context.Context, projectID, id string, m domain.EmailMetrics) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_lists SET
			total_recipients = $1, sent = $2, delivered = $3, opened = $4,
			clicked = $5, bounced = $6, unsubscribed = $7, updated_at = NOW()
		WHERE id = $8 AND project_id = $9
	`, m.TotalRecipients, m.Sent, m.Delivered, m.Opened,
		m.Clicked, m.Bounced, m.Unsubscribed, id, projectID)
	if err != nil {
		return fmt.Errorf("update email list metrics: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EmailListRepo) Subscribers(ctx context.Context, projectID, listID string) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.list_id, s.email, COALESCE(s.first_name,''), COALESCE(s.last_name,''), s.subscribed_at
		FROM email_subscribers s
		JOIN email_lists l ON l.id = s.list_id
		WHERE s.list_id = $1 AND l.project_id = $2
		ORDER BY s.subscribed_at
	`, listID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ID, &s.ListID, &s.Email, &s.FirstName, &s.LastName, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *EmailListRepo) AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error {
	return appendStatusHistory(ctx, r.db, e)
}
