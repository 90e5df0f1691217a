package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// AdCampaignRepo implements adcampaign.Repository against PostgreSQL.
type AdCampaignRepo struct{ db *sql.DB }

// NewAdCampaignRepo creates a Postgres-backed ad campaign repository.
func NewAdCampaignRepo(db *sql.DB) *AdCampaignRepo { return &AdCampaignRepo{db: db} }

const adCampaignColumns = `id, project_id, COALESCE(user_id,''), COALESCE(account_id,''),
	       name, platform, status, budget, spent, impressions, clicks, conversions,
	       started_at, completed_at, created_at, updated_at`

func scanAdCampaign(row interface{ Scan(...interface{}) error }) (*domain.AdCampaign, error) {
	c := &domain.AdCampaign{}
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.UserID, &c.AccountID,
		&c.Name, &c.Platform, &c.Status, &c.Budget, &c.Spent,
		&c.Impressions, &c.Clicks, &c.Conversions,
		&c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *AdCampaignRepo) Get(ctx context.Context, projectID, id string) (*domain.AdCampaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+adCampaignColumns+`
		FROM ad_campaigns
		WHERE id = $1 AND project_id = $2
	`, id, projectID)
	c, err := scanAdCampaign(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ad campaign: %w", err)
	}
	return c, nil
}

func (r *AdCampaignRepo) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.AdCampaign, int, error) {
	w := newWhere(projectID)
	w.eq("status", f.Get(stats.FilterStatus))
	w.eq("platform", f.Get(stats.FilterPlatform))
	w.eq("account_id", f.Get(stats.FilterAccountID))
	w.eq("user_id", f.Get(stats.FilterUserID))
	w.search(f, "name")
	w.dateRange("created_at", f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ad_campaigns WHERE "+w.conds, w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ad campaigns: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT `+adCampaignColumns+`
		FROM ad_campaigns
		WHERE %s
		ORDER BY created_at DESC LIMIT $%d`, w.conds, w.idx)
	args := append(w.args, pageSize(f))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ad campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.AdCampaign
	for rows.Next() {
		c, err := scanAdCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ad campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *AdCampaignRepo) Create(ctx context.Context, c *domain.AdCampaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ad_campaigns
			(id, project_id, user_id, account_id, name, platform, status,
			 budget, spent, impressions, clicks, conversions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`, c.ID, c.ProjectID, c.UserID, c.AccountID, c.Name, c.Platform, c.Status,
		c.Budget, c.Spent, c.Impressions, c.Clicks, c.Conversions)
	if err != nil {
		return "", fmt.Errorf("create ad campaign: %w", err)
	}
	return c.ID, nil
}

func (r *AdCampaignRepo) Update(ctx context.Context, projectID, id string, u adcampaign.UpdateFields) error {
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
	if u.Platform != nil {
		add("platform", *u.Platform)
	}
	if u.Budget != nil {
		add("budget", *u.Budget)
	}
	if u.Spent != nil {
		add("spent", *u.Spent)
	}
	if u.Impressions != nil {
		add("impressions", *u.Impressions)
	}
	if u.Clicks != nil {
		add("clicks", *u.Clicks)
	}
	if u.Conversions != nil {
		add("conversions", *u.Conversions)
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	q := fmt.Sprintf("UPDATE ad_campaigns SET %s WHERE id = $%d AND project_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, projectID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update ad campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AdCampaignRepo) UpdateStatus(ctx context.Context, projectID, id string, status domain.AdCampaignStatus) error {
	q := `UPDATE ad_campaigns SET status = $1, updated_at = NOW()`
	switch status {
	case domain.AdCampaignActive:
		q += `, started_at = COALESCE(started_at, NOW())`
	case domain.AdCampaignCompleted:
		q += `, completed_at = NOW()`
	}
	q += ` WHERE id = $2 AND project_id = $3`

	res, err := r.db.ExecContext(ctx, q, status, id, projectID)
	if err != nil {
		return fmt.Errorf("update ad campaign status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AdCampaignRepo) AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error {
	return appendStatusHistory(ctx, r.db, e)
}
