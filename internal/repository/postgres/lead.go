package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

// LeadRepo implements lead.Repository against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, project_id, name, COALESCE(email,''), COALESCE(phone,''),
	       COALESCE(company,''), COALESCE(source,''), status, score,
	       segment_ids, tags, converted_at, created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	err := row.Scan(
		&l.ID, &l.ProjectID, &l.Name, &l.Email, &l.Phone,
		&l.Company, &l.Source, &l.Status, &l.Score,
		pq.Array(&l.SegmentIDs), pq.Array(&l.Tags),
		&l.ConvertedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LeadRepo) Get(ctx context.Context, projectID, id string) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND project_id = $2
	`, id, projectID)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, projectID string, f stats.Filters) ([]domain.Lead, int, error) {
	w := newWhere(projectID)
	w.eq("status", f.Get(stats.FilterStatus))
	w.eq("source", f.Get(stats.FilterSource))
	w.search(f, "name", "email", "company")
	w.dateRange("created_at", f)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE "+w.conds, w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT `+leadColumns+`
		FROM leads
		WHERE %s
		ORDER BY created_at DESC LIMIT $%d`, w.conds, w.idx)
	args := append(w.args, pageSize(f))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads
			(id, project_id, name, email, phone, company, source, status, score,
			 segment_ids, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`, l.ID, l.ProjectID, l.Name, l.Email, l.Phone, l.Company, l.Source,
		l.Status, l.Score, pq.Array(l.SegmentIDs), pq.Array(l.Tags))
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return l.ID, nil
}

func (r *LeadRepo) UpdateStatus(ctx context.Context, projectID, id string, status domain.LeadStatus) error {
	q := `UPDATE leads SET status = $1, updated_at = NOW()`
	if status == domain.LeadConverted {
		q += `, converted_at = NOW()`
	}
	q += ` WHERE id = $2 AND project_id = $3`

	res, err := r.db.ExecContext(ctx, q, status, id, projectID)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) UpdateScore(ctx context.Context, projectID, id string, score int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET score = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, score, id, projectID)
	if err != nil {
		return fmt.Errorf("update lead score: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) AppendStatusHistory(ctx context.Context, e *domain.StatusHistoryEntry) error {
	return appendStatusHistory(ctx, r.db, e)
}

func (r *LeadRepo) AppendScoreChange(ctx context.Context, c *domain.ScoreChange) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_score_changes
			(id, lead_id, delta, old_score, new_score, clamped, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.LeadID, c.Delta, c.OldScore, c.NewScore, c.Clamped, c.Reason, c.ActorID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("append score change: %w", err)
	}
	return nil
}
