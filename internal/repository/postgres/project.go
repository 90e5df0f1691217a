package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ProjectRepo lists the tenants that currently hold data. The worker
// uses it to know which projects to keep warm.
type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// ActiveProjects returns the distinct project IDs seen across leads and
// campaigns.
func (r *ProjectRepo) ActiveProjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id FROM leads
		UNION
		SELECT project_id FROM ad_campaigns
		UNION
		SELECT project_id FROM email_campaigns
	`)
	if err != nil {
		return nil, fmt.Errorf("listing active projects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning project id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
