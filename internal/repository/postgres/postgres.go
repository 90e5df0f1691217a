// Package postgres implements the service repository interfaces against
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

const defaultPageSize = 50

// pageSize reads per_page from the filter, falling back to the default.
func pageSize(f stats.Filters) int {
	if v := f.Get(stats.FilterPerPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultPageSize
}

// whereClause builds "AND col = $n" fragments for the recognized filter
// keys, ignoring everything else.
type whereClause struct {
	conds string
	args  []interface{}
	idx   int
}

func newWhere(projectID string) *whereClause {
	return &whereClause{conds: "project_id = $1", args: []interface{}{projectID}, idx: 2}
}

func (w *whereClause) eq(col, val string) {
	if val == "" {
		return
	}
	w.conds += fmt.Sprintf(" AND %s = $%d", col, w.idx)
	w.args = append(w.args, val)
	w.idx++
}

func (w *whereClause) dateRange(col string, f stats.Filters) {
	if v := f.Get(stats.FilterDateFrom); v != "" {
		w.conds += fmt.Sprintf(" AND %s >= $%d", col, w.idx)
		w.args = append(w.args, v)
		w.idx++
	}
	if v := f.Get(stats.FilterDateTo); v != "" {
		w.conds += fmt.Sprintf(" AND %s <= $%d", col, w.idx)
		w.args = append(w.args, v)
		w.idx++
	}
}

func (w *whereClause) search(f stats.Filters, cols ...string) {
	v := f.Get(stats.FilterSearch)
	if v == "" || len(cols) == 0 {
		return
	}
	frag := ""
	for i, col := range cols {
		if i > 0 {
			frag += " OR "
		}
		frag += fmt.Sprintf("%s ILIKE $%d", col, w.idx)
	}
	w.conds += " AND (" + frag + ")"
	w.args = append(w.args, "%"+v+"%")
	w.idx++
}

func appendStatusHistory(ctx context.Context, db *sql.DB, e *domain.StatusHistoryEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO status_history
			(id, entity_type, entity_id, from_status, to_status, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.EntityType, e.EntityID, e.FromStatus, e.ToStatus, e.Reason, e.ActorID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
