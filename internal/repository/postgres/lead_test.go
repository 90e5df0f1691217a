package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/stats"
)

func leadRows(t *testing.T, leads ...domain.Lead) *sqlmock.Rows {
	t.Helper()
	rows := sqlmock.NewRows([]string{
		"id", "project_id", "name", "email", "phone",
		"company", "source", "status", "score",
		"segment_ids", "tags", "converted_at", "created_at", "updated_at",
	})
	for _, l := range leads {
		rows.AddRow(
			l.ID, l.ProjectID, l.Name, l.Email, l.Phone,
			l.Company, l.Source, string(l.Status), l.Score,
			"{}", "{}",
			l.ConvertedAt, l.CreatedAt, l.UpdatedAt,
		)
	}
	return rows
}

func TestLeadRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM leads").
		WithArgs("lead-1", "proj-1").
		WillReturnRows(leadRows(t, domain.Lead{
			ID: "lead-1", ProjectID: "proj-1", Name: "Ada", Email: "ada@example.com",
			Source: "webinar", Status: domain.LeadQualified, Score: 60,
			CreatedAt: now, UpdatedAt: now,
		}))

	repo := NewLeadRepo(db)
	l, err := repo.Get(context.Background(), "proj-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", l.Name)
	assert.Equal(t, domain.LeadQualified, l.Status)
	assert.Equal(t, 60, l.Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM leads").
		WithArgs("missing", "proj-1").
		WillReturnRows(leadRows(t))

	repo := NewLeadRepo(db)
	_, err = repo.Get(context.Background(), "proj-1", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeadRepoListAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads`).
		WithArgs("proj-1", "qualified", "webinar").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM leads").
		WithArgs("proj-1", "qualified", "webinar", 50).
		WillReturnRows(leadRows(t, domain.Lead{
			ID: "lead-1", ProjectID: "proj-1", Name: "Ada",
			Source: "webinar", Status: domain.LeadQualified,
		}))

	repo := NewLeadRepo(db)
	leads, total, err := repo.List(context.Background(), "proj-1", stats.Filters{
		stats.FilterStatus: "qualified",
		stats.FilterSource: "webinar",
		"unknown_key":      "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead-1", leads[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepoUpdateScoreNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE leads SET score").
		WithArgs(80, "missing", "proj-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLeadRepo(db)
	err = repo.UpdateScore(context.Background(), "proj-1", "missing", 80)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeadRepoAppendScoreChange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO lead_score_changes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewLeadRepo(db)
	err = repo.AppendScoreChange(context.Background(), &domain.ScoreChange{
		ID: "chg-1", LeadID: "lead-1", Delta: 10, OldScore: 40, NewScore: 50,
		Reason: "demo attended", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
