package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

func fptr(v float64) *float64 { return &v }

func TestPostgresRepository_ReplaceFiscalYear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	ctx := context.Background()

	records := project.NewTestDataGeneratorWithSeed(7).Records("FY2025-26", 4)
	summaries := project.BuildSummaries("FY2025-26", records)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE commissioning_projects`).
		WithArgs("FY2025-26").
		WillReturnResult(pgxmock.NewResult("UPDATE", 10))
	mock.ExpectExec(`UPDATE commissioning_summaries`).
		WithArgs("FY2025-26").
		WillReturnResult(pgxmock.NewResult("UPDATE", 12))
	mock.ExpectCopyFrom(pgx.Identifier{"commissioning_projects"}, projectCopyColumns).
		WillReturnResult(4)
	mock.ExpectCopyFrom(pgx.Identifier{"commissioning_summaries"}, summaryCopyColumns).
		WillReturnResult(int64(len(summaries)))
	mock.ExpectCommit()

	n, err := repo.ReplaceFiscalYear(ctx, "FY2025-26", records, summaries)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ReplaceFiscalYear_RollsBackOnCopyFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	records := project.NewTestDataGeneratorWithSeed(3).Records("FY2025-26", 2)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE commissioning_projects`).
		WithArgs("FY2025-26").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE commissioning_summaries`).
		WithArgs("FY2025-26").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"commissioning_projects"}, projectCopyColumns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = repo.ReplaceFiscalYear(context.Background(), "FY2025-26", records, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert projects")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListProjects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()

	row := []any{
		id, "FY2025-26", "1", "Khavda Phase 1", "AGE23L", "Solar", "PSS-1",
		float64(250), "Plan", "Khavda Solar", "A", true,
	}
	months := []any{fptr(100), nil, nil, nil, nil, nil, fptr(50), nil, nil, nil, nil, nil}
	row = append(row, months...)
	row = append(row, float64(250), float64(150), float64(100), float64(0), float64(50), float64(0), "Summary Linked", 7)

	mock.ExpectQuery(`FROM commissioning_projects WHERE .* ORDER BY category, CASE WHEN sno ~ .*::numeric END NULLS LAST, sno, project_name, status`).
		WithArgs("FY2025-26", "Plan").
		WillReturnRows(pgxmock.NewRows(projectColumns).AddRow(row...))

	recs, err := repo.ListProjects(context.Background(), ProjectFilter{FiscalYear: "FY2025-26", Status: project.StatusPlan})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, project.StatusPlan, r.Status)
	assert.True(t, r.IncludedInTotals)
	assert.Equal(t, 2, r.Months.Present())
	v, ok := r.Months.Get(project.Oct)
	assert.True(t, ok)
	assert.Equal(t, 50.0, v)
	_, ok = r.Months.Get(project.May)
	assert.False(t, ok, "NULL month stays absent")
	assert.Equal(t, 7, r.SourceRow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteProject(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"not found", 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewPostgresRepository(mock)
			id := uuid.New()

			mock.ExpectExec(`UPDATE commissioning_projects`).
				WithArgs(id).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err = repo.DeleteProject(context.Background(), id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_ListFiscalYears(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT DISTINCT fiscal_year`).
		WillReturnRows(pgxmock.NewRows([]string{"fiscal_year"}).
			AddRow("FY2024-25").
			AddRow("FY2025-26"))

	years, err := repo.ListFiscalYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"FY2024-25", "FY2025-26"}, years)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ReplaceSummaries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	summaries := []project.Summary{{FiscalYear: "FY2025-26", Scope: project.ScopeDomain, Key: "Solar", Status: project.StatusPlan}}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE commissioning_summaries`).
		WithArgs("FY2025-26").
		WillReturnResult(pgxmock.NewResult("UPDATE", 9))
	mock.ExpectCopyFrom(pgx.Identifier{"commissioning_summaries"}, summaryCopyColumns).
		WillReturnResult(1)
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceSummaries(context.Background(), "FY2025-26", summaries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhereProjects(t *testing.T) {
	where, args := whereProjects(ProjectFilter{FiscalYear: "FY2025-26", Category: "Khavda Wind"}, pgPlaceholder)
	assert.Equal(t, "is_active AND fiscal_year = $1 AND category = $2", where)
	assert.Equal(t, []any{"FY2025-26", "Khavda Wind"}, args)

	where, args = whereProjects(ProjectFilter{}, sqlitePlaceholder)
	assert.Equal(t, "is_active", where)
	assert.Empty(t, args)
}
