package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
)

// seededProjectService imports trackerCSV into a fresh memory repository.
func seededProjectService(t *testing.T) (*ProjectService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	_, err := newTestImportService(repo).Import(context.Background(), ImportRequest{
		FiscalYear: fy,
		FileName:   "tracker.csv",
		Data:       []byte(trackerCSV),
	})
	require.NoError(t, err)
	return NewProjectService(repo, testLogger()), repo
}

func TestProjectService_Projects(t *testing.T) {
	svc, _ := seededProjectService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query ProjectQuery
		want  []string
	}{
		{"all", ProjectQuery{FiscalYear: fy}, []string{"Khavda Phase 1", "Khavda Phase 1", "Khavda Wind W1"}},
		{"status", ProjectQuery{FiscalYear: fy, Status: project.StatusActual}, []string{"Khavda Phase 1"}},
		{"category", ProjectQuery{FiscalYear: fy, Category: "Khavda Wind"}, []string{"Khavda Wind W1"}},
		{"fuzzy search", ProjectQuery{FiscalYear: fy, Search: "wnd w1"}, []string{"Khavda Wind W1"}},
		{"search by spv", ProjectQuery{FiscalYear: fy, Search: "age23", Status: project.StatusPlan}, []string{"Khavda Phase 1"}},
		{"no match", ProjectQuery{FiscalYear: fy, Search: "zzz"}, []string{}},
		{"other year", ProjectQuery{FiscalYear: "FY_20-21"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := svc.Projects(ctx, tt.query)
			require.NoError(t, err)
			names := make([]string, 0, len(recs))
			for _, r := range recs {
				names = append(names, r.ProjectName)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	_, err := svc.Projects(ctx, ProjectQuery{})
	assert.ErrorIs(t, err, ErrFiscalYearRequired)
}

func TestProjectService_Summary(t *testing.T) {
	svc, _ := seededProjectService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		domain project.Domain
		status project.Status
		total  float64
		count  int
	}{
		{"solar plan", project.DomainSolar, project.StatusPlan, 1000, 1},
		{"wind plan", project.DomainWind, project.StatusPlan, 300, 1},
		{"overall plan", project.DomainOverall, project.StatusPlan, 1300, 2},
		{"overall actual", project.DomainOverall, project.StatusActual, 1200, 1},
		{"overall all statuses", project.DomainOverall, "", 2500, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := svc.Summary(ctx, fy, tt.domain, tt.status)
			require.NoError(t, err)
			assert.Equal(t, fy, sum.FiscalYear)
			assert.Equal(t, tt.total, sum.TotalCapacity)
			assert.Equal(t, tt.count, sum.ProjectCount)
		})
	}
}

func TestProjectService_Dashboard(t *testing.T) {
	svc, _ := seededProjectService(t)

	d, err := svc.Dashboard(context.Background(), fy)
	require.NoError(t, err)
	assert.Equal(t, &Dashboard{FiscalYear: fy, TotalProjects: 3, PlanCount: 2, ActualCount: 1}, d)
}

func TestProjectService_RecomputeSummaries(t *testing.T) {
	svc, repo := seededProjectService(t)
	ctx := context.Background()
	m := metrics.New()
	svc.WithMetrics(m)

	wind, err := svc.Projects(ctx, ProjectQuery{FiscalYear: fy, Category: "Khavda Wind"})
	require.NoError(t, err)
	require.Len(t, wind, 1)
	require.NoError(t, svc.DeleteProject(ctx, wind[0].ID))

	sums, err := svc.RecomputeSummaries(ctx, fy)
	require.NoError(t, err)

	stored, err := repo.ListSummaries(ctx, fy)
	require.NoError(t, err)
	assert.Equal(t, sums, stored)
	for _, s := range stored {
		if s.Scope == project.ScopeDomain && s.Key == string(project.DomainWind) {
			assert.Zero(t, s.TotalCapacity, "deleted project no longer counted")
		}
	}

	n, err := svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProjectService_DeleteMissing(t *testing.T) {
	svc, _ := seededProjectService(t)
	err := svc.DeleteProject(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectService_ExportCSV(t *testing.T) {
	svc, _ := seededProjectService(t)

	out, err := svc.ExportCSV(context.Background(), fy)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "fiscal_year,category,section,sno,project_name"))
	assert.Contains(t, lines[0], "total_capacity,cumulative,q1,q2,q3,q4")

	var windLine string
	for _, l := range lines[1:] {
		if strings.Contains(l, "Khavda Wind W1") {
			windLine = l
		}
	}
	require.NotEmpty(t, windLine)
	assert.Contains(t, windLine, "FY_25-26,Khavda Wind,A,2,Khavda Wind W1,AGE30,")
	assert.Contains(t, windLine, ",Plan,true,50,50,50,50,50,50,0,0,0,0,0,0,300,")
}

func TestProjectService_FiscalYears(t *testing.T) {
	svc, _ := seededProjectService(t)
	years, err := svc.FiscalYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{fy}, years)
}
