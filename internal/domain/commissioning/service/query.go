package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
)

// ProjectQuery filters stored projects. Search is a fuzzy match against
// name, SPV, category and location.
type ProjectQuery struct {
	FiscalYear string
	Status     project.Status
	Category   string
	Search     string
}

// Dashboard is the headline count of a fiscal year.
type Dashboard struct {
	FiscalYear    string `json:"fiscal_year"`
	TotalProjects int    `json:"total_projects"`
	PlanCount     int    `json:"plan_count"`
	RephaseCount  int    `json:"rephase_count"`
	ActualCount   int    `json:"actual_count"`
}

// ProjectService serves the stored projects and summaries.
type ProjectService struct {
	repo    repository.Repository
	metrics *metrics.Metrics // Optional
	logger  *slog.Logger
}

func NewProjectService(repo repository.Repository, logger *slog.Logger) *ProjectService {
	return &ProjectService{repo: repo, logger: logger}
}

func (s *ProjectService) WithMetrics(m *metrics.Metrics) *ProjectService {
	s.metrics = m
	return s
}

// Projects lists active projects. With a search term the matches come back
// best first; ties keep the stored order.
func (s *ProjectService) Projects(ctx context.Context, q ProjectQuery) ([]project.Record, error) {
	if strings.TrimSpace(q.FiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}
	records, err := s.repo.ListProjects(ctx, repository.ProjectFilter{
		FiscalYear: q.FiscalYear,
		Status:     q.Status,
		Category:   q.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	term := strings.TrimSpace(q.Search)
	if term == "" {
		return records, nil
	}

	haystack := make([]string, len(records))
	for i := range records {
		haystack[i] = searchText(&records[i])
	}
	ranks := fuzzy.RankFindNormalizedFold(term, haystack)
	sort.Stable(ranks)

	out := make([]project.Record, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, records[r.OriginalIndex])
	}
	return out, nil
}

func searchText(r *project.Record) string {
	return strings.Join([]string{r.ProjectName, r.SPV, r.Category, r.PlotLocation, r.SequenceNumber}, " ")
}

// DeleteProject soft-deletes one project.
func (s *ProjectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	s.logger.Info("project deleted", slog.String("project_id", id.String()))
	return nil
}

// Summary aggregates the stored projects of a fiscal year on the fly. An
// empty status sums every status.
func (s *ProjectService) Summary(ctx context.Context, fiscalYear string, domain project.Domain, status project.Status) (*project.Summary, error) {
	if strings.TrimSpace(fiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}
	records, err := s.repo.ListProjects(ctx, repository.ProjectFilter{FiscalYear: fiscalYear})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	sum := project.Aggregate(records, domain, status)
	sum.FiscalYear = fiscalYear
	return &sum, nil
}

// StoredSummaries returns the summaries persisted with the last import.
func (s *ProjectService) StoredSummaries(ctx context.Context, fiscalYear string) ([]project.Summary, error) {
	if strings.TrimSpace(fiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}
	sums, err := s.repo.ListSummaries(ctx, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return sums, nil
}

// RecomputeSummaries rebuilds the stored summaries of a fiscal year from
// its active projects.
func (s *ProjectService) RecomputeSummaries(ctx context.Context, fiscalYear string) (sums []project.Summary, err error) {
	if s.metrics != nil {
		defer func() { s.metrics.ObserveSummaryRun(err) }()
	}
	if strings.TrimSpace(fiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}

	records, err := s.repo.ListProjects(ctx, repository.ProjectFilter{FiscalYear: fiscalYear})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	sums = project.BuildSummaries(fiscalYear, records)
	if err := s.repo.ReplaceSummaries(ctx, fiscalYear, sums); err != nil {
		return nil, fmt.Errorf("failed to store summaries: %w", err)
	}

	s.logger.Debug("summaries recomputed",
		slog.String("fiscal_year", fiscalYear),
		slog.Int("projects", len(records)),
		slog.Int("summaries", len(sums)))
	return sums, nil
}

// RecomputeAll recomputes every fiscal year with active projects and
// returns how many succeeded. Failures are logged and skipped.
func (s *ProjectService) RecomputeAll(ctx context.Context) (int, error) {
	years, err := s.repo.ListFiscalYears(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list fiscal years: %w", err)
	}

	done := 0
	for _, fy := range years {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.RecomputeSummaries(ctx, fy); err != nil {
			s.logger.Warn("failed to recompute summaries",
				slog.String("fiscal_year", fy),
				slog.Any("error", err))
			continue
		}
		done++
	}
	return done, nil
}

// FiscalYears lists the fiscal years with active projects.
func (s *ProjectService) FiscalYears(ctx context.Context) ([]string, error) {
	years, err := s.repo.ListFiscalYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal years: %w", err)
	}
	return years, nil
}

// Dashboard counts the active projects of a fiscal year by status.
func (s *ProjectService) Dashboard(ctx context.Context, fiscalYear string) (*Dashboard, error) {
	if strings.TrimSpace(fiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}
	records, err := s.repo.ListProjects(ctx, repository.ProjectFilter{FiscalYear: fiscalYear})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	d := &Dashboard{FiscalYear: fiscalYear, TotalProjects: len(records)}
	for i := range records {
		switch records[i].Status {
		case project.StatusPlan:
			d.PlanCount++
		case project.StatusRephase:
			d.RephaseCount++
		case project.StatusActual:
			d.ActualCount++
		}
	}
	return d, nil
}

// exportRow is the CSV layout of one project. Months without data are
// left blank.
type exportRow struct {
	FiscalYear       string `csv:"fiscal_year"`
	Category         string `csv:"category"`
	Section          string `csv:"section"`
	SequenceNumber   string `csv:"sno"`
	ProjectName      string `csv:"project_name"`
	SPV              string `csv:"spv"`
	ProjectType      string `csv:"project_type"`
	PlotLocation     string `csv:"plot_location"`
	Capacity         string `csv:"capacity"`
	Status           string `csv:"status"`
	IncludedInTotals bool   `csv:"included_in_totals"`
	Apr              string `csv:"apr"`
	May              string `csv:"may"`
	Jun              string `csv:"jun"`
	Jul              string `csv:"jul"`
	Aug              string `csv:"aug"`
	Sep              string `csv:"sep"`
	Oct              string `csv:"oct"`
	Nov              string `csv:"nov"`
	Dec              string `csv:"dec"`
	Jan              string `csv:"jan"`
	Feb              string `csv:"feb"`
	Mar              string `csv:"mar"`
	TotalCapacity    string `csv:"total_capacity"`
	Cumulative       string `csv:"cumulative"`
	Q1               string `csv:"q1"`
	Q2               string `csv:"q2"`
	Q3               string `csv:"q3"`
	Q4               string `csv:"q4"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newExportRow(r *project.Record) exportRow {
	month := func(m project.Month) string {
		if v, ok := r.Months.Get(m); ok {
			return formatNumber(v)
		}
		return ""
	}
	return exportRow{
		FiscalYear:       r.FiscalYear,
		Category:         r.Category,
		Section:          r.SectionCode,
		SequenceNumber:   r.SequenceNumber,
		ProjectName:      r.ProjectName,
		SPV:              r.SPV,
		ProjectType:      r.ProjectType,
		PlotLocation:     r.PlotLocation,
		Capacity:         formatNumber(r.Capacity),
		Status:           string(r.Status),
		IncludedInTotals: r.IncludedInTotals,
		Apr:              month(project.Apr),
		May:              month(project.May),
		Jun:              month(project.Jun),
		Jul:              month(project.Jul),
		Aug:              month(project.Aug),
		Sep:              month(project.Sep),
		Oct:              month(project.Oct),
		Nov:              month(project.Nov),
		Dec:              month(project.Dec),
		Jan:              month(project.Jan),
		Feb:              month(project.Feb),
		Mar:              month(project.Mar),
		TotalCapacity:    formatNumber(r.TotalCapacity),
		Cumulative:       formatNumber(r.CumulativeToReferenceMonth),
		Q1:               formatNumber(r.Q1),
		Q2:               formatNumber(r.Q2),
		Q3:               formatNumber(r.Q3),
		Q4:               formatNumber(r.Q4),
	}
}

// ExportCSV renders the active projects of a fiscal year as CSV.
func (s *ProjectService) ExportCSV(ctx context.Context, fiscalYear string) ([]byte, error) {
	if strings.TrimSpace(fiscalYear) == "" {
		return nil, ErrFiscalYearRequired
	}
	records, err := s.repo.ListProjects(ctx, repository.ProjectFilter{FiscalYear: fiscalYear})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	rows := make([]exportRow, len(records))
	for i := range records {
		rows[i] = newExportRow(&records[i])
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return out, nil
}
