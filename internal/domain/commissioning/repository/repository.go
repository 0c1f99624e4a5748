// Package repository persists commissioning projects and their summaries,
// one active record set per fiscal year.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

var ErrNotFound = errors.New("project not found")

// ProjectFilter narrows ListProjects. Empty fields match everything.
type ProjectFilter struct {
	FiscalYear string
	Status     project.Status
	Category   string
}

// Repository is the persistence collaborator of the import pipeline.
type Repository interface {
	// ReplaceFiscalYear soft-deletes the active projects and summaries of the
	// fiscal year and stores the new set in one transaction. It returns the
	// number of projects inserted.
	ReplaceFiscalYear(ctx context.Context, fiscalYear string, records []project.Record, summaries []project.Summary) (int, error)

	// ListProjects returns active projects ordered by category then sequence number.
	ListProjects(ctx context.Context, filter ProjectFilter) ([]project.Record, error)

	ListSummaries(ctx context.Context, fiscalYear string) ([]project.Summary, error)

	// ReplaceSummaries swaps the stored summaries of a fiscal year.
	ReplaceSummaries(ctx context.Context, fiscalYear string, summaries []project.Summary) error

	// DeleteProject soft-deletes one project.
	DeleteProject(ctx context.Context, id uuid.UUID) error

	// ListFiscalYears returns the fiscal years with active projects, sorted.
	ListFiscalYears(ctx context.Context) ([]string, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*SQLiteRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)

var monthColumns = func() []string {
	out := make([]string, project.MonthCount)
	for _, m := range project.FiscalMonths {
		out[m] = quoteIdent(m.Key())
	}
	return out
}()

// "dec" is a keyword in Postgres.
func quoteIdent(s string) string {
	return `"` + s + `"`
}

var projectColumns = append(append([]string{
	"id", "fiscal_year", "sno", "project_name", "spv", "project_type", "plot_location",
	"capacity", "status", "category", "section", "included_in_totals",
}, monthColumns...),
	"total_capacity", "cumulative", "q1", "q2", "q3", "q4", "source_sheet", "source_row",
)

var summaryColumns = append(append([]string{
	"fiscal_year", "scope", "key", "status",
}, monthColumns...),
	"total_capacity", "cumulative", "q1", "q2", "q3", "q4", "project_count",
)

// projectCopyColumns are the unquoted names CopyFrom expects.
var projectCopyColumns = func() []string {
	out := make([]string, len(projectColumns))
	for i, c := range projectColumns {
		out[i] = strings.Trim(c, `"`)
	}
	return out
}()

func nullableMonths(ms project.Months) []any {
	out := make([]any, project.MonthCount)
	for _, m := range project.FiscalMonths {
		if v, ok := ms.Get(m); ok {
			out[m] = v
		}
	}
	return out
}

func monthsFromNullable(vals [project.MonthCount]*float64) project.Months {
	ms := make(project.Months)
	for i, v := range vals {
		if v != nil {
			ms[project.Month(i)] = *v
		}
	}
	return ms
}

// projectValues flattens a record in projectColumns order.
func projectValues(r *project.Record) []any {
	vals := []any{
		r.ID, r.FiscalYear, r.SequenceNumber, r.ProjectName, r.SPV, r.ProjectType, r.PlotLocation,
		r.Capacity, string(r.Status), r.Category, r.SectionCode, r.IncludedInTotals,
	}
	vals = append(vals, nullableMonths(r.Months)...)
	return append(vals,
		r.TotalCapacity, r.CumulativeToReferenceMonth, r.Q1, r.Q2, r.Q3, r.Q4, r.SourceSheet, r.SourceRow)
}

func summaryValues(s *project.Summary) []any {
	vals := []any{s.FiscalYear, string(s.Scope), s.Key, string(s.Status)}
	for _, m := range project.FiscalMonths {
		vals = append(vals, s.Months.Value(m))
	}
	return append(vals, s.TotalCapacity, s.CumulativeToReferenceMonth, s.Q1, s.Q2, s.Q3, s.Q4, s.ProjectCount)
}

// scanner is satisfied by pgx.Rows and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (project.Record, error) {
	var r project.Record
	var status string
	var months [project.MonthCount]*float64
	dest := []any{
		&r.ID, &r.FiscalYear, &r.SequenceNumber, &r.ProjectName, &r.SPV, &r.ProjectType, &r.PlotLocation,
		&r.Capacity, &status, &r.Category, &r.SectionCode, &r.IncludedInTotals,
	}
	for i := range months {
		dest = append(dest, &months[i])
	}
	dest = append(dest,
		&r.TotalCapacity, &r.CumulativeToReferenceMonth, &r.Q1, &r.Q2, &r.Q3, &r.Q4, &r.SourceSheet, &r.SourceRow)
	if err := row.Scan(dest...); err != nil {
		return project.Record{}, err
	}
	r.Status = project.Status(status)
	r.Months = monthsFromNullable(months)
	return r, nil
}

func scanSummary(row scanner) (project.Summary, error) {
	var s project.Summary
	var scope, status string
	var months [project.MonthCount]float64
	dest := []any{&s.FiscalYear, &scope, &s.Key, &status}
	for i := range months {
		dest = append(dest, &months[i])
	}
	dest = append(dest, &s.TotalCapacity, &s.CumulativeToReferenceMonth, &s.Q1, &s.Q2, &s.Q3, &s.Q4, &s.ProjectCount)
	if err := row.Scan(dest...); err != nil {
		return project.Summary{}, err
	}
	s.Scope = project.Scope(scope)
	s.Status = project.Status(status)
	s.Months = make(project.Months, project.MonthCount)
	for i, v := range months {
		s.Months[project.Month(i)] = v
	}
	return s, nil
}

// placeholder renders a bind parameter for the driver.
type placeholder func(n int) string

// whereProjects builds the active-project filter clause and its arguments.
func whereProjects(f ProjectFilter, ph placeholder) (string, []any) {
	clauses := []string{"is_active"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		clauses = append(clauses, col+" = "+ph(len(args)))
	}
	if f.FiscalYear != "" {
		add("fiscal_year", f.FiscalYear)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if f.Category != "" {
		add("category", f.Category)
	}
	return strings.Join(clauses, " AND "), args
}

func placeholders(n, start int, ph placeholder) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = ph(start + i)
	}
	return strings.Join(parts, ", ")
}
