package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

// Pool is the part of pgxpool.Pool the repository needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	projectsTable  = pgx.Identifier{"commissioning_projects"}
	summariesTable = pgx.Identifier{"commissioning_summaries"}

	summaryCopyColumns = func() []string {
		out := make([]string, len(summaryColumns))
		for i, c := range summaryColumns {
			out[i] = strings.Trim(c, `"`)
		}
		return out
	}()
)

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// PostgresRepository implements Repository with PostgreSQL.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository creates a new repository instance.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ReplaceFiscalYear swaps the active record set of a fiscal year atomically.
func (r *PostgresRepository) ReplaceFiscalYear(ctx context.Context, fiscalYear string, records []project.Record, summaries []project.Summary) (n int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		UPDATE commissioning_projects
		SET is_active = false, deleted_at = now()
		WHERE fiscal_year = $1 AND is_active`, fiscalYear); err != nil {
		return 0, fmt.Errorf("failed to deactivate projects: %w", err)
	}
	if err = deactivateSummaries(ctx, tx, fiscalYear); err != nil {
		return 0, err
	}

	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = projectValues(&records[i])
	}
	copied, err := tx.CopyFrom(ctx, projectsTable, projectCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to insert projects: %w", err)
	}
	if err = copySummaries(ctx, tx, summaries); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(copied), nil
}

func deactivateSummaries(ctx context.Context, tx pgx.Tx, fiscalYear string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE commissioning_summaries
		SET is_active = false
		WHERE fiscal_year = $1 AND is_active`, fiscalYear); err != nil {
		return fmt.Errorf("failed to deactivate summaries: %w", err)
	}
	return nil
}

func copySummaries(ctx context.Context, tx pgx.Tx, summaries []project.Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	rows := make([][]any, len(summaries))
	for i := range summaries {
		rows[i] = summaryValues(&summaries[i])
	}
	if _, err := tx.CopyFrom(ctx, summariesTable, summaryCopyColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert summaries: %w", err)
	}
	return nil
}

// ListProjects returns active projects matching the filter.
func (r *PostgresRepository) ListProjects(ctx context.Context, filter ProjectFilter) ([]project.Record, error) {
	where, args := whereProjects(filter, pgPlaceholder)
	query := fmt.Sprintf(`
		SELECT %s
		FROM commissioning_projects
		WHERE %s
		ORDER BY category,
			CASE WHEN sno ~ '^[0-9]+$' THEN sno::numeric END NULLS LAST,
			sno, project_name, status`,
		strings.Join(projectColumns, ", "), where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	records := make([]project.Record, 0)
	for rows.Next() {
		rec, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListSummaries returns the active summaries of a fiscal year.
func (r *PostgresRepository) ListSummaries(ctx context.Context, fiscalYear string) ([]project.Summary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM commissioning_summaries
		WHERE fiscal_year = $1 AND is_active
		ORDER BY id`, strings.Join(summaryColumns, ", "))

	rows, err := r.pool.Query(ctx, query, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]project.Summary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ReplaceSummaries swaps the stored summaries of a fiscal year.
func (r *PostgresRepository) ReplaceSummaries(ctx context.Context, fiscalYear string, summaries []project.Summary) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = deactivateSummaries(ctx, tx, fiscalYear); err != nil {
		return err
	}
	if err = copySummaries(ctx, tx, summaries); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteProject soft-deletes an active project.
func (r *PostgresRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE commissioning_projects
		SET is_active = false, deleted_at = now()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFiscalYears returns the fiscal years with active projects.
func (r *PostgresRepository) ListFiscalYears(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT fiscal_year
		FROM commissioning_projects
		WHERE is_active
		ORDER BY fiscal_year`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal years: %w", err)
	}
	defer rows.Close()

	years := make([]string, 0)
	for rows.Next() {
		var fy string
		if err := rows.Scan(&fy); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal year: %w", err)
		}
		years = append(years, fy)
	}
	return years, rows.Err()
}
