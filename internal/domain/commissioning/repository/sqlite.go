package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

func sqlitePlaceholder(int) string { return "?" }

var (
	insertProjectSQLite = fmt.Sprintf(
		"INSERT INTO commissioning_projects (%s) VALUES (%s)",
		strings.Join(projectColumns, ", "),
		placeholders(len(projectColumns), 1, sqlitePlaceholder))

	insertSummarySQLite = fmt.Sprintf(
		"INSERT INTO commissioning_summaries (%s) VALUES (%s)",
		strings.Join(summaryColumns, ", "),
		placeholders(len(summaryColumns), 1, sqlitePlaceholder))
)

// SQLiteRepository implements Repository on a database/sql SQLite handle,
// for single-node deployments and the CLI.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceFiscalYear(ctx context.Context, fiscalYear string, records []project.Record, summaries []project.Summary) (n int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		UPDATE commissioning_projects
		SET is_active = 0, deleted_at = CURRENT_TIMESTAMP
		WHERE fiscal_year = ? AND is_active = 1`, fiscalYear); err != nil {
		return 0, fmt.Errorf("failed to deactivate projects: %w", err)
	}
	if err = r.swapSummaries(ctx, tx, fiscalYear, summaries); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, insertProjectSQLite)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare project insert: %w", err)
	}
	defer stmt.Close()
	for i := range records {
		if _, err = stmt.ExecContext(ctx, projectValues(&records[i])...); err != nil {
			return 0, fmt.Errorf("failed to insert project %q: %w", records[i].ProjectName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(records), nil
}

func (r *SQLiteRepository) swapSummaries(ctx context.Context, tx *sql.Tx, fiscalYear string, summaries []project.Summary) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE commissioning_summaries
		SET is_active = 0
		WHERE fiscal_year = ? AND is_active = 1`, fiscalYear); err != nil {
		return fmt.Errorf("failed to deactivate summaries: %w", err)
	}
	for i := range summaries {
		if _, err := tx.ExecContext(ctx, insertSummarySQLite, summaryValues(&summaries[i])...); err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context, filter ProjectFilter) ([]project.Record, error) {
	where, args := whereProjects(filter, sqlitePlaceholder)
	query := fmt.Sprintf(`
		SELECT %s
		FROM commissioning_projects
		WHERE %s
		ORDER BY category,
			CASE WHEN sno <> '' AND sno NOT GLOB '*[^0-9]*' THEN CAST(sno AS INTEGER) END NULLS LAST,
			sno, project_name, status`,
		strings.Join(projectColumns, ", "), where)

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *SQLiteRepository) ListSummaries(ctx context.Context, fiscalYear string) ([]project.Summary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM commissioning_summaries
		WHERE fiscal_year = ? AND is_active = 1
		ORDER BY id`, strings.Join(summaryColumns, ", "))

	rows, err := r.db.QueryContext(ctx, query, fiscalYear)
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

func (r *SQLiteRepository) ReplaceSummaries(ctx context.Context, fiscalYear string, summaries []project.Summary) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.swapSummaries(ctx, tx, fiscalYear, summaries); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE commissioning_projects
		SET is_active = 0, deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListFiscalYears(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT fiscal_year
		FROM commissioning_projects
		WHERE is_active = 1
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
