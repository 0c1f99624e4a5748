// Package service orchestrates commissioning imports and serves the stored
// projects and summaries.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/parser"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
	"github.com/FACorreiaa/commissioning-tracker/pkg/notify"
	"github.com/FACorreiaa/commissioning-tracker/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/service"

var (
	ErrFiscalYearRequired = errors.New("fiscal year is required")
)

// ImportRequest is one uploaded workbook.
type ImportRequest struct {
	FiscalYear string
	FileName   string
	Data       []byte
	DryRun     bool
}

// ImportResult is returned to the uploader. Parse problems are reported in
// Errors; only persistence failures come back as a Go error.
type ImportResult struct {
	ImportID     uuid.UUID           `json:"import_id"`
	FiscalYear   string              `json:"fiscal_year"`
	SheetsFound  []string            `json:"sheets_found"`
	ProjectCount int                 `json:"project_count"`
	Duplicates   int                 `json:"duplicates"`
	Errors       []string            `json:"errors"`
	Sheets       []parser.SheetStats `json:"sheets"`
	Summaries    int                 `json:"summaries"`
	ArchiveID    *uuid.UUID          `json:"archive_id,omitempty"`
	DryRun       bool                `json:"dry_run"`
}

// ImportService parses uploads and replaces the stored data of a fiscal year.
type ImportService struct {
	repo     repository.Repository
	parser   *parser.Parser
	store    storage.Storage  // Optional: nil disables the upload archive
	metrics  *metrics.Metrics // Optional
	notifier notify.Notifier  // Optional
	tracer   trace.Tracer
	logger   *slog.Logger

	locks   *keyedMutex
	pending sync.WaitGroup
}

// NewImportService creates a new import service
func NewImportService(repo repository.Repository, p *parser.Parser, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:   repo,
		parser: p,
		tracer: otel.Tracer(tracerName),
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

// WithStorage archives every raw upload under its fiscal year.
func (s *ImportService) WithStorage(store storage.Storage) *ImportService {
	s.store = store
	return s
}

func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithNotifier sends a report after each import.
func (s *ImportService) WithNotifier(n notify.Notifier) *ImportService {
	s.notifier = n
	return s
}

func (s *ImportService) WithTracer(t trace.Tracer) *ImportService {
	s.tracer = t
	return s
}

// Import parses the upload and, unless DryRun, atomically replaces the
// projects and summaries stored for the fiscal year. Imports of the same
// fiscal year run one at a time.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	fy := strings.TrimSpace(req.FiscalYear)
	if fy == "" {
		return nil, ErrFiscalYearRequired
	}

	start := time.Now()
	importID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "commissioning.Import", trace.WithAttributes(
		attribute.String("import.id", importID.String()),
		attribute.String("import.fiscal_year", fy),
		attribute.String("import.file", req.FileName),
		attribute.Int("import.bytes", len(req.Data)),
		attribute.Bool("import.dry_run", req.DryRun),
	))
	defer span.End()

	if !req.DryRun {
		unlock := s.locks.Lock(fy)
		defer unlock()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ImportResult{ImportID: importID, FiscalYear: fy, DryRun: req.DryRun}
	result.ArchiveID = s.archive(ctx, fy, req)

	parsed := s.parse(ctx, fy, req)
	result.SheetsFound = parsed.SheetsFound
	result.ProjectCount = parsed.ProjectCount
	result.Duplicates = parsed.Duplicates
	result.Errors = parsed.Errors
	result.Sheets = parsed.Sheets

	discarded := 0
	for _, st := range parsed.Sheets {
		discarded += st.Discarded
	}

	if len(parsed.Errors) > 0 {
		span.SetStatus(codes.Error, parsed.Errors[0])
		s.observe(metrics.OutcomeRejected, start, 0, 0, 0)
		s.logger.Warn("import rejected",
			slog.String("import_id", importID.String()),
			slog.String("fiscal_year", fy),
			slog.Any("errors", parsed.Errors))
		s.notify(ctx, req, result)
		return result, nil
	}

	summaries := project.BuildSummaries(fy, parsed.Records)
	result.Summaries = len(summaries)

	outcome := metrics.OutcomeDryRun
	if !req.DryRun {
		if err := s.persist(ctx, fy, parsed.Records, summaries); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			s.observe(metrics.OutcomePersistErr, start, 0, 0, 0)
			s.logger.Error("import failed",
				slog.String("import_id", importID.String()),
				slog.String("fiscal_year", fy),
				slog.Any("error", err))
			return nil, err
		}
		outcome = metrics.OutcomeStored
	}

	s.observe(outcome, start, result.ProjectCount, result.Duplicates, discarded)
	s.logger.Info("import completed",
		slog.String("import_id", importID.String()),
		slog.String("fiscal_year", fy),
		slog.String("file", req.FileName),
		slog.Int("projects", result.ProjectCount),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("discarded_rows", discarded),
		slog.Bool("dry_run", req.DryRun),
		slog.Duration("duration", time.Since(start)))
	s.notify(ctx, req, result)
	return result, nil
}

// Close waits for in-flight notifications.
func (s *ImportService) Close() {
	s.pending.Wait()
}

// archive stores the raw upload. Archive failures are logged, not fatal.
func (s *ImportService) archive(ctx context.Context, fy string, req ImportRequest) *uuid.UUID {
	if s.store == nil || len(req.Data) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "commissioning.Archive")
	defer span.End()

	contentType := http.DetectContentType(req.Data)
	info, err := s.store.Upload(ctx, fy, req.FileName, contentType, bytes.NewReader(req.Data))
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("failed to archive upload",
			slog.String("fiscal_year", fy),
			slog.String("file", req.FileName),
			slog.Any("error", err))
		return nil
	}
	return &info.ID
}

func (s *ImportService) parse(ctx context.Context, fy string, req ImportRequest) *parser.Result {
	_, span := s.tracer.Start(ctx, "commissioning.Parse")
	defer span.End()

	res := s.parser.ParseWorkbook(fy, req.FileName, req.Data)
	span.SetAttributes(
		attribute.StringSlice("parse.sheets", res.SheetsFound),
		attribute.Int("parse.projects", res.ProjectCount),
		attribute.Int("parse.duplicates", res.Duplicates),
	)
	return res
}

func (s *ImportService) persist(ctx context.Context, fy string, records []project.Record, summaries []project.Summary) error {
	ctx, span := s.tracer.Start(ctx, "commissioning.Persist", trace.WithAttributes(
		attribute.Int("persist.projects", len(records)),
		attribute.Int("persist.summaries", len(summaries)),
	))
	defer span.End()

	if _, err := s.repo.ReplaceFiscalYear(ctx, fy, records, summaries); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to store projects: %w", err)
	}
	return nil
}

func (s *ImportService) observe(outcome string, start time.Time, projects, duplicates, discarded int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveImport(outcome, time.Since(start), projects, duplicates, discarded)
}

// notify sends the report in the background.
func (s *ImportService) notify(ctx context.Context, req ImportRequest, res *ImportResult) {
	if s.notifier == nil {
		return
	}
	report := notify.ImportReport{
		ImportID:     res.ImportID.String(),
		FiscalYear:   res.FiscalYear,
		FileName:     req.FileName,
		SheetsFound:  res.SheetsFound,
		ProjectCount: res.ProjectCount,
		Duplicates:   res.Duplicates,
		Errors:       res.Errors,
		DryRun:       res.DryRun,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := s.notifier.ImportCompleted(ctx, report); err != nil {
			s.logger.Error("failed to send import report",
				slog.String("import_id", report.ImportID),
				slog.Any("error", err))
		}
	}()
}
