// Package parser extracts commissioning project records from irregular
// report spreadsheets. Parsing never fails on malformed content: structural
// misses yield zero records and file failures are reported in the result.
package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/grid"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

const (
	DefaultHeaderScanRows = 100
	DefaultBannerColumns  = 3
)

// Options tunes the layout heuristics.
type Options struct {
	HeaderScanRows int
	BannerColumns  int
	ReferenceMonth project.Month
	Banners        []Banner
	SkipKeywords   []string
}

// DefaultOptions returns the options for the standard report layout.
func DefaultOptions() Options {
	return Options{
		HeaderScanRows: DefaultHeaderScanRows,
		BannerColumns:  DefaultBannerColumns,
		ReferenceMonth: project.DefaultReferenceMonth,
		Banners:        DefaultBanners,
		SkipKeywords:   DefaultSkipKeywords,
	}
}

// SheetStats describes what one sheet pass saw.
type SheetStats struct {
	Sheet           string `json:"sheet"`
	HeaderRow       int    `json:"header_row"`
	MappedColumns   int    `json:"mapped_columns"`
	Records         int    `json:"records"`
	Banners         int    `json:"banners"`
	Skipped         int    `json:"skipped"`
	Discarded       int    `json:"discarded"`
	TotalMismatches int    `json:"total_mismatches"`
}

// Result is the outcome of parsing one upload.
type Result struct {
	SheetsFound  []string         `json:"sheets_found"`
	Records      []project.Record `json:"-"`
	ProjectCount int              `json:"project_count"`
	Duplicates   int              `json:"duplicates"`
	Errors       []string         `json:"errors"`
	Sheets       []SheetStats     `json:"sheets"`
}

// Parser turns workbooks into deduplicated, derived project records.
type Parser struct {
	logger *slog.Logger
	opts   Options
	seg    *Segmenter
	calc   project.Calculator
}

// New creates a parser. Zero option values fall back to the defaults.
func New(logger *slog.Logger, opts Options) *Parser {
	def := DefaultOptions()
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = def.HeaderScanRows
	}
	if opts.BannerColumns <= 0 {
		opts.BannerColumns = def.BannerColumns
	}
	if opts.Banners == nil {
		opts.Banners = def.Banners
	}
	if opts.SkipKeywords == nil {
		opts.SkipKeywords = def.SkipKeywords
	}
	return &Parser{
		logger: logger,
		opts:   opts,
		seg:    NewSegmenter(opts.Banners, opts.SkipKeywords, opts.BannerColumns),
		calc:   project.NewCalculator(opts.ReferenceMonth),
	}
}

// ParseWorkbook loads raw upload bytes and parses them. Load failures are
// returned as a single entry in Result.Errors.
func (p *Parser) ParseWorkbook(fiscalYear, fileName string, data []byte) *Result {
	wb, err := grid.Load(fileName, data)
	if err != nil {
		p.logger.Warn("failed to load workbook",
			slog.String("file", fileName),
			slog.Any("error", err))
		return &Result{
			SheetsFound: []string{},
			Records:     []project.Record{},
			Errors:      []string{fmt.Sprintf("Failed to process file: %v", err)},
			Sheets:      []SheetStats{},
		}
	}
	return p.Parse(fiscalYear, wb)
}

// Parse runs the sheet passes, then deduplicates and derives the records.
func (p *Parser) Parse(fiscalYear string, wb *grid.Workbook) *Result {
	res := &Result{
		SheetsFound: wb.SheetNames(),
		Errors:      []string{},
		Sheets:      []SheetStats{},
	}

	var records []project.Record
	for _, sheet := range SelectSheets(wb) {
		recs, stats := p.ParseSheet(sheet)
		records = append(records, recs...)
		res.Sheets = append(res.Sheets, stats)
	}

	deduped := project.Dedup(records)
	p.calc.DeriveAll(deduped)
	for i := range deduped {
		deduped[i].ID = uuid.New()
		deduped[i].FiscalYear = fiscalYear
	}
	if deduped == nil {
		deduped = []project.Record{}
	}

	res.Records = deduped
	res.ProjectCount = len(deduped)
	res.Duplicates = len(records) - len(deduped)

	p.logger.Debug("parsed workbook",
		slog.String("fiscal_year", fiscalYear),
		slog.Int("sheets", len(res.Sheets)),
		slog.Int("rows", len(records)),
		slog.Int("projects", res.ProjectCount))
	return res
}

// SelectSheets returns the sheets to parse. A "summary linked" sheet is the
// sole source when present; otherwise every sheet is parsed.
func SelectSheets(wb *grid.Workbook) []*grid.Sheet {
	for i := range wb.Sheets {
		name := strings.ToLower(wb.Sheets[i].Name)
		if strings.Contains(name, "summary") && strings.Contains(name, "linked") {
			return []*grid.Sheet{&wb.Sheets[i]}
		}
	}
	out := make([]*grid.Sheet, len(wb.Sheets))
	for i := range wb.Sheets {
		out[i] = &wb.Sheets[i]
	}
	return out
}

// ParseSheet runs the fused segment, classify and build pass over one sheet.
// Returned records are neither deduplicated nor derived.
func (p *Parser) ParseSheet(sheet *grid.Sheet) ([]project.Record, SheetStats) {
	stats := SheetStats{Sheet: sheet.Name, HeaderRow: -1}
	hints := InferSheet(sheet.Name)

	headerRow, cols := detectHeader(sheet, p.opts.HeaderScanRows)
	if headerRow < 0 {
		p.logger.Debug("no header row found", slog.String("sheet", sheet.Name))
		return nil, stats
	}
	stats.HeaderRow = headerRow + 1
	stats.MappedColumns = cols.Len()
	p.logger.Debug("header row found",
		slog.String("sheet", sheet.Name),
		slog.Int("row", headerRow+1),
		slog.String("columns", cols.String()))

	section := hints.Section
	var tracker identityTracker
	var records []project.Record

	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if blankRow(row) {
			continue
		}

		text := p.seg.RowText(row)
		if sec, ok := p.seg.Banner(text); ok {
			section = sec
			stats.Banners++
			p.logger.Debug("section banner",
				slog.String("sheet", sheet.Name),
				slog.Int("row", i+1),
				slog.String("category", sec.Category),
				slog.String("section", sec.SectionCode),
				slog.Bool("included", sec.Included))
			continue
		}
		if p.seg.Skip(text) {
			stats.Skipped++
			continue
		}

		id, kind := tracker.observe(row, cols)
		if kind == RowOrphan {
			stats.Discarded++
			continue
		}
		status := NormalizeStatus(cellText(row, cols, FieldStatus), hints.Status)
		if section.Category == "" {
			stats.Discarded++
			continue
		}

		rec := buildRecord(id, status, section, row, cols)
		rec.SourceSheet = sheet.Name
		rec.SourceRow = i + 1
		if p.mismatchesStatedTotal(rec, row, cols) {
			stats.TotalMismatches++
		}
		records = append(records, rec)
	}

	stats.Records = len(records)
	return records, stats
}

func (p *Parser) mismatchesStatedTotal(rec project.Record, row []grid.Cell, cols ColumnMap) bool {
	stated, ok := statedTotal(row, cols)
	if !ok {
		return false
	}
	p.calc.Derive(&rec)
	return math.Abs(stated-rec.TotalCapacity) > 1e-6
}
