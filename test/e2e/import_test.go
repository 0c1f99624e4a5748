// Package e2etest drives a generated tracker workbook through the HTTP API
// into a real repository backend.
package e2etest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/handler"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/parser"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/service"
	"github.com/FACorreiaa/commissioning-tracker/pkg/db"
	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
	"github.com/FACorreiaa/commissioning-tracker/pkg/storage"
)

const fy = "FY_25-26"

func repeat(v float64, n, blanks int) []interface{} {
	out := make([]interface{}, 0, n+blanks)
	for i := 0; i < n; i++ {
		out = append(out, v)
	}
	for i := 0; i < blanks; i++ {
		out = append(out, 0)
	}
	return out
}

func row(lead []interface{}, months []interface{}) *[]interface{} {
	r := append(append([]interface{}{}, lead...), months...)
	return &r
}

// writeHeader writes the identity columns and twelve date-typed month
// headers from April 2025.
func writeHeader(t *testing.T, f *excelize.File, sheet string) {
	t.Helper()
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"S.No", "Project Name", "SPV", "Capacity", "Plan/Actual"}))
	for i := 0; i < 12; i++ {
		cell, err := excelize.CoordinatesToCellName(6+i, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, time.Date(2025, time.April+time.Month(i), 1, 0, 0, 0, 0, time.UTC)))
	}
}

// buildTracker returns a two-sheet report. The solar sheet has a plan with
// an actual continuation row and an excluded merchant section; the wind
// sheet repeats one rephase row with fewer months.
func buildTracker(t *testing.T, withSolar bool) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	const solar, wind = "KH Solar", "KH Wind"
	require.NoError(t, f.SetSheetName("Sheet1", wind))
	writeHeader(t, f, wind)
	require.NoError(t, f.SetSheetRow(wind, "A2", &[]interface{}{"A. Khavda Wind"}))
	require.NoError(t, f.SetSheetRow(wind, "A3", row([]interface{}{1, "Khavda W1", "AGE30", 300, "Rephase"}, repeat(25, 12, 0))))
	require.NoError(t, f.SetSheetRow(wind, "A4", row([]interface{}{1, "Khavda W1", "AGE30", 300, "Rephase"}, repeat(25, 6, 0))))

	if withSolar {
		_, err := f.NewSheet(solar)
		require.NoError(t, err)
		writeHeader(t, f, solar)
		require.NoError(t, f.SetSheetRow(solar, "A2", &[]interface{}{"A. Khavda Solar"}))
		require.NoError(t, f.SetSheetRow(solar, "A3", row([]interface{}{1, "Khavda P1", "AGE23L", 500, "Plan"}, repeat(50, 10, 2))))
		require.NoError(t, f.SetSheetRow(solar, "A4", row([]interface{}{nil, nil, nil, nil, "Actual"}, repeat(40, 12, 0))))
		require.NoError(t, f.SetSheetRow(solar, "A5", &[]interface{}{"D1. Khavda Solar (Copper+Merchant)"}))
		require.NoError(t, f.SetSheetRow(solar, "A6", row([]interface{}{2, "Khavda Merchant", "AGE24", 50, "Plan"}, repeat(5, 10, 2))))
		require.NoError(t, f.SetSheetRow(solar, "A7", &[]interface{}{"Grand Total", nil, nil, 850}))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// newBackend prefers SQLite and falls back to memory when cgo is missing.
func newBackend(t *testing.T, logger *slog.Logger) repository.Repository {
	t.Helper()
	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "e2e.db"), logger)
	if err != nil {
		t.Logf("sqlite unavailable, using memory repository: %v", err)
		return repository.NewMemoryRepository()
	}
	t.Cleanup(func() { sqlDB.Close() })
	return repository.NewSQLiteRepository(sqlDB)
}

type api struct {
	t   *testing.T
	url string
}

func (a api) upload(data []byte, dryRun bool) (*http.Response, service.ImportResult) {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "tracker.xlsx")
	require.NoError(a.t, err)
	_, err = fw.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.WriteField("fiscalYear", fy))
	if dryRun {
		require.NoError(a.t, mw.WriteField("dryRun", "true"))
	}
	require.NoError(a.t, mw.Close())

	resp, err := http.Post(a.url+"/api/v1/imports", mw.FormDataContentType(), &body)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var res service.ImportResult
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&res))
	return resp, res
}

func (a api) get(path string, v any) {
	a.t.Helper()
	resp, err := http.Get(a.url + path)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	require.Equal(a.t, http.StatusOK, resp.StatusCode, path)
	if s, ok := v.(*string); ok {
		b, err := io.ReadAll(resp.Body)
		require.NoError(a.t, err)
		*s = string(b)
		return
	}
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(v))
}

func (a api) total(query string) float64 {
	a.t.Helper()
	var sum project.Summary
	a.get("/api/v1/summaries?fiscalYear="+fy+"&"+query, &sum)
	return sum.TotalCapacity
}

func TestTrackerWorkbook_EndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newBackend(t, logger)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	m := metrics.New()

	imports := service.NewImportService(repo, parser.New(logger, parser.DefaultOptions()), logger).
		WithStorage(store).
		WithMetrics(m)
	projects := service.NewProjectService(repo, logger).WithMetrics(m)
	h := handler.NewHandler(imports, projects, logger).WithStorage(store)

	srv := httptest.NewServer(handler.NewRouter(h, m, handler.RouterConfig{}, logger))
	defer srv.Close()
	a := api{t: t, url: srv.URL}

	full := buildTracker(t, true)

	t.Run("dry run reports without storing", func(t *testing.T) {
		resp, res := a.upload(full, true)
		require.Equal(t, http.StatusOK, resp.StatusCode, res.Errors)
		assert.True(t, res.DryRun)
		assert.Equal(t, 4, res.ProjectCount)

		var d service.Dashboard
		a.get("/api/v1/dashboard?fiscalYear="+fy, &d)
		assert.Zero(t, d.TotalProjects)
	})

	t.Run("import stores deduplicated projects", func(t *testing.T) {
		resp, res := a.upload(full, false)
		require.Equal(t, http.StatusOK, resp.StatusCode, res.Errors)
		assert.ElementsMatch(t, []string{"KH Solar", "KH Wind"}, res.SheetsFound)
		assert.Equal(t, 4, res.ProjectCount)
		assert.Equal(t, 1, res.Duplicates)

		var d service.Dashboard
		a.get("/api/v1/dashboard?fiscalYear="+fy, &d)
		assert.Equal(t, service.Dashboard{FiscalYear: fy, TotalProjects: 4, PlanCount: 2, RephaseCount: 1, ActualCount: 1}, d)
	})

	t.Run("derived values", func(t *testing.T) {
		var body struct {
			Projects []project.Record `json:"projects"`
		}
		a.get("/api/v1/projects?fiscalYear="+fy+"&status=actual", &body)
		require.Len(t, body.Projects, 1)
		actual := body.Projects[0]
		assert.Equal(t, "Khavda P1", actual.ProjectName)
		assert.Equal(t, "Khavda Solar", actual.Category)
		assert.Equal(t, 480.0, actual.TotalCapacity)
		assert.Equal(t, 280.0, actual.CumulativeToReferenceMonth)
		assert.Equal(t, 120.0, actual.Q4)

		a.get("/api/v1/projects?fiscalYear="+fy+"&status=rephase", &body)
		require.Len(t, body.Projects, 1)
		assert.Equal(t, 12, body.Projects[0].Months.Present(), "fuller duplicate wins")
	})

	t.Run("aggregates skip excluded sections", func(t *testing.T) {
		assert.Equal(t, 500.0, a.total("domain=solar&status=plan"))
		assert.Equal(t, 300.0, a.total("domain=wind"))
		assert.Equal(t, 480.0, a.total("status=actual"))
		assert.Equal(t, 1280.0, a.total(""))
	})

	t.Run("export", func(t *testing.T) {
		var out string
		a.get("/api/v1/projects/export?fiscalYear="+fy, &out)
		assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
		assert.Contains(t, out, "Khavda Merchant")
	})

	t.Run("reimport replaces the fiscal year", func(t *testing.T) {
		resp, res := a.upload(buildTracker(t, false), false)
		require.Equal(t, http.StatusOK, resp.StatusCode, res.Errors)
		assert.Equal(t, 1, res.ProjectCount)

		assert.Zero(t, a.total("domain=solar"))
		assert.Equal(t, 300.0, a.total("domain=wind"))

		var years map[string][]string
		a.get("/api/v1/fiscal-years", &years)
		assert.Equal(t, []string{fy}, years["fiscal_years"])

		var archive []storage.FileInfo
		a.get("/api/v1/imports/archive?fiscalYear="+fy, &archive)
		assert.Len(t, archive, 3)
	})

	t.Run("metrics", func(t *testing.T) {
		var out string
		a.get("/metrics", &out)
		assert.Contains(t, out, `commissioning_imports_total{outcome="stored"} 2`)
		assert.Contains(t, out, `commissioning_imports_total{outcome="dry_run"} 1`)

		n, err := testutil.GatherAndCount(m.Gatherer(), "commissioning_projects_imported_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
