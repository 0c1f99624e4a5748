// Package handler exposes the commissioning tracker over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/service"
	"github.com/FACorreiaa/commissioning-tracker/pkg/storage"
)

const defaultMaxUploadBytes = 32 << 20

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// Handler serves the /api/v1 routes.
type Handler struct {
	imports  *service.ImportService
	projects *service.ProjectService
	store    storage.Storage // Optional
	logger   *slog.Logger

	defaultFiscalYear string
	maxUploadBytes    int64
}

// NewHandler creates a new commissioning handler
func NewHandler(imports *service.ImportService, projects *service.ProjectService, logger *slog.Logger) *Handler {
	return &Handler{
		imports:        imports,
		projects:       projects,
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// WithStorage enables the upload archive routes.
func (h *Handler) WithStorage(store storage.Storage) *Handler {
	h.store = store
	return h
}

// WithDefaultFiscalYear is used when a request names none.
func (h *Handler) WithDefaultFiscalYear(fy string) *Handler {
	h.defaultFiscalYear = fy
	return h
}

func (h *Handler) WithMaxUploadBytes(n int64) *Handler {
	if n > 0 {
		h.maxUploadBytes = n
	}
	return h
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", h.Import)
		r.Get("/imports/archive", h.ListArchive)
		r.Get("/imports/archive/{id}", h.DownloadArchive)

		r.Get("/fiscal-years", h.FiscalYears)

		r.Get("/projects", h.ListProjects)
		r.Get("/projects/export", h.ExportProjects)
		r.Delete("/projects/{id}", h.DeleteProject)

		r.Get("/summaries", h.Summary)
		r.Get("/summaries/stored", h.StoredSummaries)
		r.Post("/summaries/recompute", h.RecomputeSummaries)

		r.Get("/dashboard", h.Dashboard)
	})
}

// Import accepts a multipart upload with fields file, fiscalYear and dryRun.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, err)
			return
		}
		h.writeError(w, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: file is required", errBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: failed to read upload: %v", errBadRequest, err))
		return
	}

	dryRun := false
	if v := r.FormValue("dryRun"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: dryRun must be a boolean", errBadRequest))
			return
		}
	}

	res, err := h.imports.Import(r.Context(), service.ImportRequest{
		FiscalYear: h.fiscalYear(r.FormValue("fiscalYear")),
		FileName:   header.Filename,
		Data:       data,
		DryRun:     dryRun,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, fmt.Errorf("%w: upload archive disabled", errNotFound))
		return
	}
	fy, err := h.requireFiscalYear(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	files, err := h.store.List(r.Context(), fy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// DownloadArchive streams an archived upload back.
func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, fmt.Errorf("%w: upload archive disabled", errNotFound))
		return
	}
	fy, err := h.requireFiscalYear(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid id", errBadRequest))
		return
	}

	rc, info, err := h.store.Download(r.Context(), fy, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream archived upload", slog.Any("error", err))
	}
}

func (h *Handler) FiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.projects.FiscalYears(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"fiscal_years": years})
}

// ListProjects supports fiscalYear, status, category and q (fuzzy search).
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := parseStatus(q.Get("status"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	recs, err := h.projects.Projects(r.Context(), service.ProjectQuery{
		FiscalYear: h.fiscalYear(q.Get("fiscalYear")),
		Status:     status,
		Category:   q.Get("category"),
		Search:     q.Get("q"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": recs, "count": len(recs)})
}

func (h *Handler) ExportProjects(w http.ResponseWriter, r *http.Request) {
	fy := h.fiscalYear(r.URL.Query().Get("fiscalYear"))
	out, err := h.projects.ExportCSV(r.Context(), fy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "commissioning_"+fy+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid id", errBadRequest))
		return
	}
	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary aggregates on the fly. domain defaults to Overall; an empty status
// sums every status.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	domain := project.DomainOverall
	if v := q.Get("domain"); v != "" {
		d, ok := project.ParseDomain(v)
		if !ok {
			h.writeError(w, fmt.Errorf("%w: unknown domain %q", errBadRequest, v))
			return
		}
		domain = d
	}
	status, err := parseStatus(q.Get("status"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	sum, err := h.projects.Summary(r.Context(), h.fiscalYear(q.Get("fiscalYear")), domain, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) StoredSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := h.projects.StoredSummaries(r.Context(), h.fiscalYear(r.URL.Query().Get("fiscalYear")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": sums})
}

func (h *Handler) RecomputeSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := h.projects.RecomputeSummaries(r.Context(), h.fiscalYear(r.URL.Query().Get("fiscalYear")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": sums})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.projects.Dashboard(r.Context(), h.fiscalYear(r.URL.Query().Get("fiscalYear")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) fiscalYear(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return h.defaultFiscalYear
}

func (h *Handler) requireFiscalYear(r *http.Request) (string, error) {
	fy := h.fiscalYear(r.URL.Query().Get("fiscalYear"))
	if fy == "" {
		return "", service.ErrFiscalYearRequired
	}
	return fy, nil
}

func parseStatus(v string) (project.Status, error) {
	if v == "" {
		return "", nil
	}
	st, ok := project.ParseStatus(v)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", errBadRequest, v)
	}
	return st, nil
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrFiscalYearRequired):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &maxErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrFileNotFound), errors.Is(err, errNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
