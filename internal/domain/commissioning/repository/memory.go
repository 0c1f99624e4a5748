package repository

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

// MemoryRepository keeps the active sets in process memory. Used by tests
// and dry runs without a database.
type MemoryRepository struct {
	mu        sync.RWMutex
	projects  map[string][]project.Record
	summaries map[string][]project.Summary
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects:  make(map[string][]project.Record),
		summaries: make(map[string][]project.Summary),
	}
}

func (r *MemoryRepository) ReplaceFiscalYear(_ context.Context, fiscalYear string, records []project.Record, summaries []project.Summary) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.projects[fiscalYear] = slices.Clone(records)
	r.summaries[fiscalYear] = slices.Clone(summaries)
	return len(records), nil
}

func (r *MemoryRepository) ListProjects(_ context.Context, filter ProjectFilter) ([]project.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]project.Record, 0)
	for fy, recs := range r.projects {
		if filter.FiscalYear != "" && fy != filter.FiscalYear {
			continue
		}
		for _, rec := range recs {
			if filter.Status != "" && rec.Status != filter.Status {
				continue
			}
			if filter.Category != "" && rec.Category != filter.Category {
				continue
			}
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b project.Record) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			compareSequence(a.SequenceNumber, b.SequenceNumber),
			cmp.Compare(a.ProjectName, b.ProjectName),
			cmp.Compare(a.Status, b.Status),
		)
	})
	return out, nil
}

// compareSequence orders all-digit sequence numbers numerically ahead of
// free-text ones, matching the SQL backends.
func compareSequence(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Or(cmp.Compare(na, nb), cmp.Compare(a, b))
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(a, b)
}

func (r *MemoryRepository) ListSummaries(_ context.Context, fiscalYear string) ([]project.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.summaries[fiscalYear])
	if out == nil {
		out = make([]project.Summary, 0)
	}
	return out, nil
}

func (r *MemoryRepository) ReplaceSummaries(_ context.Context, fiscalYear string, summaries []project.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summaries[fiscalYear] = slices.Clone(summaries)
	return nil
}

func (r *MemoryRepository) DeleteProject(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for fy, recs := range r.projects {
		i := slices.IndexFunc(recs, func(rec project.Record) bool { return rec.ID == id })
		if i >= 0 {
			r.projects[fy] = slices.Delete(slices.Clone(recs), i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) ListFiscalYears(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	years := make([]string, 0, len(r.projects))
	for fy, recs := range r.projects {
		if len(recs) > 0 {
			years = append(years, fy)
		}
	}
	slices.Sort(years)
	return years, nil
}
