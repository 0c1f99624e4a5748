package project

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Scope says whether a summary groups by category or by domain.
type Scope string

const (
	ScopeCategory Scope = "category"
	ScopeDomain   Scope = "domain"
)

// Summary is the sum of included records for one key and status.
// An empty Status means every status was summed together.
type Summary struct {
	FiscalYear string `json:"fiscal_year"`
	Scope      Scope  `json:"scope"`
	Key        string `json:"key"`
	Status     Status `json:"status,omitempty"`

	Months                     Months  `json:"months"`
	TotalCapacity              float64 `json:"total_capacity"`
	CumulativeToReferenceMonth float64 `json:"cumulative"`
	Q1                         float64 `json:"q1"`
	Q2                         float64 `json:"q2"`
	Q3                         float64 `json:"q3"`
	Q4                         float64 `json:"q4"`
	ProjectCount               int     `json:"project_count"`
}

type accumulator struct {
	months                            [MonthCount]decimal.Decimal
	total, cumulative, q1, q2, q3, q4 decimal.Decimal
	count                             int
}

func (a *accumulator) add(r *Record) {
	for m, v := range r.Months {
		a.months[m] = a.months[m].Add(decimal.NewFromFloat(v))
	}
	a.total = a.total.Add(decimal.NewFromFloat(r.TotalCapacity))
	a.cumulative = a.cumulative.Add(decimal.NewFromFloat(r.CumulativeToReferenceMonth))
	a.q1 = a.q1.Add(decimal.NewFromFloat(r.Q1))
	a.q2 = a.q2.Add(decimal.NewFromFloat(r.Q2))
	a.q3 = a.q3.Add(decimal.NewFromFloat(r.Q3))
	a.q4 = a.q4.Add(decimal.NewFromFloat(r.Q4))
	a.count++
}

func (a *accumulator) summary(scope Scope, key string, status Status) Summary {
	months := make(Months, MonthCount)
	for _, m := range FiscalMonths {
		months[m] = a.months[m].InexactFloat64()
	}
	return Summary{
		Scope:                      scope,
		Key:                        key,
		Status:                     status,
		Months:                     months,
		TotalCapacity:              a.total.InexactFloat64(),
		CumulativeToReferenceMonth: a.cumulative.InexactFloat64(),
		Q1:                         a.q1.InexactFloat64(),
		Q2:                         a.q2.InexactFloat64(),
		Q3:                         a.q3.InexactFloat64(),
		Q4:                         a.q4.InexactFloat64(),
		ProjectCount:               a.count,
	}
}

// Aggregate sums the included records that fall into domain. A non-empty
// status restricts the sum to that status. Derived fields are summed as
// stored, never recomputed.
func Aggregate(records []Record, domain Domain, status Status) Summary {
	var acc accumulator
	for i := range records {
		r := &records[i]
		if !r.IncludedInTotals || !domain.Matches(r.Category) {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		acc.add(r)
	}
	return acc.summary(ScopeDomain, string(domain), status)
}

// BuildSummaries returns one summary per status for every category, for
// Solar, Wind and Overall. Categories come out sorted by name.
func BuildSummaries(fiscalYear string, records []Record) []Summary {
	type groupKey struct {
		category string
		status   Status
	}
	byCategory := make(map[groupKey]*accumulator)
	var categories []string
	seen := make(map[string]bool)

	for i := range records {
		r := &records[i]
		if !r.IncludedInTotals {
			continue
		}
		if !seen[r.Category] {
			seen[r.Category] = true
			categories = append(categories, r.Category)
		}
		k := groupKey{r.Category, r.Status}
		acc, ok := byCategory[k]
		if !ok {
			acc = &accumulator{}
			byCategory[k] = acc
		}
		acc.add(r)
	}
	sort.Strings(categories)

	var out []Summary
	for _, c := range categories {
		for _, st := range Statuses {
			acc, ok := byCategory[groupKey{c, st}]
			if !ok {
				continue
			}
			s := acc.summary(ScopeCategory, c, st)
			s.FiscalYear = fiscalYear
			out = append(out, s)
		}
	}
	for _, d := range Domains {
		for _, st := range Statuses {
			s := Aggregate(records, d, st)
			s.FiscalYear = fiscalYear
			out = append(out, s)
		}
	}
	return out
}
