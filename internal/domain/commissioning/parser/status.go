package parser

import (
	"strings"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

type statusRule struct {
	tokens []string
	status project.Status
}

// Evaluated in order; rephase must precede plan so "Rephase Plan" stays a
// rephase row.
var statusRules = []statusRule{
	{[]string{"rephase"}, project.StatusRephase},
	{[]string{"plan"}, project.StatusPlan},
	{[]string{"actual", "fcst"}, project.StatusActual},
}

// NormalizeStatus maps a free-text status cell to a canonical status. When
// no rule matches it falls back to the sheet-inferred status, then to Plan.
func NormalizeStatus(raw string, inferred project.Status) project.Status {
	low := strings.ToLower(strings.TrimSpace(raw))
	if low != "" {
		for _, r := range statusRules {
			if containsAny(low, r.tokens...) {
				return r.status
			}
		}
	}
	if inferred != "" {
		return inferred
	}
	return project.StatusPlan
}

// SheetHints is what a sheet name says about the rows it holds.
type SheetHints struct {
	Status  project.Status
	Section Section
}

type sheetStatusRule struct {
	match  func(name string) bool
	status project.Status
}

var sheetStatusRules = []sheetStatusRule{
	{func(n string) bool { return strings.Contains(n, "plan") && !strings.Contains(n, "actual") }, project.StatusPlan},
	{func(n string) bool { return strings.Contains(n, "rephase") }, project.StatusRephase},
	{func(n string) bool { return strings.Contains(n, "actual") }, project.StatusActual},
}

type sheetCategoryRule struct {
	all      []string
	category string
}

var sheetCategoryRules = []sheetCategoryRule{
	{[]string{"kh", "solar"}, "Khavda Solar"},
	{[]string{"rj", "solar"}, "Rajasthan Solar"},
	{[]string{"kh", "wind"}, "Khavda Wind"},
	{[]string{"mundra"}, "Mundra Wind 76MW"},
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

// InferSheet reads status and section defaults from a sheet name.
func InferSheet(name string) SheetHints {
	low := strings.ToLower(name)
	hints := SheetHints{Section: Section{SectionCode: "A", Included: true}}

	for _, r := range sheetStatusRules {
		if r.match(low) {
			hints.Status = r.status
			break
		}
	}
	for _, r := range sheetCategoryRules {
		if containsAll(low, r.all) {
			hints.Section.Category = r.category
			break
		}
	}
	if strings.Contains(low, "internal") {
		hints.Section.Included = false
		hints.Section.SectionCode = "D2"
		if strings.Contains(low, "wind") {
			hints.Section.SectionCode = "B"
		}
	}
	return hints
}
