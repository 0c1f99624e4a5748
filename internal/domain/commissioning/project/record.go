// Package project holds the normalized commissioning record and the pure
// functions computed over it: derived metrics, deduplication and aggregation.
package project

import (
	"strings"

	"github.com/google/uuid"
)

// Status is the capacity-reporting semantics of a record.
type Status string

const (
	StatusPlan    Status = "Plan"
	StatusRephase Status = "Rephase"
	StatusActual  Status = "Actual"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusPlan, StatusRephase, StatusActual}

// Valid reports whether s is one of the three canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlan, StatusRephase, StatusActual:
		return true
	}
	return false
}

// ParseStatus maps a canonical status name (any case) to its Status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

// Record is one normalized project row for a fiscal year.
type Record struct {
	ID         uuid.UUID `json:"id"`
	FiscalYear string    `json:"fiscal_year"`

	SequenceNumber string  `json:"sno"`
	ProjectName    string  `json:"project_name"`
	SPV            string  `json:"spv"`
	ProjectType    string  `json:"project_type"`
	PlotLocation   string  `json:"plot_location"`
	Capacity       float64 `json:"capacity"`

	Status           Status `json:"status"`
	Category         string `json:"category"`
	SectionCode      string `json:"section"`
	IncludedInTotals bool   `json:"included_in_totals"`

	// Months holds reported values only; a missing key means no data,
	// a zero value means reported as zero.
	Months Months `json:"months"`

	TotalCapacity              float64 `json:"total_capacity"`
	CumulativeToReferenceMonth float64 `json:"cumulative"`
	Q1                         float64 `json:"q1"`
	Q2                         float64 `json:"q2"`
	Q3                         float64 `json:"q3"`
	Q4                         float64 `json:"q4"`

	SourceSheet string `json:"source_sheet,omitempty"`
	SourceRow   int    `json:"source_row,omitempty"`
}

// Key is the natural key used to collapse duplicate rows.
type Key struct {
	ProjectName  string
	SPV          string
	Status       Status
	SectionCode  string
	Category     string
	PlotLocation string
}

// NaturalKey returns the record's deduplication key.
func (r *Record) NaturalKey() Key {
	return Key{
		ProjectName:  r.ProjectName,
		SPV:          r.SPV,
		Status:       r.Status,
		SectionCode:  r.SectionCode,
		Category:     r.Category,
		PlotLocation: r.PlotLocation,
	}
}

// Domain is the Solar/Wind aggregation axis.
type Domain string

const (
	DomainSolar   Domain = "Solar"
	DomainWind    Domain = "Wind"
	DomainOverall Domain = "Overall"
)

// Domains lists the aggregation domains in reporting order.
var Domains = []Domain{DomainSolar, DomainWind, DomainOverall}

// ParseDomain maps a domain name (any case) to its Domain.
func ParseDomain(s string) (Domain, bool) {
	for _, d := range Domains {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, true
		}
	}
	return "", false
}

// Matches reports whether a category belongs to the domain.
// Overall matches every category.
func (d Domain) Matches(category string) bool {
	switch d {
	case DomainOverall:
		return true
	case DomainSolar:
		return strings.Contains(strings.ToLower(category), "solar")
	case DomainWind:
		return strings.Contains(strings.ToLower(category), "wind")
	}
	return false
}

// DomainOf returns the domain a category falls into, or "" when the
// category is neither solar nor wind.
func DomainOf(category string) Domain {
	switch {
	case DomainSolar.Matches(category):
		return DomainSolar
	case DomainWind.Matches(category):
		return DomainWind
	}
	return ""
}
