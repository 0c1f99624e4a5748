package project

import (
	"github.com/shopspring/decimal"
)

// DefaultReferenceMonth is the last month included in the cumulative figure.
const DefaultReferenceMonth = Oct

// TotalBasis says where a record's total capacity comes from.
type TotalBasis int

const (
	// TargetBasis uses the static capacity column.
	TargetBasis TotalBasis = iota
	// MeasuredBasis sums the twelve monthly values.
	MeasuredBasis
)

// TotalBasis returns the total-capacity basis for the status.
// Plan and Rephase rows carry a target, Actual rows carry measurements.
func (s Status) TotalBasis() TotalBasis {
	switch s {
	case StatusActual:
		return MeasuredBasis
	case StatusPlan, StatusRephase:
		return TargetBasis
	default:
		return TargetBasis
	}
}

// Calculator fills the derived fields of a record.
type Calculator struct {
	ReferenceMonth Month
}

// NewCalculator returns a calculator cumulating up to ref inclusive.
// An out of range month falls back to DefaultReferenceMonth.
func NewCalculator(ref Month) Calculator {
	if ref < Apr || ref > Mar {
		ref = DefaultReferenceMonth
	}
	return Calculator{ReferenceMonth: ref}
}

// Derive sets TotalCapacity, CumulativeToReferenceMonth and Q1..Q4 on r.
func (c Calculator) Derive(r *Record) {
	var quarters [4]decimal.Decimal
	var year, cumulative decimal.Decimal
	for _, m := range FiscalMonths {
		v, ok := r.Months.Get(m)
		if !ok {
			continue
		}
		d := decimal.NewFromFloat(v)
		quarters[int(m)/3] = quarters[int(m)/3].Add(d)
		if m <= c.ReferenceMonth {
			cumulative = cumulative.Add(d)
		}
	}
	for _, q := range quarters {
		year = year.Add(q)
	}

	r.Q1 = quarters[0].InexactFloat64()
	r.Q2 = quarters[1].InexactFloat64()
	r.Q3 = quarters[2].InexactFloat64()
	r.Q4 = quarters[3].InexactFloat64()
	r.CumulativeToReferenceMonth = cumulative.InexactFloat64()

	switch r.Status.TotalBasis() {
	case MeasuredBasis:
		r.TotalCapacity = year.InexactFloat64()
	case TargetBasis:
		r.TotalCapacity = r.Capacity
	}
}

// DeriveAll derives every record in place.
func (c Calculator) DeriveAll(records []Record) {
	for i := range records {
		c.Derive(&records[i])
	}
}
