package project

import (
	"strings"
	"time"
)

// Month is a fiscal month, April first.
type Month int

const (
	Apr Month = iota
	May
	Jun
	Jul
	Aug
	Sep
	Oct
	Nov
	Dec
	Jan
	Feb
	Mar
)

// MonthCount is the number of months in a fiscal year.
const MonthCount = 12

// FiscalMonths lists the months in fiscal order.
var FiscalMonths = []Month{Apr, May, Jun, Jul, Aug, Sep, Oct, Nov, Dec, Jan, Feb, Mar}

var monthKeys = [MonthCount]string{"apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec", "jan", "feb", "mar"}

// Key returns the lower-case three letter name of the month.
func (m Month) Key() string {
	if m < 0 || int(m) >= MonthCount {
		return ""
	}
	return monthKeys[m]
}

func (m Month) String() string {
	k := m.Key()
	if k == "" {
		return "invalid"
	}
	return strings.ToUpper(k[:1]) + k[1:]
}

// FromCalendar converts a calendar month to its fiscal month.
func FromCalendar(cm time.Month) Month {
	return Month((int(cm) + 8) % MonthCount)
}

// ParseMonth maps a three letter month key (any case) to its Month.
func ParseMonth(s string) (Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, k := range monthKeys {
		if k == s {
			return Month(i), true
		}
	}
	return 0, false
}

// Months maps fiscal months to reported values.
type Months map[Month]float64

// Get returns the value for m and whether it was reported.
func (ms Months) Get(m Month) (float64, bool) {
	v, ok := ms[m]
	return v, ok
}

// Value returns the value for m, treating absent as zero.
func (ms Months) Value(m Month) float64 {
	return ms[m]
}

// Present counts the months that carry a reported value.
func (ms Months) Present() int {
	return len(ms)
}

// Quarter is a fiscal quarter.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// Months returns the three months of the quarter.
func (q Quarter) Months() []Month {
	if q < Q1 || q > Q4 {
		return nil
	}
	start := int(q-1) * 3
	return FiscalMonths[start : start+3]
}
