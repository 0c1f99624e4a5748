package parser

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/grid"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

// Field is a semantic column of the commissioning report.
type Field int

const (
	FieldIdentifier Field = iota
	FieldProjectName
	FieldSPV
	FieldProjectType
	FieldPlotLocation
	FieldCapacity
	FieldStatus
	FieldTotalCapacity
	FieldCumulative
	FieldQ1
	FieldQ2
	FieldQ3
	FieldQ4
	fieldMonthBase
)

// MonthField returns the field holding the given fiscal month.
func MonthField(m project.Month) Field {
	return fieldMonthBase + Field(m)
}

// QuarterField returns the field holding the given quarter.
func QuarterField(q project.Quarter) Field {
	return FieldQ1 + Field(q-project.Q1)
}

var fieldNames = map[Field]string{
	FieldIdentifier:    "identifier",
	FieldProjectName:   "project_name",
	FieldSPV:           "spv",
	FieldProjectType:   "project_type",
	FieldPlotLocation:  "plot_location",
	FieldCapacity:      "capacity",
	FieldStatus:        "status",
	FieldTotalCapacity: "total_capacity",
	FieldCumulative:    "cumulative",
	FieldQ1:            "q1",
	FieldQ2:            "q2",
	FieldQ3:            "q3",
	FieldQ4:            "q4",
}

func (f Field) String() string {
	if f >= fieldMonthBase && f < fieldMonthBase+project.MonthCount {
		return project.Month(f - fieldMonthBase).Key()
	}
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ColumnMap maps semantic fields to zero-based column indexes. It is built
// once per sheet and never changed afterwards.
type ColumnMap struct {
	cols map[Field]int
}

// Index returns the column of f and whether the field was found.
func (m ColumnMap) Index(f Field) (int, bool) {
	i, ok := m.cols[f]
	return i, ok
}

// Len returns the number of mapped fields.
func (m ColumnMap) Len() int {
	return len(m.cols)
}

// String renders the map as field=column pairs.
func (m ColumnMap) String() string {
	parts := make([]string, 0, len(m.cols))
	for f := FieldIdentifier; f < fieldMonthBase+project.MonthCount; f++ {
		if i, ok := m.cols[f]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", f, i))
		}
	}
	return strings.Join(parts, " ")
}

func (m *ColumnMap) set(f Field, col int) bool {
	if m.cols == nil {
		m.cols = make(map[Field]int)
	}
	if _, taken := m.cols[f]; taken {
		return false
	}
	m.cols[f] = col
	return true
}

func (m ColumnMap) usesColumn(col int) bool {
	for _, i := range m.cols {
		if i == col {
			return true
		}
	}
	return false
}

var (
	identifierTokens = []string{"s.no", "s. no", "sl no"}
	signatureTokens  = []string{"s.no", "s. no", "sl no", "priority"}
)

// headerRule classifies one header cell. The first rule that matches wins.
type headerRule struct {
	name  string
	match func(text string, cell grid.Cell) (Field, bool)
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func when(cond bool, f Field) (Field, bool) {
	return f, cond
}

var monthPatterns = func() []string {
	out := make([]string, project.MonthCount)
	for _, m := range project.FiscalMonths {
		out[m] = m.Key() + "-"
	}
	return out
}()

var headerRules = []headerRule{
	{"cumulative", func(s string, _ grid.Cell) (Field, bool) {
		return when(containsAny(s, "cumm", "cumulative"), FieldCumulative)
	}},
	{"identifier", func(s string, _ grid.Cell) (Field, bool) {
		return when(containsAny(s, identifierTokens...) || s == "priority", FieldIdentifier)
	}},
	{"project name", func(s string, _ grid.Cell) (Field, bool) {
		return when((strings.Contains(s, "project") && strings.Contains(s, "name")) || s == "project", FieldProjectName)
	}},
	{"spv", func(s string, _ grid.Cell) (Field, bool) {
		return when(s == "spv", FieldSPV)
	}},
	{"type", func(s string, _ grid.Cell) (Field, bool) {
		return when(s == "type", FieldProjectType)
	}},
	{"plot location", func(s string, _ grid.Cell) (Field, bool) {
		return when(containsAny(s, "plot", "location", "pss"), FieldPlotLocation)
	}},
	{"capacity", func(s string, _ grid.Cell) (Field, bool) {
		return when(strings.Contains(s, "capacity") && !strings.Contains(s, "total"), FieldCapacity)
	}},
	{"status", func(s string, _ grid.Cell) (Field, bool) {
		return when(strings.Contains(s, "plan") && containsAny(s, "actual", "status"), FieldStatus)
	}},
	{"total capacity", func(s string, _ grid.Cell) (Field, bool) {
		return when(strings.Contains(s, "total") && strings.Contains(s, "capacity"), FieldTotalCapacity)
	}},
	{"quarter", func(s string, _ grid.Cell) (Field, bool) {
		switch s {
		case "q1":
			return FieldQ1, true
		case "q2":
			return FieldQ2, true
		case "q3":
			return FieldQ3, true
		case "q4":
			return FieldQ4, true
		}
		return 0, false
	}},
	{"date month", func(_ string, c grid.Cell) (Field, bool) {
		if !c.IsDate {
			return 0, false
		}
		return MonthField(project.FromCalendar(c.Date.Month())), true
	}},
	{"month pattern", func(s string, _ grid.Cell) (Field, bool) {
		for i, p := range monthPatterns {
			if strings.Contains(s, p) {
				return MonthField(project.Month(i)), true
			}
		}
		return 0, false
	}},
}

func headerText(c grid.Cell) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(c.Text), "\n", " "))
}

// classifyHeaderCell runs the ordered rule list over one header cell.
func classifyHeaderCell(c grid.Cell) (Field, string, bool) {
	text := headerText(c)
	for _, r := range headerRules {
		if f, ok := r.match(text, c); ok {
			return f, r.name, true
		}
	}
	return 0, "", false
}

// isHeaderRow reports whether the joined row text carries the header
// signature: an identifier token, "project" and "capacity".
func isHeaderRow(row []grid.Cell) bool {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if !c.Empty() {
			parts = append(parts, strings.ToLower(c.Text))
		}
	}
	joined := strings.Join(parts, " ")
	return containsAny(joined, signatureTokens...) &&
		strings.Contains(joined, "project") &&
		strings.Contains(joined, "capacity")
}

// detectHeader finds the header row within the first scanRows rows and
// maps its columns. It returns -1 when no header row exists.
func detectHeader(sheet *grid.Sheet, scanRows int) (int, ColumnMap) {
	limit := len(sheet.Rows)
	if scanRows > 0 && scanRows < limit {
		limit = scanRows
	}
	for i := 0; i < limit; i++ {
		row := sheet.Rows[i]
		if !isHeaderRow(row) {
			continue
		}
		return i, buildColumnMap(row)
	}
	return -1, ColumnMap{}
}

func buildColumnMap(row []grid.Cell) ColumnMap {
	var m ColumnMap
	for col, c := range row {
		if c.Empty() {
			continue
		}
		if f, _, ok := classifyHeaderCell(c); ok {
			m.set(f, col)
		}
	}

	// Fixed report offsets fill only the identity columns a header missed.
	if _, ok := m.Index(FieldIdentifier); !ok && !m.usesColumn(0) {
		m.set(FieldIdentifier, 0)
	}
	if _, ok := m.Index(FieldProjectName); !ok && !m.usesColumn(1) {
		m.set(FieldProjectName, 1)
	}
	return m
}
