package parser

import (
	"strings"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/grid"
)

// Identity is the project identity carried across merged-cell rows.
type Identity struct {
	SequenceNumber string
	ProjectName    string
	SPV            string
	ProjectType    string
	PlotLocation   string
	Capacity       float64
}

// RowKind is the classification of a data row.
type RowKind int

const (
	// RowNewEntity starts a new project identity.
	RowNewEntity RowKind = iota
	// RowContinuation reuses the identity of the rows above.
	RowContinuation
	// RowOrphan has no name and no identity to inherit.
	RowOrphan
)

var namePlaceholders = map[string]bool{"nan": true, "none": true}

func cellAt(row []grid.Cell, cols ColumnMap, f Field) grid.Cell {
	i, ok := cols.Index(f)
	if !ok || i >= len(row) {
		return grid.Cell{}
	}
	return row[i]
}

func cellText(row []grid.Cell, cols ColumnMap, f Field) string {
	return strings.TrimSpace(cellAt(row, cols, f).Text)
}

func blankRow(row []grid.Cell) bool {
	for _, c := range row {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// identityTracker is the sticky identity accumulator of one sheet pass.
type identityTracker struct {
	current Identity
	seen    bool
}

// observe classifies row and updates the sticky identity. A new entity
// overwrites only the fields whose cells are filled in this row.
func (t *identityTracker) observe(row []grid.Cell, cols ColumnMap) (Identity, RowKind) {
	name := cellText(row, cols, FieldProjectName)
	if name == "" || namePlaceholders[strings.ToLower(name)] {
		if !t.seen {
			return Identity{}, RowOrphan
		}
		return t.current, RowContinuation
	}

	t.current.ProjectName = name
	t.seen = true
	overwrite := func(dst *string, f Field) {
		if v := cellText(row, cols, f); v != "" {
			*dst = v
		}
	}
	overwrite(&t.current.SequenceNumber, FieldIdentifier)
	overwrite(&t.current.SPV, FieldSPV)
	overwrite(&t.current.ProjectType, FieldProjectType)
	overwrite(&t.current.PlotLocation, FieldPlotLocation)
	// A filled capacity cell that is not a number counts as zero.
	if raw := cellText(row, cols, FieldCapacity); raw != "" {
		t.current.Capacity, _ = ParseNumber(raw)
	}
	return t.current, RowNewEntity
}
