package parser

import (
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/grid"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
)

// buildRecord assembles one record from the sticky identity, the row status,
// the active section and the row's month cells. Unparseable months are left
// out of the map.
func buildRecord(id Identity, status project.Status, sec Section, row []grid.Cell, cols ColumnMap) project.Record {
	months := make(project.Months)
	for _, m := range project.FiscalMonths {
		if v, ok := ParseNumber(cellText(row, cols, MonthField(m))); ok {
			months[m] = v
		}
	}
	return project.Record{
		SequenceNumber:   id.SequenceNumber,
		ProjectName:      id.ProjectName,
		SPV:              id.SPV,
		ProjectType:      id.ProjectType,
		PlotLocation:     id.PlotLocation,
		Capacity:         id.Capacity,
		Status:           status,
		Category:         sec.Category,
		SectionCode:      sec.SectionCode,
		IncludedInTotals: sec.Included,
		Months:           months,
	}
}

// statedTotal reads the total capacity column as the sheet reports it.
func statedTotal(row []grid.Cell, cols ColumnMap) (float64, bool) {
	return ParseNumber(cellText(row, cols, FieldTotalCapacity))
}
