package grid

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// builtin number formats that render a calendar date
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

func loadXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	r := &xlsxReader{file: f, date1904: date1904, styles: make(map[int]bool)}
	wb := &Workbook{Format: FormatXLSX}
	for _, name := range f.GetSheetList() {
		sheet, err := r.readSheet(name)
		if err != nil {
			return nil, &LoadError{Sheet: name, Err: err}
		}
		wb.Sheets = append(wb.Sheets, *sheet)
	}
	return wb, nil
}

type xlsxReader struct {
	file     *excelize.File
	date1904 bool
	// style ID -> renders as date
	styles map[int]bool
}

func (r *xlsxReader) readSheet(name string) (*Sheet, error) {
	rows, err := r.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	sheet := &Sheet{Name: name, Rows: make([][]Cell, len(rows))}
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, raw := range row {
			cells[j] = Cell{Text: raw}
			if raw == "" {
				continue
			}
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil || serial < 1 {
				continue
			}
			if !r.isDateCell(name, j+1, i+1) {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, r.date1904)
			if err != nil {
				continue
			}
			cells[j].Date = t
			cells[j].IsDate = true
		}
		sheet.Rows[i] = cells
	}
	return sheet, nil
}

func (r *xlsxReader) isDateCell(sheet string, col, row int) bool {
	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	styleID, err := r.file.GetCellStyle(sheet, cellName)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := r.styles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := r.file.GetStyle(styleID); err == nil && style != nil {
		isDate = dateNumFmts[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	r.styles[styleID] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format renders a date.
// Quoted literals and bracketed sections are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(ch)
		}
	}
	s := b.String()
	return strings.ContainsAny(s, "yd") || strings.Contains(s, "mmm")
}
