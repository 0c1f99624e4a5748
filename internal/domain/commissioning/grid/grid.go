// Package grid loads uploaded spreadsheets into raw cell grids, one per
// sheet, without assuming any header layout.
package grid

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// CSVSheetName is the name given to the single sheet of a CSV upload.
const CSVSheetName = "Summary Linked"

// Format is the detected container format of an upload.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// LoadError reports a failure reading one sheet of a workbook.
type LoadError struct {
	Sheet string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to read sheet %q: %v", e.Sheet, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Cell is a single grid cell. Date is set only for date-typed cells.
type Cell struct {
	Text   string
	Date   time.Time
	IsDate bool
}

// Empty reports whether the cell carries no text.
func (c Cell) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Sheet is a named grid of rows. Rows may be ragged.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Cell returns the cell at the zero-based row and column, or an empty cell
// when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Workbook is every sheet of an upload in workbook order.
type Workbook struct {
	Format Format
	Sheets []Sheet
}

// SheetNames lists the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i := range w.Sheets {
		names[i] = w.Sheets[i].Name
	}
	return names
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// DetectFormat picks the container format from the file name, falling back
// to the leading bytes when the extension is unknown.
func DetectFormat(fileName string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks", ErrUnsupportedFormat)
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return "", fmt.Errorf("%w: legacy .xls workbooks", ErrUnsupportedFormat)
	case looksLikeText(data):
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// Load reads every sheet of an XLSX workbook, or the single sheet of a CSV.
func Load(fileName string, data []byte) (*Workbook, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(fileName, data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return loadXLSX(data)
	case FormatCSV:
		return loadCSV(data)
	}
	return nil, ErrUnsupportedFormat
}

func looksLikeText(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return bytes.IndexByte(sample, 0) < 0
}
