package grid

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ISO layouts spreadsheet tools emit when a date cell is saved as CSV.
var csvDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

func loadCSV(data []byte) (*Workbook, error) {
	data = normalizeCSVBytes(data)

	reader := newCSVReader(bytes.NewReader(data), sniffDelimiter(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Sheet: CSVSheetName, Err: fmt.Errorf("failed to parse CSV: %w", err)}
	}

	sheet := Sheet{Name: CSVSheetName, Rows: make([][]Cell, len(records))}
	for i, rec := range records {
		cells := make([]Cell, len(rec))
		for j, text := range rec {
			cells[j] = csvCell(text)
		}
		sheet.Rows[i] = cells
	}
	return &Workbook{Format: FormatCSV, Sheets: []Sheet{sheet}}, nil
}

// newCSVReader reads ragged rows; there is no header row to bind to a struct.
func newCSVReader(in *bytes.Reader, comma rune) *csv.Reader {
	r := csv.NewReader(in)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r
}

func csvCell(text string) Cell {
	c := Cell{Text: text}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len("2006-01-02") {
		return c
	}
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			c.Date = t
			c.IsDate = true
			break
		}
	}
	return c
}

// sniffDelimiter picks the delimiter that occurs most often on the busiest
// of the first few lines, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	best, bestCount := ',', 0
	for n := 0; n < 20 && scanner.Scan(); n++ {
		line := cleanLine(scanner.Text())
		if line == "" {
			continue
		}
		if d, count := detectDelimiter(line); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

func cleanLine(line string) string {
	return strings.TrimSpace(strings.TrimRight(line, "\r"))
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{',', ';', '\t', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

func normalizeCSVBytes(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(data) {
		return data
	}
	return decodeLatin1(data)
}

// decodeLatin1 maps every byte to the rune of the same value.
func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
