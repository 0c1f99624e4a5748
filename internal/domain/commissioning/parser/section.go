package parser

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/grid"
)

// Section is the active category context of a sheet pass. It changes only
// when a banner row is seen.
type Section struct {
	Category    string
	SectionCode string
	Included    bool
}

// Banner maps banner text found in the leading cells of a row to a section.
type Banner struct {
	Key string
	Section
}

// DefaultBanners is the banner table of the commissioning report.
var DefaultBanners = []Banner{
	{"A. Khavda Solar Projects", Section{"Khavda Solar", "A", true}},
	{"A. Khavda Solar", Section{"Khavda Solar", "A", true}},
	{"B. Rajasthan Solar Projects", Section{"Rajasthan Solar", "B", true}},
	{"B. Rajasthan Solar", Section{"Rajasthan Solar", "B", true}},
	{"C. Rajasthan Solar Projects", Section{"Rajasthan Solar Additional 500MW", "C", true}},
	{"C. Rajasthan Solar", Section{"Rajasthan Solar Additional 500MW", "C", true}},
	{"D1. Khavda Solar (Copper", Section{"Khavda Solar Copper+Merchant 50MW", "D1", false}},
	{"D1. Khavda Solar", Section{"Khavda Solar Copper+Merchant 50MW", "D1", false}},
	{"D2. Khavda Solar (Additional", Section{"Khavda Solar Internal 650MW", "D2", false}},
	{"D2. Khavda Solar", Section{"Khavda Solar Internal 650MW", "D2", false}},
	{"A. Khavda Wind Projects", Section{"Khavda Wind", "A", true}},
	{"A. Khavda Wind", Section{"Khavda Wind", "A", true}},
	{"B. Khavda Wind (Additional", Section{"Khavda Wind Internal 421MW", "B", false}},
	{"B. Khavda Wind", Section{"Khavda Wind Internal 421MW", "B", false}},
	{"C. Mundra Wind", Section{"Mundra Wind 76MW", "C", true}},
	{"D. Mundra Wind", Section{"Mundra Wind Internal 224.4MW", "D", false}},
}

// DefaultSkipKeywords mark summary rows that are never projects.
var DefaultSkipKeywords = []string{
	"agel overall", "agel fy", "chairman", "budget", "grand total",
	"total (a", "total(a", "monthwise", "(a+b", "(a + b", "(1+2",
	"subtotal", "overall total",
}

// Segmenter recognises banner and summary rows.
type Segmenter struct {
	banners []Banner
	keys    []string
	matcher *ahocorasick.Matcher
	skip    *ahocorasick.Matcher
	columns int
}

// NewSegmenter builds a segmenter that reads the first columns cells of a
// row. Keys and keywords are matched case-insensitively.
func NewSegmenter(banners []Banner, skipKeywords []string, columns int) *Segmenter {
	keys := make([]string, len(banners))
	for i, b := range banners {
		keys[i] = strings.ToLower(b.Key)
	}
	skip := make([]string, len(skipKeywords))
	for i, k := range skipKeywords {
		skip[i] = strings.ToLower(k)
	}
	if columns <= 0 {
		columns = DefaultBannerColumns
	}
	return &Segmenter{
		banners: banners,
		keys:    keys,
		matcher: ahocorasick.NewStringMatcher(keys),
		skip:    ahocorasick.NewStringMatcher(skip),
		columns: columns,
	}
}

// RowText joins the non-empty leading cells of a row, lower-cased.
func (s *Segmenter) RowText(row []grid.Cell) string {
	n := s.columns
	if n > len(row) {
		n = len(row)
	}
	parts := make([]string, 0, n)
	for _, c := range row[:n] {
		if !c.Empty() {
			parts = append(parts, strings.TrimSpace(c.Text))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Banner returns the section announced by text. When several keys match,
// the longest one wins; equal lengths keep table order.
func (s *Segmenter) Banner(text string) (Section, bool) {
	if text == "" {
		return Section{}, false
	}
	best := -1
	for _, i := range s.matcher.Match([]byte(text)) {
		if best < 0 || len(s.keys[i]) > len(s.keys[best]) || (len(s.keys[i]) == len(s.keys[best]) && i < best) {
			best = i
		}
	}
	if best < 0 {
		return Section{}, false
	}
	return s.banners[best].Section, true
}

// Skip reports whether text marks a summary row.
func (s *Segmenter) Skip(text string) bool {
	if text == "" {
		return false
	}
	return len(s.skip.Match([]byte(text))) > 0
}
