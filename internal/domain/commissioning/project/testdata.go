package project

import (
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// TestDataGenerator builds realistic commissioning records using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a fixed seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

var testCategories = []string{
	"Khavda Solar",
	"Rajasthan Solar",
	"Rajasthan Solar Additional 500MW",
	"Khavda Wind",
	"Mundra Wind 76MW",
}

var testProjectTypes = []string{"Solar", "Wind", "Hybrid"}

// Record generates a single record for the fiscal year with the given status.
// Monthly values are whole megawatts so sums stay exact in tests.
func (g *TestDataGenerator) Record(fiscalYear string, status Status) Record {
	months := make(Months)
	for _, m := range FiscalMonths {
		if g.faker.Number(0, 3) == 0 {
			continue
		}
		months[m] = float64(g.faker.Number(0, 250))
	}

	r := Record{
		ID:               uuid.New(),
		FiscalYear:       fiscalYear,
		SequenceNumber:   fmt.Sprintf("%d", g.faker.Number(1, 200)),
		ProjectName:      fmt.Sprintf("%s %s", g.faker.City(), g.faker.RandomString([]string{"Solar Park", "Wind Farm", "Plant"})),
		SPV:              g.faker.Company(),
		ProjectType:      g.faker.RandomString(testProjectTypes),
		PlotLocation:     g.faker.RandomString([]string{"PSS-1", "PSS-2", "PSS-3", "Plot 4"}),
		Capacity:         math.Round(g.faker.Float64Range(50, 1500)),
		Status:           status,
		Category:         g.faker.RandomString(testCategories),
		SectionCode:      g.faker.RandomString([]string{"A", "B", "C"}),
		IncludedInTotals: g.faker.Number(0, 4) != 0,
		Months:           months,
	}
	return r
}

// Records generates count records cycling through every status.
func (g *TestDataGenerator) Records(fiscalYear string, count int) []Record {
	out := make([]Record, count)
	for i := 0; i < count; i++ {
		out[i] = g.Record(fiscalYear, Statuses[i%len(Statuses)])
	}
	return out
}
