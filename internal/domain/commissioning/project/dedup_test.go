package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedup(t *testing.T) {
	base := Record{
		ProjectName:  "Khavda Phase 1",
		SPV:          "AGE23L",
		Status:       StatusPlan,
		SectionCode:  "A",
		Category:     "Khavda Solar",
		PlotLocation: "PSS-2",
	}

	t.Run("keeps the record with more months", func(t *testing.T) {
		sparse := base
		sparse.Months = Months{Apr: 1, May: 1, Jun: 1}
		sparse.SourceRow = 10
		dense := base
		dense.Months = Months{Apr: 1, May: 1, Jun: 1, Jul: 1, Aug: 1, Sep: 1, Oct: 1, Nov: 1, Dec: 1}
		dense.SourceRow = 42

		got := Dedup([]Record{sparse, dense})
		require.Len(t, got, 1)
		assert.Equal(t, 42, got[0].SourceRow)
		assert.Equal(t, 9, got[0].Months.Present())
	})

	t.Run("ties keep the first seen", func(t *testing.T) {
		first := base
		first.Months = Months{Apr: 5}
		first.SourceRow = 1
		second := base
		second.Months = Months{May: 7}
		second.SourceRow = 2

		got := Dedup([]Record{first, second})
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].SourceRow)
	})

	t.Run("plot location separates records", func(t *testing.T) {
		other := base
		other.PlotLocation = "PSS-3"

		got := Dedup([]Record{base, other})
		assert.Len(t, got, 2)
	})

	t.Run("provenance is not part of the key", func(t *testing.T) {
		a := base
		a.SourceSheet, a.SourceRow = "Summary Linked", 4
		b := base
		b.SourceSheet, b.SourceRow = "Plan", 99

		assert.Len(t, Dedup([]Record{a, b}), 1)
	})

	t.Run("output preserves first seen group order", func(t *testing.T) {
		x := base
		x.ProjectName = "X"
		y := base
		y.ProjectName = "Y"
		z := base
		z.ProjectName = "Z"
		yBetter := y
		yBetter.Months = Months{Apr: 1}

		got := Dedup([]Record{y, x, z, yBetter})
		require.Len(t, got, 3)
		assert.Equal(t, "Y", got[0].ProjectName)
		assert.Equal(t, 1, got[0].Months.Present())
		assert.Equal(t, "X", got[1].ProjectName)
		assert.Equal(t, "Z", got[2].ProjectName)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Dedup(nil))
	})
}

func TestDedup_Idempotent(t *testing.T) {
	gen := NewTestDataGeneratorWithSeed(11)
	records := gen.Records("FY_24-25", 40)
	records = append(records, records[:15]...)

	once := Dedup(records)
	twice := Dedup(once)
	assert.Equal(t, once, twice)

	keys := make(map[Key]bool)
	for _, r := range once {
		k := r.NaturalKey()
		assert.False(t, keys[k], "duplicate key %+v", k)
		keys[k] = true
	}
}
