package project

// Dedup collapses records sharing a natural key. The record with the most
// reported months wins; ties keep the first one seen. Output order follows
// the first appearance of each key.
func Dedup(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}

	index := make(map[Key]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r.NaturalKey()
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if r.Months.Present() > out[i].Months.Present() {
			out[i] = r
		}
	}
	return out
}
