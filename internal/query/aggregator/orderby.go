package aggregator

import "sort"

// Result is one output row.
type Result struct {
	Nation    string
	Revenue   float64
	LineItems int64
}

// SortByRevenue orders results by revenue descending. Equal revenues are
// ordered by nation name so output is reproducible.
func SortByRevenue(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Revenue != results[j].Revenue {
			return results[i].Revenue > results[j].Revenue
		}
		return results[i].Nation < results[j].Nation
	})
}
