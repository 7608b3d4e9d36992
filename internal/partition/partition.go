// Package partition splits a row sequence into contiguous ranges for
// parallel scanning.
package partition

import "fmt"

// Range is the half-open row interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Split divides total rows into at most n contiguous ranges of
// ceil(total/n) rows. The last range may be shorter. Ranges that would
// start at or past total are not returned, so Split(0, n) is empty.
func Split(total, n int) ([]Range, error) {
	if n < 1 {
		return nil, fmt.Errorf("partition: worker count must be at least 1, got %d", n)
	}
	if total < 0 {
		return nil, fmt.Errorf("partition: negative row count %d", total)
	}

	chunk := (total + n - 1) / n
	ranges := make([]Range, 0, n)
	for i := 0; i < n; i++ {
		start := i * chunk
		if start >= total {
			break
		}
		end := start + chunk
		if end > total {
			end = total
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges, nil
}
