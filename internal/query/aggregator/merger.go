package aggregator

import "sync"

// ResultAccumulator is the shared nation name to revenue map. Workers merge
// whole partial results into it; totals only ever grow.
type ResultAccumulator struct {
	mu     sync.Mutex
	groups map[string]Revenue
	merges int
}

// NewResultAccumulator creates an empty accumulator.
func NewResultAccumulator() *ResultAccumulator {
	return &ResultAccumulator{groups: make(map[string]Revenue)}
}

// Merge adds every group of p under a single lock acquisition.
func (a *ResultAccumulator) Merge(p *PartialRevenue) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for nation, r := range p.groups {
		cur := a.groups[nation]
		cur.Sum += r.Sum
		cur.Count += r.Count
		a.groups[nation] = cur
	}
	a.merges++
}

// Len returns the number of nations accumulated.
func (a *ResultAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Merges returns how many partials have been merged.
func (a *ResultAccumulator) Merges() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.merges
}

// Results returns a copy of the accumulated totals in no particular order.
func (a *ResultAccumulator) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Result, 0, len(a.groups))
	for nation, r := range a.groups {
		out = append(out, Result{Nation: nation, Revenue: r.Sum, LineItems: r.Count})
	}
	return out
}
