// Package aggregator computes revenue per nation by scanning lineitem in
// parallel partitions and merging each partition's partial result into a
// shared accumulator.
package aggregator

// Revenue is the running total for one nation.
type Revenue struct {
	Sum   float64 // sum of extendedprice * (1 - discount)
	Count int64   // contributing lineitems
}

// PartialRevenue holds one partition's totals keyed by nation name. It is
// owned by a single worker and needs no locking.
type PartialRevenue struct {
	groups map[string]*Revenue
}

// NewPartialRevenue creates an empty partial result.
func NewPartialRevenue() *PartialRevenue {
	return &PartialRevenue{groups: make(map[string]*Revenue)}
}

// Accumulate adds amount to nation.
func (p *PartialRevenue) Accumulate(nation string, amount float64) {
	r, ok := p.groups[nation]
	if !ok {
		r = &Revenue{}
		p.groups[nation] = r
	}
	r.Sum += amount
	r.Count++
}

// Len returns the number of nations with at least one contribution.
func (p *PartialRevenue) Len() int {
	return len(p.groups)
}

// Get returns the totals for nation.
func (p *PartialRevenue) Get(nation string) (Revenue, bool) {
	r, ok := p.groups[nation]
	if !ok {
		return Revenue{}, false
	}
	return *r, true
}
