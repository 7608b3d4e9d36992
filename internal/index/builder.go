// Package index builds the filtered hash lookups the revenue scan joins
// against. All lookups are keyed by the raw field text; no whitespace or
// leading-zero normalization is applied.
package index

import (
	"errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arkilian/tpchq5/internal/bloom"
	"github.com/arkilian/tpchq5/pkg/types"
)

// DefaultOrderFilterFPR is the false positive rate of the order pre-check.
const DefaultOrderFilterFPR = 0.01

// ErrMissingTable is returned when a required table was not loaded.
var ErrMissingTable = errors.New("index: required table not loaded")

// Filter selects the region and the half-open order date range
// [StartDate, EndDate). Dates are compared as strings.
type Filter struct {
	Region    string
	StartDate string
	EndDate   string
}

// InRange reports whether date lies in [StartDate, EndDate).
func (f Filter) InRange(date string) bool {
	return date >= f.StartDate && date < f.EndDate
}

// Indexes holds every lookup built for one run. It is not modified after
// Build returns and may be shared by any number of readers.
type Indexes struct {
	// ValidRegionKeys holds the keys of regions named Filter.Region
	ValidRegionKeys map[string]struct{}

	// ValidNations holds the keys of nations in a valid region
	ValidNations map[string]struct{}

	// NationNames maps valid nation key to n_name
	NationNames map[string]string

	// CustomerNation maps customer key to nation key for customers in a valid nation
	CustomerNation map[string]string

	// SupplierNation maps supplier key to nation key for suppliers in a valid nation
	SupplierNation map[string]string

	// EligibleOrders maps order key to customer key for orders in the date
	// range whose customer is in CustomerNation
	EligibleOrders map[string]string

	// OrderFilter contains every EligibleOrders key
	OrderFilter *bloom.Filter
}

// Stats summarizes index sizes.
type Stats struct {
	Regions   int
	Nations   int
	Customers int
	Suppliers int
	Orders    int
}

// Stats returns the size of each index.
func (ix *Indexes) Stats() Stats {
	return Stats{
		Regions:   len(ix.ValidRegionKeys),
		Nations:   len(ix.ValidNations),
		Customers: len(ix.CustomerNation),
		Suppliers: len(ix.SupplierNation),
		Orders:    len(ix.EligibleOrders),
	}
}

// Builder constructs Indexes from loaded tables.
type Builder struct {
	logger log.Logger
	fpr    float64
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(logger log.Logger) *Builder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Builder{
		logger: log.With(logger, "component", "index"),
		fpr:    DefaultOrderFilterFPR,
	}
}

// Build scans region, nation, customer, supplier and orders in that order,
// applying the filter as early as possible. Later rows with a duplicate key
// replace earlier ones.
func (b *Builder) Build(tables *types.Tables, f Filter) (*Indexes, error) {
	if tables == nil || tables.Region == nil || tables.Nation == nil ||
		tables.Customer == nil || tables.Supplier == nil || tables.Orders == nil {
		return nil, ErrMissingTable
	}

	level.Info(b.logger).Log("msg", "building lookup tables", "region", f.Region, "start_date", f.StartDate, "end_date", f.EndDate)

	ix := &Indexes{
		ValidRegionKeys: make(map[string]struct{}),
		ValidNations:    make(map[string]struct{}),
		NationNames:     make(map[string]string),
		CustomerNation:  make(map[string]string),
		SupplierNation:  make(map[string]string),
		EligibleOrders:  make(map[string]string),
	}

	for _, row := range tables.Region.Rows {
		r := row.AsRegion()
		if r.Name == f.Region {
			ix.ValidRegionKeys[r.Key] = struct{}{}
		}
	}

	for _, row := range tables.Nation.Rows {
		n := row.AsNation()
		if _, ok := ix.ValidRegionKeys[n.RegionKey]; ok {
			ix.ValidNations[n.Key] = struct{}{}
			ix.NationNames[n.Key] = n.Name
		}
	}

	level.Debug(b.logger).Log("msg", "processing customers", "rows", tables.Customer.Len())
	for _, row := range tables.Customer.Rows {
		c := row.AsCustomer()
		if _, ok := ix.ValidNations[c.NationKey]; ok {
			ix.CustomerNation[c.Key] = c.NationKey
		}
	}

	level.Debug(b.logger).Log("msg", "processing suppliers", "rows", tables.Supplier.Len())
	for _, row := range tables.Supplier.Rows {
		s := row.AsSupplier()
		if _, ok := ix.ValidNations[s.NationKey]; ok {
			ix.SupplierNation[s.Key] = s.NationKey
		}
	}

	level.Debug(b.logger).Log("msg", "processing orders", "rows", tables.Orders.Len())
	for _, row := range tables.Orders.Rows {
		o := row.AsOrder()
		if !f.InRange(o.Date) {
			continue
		}
		if _, ok := ix.CustomerNation[o.CustKey]; ok {
			ix.EligibleOrders[o.Key] = o.CustKey
		}
	}

	ix.OrderFilter = bloom.NewWithEstimates(len(ix.EligibleOrders), b.fpr)
	for key := range ix.EligibleOrders {
		ix.OrderFilter.Add(key)
	}

	st := ix.Stats()
	level.Info(b.logger).Log(
		"msg", "lookup tables built",
		"regions", st.Regions,
		"nations", st.Nations,
		"customers", st.Customers,
		"suppliers", st.Suppliers,
		"orders", st.Orders,
	)
	return ix, nil
}
