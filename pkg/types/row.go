// Package types provides the table schemas and row types shared by the
// loader, the index builder and the aggregator.
package types

// Row is one record of a source table. Fields are kept as raw strings in
// schema column order; a loaded row has at least Width() fields.
type Row []string

// Table is a loaded source table.
type Table struct {
	Schema TableSchema
	Rows   []Row

	// Dropped counts lines that had fewer fields than the schema
	Dropped int
}

// NewTable creates an empty table for the schema.
func NewTable(schema TableSchema) *Table {
	return &Table{Schema: schema}
}

// Len returns the number of loaded rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Field positions of the columns the query reads.
const (
	RegionKey  = 0
	RegionName = 1

	NationKey       = 0
	NationName      = 1
	NationRegionKey = 2

	CustomerKey       = 0
	CustomerNationKey = 3

	SupplierKey       = 0
	SupplierNationKey = 3

	OrderKey     = 0
	OrderCustKey = 1
	OrderDate    = 4

	LineItemOrderKey      = 0
	LineItemSuppKey       = 2
	LineItemExtendedPrice = 5
	LineItemDiscount      = 6
)

// Region is the typed view of a region row.
type Region struct {
	Key  string
	Name string
}

// Nation is the typed view of a nation row.
type Nation struct {
	Key       string
	Name      string
	RegionKey string
}

// Customer is the typed view of a customer row.
type Customer struct {
	Key       string
	NationKey string
}

// Supplier is the typed view of a supplier row.
type Supplier struct {
	Key       string
	NationKey string
}

// Order is the typed view of an orders row.
type Order struct {
	Key     string
	CustKey string
	Date    string
}

// LineItem is the typed view of a lineitem row.
type LineItem struct {
	OrderKey      string
	SuppKey       string
	ExtendedPrice string
	Discount      string
}

func (r Row) AsRegion() Region {
	return Region{Key: r[RegionKey], Name: r[RegionName]}
}

func (r Row) AsNation() Nation {
	return Nation{Key: r[NationKey], Name: r[NationName], RegionKey: r[NationRegionKey]}
}

func (r Row) AsCustomer() Customer {
	return Customer{Key: r[CustomerKey], NationKey: r[CustomerNationKey]}
}

func (r Row) AsSupplier() Supplier {
	return Supplier{Key: r[SupplierKey], NationKey: r[SupplierNationKey]}
}

func (r Row) AsOrder() Order {
	return Order{Key: r[OrderKey], CustKey: r[OrderCustKey], Date: r[OrderDate]}
}

func (r Row) AsLineItem() LineItem {
	return LineItem{
		OrderKey:      r[LineItemOrderKey],
		SuppKey:       r[LineItemSuppKey],
		ExtendedPrice: r[LineItemExtendedPrice],
		Discount:      r[LineItemDiscount],
	}
}

// Tables holds the six loaded source tables.
type Tables struct {
	Customer *Table
	Orders   *Table
	LineItem *Table
	Supplier *Table
	Nation   *Table
	Region   *Table
}

// Get returns the table with the given name, or nil.
func (t *Tables) Get(name string) *Table {
	switch name {
	case TableCustomer:
		return t.Customer
	case TableOrders:
		return t.Orders
	case TableLineItem:
		return t.LineItem
	case TableSupplier:
		return t.Supplier
	case TableNation:
		return t.Nation
	case TableRegion:
		return t.Region
	}
	return nil
}

// Set stores a table under its schema name.
func (t *Tables) Set(tbl *Table) {
	switch tbl.Schema.Name {
	case TableCustomer:
		t.Customer = tbl
	case TableOrders:
		t.Orders = tbl
	case TableLineItem:
		t.LineItem = tbl
	case TableSupplier:
		t.Supplier = tbl
	case TableNation:
		t.Nation = tbl
	case TableRegion:
		t.Region = tbl
	}
}
