package types

// TableSchema defines the fixed column layout of one source table.
type TableSchema struct {
	// Name is the table name and the base name of its .tbl file
	Name string `json:"name"`

	// Columns defines the columns in file order
	Columns []ColumnDef `json:"columns"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the SQLite type used by the reference executor: TEXT, INTEGER, REAL
	Type string `json:"type"`
}

// ColumnIndex returns the position of the named column, or -1.
func (s TableSchema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in file order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Width is the minimum number of fields a line needs to be loaded.
func (s TableSchema) Width() int {
	return len(s.Columns)
}

func cols(defs ...string) []ColumnDef {
	out := make([]ColumnDef, 0, len(defs)/2)
	for i := 0; i+1 < len(defs); i += 2 {
		out = append(out, ColumnDef{Name: defs[i], Type: defs[i+1]})
	}
	return out
}

// Table names.
const (
	TableCustomer = "customer"
	TableOrders   = "orders"
	TableLineItem = "lineitem"
	TableSupplier = "supplier"
	TableNation   = "nation"
	TableRegion   = "region"
)

var (
	CustomerSchema = TableSchema{Name: TableCustomer, Columns: cols(
		"c_custkey", "TEXT",
		"c_name", "TEXT",
		"c_address", "TEXT",
		"c_nationkey", "TEXT",
		"c_phone", "TEXT",
		"c_acctbal", "REAL",
		"c_mktsegment", "TEXT",
		"c_comment", "TEXT",
	)}

	OrdersSchema = TableSchema{Name: TableOrders, Columns: cols(
		"o_orderkey", "TEXT",
		"o_custkey", "TEXT",
		"o_orderstatus", "TEXT",
		"o_totalprice", "REAL",
		"o_orderdate", "TEXT",
		"o_orderpriority", "TEXT",
		"o_clerk", "TEXT",
		"o_shippriority", "INTEGER",
		"o_comment", "TEXT",
	)}

	LineItemSchema = TableSchema{Name: TableLineItem, Columns: cols(
		"l_orderkey", "TEXT",
		"l_partkey", "TEXT",
		"l_suppkey", "TEXT",
		"l_linenumber", "INTEGER",
		"l_quantity", "REAL",
		"l_extendedprice", "REAL",
		"l_discount", "REAL",
		"l_tax", "REAL",
		"l_returnflag", "TEXT",
		"l_linestatus", "TEXT",
		"l_shipdate", "TEXT",
		"l_commitdate", "TEXT",
		"l_receiptdate", "TEXT",
		"l_shipinstruct", "TEXT",
		"l_shipmode", "TEXT",
		"l_comment", "TEXT",
	)}

	SupplierSchema = TableSchema{Name: TableSupplier, Columns: cols(
		"s_suppkey", "TEXT",
		"s_name", "TEXT",
		"s_address", "TEXT",
		"s_nationkey", "TEXT",
		"s_phone", "TEXT",
		"s_acctbal", "REAL",
		"s_comment", "TEXT",
	)}

	NationSchema = TableSchema{Name: TableNation, Columns: cols(
		"n_nationkey", "TEXT",
		"n_name", "TEXT",
		"n_regionkey", "TEXT",
		"n_comment", "TEXT",
	)}

	RegionSchema = TableSchema{Name: TableRegion, Columns: cols(
		"r_regionkey", "TEXT",
		"r_name", "TEXT",
		"r_comment", "TEXT",
	)}
)

// Schemas lists every source table in load order.
func Schemas() []TableSchema {
	return []TableSchema{
		CustomerSchema,
		OrdersSchema,
		LineItemSchema,
		SupplierSchema,
		NationSchema,
		RegionSchema,
	}
}
