// Package tpchtest builds small TPC-H datasets for tests and benchmarks.
package tpchtest

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkilian/tpchq5/pkg/types"
)

// Dataset is an in-memory set of the six tables.
type Dataset struct {
	rows map[string][]types.Row
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{rows: make(map[string][]types.Row)}
}

func (d *Dataset) add(schema types.TableSchema, fields map[int]string) *Dataset {
	row := make(types.Row, schema.Width())
	for i, c := range schema.Columns {
		row[i] = "x" + c.Name
	}
	for i, v := range fields {
		row[i] = v
	}
	d.rows[schema.Name] = append(d.rows[schema.Name], row)
	return d
}

// Region adds a region row.
func (d *Dataset) Region(key, name string) *Dataset {
	return d.add(types.RegionSchema, map[int]string{
		types.RegionKey:  key,
		types.RegionName: name,
	})
}

// Nation adds a nation row.
func (d *Dataset) Nation(key, name, regionKey string) *Dataset {
	return d.add(types.NationSchema, map[int]string{
		types.NationKey:       key,
		types.NationName:      name,
		types.NationRegionKey: regionKey,
	})
}

// Customer adds a customer row.
func (d *Dataset) Customer(key, nationKey string) *Dataset {
	return d.add(types.CustomerSchema, map[int]string{
		types.CustomerKey:       key,
		types.CustomerNationKey: nationKey,
		5:                       "100.00",
	})
}

// Supplier adds a supplier row.
func (d *Dataset) Supplier(key, nationKey string) *Dataset {
	return d.add(types.SupplierSchema, map[int]string{
		types.SupplierKey:       key,
		types.SupplierNationKey: nationKey,
		5:                       "100.00",
	})
}

// Order adds an orders row.
func (d *Dataset) Order(key, custKey, date string) *Dataset {
	return d.add(types.OrdersSchema, map[int]string{
		types.OrderKey:     key,
		types.OrderCustKey: custKey,
		types.OrderDate:    date,
		3:                  "1000.00",
		7:                  "0",
	})
}

// LineItem adds a lineitem row.
func (d *Dataset) LineItem(orderKey, suppKey, extendedPrice, discount string) *Dataset {
	return d.add(types.LineItemSchema, map[int]string{
		types.LineItemOrderKey:      orderKey,
		types.LineItemSuppKey:       suppKey,
		types.LineItemExtendedPrice: extendedPrice,
		types.LineItemDiscount:      discount,
		3:                           "1",
		4:                           "1",
		7:                           "0.00",
	})
}

// Tables returns the dataset as loaded tables.
func (d *Dataset) Tables() *types.Tables {
	tables := &types.Tables{}
	for _, schema := range types.Schemas() {
		tbl := types.NewTable(schema)
		tbl.Rows = append(tbl.Rows, d.rows[schema.Name]...)
		tables.Set(tbl)
	}
	return tables
}

// WriteDir writes every table as <name>.tbl with a trailing delimiter on
// each line, the way dbgen does.
func (d *Dataset) WriteDir(dir string) error {
	for _, schema := range types.Schemas() {
		var b strings.Builder
		for _, row := range d.rows[schema.Name] {
			b.WriteString(strings.Join(row, "|"))
			b.WriteString("|\n")
		}
		path := filepath.Join(dir, schema.Name+".tbl")
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return err
		}
	}
	return nil
}

// India returns the single-match scenario: region ASIA (2) with nation
// INDIA (8), customer 1, supplier 1, order 100 on 1994-03-01 and one
// lineitem with extendedprice 2000.00 and discount 0.05.
func India() *Dataset {
	return New().
		Region("2", "ASIA").
		Nation("8", "INDIA", "2").
		Customer("1", "8").
		Supplier("1", "8").
		Order("100", "1", "1994-03-01").
		LineItem("100", "1", "2000.00", "0.05")
}

var (
	regionNames = []string{"AFRICA", "AMERICA", "ASIA", "EUROPE", "MIDDLE EAST"}
	nationNames = []string{
		"ALGERIA", "ARGENTINA", "BRAZIL", "CANADA", "EGYPT", "ETHIOPIA",
		"FRANCE", "GERMANY", "INDIA", "INDONESIA", "IRAN", "IRAQ", "JAPAN",
		"JORDAN", "KENYA", "MOROCCO", "MOZAMBIQUE", "PERU", "CHINA",
		"ROMANIA", "SAUDI ARABIA", "VIETNAM", "RUSSIA", "UNITED KINGDOM",
		"UNITED STATES",
	}
	nationRegions = []int{0, 1, 1, 1, 4, 0, 3, 3, 2, 2, 4, 4, 2, 4, 0, 0, 0, 1, 2, 3, 4, 2, 3, 3, 1}
)

// Random generates a dataset with the standard 5 regions and 25 nations and
// the given number of customers, suppliers, orders and lineitems. Order
// dates span 1992-01-01 to 1998-12-28.
func Random(seed int64, customers, suppliers, orders, lineitems int) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	d := New()

	for i, name := range regionNames {
		d.Region(fmt.Sprint(i), name)
	}
	for i, name := range nationNames {
		d.Nation(fmt.Sprint(i), name, fmt.Sprint(nationRegions[i]))
	}
	for i := 1; i <= customers; i++ {
		d.Customer(fmt.Sprint(i), fmt.Sprint(rng.Intn(len(nationNames))))
	}
	for i := 1; i <= suppliers; i++ {
		d.Supplier(fmt.Sprint(i), fmt.Sprint(rng.Intn(len(nationNames))))
	}
	for i := 1; i <= orders; i++ {
		date := fmt.Sprintf("%d-%02d-%02d", 1992+rng.Intn(7), 1+rng.Intn(12), 1+rng.Intn(28))
		d.Order(fmt.Sprint(i), fmt.Sprint(1+rng.Intn(customers)), date)
	}
	for i := 0; i < lineitems; i++ {
		price := fmt.Sprintf("%d.%02d", 900+rng.Intn(100000), rng.Intn(100))
		discount := fmt.Sprintf("0.%02d", rng.Intn(11))
		d.LineItem(fmt.Sprint(1+rng.Intn(orders)), fmt.Sprint(1+rng.Intn(suppliers)), price, discount)
	}
	return d
}
