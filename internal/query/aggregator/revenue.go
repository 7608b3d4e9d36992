package aggregator

import (
	"github.com/shopspring/decimal"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
)

var one = decimal.NewFromInt(1)

// ComputeRevenue returns extendedPrice * (1 - discount). Both operands are
// parsed as decimals so the per-row product is exact before conversion.
func ComputeRevenue(extendedPrice, discount string) (float64, error) {
	price, err := decimal.NewFromString(extendedPrice)
	if err != nil {
		return 0, engerrors.NewParseError("l_extendedprice", extendedPrice, err)
	}
	disc, err := decimal.NewFromString(discount)
	if err != nil {
		return 0, engerrors.NewParseError("l_discount", discount, err)
	}
	return price.Mul(one.Sub(disc)).InexactFloat64(), nil
}
