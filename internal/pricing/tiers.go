package pricing

import "github.com/shopspring/decimal"

// ProductSize is a bottle size offered by the catalog.
type ProductSize string

const (
	Size330ml ProductSize = "330ml"
	Size500ml ProductSize = "500ml"
	Size1L    ProductSize = "1L"
	Size1_5L  ProductSize = "1.5L"
	Size5L    ProductSize = "5L"
	Size19L   ProductSize = "19L"
)

// Tier maps a contiguous quantity range (inclusive bounds) to a unit price.
type Tier struct {
	MinQuantity int
	MaxQuantity int
	UnitPrice   decimal.Decimal
}

// CustomLabelSurcharge is the flat per-unit fee for a custom-printed label,
// independent of size and quantity.
var CustomLabelSurcharge = decimal.NewFromInt(5)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tiers is static configuration: per size, contiguous brackets covering
// [1, 10000] with unit prices non-increasing as quantity grows.
var tiers = map[ProductSize][]Tier{
	Size330ml: {
		{1, 10, d("8")},
		{11, 50, d("7.5")},
		{51, 100, d("7")},
		{101, 500, d("6.5")},
		{501, 1000, d("6")},
		{1001, 10000, d("5.5")},
	},
	Size500ml: {
		{1, 10, d("10")},
		{11, 50, d("9")},
		{51, 100, d("8")},
		{101, 500, d("7")},
		{501, 1000, d("6.5")},
		{1001, 5000, d("6")},
		{5001, 10000, d("5.5")},
	},
	Size1L: {
		{1, 10, d("15")},
		{11, 50, d("14")},
		{51, 100, d("13")},
		{101, 500, d("12.5")},
		{501, 1000, d("12")},
		{1001, 5000, d("11")},
		{5001, 10000, d("10.5")},
	},
	Size1_5L: {
		{1, 10, d("18")},
		{11, 50, d("17")},
		{51, 100, d("16")},
		{101, 500, d("15")},
		{501, 1000, d("14.5")},
		{1001, 5000, d("14")},
		{5001, 10000, d("13.5")},
	},
	Size5L: {
		{1, 10, d("30")},
		{11, 50, d("28")},
		{51, 100, d("26")},
		{101, 500, d("25")},
		{501, 1000, d("24")},
		{1001, 5000, d("23")},
		{5001, 10000, d("22")},
	},
	Size19L: {
		{1, 10, d("60")},
		{11, 25, d("58")},
		{26, 50, d("56")},
		{51, 100, d("54")},
		{101, 500, d("52")},
		{501, 1000, d("50")},
		{1001, 5000, d("48")},
		{5001, 10000, d("46")},
	},
}

// Sizes returns every size with a configured tier table.
func Sizes() []ProductSize {
	return []ProductSize{Size330ml, Size500ml, Size1L, Size1_5L, Size5L, Size19L}
}

// TiersFor returns the tier table for a size, nil if the size is unknown.
func TiersFor(size ProductSize) []Tier {
	return tiers[size]
}
