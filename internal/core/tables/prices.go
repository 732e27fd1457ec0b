package tables

import "github.com/JonMunkholm/combokiosk/internal/combo"

// priceSuffixes are the column suffixes of a PriceSet, in storage order.
var priceSuffixes = []string{
	"takeout_tl", "takeout_usd", "takeout_eur", "takeout_gbp",
	"delivery_tl", "delivery_usd", "delivery_eur", "delivery_gbp",
}

// PriceColumns returns the eight price columns with the given prefix.
func PriceColumns(prefix string) []string {
	out := make([]string, len(priceSuffixes))
	for i, s := range priceSuffixes {
		out[i] = prefix + s
	}
	return out
}

// priceValues returns p in PriceColumns order.
func priceValues(p combo.PriceSet) []any {
	return []any{
		p.TakeOutTL, p.TakeOutUSD, p.TakeOutEUR, p.TakeOutGBP,
		p.DeliveryTL, p.DeliveryUSD, p.DeliveryEUR, p.DeliveryGBP,
	}
}
