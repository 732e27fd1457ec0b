package combo

import "github.com/shopspring/decimal"

// Pricing selects which price field of an item applies to an order. Only
// one channel and currency is used per order.
type Pricing struct {
	Channel  Channel
	Currency Currency
}

// DefaultPricing is take-out in TL.
var DefaultPricing = Pricing{Channel: ChannelTakeOut, Currency: CurrencyTL}

func (p Pricing) unitExtra(prices PriceSet) decimal.Decimal {
	ch, cur := p.Channel, p.Currency
	if ch == "" {
		ch = DefaultPricing.Channel
	}
	if cur == "" {
		cur = DefaultPricing.Currency
	}
	return prices.For(ch, cur)
}

// Price returns the price in prices for this channel and currency.
func (p Pricing) Price(prices PriceSet) decimal.Decimal {
	return p.unitExtra(prices)
}

// ExtraPrice is the per-unit surcharge of an item.
func (p Pricing) ExtraPrice(item CatalogItem) decimal.Decimal {
	return p.unitExtra(item.Prices)
}

// Extras sums extra price times quantity over every selected item.
// Selections that do not resolve to a catalog item add nothing.
func (p Pricing) Extras(c *Combo, sel Selections) decimal.Decimal {
	sum := decimal.Zero
	for groupKey, items := range sel {
		g, ok := c.Group(groupKey)
		if !ok {
			continue
		}
		for _, s := range items {
			item, ok := g.Item(s.ProductKey)
			if !ok || s.Quantity <= 0 {
				continue
			}
			sum = sum.Add(p.ExtraPrice(item).Mul(decimal.NewFromInt(int64(s.Quantity))))
		}
	}
	return sum
}

// Total is base price plus extras.
func (p Pricing) Total(base decimal.Decimal, c *Combo, sel Selections) decimal.Decimal {
	return base.Add(p.Extras(c, sel))
}

// Format renders a monetary amount with two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
