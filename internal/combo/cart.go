package combo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotComboLine is returned when re-opening a cart line that is not a
// composite combo line.
var ErrNotComboLine = errors.New("cart line is not a combo line")

// CartSubItem is one chosen product of a combo cart line. Price is the
// per-unit extra price.
type CartSubItem struct {
	ProductKey  string          `json:"productKey"`
	GroupKey    string          `json:"groupKey,omitempty"`
	DisplayName string          `json:"displayName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// CartLineItem is a finalized combo in the cart.
type CartLineItem struct {
	ProductKey  string          `json:"productKey"`
	Quantity    int             `json:"quantity"`
	IsMainCombo bool            `json:"isMainCombo"`
	Notes       string          `json:"notes,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Items       []CartSubItem   `json:"items"`
}

// Materialize turns selections into a cart line. Items follow group order,
// then the order they were chosen in. UnitPrice is base price plus extras.
func Materialize(c *Combo, sel Selections, in CommitInput) CartLineItem {
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	line := CartLineItem{
		ProductKey:  c.ProductKey,
		Quantity:    qty,
		IsMainCombo: true,
		Notes:       in.Notes,
		UnitPrice:   in.Pricing.Total(c.BasePrice, c, sel),
		Items:       []CartSubItem{},
	}
	for _, g := range c.Groups {
		for _, s := range sel[g.Key] {
			item, ok := g.Item(s.ProductKey)
			if !ok || s.Quantity <= 0 {
				continue
			}
			line.Items = append(line.Items, CartSubItem{
				ProductKey:  item.ProductKey,
				GroupKey:    g.Key,
				DisplayName: item.DisplayName,
				Quantity:    s.Quantity,
				Price:       in.Pricing.ExtraPrice(item),
			})
		}
	}
	return line
}

// Rehydrate rebuilds selections from a combo cart line against the current
// catalog. A sub-item is placed in its recorded group when that group still
// offers it, otherwise in the first group that does. Missing quantities
// count as 1. A group never ends up above its MaxQuantity: a sub-item that
// does not fit is cut to the room left or dropped. Product keys the catalog
// no longer offers, and keys cut or dropped for the group limit, are
// returned as unmatched.
func Rehydrate(c *Combo, line CartLineItem) (Selections, []string, error) {
	if !line.IsMainCombo {
		return nil, nil, ErrNotComboLine
	}
	if line.ProductKey != c.ProductKey {
		return nil, nil, fmt.Errorf("cart line product %s does not match combo %s", line.ProductKey, c.ProductKey)
	}

	sel := make(Selections)
	var unmatched []string
	for _, sub := range line.Items {
		groupKey := ""
		if sub.GroupKey != "" {
			if g, ok := c.Group(sub.GroupKey); ok {
				if _, ok := g.Item(sub.ProductKey); ok {
					groupKey = g.Key
				}
			}
		}
		if groupKey == "" {
			k, ok := c.GroupOf(sub.ProductKey)
			if !ok {
				unmatched = append(unmatched, sub.ProductKey)
				continue
			}
			groupKey = k
		}

		qty := sub.Quantity
		if qty <= 0 {
			qty = 1
		}
		if g, _ := c.Group(groupKey); g.MaxQuantity > 0 {
			room := g.MaxQuantity - sel.Total(groupKey)
			if qty > room {
				unmatched = append(unmatched, sub.ProductKey)
				qty = room
			}
			if qty <= 0 {
				continue
			}
		}
		merged := false
		for i, it := range sel[groupKey] {
			if it.ProductKey == sub.ProductKey {
				sel[groupKey][i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			sel[groupKey] = append(sel[groupKey], SelectedItem{ProductKey: sub.ProductKey, Quantity: qty})
		}
	}
	return sel, unmatched, nil
}

// ResumeEngine opens an engine on an existing cart line so it can be edited.
// The engine starts on the review step.
func ResumeEngine(c *Combo, line CartLineItem) (*Engine, []string, error) {
	sel, unmatched, err := Rehydrate(c, line)
	if err != nil {
		return nil, nil, err
	}
	e := NewEngine(c)
	e.selections = sel
	e.active = e.ReviewIndex()
	return e, unmatched, nil
}
