package combo

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Combo is the branch-resolved structure the selection engine consumes.
type Combo struct {
	ProductKey string          `json:"productKey"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"basePrice"`
	Groups     []CatalogGroup  `json:"groups"`
}

// CatalogGroup is one group of a resolved combo, items in screen order.
type CatalogGroup struct {
	Key            string        `json:"key"`
	GroupName      string        `json:"groupName"`
	SubGroupName   string        `json:"subGroupName,omitempty"`
	GroupOrderID   int           `json:"groupOrderId"`
	IsForcedGroup  bool          `json:"isForcedGroup"`
	ForcedQuantity int           `json:"forcedQuantity"`
	MaxQuantity    int           `json:"maxQuantity"`
	Items          []CatalogItem `json:"items"`
}

// Required reports whether checkout needs this group satisfied.
func (g CatalogGroup) Required() bool {
	return g.IsForcedGroup || g.ForcedQuantity > 0
}

// RequiredQuantity is the total a required group must reach. A group
// flagged forced with no ForcedQuantity needs one item.
func (g CatalogGroup) RequiredQuantity() int {
	if g.ForcedQuantity > 0 {
		return g.ForcedQuantity
	}
	if g.IsForcedGroup {
		return 1
	}
	return 0
}

// Item returns the item with the given product key.
func (g CatalogGroup) Item(productKey string) (CatalogItem, bool) {
	for _, it := range g.Items {
		if it.ProductKey == productKey {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// CatalogItem is a selectable product in a group.
type CatalogItem struct {
	ProductKey      string            `json:"productKey"`
	DisplayName     string            `json:"displayName"`
	ExtraPrice      decimal.Decimal   `json:"extraPrice"`
	Prices          PriceSet          `json:"-"`
	Translations    map[string]string `json:"translations,omitempty"`
	DefaultQuantity int               `json:"defaultQuantity"`
	IsDefault       bool              `json:"isDefault"`
	ScreenOrderID   int               `json:"screenOrderId"`
}

// Labeler returns the display name and translations of a product.
type Labeler func(productKey string) (displayName string, translations map[string]string)

// ResolveInput is everything read from storage for one combo and branch.
// Rows of other branches are ignored.
type ResolveInput struct {
	ProductKey string
	BranchID   int
	BasePrice  decimal.Decimal
	Headers    []Header
	Groups     []Group
	Details    []Detail
	Label      Labeler
	Pricing    Pricing
}

// Resolve builds the combo for one branch.
//
// Rows with BranchID 0 are the defaults. A group row of the requested branch
// replaces the default attributes of the same (GroupName, SubGroupName); its
// details extend the default item set, replacing a default item with the
// same ProductKey. Groups end up in GroupOrderID order, items in
// ScreenOrderID order, and groups without items are dropped.
func Resolve(in ResolveInput) *Combo {
	c := &Combo{ProductKey: in.ProductKey, BasePrice: in.BasePrice}

	for _, h := range in.Headers {
		if h.BranchID == in.BranchID && in.BranchID != 0 {
			c.Name = h.ComboName
			break
		}
		if h.BranchID == 0 && c.Name == "" {
			c.Name = h.ComboName
		}
	}

	groups := make(map[string]*CatalogGroup)
	overridden := make(map[string]bool)
	var order []string

	for _, g := range in.Groups {
		if g.BranchID != 0 && g.BranchID != in.BranchID {
			continue
		}
		key := g.Key()
		existing, ok := groups[key]
		switch {
		case !ok:
			order = append(order, key)
			groups[key] = newCatalogGroup(g)
			overridden[key] = g.BranchID != 0
		case g.BranchID != 0 && !overridden[key]:
			items := existing.Items
			*existing = *newCatalogGroup(g)
			existing.Items = items
			overridden[key] = true
		}
	}

	defaults := make(map[string]map[string]int) // group key -> product key -> item index
	for _, pass := range []bool{false, true} {
		for _, d := range in.Details {
			isBranch := d.BranchID != 0
			if isBranch != pass || (isBranch && d.BranchID != in.BranchID) {
				continue
			}
			key := GroupKey(d.GroupName, d.SubGroupName)
			g, ok := groups[key]
			if !ok {
				continue
			}
			item := newCatalogItem(d, in.Label, in.Pricing)
			idx, ok := defaults[key]
			if !ok {
				idx = make(map[string]int)
				defaults[key] = idx
			}
			if pos, dup := idx[d.ProductKey]; dup {
				if isBranch {
					g.Items[pos] = item
				}
				continue
			}
			idx[d.ProductKey] = len(g.Items)
			g.Items = append(g.Items, item)
		}
	}

	for _, key := range order {
		g := groups[key]
		if len(g.Items) == 0 {
			continue
		}
		sort.SliceStable(g.Items, func(i, j int) bool {
			return g.Items[i].ScreenOrderID < g.Items[j].ScreenOrderID
		})
		c.Groups = append(c.Groups, *g)
	}
	sort.SliceStable(c.Groups, func(i, j int) bool {
		return c.Groups[i].GroupOrderID < c.Groups[j].GroupOrderID
	})

	return c
}

func newCatalogGroup(g Group) *CatalogGroup {
	return &CatalogGroup{
		Key:            g.Key(),
		GroupName:      g.GroupName,
		SubGroupName:   g.SubGroupName,
		GroupOrderID:   g.GroupOrderID,
		IsForcedGroup:  g.IsForcedGroup,
		ForcedQuantity: g.ForcedQuantity,
		MaxQuantity:    g.MaxQuantity,
	}
}

func newCatalogItem(d Detail, label Labeler, p Pricing) CatalogItem {
	item := CatalogItem{
		ProductKey:      d.ProductKey,
		DisplayName:     d.ProductKey,
		Prices:          d.ExtraPrices,
		ExtraPrice:      p.unitExtra(d.ExtraPrices),
		DefaultQuantity: d.DefaultQuantity,
		IsDefault:       d.IsDefault,
		ScreenOrderID:   d.ScreenOrderID,
	}
	if label != nil {
		name, tr := label(d.ProductKey)
		if name != "" {
			item.DisplayName = name
		}
		item.Translations = tr
	}
	return item
}

// Group returns the group with the given key.
func (c *Combo) Group(key string) (CatalogGroup, bool) {
	for _, g := range c.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return CatalogGroup{}, false
}

// GroupOf returns the key of the first group, in group order, that offers
// productKey.
func (c *Combo) GroupOf(productKey string) (string, bool) {
	for _, g := range c.Groups {
		if _, ok := g.Item(productKey); ok {
			return g.Key, true
		}
	}
	return "", false
}
