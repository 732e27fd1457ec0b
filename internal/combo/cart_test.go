package combo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing_OrderIndependent(t *testing.T) {
	c := mealCombo()

	a := NewEngine(c)
	_, _ = a.SetQuantity("Drinks", "COLA", 1)
	_, _ = a.SetQuantity("Drinks", "AYRAN", 2)
	_, _ = a.SetQuantity("Dessert", "CAKE", 1)
	_, _ = a.SetQuantity("Sauces", "MAYO", 2)

	b := NewEngine(c)
	_, _ = b.SetQuantity("Sauces", "MAYO", 2)
	_, _ = b.SetQuantity("Dessert", "CAKE", 1)
	_, _ = b.SetQuantity("Drinks", "AYRAN", 2)
	_, _ = b.SetQuantity("Drinks", "COLA", 1)

	ta := DefaultPricing.Total(c.BasePrice, c, a.Selections())
	tb := DefaultPricing.Total(c.BasePrice, c, b.Selections())
	assert.True(t, ta.Equal(tb))
	// 50 + 2*2.50 + 15 + 2*1
	assert.Equal(t, "72.00", Format(ta))
}

func TestPricing_ChannelAndCurrency(t *testing.T) {
	c := &Combo{
		BasePrice: decimal.NewFromInt(10),
		Groups: []CatalogGroup{{
			Key: "Drinks",
			Items: []CatalogItem{{ProductKey: "COLA", Prices: PriceSet{
				TakeOutTL:   decimal.NewFromInt(1),
				DeliveryTL:  decimal.NewFromInt(2),
				DeliveryUSD: decimal.RequireFromString("0.10"),
			}}},
		}},
	}
	sel := Selections{"Drinks": {{ProductKey: "COLA", Quantity: 3}}}

	assert.Equal(t, "13.00", Format(Pricing{}.Total(c.BasePrice, c, sel)))
	assert.Equal(t, "16.00", Format(Pricing{Channel: ChannelDelivery, Currency: CurrencyTL}.Total(c.BasePrice, c, sel)))
	assert.Equal(t, "0.30", Format(Pricing{Channel: ChannelDelivery, Currency: CurrencyUSD}.Extras(c, sel)))
}

func TestPricing_IgnoresUnknownSelections(t *testing.T) {
	c := sideCombo()
	sel := Selections{
		"Side":  {{ProductKey: "B", Quantity: 1}, {ProductKey: "GONE", Quantity: 4}},
		"Other": {{ProductKey: "A", Quantity: 1}},
	}
	assert.Equal(t, "10.00", Format(DefaultPricing.Extras(c, sel)))
}

func TestMaterialize(t *testing.T) {
	c := mealCombo()
	sel := Selections{
		"Dessert": {{ProductKey: "CAKE", Quantity: 1}},
		"Drinks":  {{ProductKey: "AYRAN", Quantity: 1}, {ProductKey: "COLA", Quantity: 1}},
	}

	line := Materialize(c, sel, CommitInput{Notes: "no ice", Pricing: DefaultPricing})

	assert.Equal(t, "MEAL", line.ProductKey)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.IsMainCombo)
	assert.Equal(t, "no ice", line.Notes)
	assert.Equal(t, "67.50", Format(line.UnitPrice))
	require.Len(t, line.Items, 3)
	assert.Equal(t, "AYRAN", line.Items[0].ProductKey)
	assert.Equal(t, "Ayran", line.Items[0].DisplayName)
	assert.Equal(t, "2.50", Format(line.Items[0].Price))
	assert.Equal(t, "COLA", line.Items[1].ProductKey)
	assert.Equal(t, "CAKE", line.Items[2].ProductKey)
	assert.Equal(t, "Dessert", line.Items[2].GroupKey)
}

func TestCommit_Quantity(t *testing.T) {
	e := NewEngine(sideCombo())
	_, err := e.SetQuantity("Side", "B", 1)
	require.NoError(t, err)

	line, err := e.Commit(CommitInput{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, "110.00", Format(line.UnitPrice), "unit price is per combo")
}

func TestRehydrate_RoundTrip(t *testing.T) {
	c := mealCombo()
	e := NewEngine(c)
	_, err := e.SetQuantity("Drinks", "COLA", 2)
	require.NoError(t, err)
	_, err = e.SetQuantity("Sauces", "MAYO", 1)
	require.NoError(t, err)
	_, err = e.SetQuantity("Dessert", "CAKE", 1)
	require.NoError(t, err)

	line, err := e.Commit(CommitInput{})
	require.NoError(t, err)

	resumed, unmatched, err := ResumeEngine(c, line)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	assert.Equal(t, e.Selections(), resumed.Selections())
	assert.True(t, resumed.InReview())

	again, err := resumed.Commit(CommitInput{})
	require.NoError(t, err)
	assert.Equal(t, line.Items, again.Items)
	assert.True(t, line.UnitPrice.Equal(again.UnitPrice))
}

func TestRehydrate_LegacyLine(t *testing.T) {
	c := mealCombo()
	line := CartLineItem{
		ProductKey:  "MEAL",
		IsMainCombo: true,
		Items: []CartSubItem{
			{ProductKey: "COLA"},
			{ProductKey: "COLA", Quantity: 1},
			{ProductKey: "KETCHUP", GroupKey: "Dessert", Quantity: 1},
			{ProductKey: "RETIRED", Quantity: 1},
		},
	}

	sel, unmatched, err := Rehydrate(c, line)
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Quantity("Drinks", "COLA"), "duplicates merge and missing quantity counts as one")
	assert.Equal(t, 1, sel.Quantity("Sauces", "KETCHUP"), "stale group key falls back to the offering group")
	assert.Equal(t, []string{"RETIRED"}, unmatched)
}

func TestRehydrate_ClampsToMaxQuantity(t *testing.T) {
	c := sideCombo()
	line := CartLineItem{
		ProductKey:  "MENU",
		IsMainCombo: true,
		Items: []CartSubItem{
			{ProductKey: "B", GroupKey: "Side", Quantity: 1},
			{ProductKey: "A", GroupKey: "Side", Quantity: 1},
			{ProductKey: "B", GroupKey: "Side", Quantity: 2},
		},
	}

	e, dropped, err := ResumeEngine(c, line)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, dropped)

	sel := e.Selections()
	assert.Equal(t, 1, sel.Total("Side"))
	assert.Equal(t, 1, sel.Quantity("Side", "B"))

	committed, err := e.Commit(CommitInput{Pricing: DefaultPricing})
	require.NoError(t, err)
	require.Len(t, committed.Items, 1)
	assert.Equal(t, 1, committed.Items[0].Quantity)
	assert.Equal(t, "110.00", Format(committed.UnitPrice))
}

func TestRehydrate_CutsToRoomLeft(t *testing.T) {
	c := mealCombo()
	line := CartLineItem{
		ProductKey:  "MEAL",
		IsMainCombo: true,
		Items: []CartSubItem{
			{ProductKey: "COLA", GroupKey: "Drinks", Quantity: 2},
			{ProductKey: "AYRAN", GroupKey: "Drinks", Quantity: 5},
		},
	}

	sel, dropped, err := Rehydrate(c, line)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.Total("Drinks"))
	assert.Equal(t, 1, sel.Quantity("Drinks", "AYRAN"))
	assert.Equal(t, []string{"AYRAN"}, dropped)
}

func TestRehydrate_Rejects(t *testing.T) {
	c := mealCombo()

	_, _, err := Rehydrate(c, CartLineItem{ProductKey: "MEAL"})
	assert.ErrorIs(t, err, ErrNotComboLine)

	_, _, err = Rehydrate(c, CartLineItem{ProductKey: "OTHER", IsMainCombo: true})
	assert.Error(t, err)
}
