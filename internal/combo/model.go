// Package combo holds the combo catalog model and the order-time engine that
// walks a customer through group selection, prices the result and turns it
// into a cart line.
//
// Nothing in this package performs I/O. Catalog data comes in through
// [Transform] at sync time and through [Resolve] at read time; everything
// else is an in-memory state transition.
package combo

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Channel is the order channel a price applies to.
type Channel string

const (
	ChannelTakeOut  Channel = "takeout"
	ChannelDelivery Channel = "delivery"
)

// Currency is one of the currencies the point-of-sale export prices in.
type Currency string

const (
	CurrencyTL  Currency = "TL"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// ParseChannel accepts "takeout"/"take-out"/"delivery" in any case.
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "takeout", "take-out", "take_out":
		return ChannelTakeOut, true
	case "delivery":
		return ChannelDelivery, true
	}
	return "", false
}

// ParseCurrency accepts TL, TRY, USD, EUR and GBP in any case.
func ParseCurrency(s string) (Currency, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TL", "TRY":
		return CurrencyTL, true
	case "USD":
		return CurrencyUSD, true
	case "EUR":
		return CurrencyEUR, true
	case "GBP":
		return CurrencyGBP, true
	}
	return "", false
}

// PriceSet is a price per channel and currency.
type PriceSet struct {
	TakeOutTL   decimal.Decimal `json:"takeOutTL"`
	TakeOutUSD  decimal.Decimal `json:"takeOutUSD"`
	TakeOutEUR  decimal.Decimal `json:"takeOutEUR"`
	TakeOutGBP  decimal.Decimal `json:"takeOutGBP"`
	DeliveryTL  decimal.Decimal `json:"deliveryTL"`
	DeliveryUSD decimal.Decimal `json:"deliveryUSD"`
	DeliveryEUR decimal.Decimal `json:"deliveryEUR"`
	DeliveryGBP decimal.Decimal `json:"deliveryGBP"`
}

// For returns the price for a channel and currency. Unknown combinations
// are priced at zero.
func (p PriceSet) For(ch Channel, cur Currency) decimal.Decimal {
	if ch == ChannelDelivery {
		switch cur {
		case CurrencyTL:
			return p.DeliveryTL
		case CurrencyUSD:
			return p.DeliveryUSD
		case CurrencyEUR:
			return p.DeliveryEUR
		case CurrencyGBP:
			return p.DeliveryGBP
		}
		return decimal.Zero
	}
	switch cur {
	case CurrencyTL:
		return p.TakeOutTL
	case CurrencyUSD:
		return p.TakeOutUSD
	case CurrencyEUR:
		return p.TakeOutEUR
	case CurrencyGBP:
		return p.TakeOutGBP
	}
	return decimal.Zero
}

// SourceRow is one flat row of the point-of-sale combo export: one row per
// (combo, branch override, group, product).
type SourceRow struct {
	ComboKey        string
	ComboName       string
	BranchID        int
	GroupName       string
	SubGroupName    string
	GroupOrderID    int
	ForcedQuantity  int
	MaxQuantity     int
	IsForcedGroup   bool
	ProductKey      string
	DefaultQuantity int
	ExtraPrices     PriceSet
	IsDefault       bool
	ScreenOrderID   int
}

// Header is a combo per branch override. BranchID 0 is the default.
type Header struct {
	ComboKey  string
	BranchID  int
	ComboName string
}

// Group is a named, constrained set of selectable items within a combo.
//
// IsForcedGroup is carried exactly as the source supplies it and is not
// derived from ForcedQuantity.
type Group struct {
	ComboKey       string
	BranchID       int
	GroupName      string
	SubGroupName   string
	GroupOrderID   int
	ForcedQuantity int
	MaxQuantity    int
	IsForcedGroup  bool
}

// Key returns the key selections use for this group.
func (g Group) Key() string {
	return GroupKey(g.GroupName, g.SubGroupName)
}

// Check reports a ForcedQuantity that can never be satisfied under
// MaxQuantity. The sync job logs it; it is not rejected.
func (g Group) Check() (string, bool) {
	if g.MaxQuantity > 0 && g.ForcedQuantity > g.MaxQuantity {
		return "forced quantity exceeds max quantity", false
	}
	return "", true
}

// Detail is one selectable product within a group.
type Detail struct {
	ComboKey        string
	BranchID        int
	GroupName       string
	SubGroupName    string
	ProductKey      string
	DefaultQuantity int
	IsDefault       bool
	ScreenOrderID   int
	ExtraPrices     PriceSet
}

// Product is the catalog entry a combo item or combo base points at.
type Product struct {
	ProductKey   string
	Name         string
	Translations map[string]string
	Prices       PriceSet
}

// GroupKey joins a group and sub group name into one selection key.
func GroupKey(groupName, subGroupName string) string {
	if subGroupName == "" {
		return groupName
	}
	return groupName + "/" + subGroupName
}
