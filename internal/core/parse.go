package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// MaxWarnings caps how many cell warnings a parse reports individually.
var MaxWarnings = 25

// Source column names of the combo export.
const (
	ColComboKey        = "ComboKey"
	ColComboName       = "ComboName"
	ColBranchID        = "BranchID"
	ColGroupName       = "GroupName"
	ColSubGroupName    = "SubGroupName"
	ColGroupOrderID    = "GroupOrderID"
	ColForcedQuantity  = "ForcedQuantity"
	ColMaxQuantity     = "MaxQuantity"
	ColIsForcedGroup   = "IsForcedGroup"
	ColProductKey      = "ProductKey"
	ColDefaultQuantity = "DefaultQuantity"
	ColIsDefault       = "IsDefault"
	ColScreenOrderID   = "ScreenOrderID"

	ColProductName = "ProductName"
)

// priceColumns pairs a price column suffix with the PriceSet field it fills.
var priceColumns = []struct {
	suffix string
	set    func(p *combo.PriceSet, d decimal.Decimal)
}{
	{"TakeOut_TL", func(p *combo.PriceSet, d decimal.Decimal) { p.TakeOutTL = d }},
	{"TakeOut_USD", func(p *combo.PriceSet, d decimal.Decimal) { p.TakeOutUSD = d }},
	{"TakeOut_EUR", func(p *combo.PriceSet, d decimal.Decimal) { p.TakeOutEUR = d }},
	{"TakeOut_GBP", func(p *combo.PriceSet, d decimal.Decimal) { p.TakeOutGBP = d }},
	{"Delivery_TL", func(p *combo.PriceSet, d decimal.Decimal) { p.DeliveryTL = d }},
	{"Delivery_USD", func(p *combo.PriceSet, d decimal.Decimal) { p.DeliveryUSD = d }},
	{"Delivery_EUR", func(p *combo.PriceSet, d decimal.Decimal) { p.DeliveryEUR = d }},
	{"Delivery_GBP", func(p *combo.PriceSet, d decimal.Decimal) { p.DeliveryGBP = d }},
}

func priceSpecs(prefix string) []FieldSpec {
	specs := make([]FieldSpec, len(priceColumns))
	for i, pc := range priceColumns {
		specs[i] = FieldSpec{Name: prefix + pc.suffix, Type: FieldNumeric, AllowEmpty: true}
	}
	return specs
}

func readPrices(idx HeaderIndex, row []string, prefix string) combo.PriceSet {
	var p combo.PriceSet
	for _, pc := range priceColumns {
		pc.set(&p, ParseDecimal(idx.Cell(row, prefix+pc.suffix)))
	}
	return p
}

// ComboFieldSpecs are the columns of the combo export. Only the key columns
// and GroupName must be present; every other column defaults when absent.
var ComboFieldSpecs = append([]FieldSpec{
	{Name: ColComboKey, Type: FieldText, Required: true},
	{Name: ColComboName, Type: FieldText, AllowEmpty: true},
	{Name: ColBranchID, Type: FieldInt, AllowEmpty: true},
	{Name: ColGroupName, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColSubGroupName, Type: FieldText, AllowEmpty: true},
	{Name: ColGroupOrderID, Type: FieldInt, AllowEmpty: true},
	{Name: ColForcedQuantity, Type: FieldInt, AllowEmpty: true},
	{Name: ColMaxQuantity, Type: FieldInt, AllowEmpty: true},
	{Name: ColIsForcedGroup, Type: FieldBool, AllowEmpty: true},
	{Name: ColProductKey, Type: FieldText, Required: true},
	{Name: ColDefaultQuantity, Type: FieldInt, AllowEmpty: true},
	{Name: ColIsDefault, Type: FieldBool, AllowEmpty: true},
	{Name: ColScreenOrderID, Type: FieldInt, AllowEmpty: true},
}, priceSpecs("ExtraPrice")...)

// ProductFieldSpecs are the columns of the product export. Localized names
// come from any "ProductName_<lang>" column.
var ProductFieldSpecs = append([]FieldSpec{
	{Name: ColProductKey, Type: FieldText, Required: true},
	{Name: ColProductName, Type: FieldText, AllowEmpty: true},
}, priceSpecs("Price")...)

// ParseResult carries parsed rows plus non-fatal cell warnings.
type ParseResult[T any] struct {
	Rows     []T
	Warnings []string
}

// warn collects validation errors up to MaxWarnings and counts the rest.
type warn struct {
	list    []string
	dropped int
}

func (w *warn) add(errs []ValidationError) {
	w.append(errs, ", using default")
}

// skip records errors of a row that was left out entirely.
func (w *warn) skip(errs []ValidationError) {
	w.append(errs, ", row skipped")
}

func (w *warn) append(errs []ValidationError, suffix string) {
	for _, e := range errs {
		if len(w.list) < MaxWarnings {
			w.list = append(w.list, e.Error()+suffix)
			continue
		}
		w.dropped++
	}
}

func (w *warn) result() []string {
	if w.dropped > 0 {
		return append(w.list, fmt.Sprintf("%d more cell warnings", w.dropped))
	}
	return w.list
}

// headerFor locates and validates the header row of records.
func headerFor(records [][]string, specs []FieldSpec) (int, HeaderIndex, error) {
	if len(records) == 0 {
		return 0, nil, ErrEmptySource
	}
	at := locateHeader(records, specs)
	if at < 0 {
		_, err := ValidateHeaders(records[0], specs)
		if err == nil {
			err = fmt.Errorf("column not found: header row")
		}
		return 0, nil, err
	}
	idx, err := ValidateHeaders(records[at], specs)
	return at, idx, err
}

// ParseComboRows converts records of the combo export into source rows.
// Numeric cells that are empty or malformed become 0 and produce a warning.
// Rows with an empty key are kept so the transformer can reject the batch.
func ParseComboRows(records [][]string) (ParseResult[combo.SourceRow], error) {
	at, idx, err := headerFor(records, ComboFieldSpecs)
	if err != nil {
		return ParseResult[combo.SourceRow]{}, err
	}

	v := NewRowValidator(ComboFieldSpecs, idx)
	var w warn
	out := make([]combo.SourceRow, 0, len(records)-at-1)
	for i, row := range records[at+1:] {
		if isEmptyRow(row) {
			continue
		}
		w.add(lenient(v.ValidateRow(i+1, row)))
		out = append(out, combo.SourceRow{
			ComboKey:        idx.Cell(row, ColComboKey),
			ComboName:       idx.Cell(row, ColComboName),
			BranchID:        ParseInt(idx.Cell(row, ColBranchID)),
			GroupName:       idx.Cell(row, ColGroupName),
			SubGroupName:    idx.Cell(row, ColSubGroupName),
			GroupOrderID:    ParseInt(idx.Cell(row, ColGroupOrderID)),
			ForcedQuantity:  ParseInt(idx.Cell(row, ColForcedQuantity)),
			MaxQuantity:     ParseInt(idx.Cell(row, ColMaxQuantity)),
			IsForcedGroup:   ParseBool(idx.Cell(row, ColIsForcedGroup)),
			ProductKey:      idx.Cell(row, ColProductKey),
			DefaultQuantity: ParseInt(idx.Cell(row, ColDefaultQuantity)),
			ExtraPrices:     readPrices(idx, row, "ExtraPrice"),
			IsDefault:       ParseBool(idx.Cell(row, ColIsDefault)),
			ScreenOrderID:   ParseInt(idx.Cell(row, ColScreenOrderID)),
		})
	}
	return ParseResult[combo.SourceRow]{Rows: out, Warnings: w.result()}, nil
}

// ParseProductRows converts records of the product export. Rows without a
// product key are skipped with a warning; products are reference data and
// do not abort the sync.
func ParseProductRows(records [][]string) (ParseResult[combo.Product], error) {
	at, idx, err := headerFor(records, ProductFieldSpecs)
	if err != nil {
		return ParseResult[combo.Product]{}, err
	}

	langs := translationColumns(records[at])
	v := NewRowValidator(ProductFieldSpecs, idx)
	var w warn
	seen := make(map[string]bool)
	out := make([]combo.Product, 0, len(records)-at-1)
	for i, row := range records[at+1:] {
		if isEmptyRow(row) {
			continue
		}
		errs := v.ValidateRow(i+1, row)
		key := idx.Cell(row, ColProductKey)
		if key == "" || seen[key] {
			if key != "" {
				errs = append(errs, ValidationError{Row: i + 1, Field: ColProductKey, Value: key, Message: "duplicate key"})
			}
			w.skip(errs)
			continue
		}
		seen[key] = true
		w.add(lenient(errs))

		p := combo.Product{
			ProductKey: key,
			Name:       idx.Cell(row, ColProductName),
			Prices:     readPrices(idx, row, "Price"),
		}
		for lang, col := range langs {
			if s := idx.Cell(row, col); s != "" {
				if p.Translations == nil {
					p.Translations = make(map[string]string)
				}
				p.Translations[lang] = s
			}
		}
		out = append(out, p)
	}
	return ParseResult[combo.Product]{Rows: out, Warnings: w.result()}, nil
}

// lenient drops the empty-key errors the transformer reports itself.
func lenient(errs []ValidationError) []ValidationError {
	out := errs[:0]
	for _, e := range errs {
		if e.Message == "required field is empty" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// translationColumns maps language tags to "ProductName_<lang>" columns.
func translationColumns(header []string) map[string]string {
	out := make(map[string]string)
	prefix := strings.ToLower(ColProductName) + "_"
	for _, h := range header {
		c := CleanCell(h)
		if strings.HasPrefix(strings.ToLower(c), prefix) && len(c) > len(prefix) {
			out[strings.ToLower(c[len(prefix):])] = c
		}
	}
	return out
}

// ReadCombos reads and parses a combo export.
func ReadCombos(ctx context.Context, src Source) (ParseResult[combo.SourceRow], error) {
	records, err := src.Records(ctx)
	if err != nil {
		return ParseResult[combo.SourceRow]{}, err
	}
	return ParseComboRows(records)
}

// ReadProducts reads and parses a product export.
func ReadProducts(ctx context.Context, src Source) (ParseResult[combo.Product], error) {
	records, err := src.Records(ctx)
	if err != nil {
		return ParseResult[combo.Product]{}, err
	}
	return ParseProductRows(records)
}
