package tables

import (
	"encoding/json"

	"github.com/JonMunkholm/combokiosk/internal/core"
)

func init() {
	registerProducts()
}

func registerProducts() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:     "products",
			Label:   "Products",
			Source:  core.SourceProducts,
			Order:   OrderProducts,
			Columns: append([]string{"product_key", "name", "translations"}, PriceColumns("price_")...),
		},
		Extract: extractProducts,
	})
}

func extractProducts(b *core.Batch) [][]any {
	rows := make([][]any, 0, len(b.Products))
	for _, p := range b.Products {
		translations := []byte("{}")
		if len(p.Translations) > 0 {
			// map[string]string always marshals
			translations, _ = json.Marshal(p.Translations)
		}
		row := []any{p.ProductKey, nullable(p.Name), string(translations)}
		rows = append(rows, append(row, priceValues(p.Prices)...))
	}
	return rows
}

// nullable stores an empty string as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
