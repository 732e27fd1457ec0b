package tables

import (
	"github.com/JonMunkholm/combokiosk/internal/core"
)

func init() {
	registerComboHeaders()
	registerComboGroups()
	registerComboDetails()
}

func registerComboHeaders() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:     "combo_headers",
			Label:   "Combo headers",
			Source:  core.SourceCombos,
			Order:   OrderHeaders,
			Columns: []string{"combo_key", "branch_id", "combo_name"},
		},
		Extract: func(b *core.Batch) [][]any {
			rows := make([][]any, 0, len(b.Catalog.Headers))
			for _, h := range b.Catalog.Headers {
				rows = append(rows, []any{h.ComboKey, h.BranchID, nullable(h.ComboName)})
			}
			return rows
		},
	})
}

func registerComboGroups() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:    "combo_groups",
			Label:  "Combo groups",
			Source: core.SourceCombos,
			Order:  OrderGroups,
			Columns: []string{
				"combo_key", "branch_id", "group_name", "sub_group_name",
				"group_order_id", "forced_quantity", "max_quantity", "is_forced_group",
			},
		},
		Extract: func(b *core.Batch) [][]any {
			rows := make([][]any, 0, len(b.Catalog.Groups))
			for _, g := range b.Catalog.Groups {
				rows = append(rows, []any{
					g.ComboKey, g.BranchID, g.GroupName, g.SubGroupName,
					g.GroupOrderID, g.ForcedQuantity, g.MaxQuantity, g.IsForcedGroup,
				})
			}
			return rows
		},
	})
}

func registerComboDetails() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:    "combo_details",
			Label:  "Combo details",
			Source: core.SourceCombos,
			Order:  OrderDetails,
			Columns: append([]string{
				"combo_key", "branch_id", "group_name", "sub_group_name", "product_key",
				"default_quantity", "is_default", "screen_order_id",
			}, PriceColumns("extra_price_")...),
		},
		Extract: func(b *core.Batch) [][]any {
			rows := make([][]any, 0, len(b.Catalog.Details))
			for _, d := range b.Catalog.Details {
				row := []any{
					d.ComboKey, d.BranchID, d.GroupName, d.SubGroupName, d.ProductKey,
					d.DefaultQuantity, d.IsDefault, d.ScreenOrderID,
				}
				rows = append(rows, append(row, priceValues(d.ExtraPrices)...))
			}
			return rows
		},
	})
}
