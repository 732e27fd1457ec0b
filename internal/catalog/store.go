package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/core"
)

// Snapshot is every stored row one combo needs for one branch: default rows
// (branch 0) plus the branch's own, and the products they reference.
type Snapshot struct {
	ProductKey string
	Headers    []combo.Header
	Groups     []combo.Group
	Details    []combo.Detail
	Products   map[string]combo.Product
}

// Summary is one entry of the combo list.
type Summary struct {
	ProductKey string `json:"productKey"`
	Name       string `json:"name"`
}

// Store reads the catalog tables.
type Store interface {
	Snapshot(ctx context.Context, productKey string, branchID int) (*Snapshot, error)
	List(ctx context.Context, branchID int) ([]Summary, error)
}

// PgStore reads the tables the sync writes.
type PgStore struct {
	DB core.DBTX
}

// Snapshot implements Store.
func (s PgStore) Snapshot(ctx context.Context, productKey string, branchID int) (*Snapshot, error) {
	snap := &Snapshot{ProductKey: productKey}

	var err error
	if snap.Headers, err = s.headers(ctx, productKey, branchID); err != nil {
		return nil, err
	}
	if snap.Groups, err = s.groups(ctx, productKey, branchID); err != nil {
		return nil, err
	}
	if snap.Details, err = s.details(ctx, productKey, branchID); err != nil {
		return nil, err
	}

	keys := []string{productKey}
	for _, d := range snap.Details {
		keys = append(keys, d.ProductKey)
	}
	if snap.Products, err = s.products(ctx, keys); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s PgStore) headers(ctx context.Context, productKey string, branchID int) ([]combo.Header, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT combo_key, branch_id, COALESCE(combo_name, '')
		FROM combo_headers
		WHERE combo_key = $1 AND branch_id IN (0, $2)`, productKey, branchID)
	if err != nil {
		return nil, fmt.Errorf("query combo headers: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (combo.Header, error) {
		var h combo.Header
		err := row.Scan(&h.ComboKey, &h.BranchID, &h.ComboName)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan combo headers: %w", err)
	}
	return out, nil
}

func (s PgStore) groups(ctx context.Context, productKey string, branchID int) ([]combo.Group, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT combo_key, branch_id, group_name, sub_group_name, group_order_id,
			forced_quantity, max_quantity, is_forced_group
		FROM combo_groups
		WHERE combo_key = $1 AND branch_id IN (0, $2)
		ORDER BY branch_id, group_order_id`, productKey, branchID)
	if err != nil {
		return nil, fmt.Errorf("query combo groups: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (combo.Group, error) {
		var g combo.Group
		err := row.Scan(&g.ComboKey, &g.BranchID, &g.GroupName, &g.SubGroupName, &g.GroupOrderID,
			&g.ForcedQuantity, &g.MaxQuantity, &g.IsForcedGroup)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan combo groups: %w", err)
	}
	return out, nil
}

func (s PgStore) details(ctx context.Context, productKey string, branchID int) ([]combo.Detail, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT combo_key, branch_id, group_name, sub_group_name, product_key,
			default_quantity, is_default, screen_order_id,
			extra_price_takeout_tl, extra_price_takeout_usd, extra_price_takeout_eur, extra_price_takeout_gbp,
			extra_price_delivery_tl, extra_price_delivery_usd, extra_price_delivery_eur, extra_price_delivery_gbp
		FROM combo_details
		WHERE combo_key = $1 AND branch_id IN (0, $2)
		ORDER BY branch_id, screen_order_id`, productKey, branchID)
	if err != nil {
		return nil, fmt.Errorf("query combo details: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (combo.Detail, error) {
		var (
			d      combo.Detail
			prices [8]pgtype.Numeric
		)
		err := row.Scan(&d.ComboKey, &d.BranchID, &d.GroupName, &d.SubGroupName, &d.ProductKey,
			&d.DefaultQuantity, &d.IsDefault, &d.ScreenOrderID,
			&prices[0], &prices[1], &prices[2], &prices[3],
			&prices[4], &prices[5], &prices[6], &prices[7])
		d.ExtraPrices = priceSet(prices)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan combo details: %w", err)
	}
	return out, nil
}

func (s PgStore) products(ctx context.Context, keys []string) (map[string]combo.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_key, COALESCE(name, ''), translations,
			price_takeout_tl, price_takeout_usd, price_takeout_eur, price_takeout_gbp,
			price_delivery_tl, price_delivery_usd, price_delivery_eur, price_delivery_gbp
		FROM products
		WHERE product_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := make(map[string]combo.Product)
	for rows.Next() {
		var (
			p            combo.Product
			translations []byte
			prices       [8]pgtype.Numeric
		)
		if err := rows.Scan(&p.ProductKey, &p.Name, &translations,
			&prices[0], &prices[1], &prices[2], &prices[3],
			&prices[4], &prices[5], &prices[6], &prices[7]); err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		if len(translations) > 0 {
			if err := json.Unmarshal(translations, &p.Translations); err != nil {
				return nil, fmt.Errorf("decode translations of %s: %w", p.ProductKey, err)
			}
		}
		p.Prices = priceSet(prices)
		out[p.ProductKey] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return out, nil
}

// List implements Store. A branch name overrides the default name.
func (s PgStore) List(ctx context.Context, branchID int) ([]Summary, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT DISTINCT ON (h.combo_key) h.combo_key, COALESCE(h.combo_name, p.name, h.combo_key)
		FROM combo_headers h
		LEFT JOIN products p ON p.product_key = h.combo_key
		WHERE h.branch_id IN (0, $1)
		ORDER BY h.combo_key, h.branch_id DESC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var s Summary
		err := row.Scan(&s.ProductKey, &s.Name)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	return out, nil
}

func priceSet(n [8]pgtype.Numeric) combo.PriceSet {
	return combo.PriceSet{
		TakeOutTL:   core.NumericToDecimal(n[0]),
		TakeOutUSD:  core.NumericToDecimal(n[1]),
		TakeOutEUR:  core.NumericToDecimal(n[2]),
		TakeOutGBP:  core.NumericToDecimal(n[3]),
		DeliveryTL:  core.NumericToDecimal(n[4]),
		DeliveryUSD: core.NumericToDecimal(n[5]),
		DeliveryEUR: core.NumericToDecimal(n[6]),
		DeliveryGBP: core.NumericToDecimal(n[7]),
	}
}
