// Package catalog reads branch-resolved combos from the catalog tables.
//
// Raw rows of a combo and branch are cached as one snapshot, independent of
// channel, currency and language, so every order setting shares an entry.
// Concurrent misses for the same snapshot are collapsed into one query.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/logging"
)

// ErrNotFound is returned when a product has no combo rows.
var ErrNotFound = errors.New("combo not found")

// SnapshotTimeout bounds one shared snapshot query.
var SnapshotTimeout = 10 * time.Second

// Options select the branch and order settings a combo is resolved for.
type Options struct {
	BranchID int
	Channel  combo.Channel
	Currency combo.Currency
	Language string
}

func (o Options) pricing() combo.Pricing {
	return combo.Pricing{Channel: o.Channel, Currency: o.Currency}
}

// Reader resolves combos from a Store, optionally through a Cache.
type Reader struct {
	store       Store
	cache       Cache
	flight      singleflight.Group
	defaultLang language.Tag
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithCache caches snapshots in c.
func WithCache(c Cache) ReaderOption {
	return func(r *Reader) { r.cache = c }
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(tag language.Tag) ReaderOption {
	return func(r *Reader) { r.defaultLang = tag }
}

// NewReader creates a Reader over store.
func NewReader(store Store, opts ...ReaderOption) *Reader {
	r := &Reader{store: store, defaultLang: language.Turkish}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Combo returns the combo sold as productKey, resolved for opt.
func (r *Reader) Combo(ctx context.Context, productKey string, opt Options) (*combo.Combo, error) {
	snap, err := r.snapshot(ctx, productKey, opt.BranchID)
	if err != nil {
		return nil, err
	}
	if len(snap.Headers) == 0 && len(snap.Groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, productKey)
	}
	return resolve(snap, opt, parseLanguage(opt.Language, r.defaultLang)), nil
}

// ComboOrEmpty is Combo for customer-facing callers: any failure is logged
// and yields a combo with no groups.
func (r *Reader) ComboOrEmpty(ctx context.Context, productKey string, opt Options) *combo.Combo {
	c, err := r.Combo(ctx, productKey, opt)
	if err != nil {
		log := logging.FromContext(ctx)
		if errors.Is(err, ErrNotFound) {
			log.Info("combo not found", "product_key", productKey, "branch_id", opt.BranchID)
		} else {
			log.Error("combo fetch failed", "product_key", productKey, "branch_id", opt.BranchID, "error", err)
		}
		return &combo.Combo{ProductKey: productKey, Groups: []combo.CatalogGroup{}}
	}
	return c
}

// List returns the combos offered at a branch.
func (r *Reader) List(ctx context.Context, branchID int) ([]Summary, error) {
	return r.store.List(ctx, branchID)
}

// Invalidate drops cached snapshots. It satisfies the sync job's
// invalidation hook.
func (r *Reader) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx)
}

func snapshotKey(productKey string, branchID int) string {
	return fmt.Sprintf("combo:%s:%d", productKey, branchID)
}

func (r *Reader) snapshot(ctx context.Context, productKey string, branchID int) (*Snapshot, error) {
	key := snapshotKey(productKey, branchID)

	if r.cache != nil {
		if b, err := r.cache.Get(ctx, key); err == nil {
			var snap Snapshot
			if jsonErr := json.Unmarshal(b, &snap); jsonErr == nil {
				return &snap, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("catalog cache read failed", "key", key, "error", err)
		}
	}

	// Shared by every caller waiting on key: the query is detached from any
	// one caller's ctx, and each caller stops waiting when its own is done.
	ch := r.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SnapshotTimeout)
		defer cancel()

		snap, err := r.store.Snapshot(fctx, productKey, branchID)
		if err != nil {
			return nil, err
		}
		// Best effort; a failed write only costs the next read a query.
		if r.cache != nil {
			if b, jsonErr := json.Marshal(snap); jsonErr == nil {
				if setErr := r.cache.Set(fctx, key, b); setErr != nil {
					slog.Warn("catalog cache write failed", "key", key, "error", setErr)
				}
			}
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// resolve turns a snapshot into the combo the engine consumes.
func resolve(snap *Snapshot, opt Options, lang language.Tag) *combo.Combo {
	pricing := opt.pricing()
	label := func(productKey string) (string, map[string]string) {
		p, ok := snap.Products[productKey]
		if !ok {
			return "", nil
		}
		return displayName(p, lang), p.Translations
	}

	base := snap.Products[snap.ProductKey]
	c := combo.Resolve(combo.ResolveInput{
		ProductKey: snap.ProductKey,
		BranchID:   opt.BranchID,
		BasePrice:  pricing.Price(base.Prices),
		Headers:    snap.Headers,
		Groups:     snap.Groups,
		Details:    snap.Details,
		Label:      label,
		Pricing:    pricing,
	})
	if c.Name == "" {
		c.Name, _ = label(snap.ProductKey)
	}
	if c.Name == "" {
		c.Name = snap.ProductKey
	}
	if c.Groups == nil {
		c.Groups = []combo.CatalogGroup{}
	}
	return c
}
