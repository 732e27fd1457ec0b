package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/logging"
)

// DefaultSyncTimeout is the maximum duration of one sync run.
var DefaultSyncTimeout = 10 * time.Minute

// Invalidator is told that catalog tables changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// SyncRequest names the sources of one run. Products is optional; without
// it the products table is left as it is.
type SyncRequest struct {
	Combos   Source
	Products Source
}

// Syncer runs the catalog sync: parse sources, transform combo rows, then
// load every registered table in order.
type Syncer struct {
	loader      *Loader
	limiter     *SyncLimiter
	history     RunStore
	invalidator Invalidator
	timeout     time.Duration
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithHistory records every run in store.
func WithHistory(store RunStore) SyncerOption {
	return func(s *Syncer) { s.history = store }
}

// WithInvalidator is called after any run that touched a table.
func WithInvalidator(inv Invalidator) SyncerOption {
	return func(s *Syncer) { s.invalidator = inv }
}

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSyncer creates a Syncer. A nil limiter gets a single-slot one.
func NewSyncer(loader *Loader, limiter *SyncLimiter, opts ...SyncerOption) *Syncer {
	if limiter == nil {
		limiter = NewSyncLimiter(1, 0)
	}
	s := &Syncer{
		loader:  loader,
		limiter: limiter,
		timeout: DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limiter returns the limiter shared by every trigger of this syncer.
func (s *Syncer) Limiter() *SyncLimiter { return s.limiter }

// Prepare parses the sources and transforms combo rows without loading
// anything. A combo row missing its key fails the whole batch.
func (s *Syncer) Prepare(ctx context.Context, req SyncRequest) (*Batch, []string, error) {
	if req.Combos == nil {
		return nil, nil, errors.New("no file provided: combo source is required")
	}

	var (
		batch    Batch
		warnings []string
	)

	if req.Products != nil {
		products, err := ReadProducts(ctx, req.Products)
		if err != nil {
			return nil, nil, fmt.Errorf("products %s: %w", req.Products.Name(), err)
		}
		batch.Products = products.Rows
		warnings = append(warnings, prefixed("products", products.Warnings)...)
	}

	combos, err := ReadCombos(ctx, req.Combos)
	if err != nil {
		return nil, nil, fmt.Errorf("combos %s: %w", req.Combos.Name(), err)
	}
	warnings = append(warnings, prefixed("combos", combos.Warnings)...)

	catalog, err := combo.Transform(combos.Rows)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: %w", err)
	}
	batch.Catalog = catalog

	for _, g := range catalog.Groups {
		if msg, ok := g.Check(); !ok {
			warnings = append(warnings, fmt.Sprintf("combo %s branch %d group %s: %s (forced %d, max %d)",
				g.ComboKey, g.BranchID, g.Key(), msg, g.ForcedQuantity, g.MaxQuantity))
		}
	}
	return &batch, warnings, nil
}

// Run executes one sync. Tables load sequentially in registry order and a
// failed table stops the run; tables loaded before it keep their new rows.
// The returned result is complete even when err is non-nil.
func (s *Syncer) Run(ctx context.Context, req SyncRequest) (SyncResult, error) {
	result := SyncResult{
		RunID:     uuid.NewString(),
		Trigger:   TriggerFromContext(ctx),
		StartedAt: time.Now().UTC(),
	}
	if req.Combos != nil {
		result.Source = req.Combos.Name()
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return s.fail(result, err), err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "run_id", result.RunID, "trigger", result.Trigger)
	log.Info("sync started", "source", result.Source, "mode", s.loader.Mode.String())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	touched := false
	err := func() error {
		batch, warnings, err := s.Prepare(ctx, req)
		result.Warnings = warnings
		if err != nil {
			return err
		}
		for _, w := range warnings {
			log.Warn("sync warning", "detail", w)
		}

		for _, def := range All() {
			if def.Info.Source == SourceProducts && req.Products == nil {
				continue
			}
			start := time.Now()
			rows := def.Extract(batch)
			touched = true
			n, err := s.loader.Load(ctx, def.Info.Key, def.Info.Columns, rows)
			tr := TableResult{Table: def.Info.Key, Rows: n, Duration: time.Since(start)}
			if err != nil {
				tr.Error = err.Error()
				result.Tables = append(result.Tables, tr)
				return err
			}
			result.Tables = append(result.Tables, tr)
			log.Info("table loaded", "table", def.Info.Key, "rows", n, "duration_ms", tr.Duration.Milliseconds())
		}
		return nil
	}()

	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		result = s.fail(result, err)
		log.Error("sync failed", "error", err, "code", result.Code, "rows", result.Total())
	} else {
		log.Info("sync completed", "rows", result.Total(), "duration_ms", result.Duration.Milliseconds())
	}

	// Bookkeeping survives a cancelled or timed out run.
	bg := context.WithoutCancel(ctx)
	if touched && s.invalidator != nil {
		if ierr := s.invalidator.Invalidate(bg); ierr != nil {
			log.Warn("catalog cache invalidation failed", "error", ierr)
		}
	}
	if s.history != nil {
		if herr := s.history.RecordRun(bg, result); herr != nil {
			log.Warn("sync history not recorded", "error", herr)
		}
	}
	return result, err
}

func (s *Syncer) fail(r SyncResult, err error) SyncResult {
	msg := MapError(err)
	r.Error = err.Error()
	r.Code = msg.Code
	return r
}

// RecentRuns returns run history, newest first. Without a history store it
// returns nothing.
func (s *Syncer) RecentRuns(ctx context.Context, f RunFilter) ([]SyncResult, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.RecentRuns(ctx, f)
}

func prefixed(prefix string, list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = prefix + ": " + s
	}
	return out
}
