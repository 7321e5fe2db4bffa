package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/cart"
	"github.com/fjod/go_cart/cart-engine/internal/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Reconciler runs reconciliation passes against one cart store.
//
// The catalog fetch happens without holding the store, so shoppers keep
// editing while it is in flight. If the cart changed in the meantime the pass
// result is discarded rather than overwriting the newer edit.
type Reconciler struct {
	store       *cart.Store
	fetcher     catalog.Fetcher
	logger      *zap.Logger
	passTimeout time.Duration
	sfg         singleflight.Group // collapses overlapping passes
}

func NewReconciler(store *cart.Store, fetcher catalog.Fetcher, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:       store,
		fetcher:     fetcher,
		logger:      logger.Named("reconcile"),
		passTimeout: 30 * time.Second,
	}
}

// Run performs one pass. A fetch failure leaves the cart untouched and is
// returned. A stale result is reported with Stale set and no error.
//
// Overlapping callers share one pass, which runs on its own deadline. A caller
// whose ctx ends stops waiting and gets its context error.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	ch := r.sfg.DoChan(r.store.Key(), func() (interface{}, error) {
		passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.passTimeout)
		defer cancel()
		return r.run(passCtx)
	})

	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

func (r *Reconciler) run(ctx context.Context) (Report, error) {
	passID := uuid.NewString()
	log := r.logger.With(zap.String("pass_id", passID))

	snap := r.store.Snapshot()

	entries, err := r.fetcher.FetchProducts(ctx)
	if err != nil {
		log.Warn("catalog fetch failed, cart left unchanged", zap.Error(err))
		return Report{}, fmt.Errorf("reconcile: fetch catalog: %w", err)
	}
	if len(entries) == 0 {
		log.Warn("catalog returned no products, cart left unchanged")
		return Report{}, fmt.Errorf("reconcile: %w", catalog.ErrEmptyCatalog)
	}

	next, report := Reconcile(snap.Items, entries)
	report.PassID = passID
	if !report.Changed {
		log.Debug("cart already matches catalog")
		return report, nil
	}

	if _, err := r.store.ReplaceIfCurrent(ctx, snap.Version, next); err != nil {
		if errors.Is(err, cart.ErrStaleSnapshot) {
			log.Info("cart changed during reconciliation, discarding result", zap.Error(err))
			report.Stale = true
			report.Changed = false
			return report, nil
		}
		return Report{}, err
	}

	log.Info("cart reconciled",
		zap.Int("discontinued", len(report.Discontinued)),
		zap.Int("out_of_stock", len(report.OutOfStock)),
		zap.Int("repriced", len(report.Repriced)))
	return report, nil
}

// Start runs a pass every interval until ctx is done.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Warn("scheduled reconciliation failed", zap.Error(err))
			}
		}
	}
}
