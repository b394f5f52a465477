package cases

import (
	"context"
	"time"

	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// Reclaimer periodically releases expired claims back to the pending
// pools. The claim queries already admit takeover of an expired claim,
// so this loop only makes stale cases visible in the queues again; a
// reclaim racing a takeover is resolved by the store's conditional
// updates.
type Reclaimer struct {
	store    Store
	metrics  *metrics.CaseMetrics
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time
}

// NewReclaimer builds the background release loop. A zero interval
// defaults to one minute.
func NewReclaimer(store Store, caseMetrics *metrics.CaseMetrics, logger *logging.Logger, interval time.Duration) *Reclaimer {
	if store == nil {
		panic("cases: store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reclaimer{
		store:    store,
		metrics:  caseMetrics,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Call in its own goroutine.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("claim reclaimer started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("claim reclaimer stopped")
			return
		case <-ticker.C:
			if _, err := r.ReleaseExpired(ctx); err != nil {
				r.logger.Error("claim release pass failed", "error", err)
			}
		}
	}
}

// ReleaseExpired runs a single release pass and returns the number of
// claims returned to the pools.
func (r *Reclaimer) ReleaseExpired(ctx context.Context) (int64, error) {
	now := r.now().UTC()

	internReleased, err := r.store.ReleaseExpiredInternClaims(ctx, now)
	if err != nil {
		return 0, err
	}
	doctorReleased, err := r.store.ReleaseExpiredDoctorClaims(ctx, now)
	if err != nil {
		return internReleased, err
	}

	total := internReleased + doctorReleased
	if total > 0 {
		r.metrics.ObserveReleased(total)
		r.logger.Info("released expired claims",
			"intern", internReleased,
			"doctor", doctorReleased)
	}
	return total, nil
}
