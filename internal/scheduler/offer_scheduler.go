package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// OfferSweeper switches off offers whose window has closed.
type OfferSweeper interface {
	DeactivateExpiredOffers(ctx context.Context) (int64, error)
}

// OfferScheduler runs the expired offer sweep on a cron schedule
type OfferScheduler struct {
	cron    *cron.Cron
	sweeper OfferSweeper
	spec    string
}

// NewOfferScheduler takes a standard five-field cron spec, e.g. "*/15 * * * *".
func NewOfferScheduler(sweeper OfferSweeper, spec string) *OfferScheduler {
	return &OfferScheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		spec:    spec,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *OfferScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		logger.Error("Failed to add cron job for offer sweep", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Offer scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// Stop waits for a running sweep to finish.
func (s *OfferScheduler) Stop() {
	logger.Info("Stopping offer scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Offer scheduler stopped")
}

func (s *OfferScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sweeper.DeactivateExpiredOffers(ctx)
	if err != nil {
		logger.Error("Failed to deactivate expired offers", err)
		return
	}
	if n > 0 {
		logger.Info("Expired offers deactivated", map[string]interface{}{
			"count": n,
		})
	}
}
