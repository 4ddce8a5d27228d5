// Package scheduler runs background maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/loyalty-pos/internal/metrics"
)

const (
	expiryJobTimeout = 2 * time.Minute
	stopTimeout      = 5 * time.Second
)

// CouponExpirer moves overdue ACTIVE coupons to EXPIRED.
type CouponExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryJob periodically expires coupons whose expiry has passed, so that
// scans and redemptions never see a stale ACTIVE status.
type ExpiryJob struct {
	cron    *cron.Cron
	spec    string
	coupons CouponExpirer
	now     func() time.Time
}

// NewExpiryJob creates a job running on spec, a six-field cron expression
// (seconds first) or a descriptor such as "@every 10m".
func NewExpiryJob(coupons CouponExpirer, spec string) *ExpiryJob {
	return &ExpiryJob{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		spec:    spec,
		coupons: coupons,
		now:     time.Now,
	}
}

// Start registers the sweep and starts the scheduler.
func (j *ExpiryJob) Start() error {
	if j == nil || j.cron == nil || j.coupons == nil {
		return nil
	}

	if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
		return err
	}
	j.cron.Start()
	log.Info().Str("spec", j.spec).Msg("coupon expiry sweep scheduled")
	return nil
}

// Stop stops the scheduler and waits briefly for a running sweep.
func (j *ExpiryJob) Stop() {
	if j == nil || j.cron == nil {
		return
	}

	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		log.Warn().Msg("coupon expiry sweep still running at shutdown")
	}
}

func (j *ExpiryJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), expiryJobTimeout)
	defer cancel()

	n, err := j.coupons.ExpireOverdue(ctx, j.now().UTC())
	if err != nil {
		log.Warn().Err(err).Msg("coupon expiry sweep failed")
		return
	}
	metrics.RecordExpired(n)
	if n > 0 {
		log.Info().Int64("expired", n).Msg("expired overdue coupons")
	}
}
