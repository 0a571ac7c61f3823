package sync

import (
	"context"
	"errors"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// Scheduler runs periodic reconciliation sweeps across all tenants.
// Tenant sweeps are independent and run on a bounded worker pool; the
// per-tenant lock inside the Sweeper keeps same-tenant sweeps from
// overlapping with on-demand triggers.
type Scheduler struct {
	sweeper   *Sweeper
	tenants   TenantDirectory
	interval  time.Duration
	workerNum int
}

// NewScheduler creates a new Scheduler
func NewScheduler(sweeper *Sweeper, tenants TenantDirectory, interval time.Duration, workerNum int) *Scheduler {
	if workerNum <= 0 {
		workerNum = 4
	}
	return &Scheduler{
		sweeper:   sweeper,
		tenants:   tenants,
		interval:  interval,
		workerNum: workerNum,
	}
}

// Run blocks until ctx is cancelled, sweeping every interval. Intended to
// run in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	log.CtxInfo(ctx, "sweep scheduler started: interval=%s, workers=%d", s.interval, s.workerNum)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.CtxInfo(ctx, "sweep scheduler stopped")
			return
		case <-ticker.C:
			s.sweepAll(ctx)
		}
	}
}

func (s *Scheduler) sweepAll(ctx context.Context) {
	tenants, err := s.tenants.ListAll(ctx)
	if err != nil {
		log.CtxError(ctx, "sweep scheduler: list tenants failed: %v", err)
		return
	}

	jobs := make(chan int64)
	done := make(chan struct{})

	for i := 0; i < s.workerNum; i++ {
		go func() {
			for tenantId := range jobs {
				if _, err := s.sweeper.Sweep(ctx, tenantId); err != nil {
					if errors.Is(err, errcode.ErrSweepInProgress) {
						continue
					}
					log.CtxError(ctx, "scheduled sweep failed: tenant_id=%d, error=%v", tenantId, err)
				}
			}
			done <- struct{}{}
		}()
	}

	for _, tenant := range tenants {
		select {
		case <-ctx.Done():
		case jobs <- tenant.Id:
		}
	}
	close(jobs)

	for i := 0; i < s.workerNum; i++ {
		<-done
	}
}
