// Package maintenance runs the recurring stock and order jobs.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus-cravings/services/stock"

	"github.com/robfig/cron/v3"
)

const (
	stockResetLockTTL = 23 * time.Hour
	lowStockLockTTL   = 5 * time.Minute
	advanceLockTTL    = 50 * time.Second
	jobTimeout        = 2 * time.Minute
)

type StockJobs interface {
	ResetDaily(ctx context.Context) (int64, error)
	LowStockScan(ctx context.Context) (stock.LowStockReport, error)
}

type OrderJobs interface {
	AdvanceDue(ctx context.Context) (int, error)
}

type Schedules struct {
	StockReset  string
	LowStock    string
	AutoAdvance string
}

type Scheduler struct {
	cron     *cron.Cron
	stock    StockJobs
	orders   OrderJobs
	locker   Locker
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
	ctx      context.Context
}

func New(stockJobs StockJobs, orderJobs OrderJobs, locker Locker, schedules Schedules,
	location *time.Location, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "maintenance")
	cronLog := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
			cron.WithLogger(cronLog),
		),
		stock:    stockJobs,
		orders:   orderJobs,
		locker:   locker,
		location: location,
		logger:   logger,
		now:      time.Now,
		ctx:      context.Background(),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"stock-reset", schedules.StockReset, s.ResetStock},
		{"low-stock", schedules.LowStock, s.SweepLowStock},
		{"auto-advance", schedules.AutoAdvance, s.AdvanceOrders},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() { s.runJob(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
	}
	return s, nil
}

// Start begins firing jobs. Jobs derive their context from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
}

func (s *Scheduler) runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	err := run(ctx)
	switch {
	case errors.Is(err, ErrLocked):
		s.logger.Debug("job skipped, lock held", "job", name)
	case err != nil:
		s.logger.Error("job failed", "job", name, "error", err)
	}
}

// ResetStock restores daily stock. The lock is keyed by the local date and
// kept until it expires, so the reset fires once per day across instances.
func (s *Scheduler) ResetStock(ctx context.Context) error {
	key := "maintenance:stock-reset:" + s.now().In(s.location).Format("20060102")
	if _, err := s.locker.Acquire(ctx, key, stockResetLockTTL); err != nil {
		return err
	}
	_, err := s.stock.ResetDaily(ctx)
	return err
}

func (s *Scheduler) SweepLowStock(ctx context.Context) error {
	return s.locked(ctx, "maintenance:low-stock", lowStockLockTTL, func() error {
		report, err := s.stock.LowStockScan(ctx)
		if err != nil {
			return err
		}
		for _, item := range report.LowStock {
			s.logger.Warn("low stock", "item", item.Name, "currentStock", item.CurrentStock, "dailyStock", item.DailyStock)
		}
		for _, item := range report.OutOfStock {
			s.logger.Warn("out of stock", "item", item.Name, "dailyStock", item.DailyStock)
		}
		return nil
	})
}

func (s *Scheduler) AdvanceOrders(ctx context.Context) error {
	return s.locked(ctx, "maintenance:auto-advance", advanceLockTTL, func() error {
		n, err := s.orders.AdvanceDue(ctx)
		if n > 0 {
			s.logger.Info("orders advanced", "count", n)
		}
		return err
	})
}

func (s *Scheduler) locked(ctx context.Context, key string, ttl time.Duration, run func() error) error {
	unlock, err := s.locker.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("lock release failed", "key", key, "error", err)
		}
	}()
	return run()
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
