package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/economy/job"
)

// Schedule holds the cron expressions (standard five-field syntax) for the
// background jobs. An empty expression disables that job.
type Schedule struct {
	Enabled          bool   `json:"enabled"           mapstructure:"enabled"           toml:"enabled"           yaml:"enabled"`
	WeeklyBonus      string `json:"weekly_bonus"      mapstructure:"weekly_bonus"      toml:"weekly_bonus"      yaml:"weekly_bonus"`
	AnnualAdjustment string `json:"annual_adjustment" mapstructure:"annual_adjustment" toml:"annual_adjustment" yaml:"annual_adjustment"`
	FiscalYearSeed   string `json:"fiscal_year_seed"  mapstructure:"fiscal_year_seed"  toml:"fiscal_year_seed"  yaml:"fiscal_year_seed"`
}

// DefaultSchedule runs the weekly bonus every Monday at midnight, checks for
// a due annual adjustment every day shortly after midnight, and seeds the
// fiscal year on January 1st.
func DefaultSchedule() Schedule {
	return Schedule{
		Enabled:          true,
		WeeklyBonus:      "0 0 * * 1",
		AnnualAdjustment: "15 0 * * *",
		FiscalYearSeed:   "0 0 1 1 *",
	}
}

// Validate parses every non-empty expression.
func (s Schedule) Validate() error {
	for name, spec := range s.specs() {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return ValidationError{Field: "schedule." + string(name), Message: err.Error()}
		}
	}
	return nil
}

func (s Schedule) specs() map[job.Kind]string {
	return map[job.Kind]string{
		job.KindWeeklyBonus:      s.WeeklyBonus,
		job.KindAnnualAdjustment: s.AnnualAdjustment,
		job.KindFiscalYearSeed:   s.FiscalYearSeed,
	}
}

// JobLocker elects a single runner for a scheduled job when several
// processes share one store. TryLock returns ok=false, without error, when
// another holder owns key.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// WithSchedule overrides the job schedule.
func WithSchedule(s Schedule) Option {
	return func(e *Economy) {
		e.schedule = s
	}
}

// WithoutScheduler disables background jobs. The jobs can still be run
// directly.
func WithoutScheduler() Option {
	return func(e *Economy) {
		e.schedule.Enabled = false
	}
}

// WithJobLocker makes every scheduled run acquire a lock first, so only one
// process runs a given job at a time.
func WithJobLocker(l JobLocker) Option {
	return func(e *Economy) {
		e.locker = l
	}
}

// WithJobTimeout bounds a single scheduled job run.
func WithJobTimeout(d time.Duration) Option {
	return func(e *Economy) {
		if d > 0 {
			e.jobTimeout = d
		}
	}
}

type jobFunc func(ctx context.Context, now time.Time) (*job.Report, error)

func (e *Economy) startScheduler() error {
	if !e.schedule.Enabled {
		return nil
	}
	if err := e.schedule.Validate(); err != nil {
		return err
	}

	c := cron.New(cron.WithLocation(e.location))
	jobs := map[job.Kind]jobFunc{
		job.KindWeeklyBonus:      e.RunWeeklyBonusJob,
		job.KindAnnualAdjustment: e.RunAnnualAdjustmentJob,
		job.KindFiscalYearSeed:   e.RunFiscalYearJob,
	}
	for kind, spec := range e.schedule.specs() {
		if spec == "" {
			continue
		}
		run := jobs[kind]
		if _, err := c.AddFunc(spec, func() { e.runScheduled(kind, run) }); err != nil {
			return fmt.Errorf("schedule %s: %w", kind, err)
		}
		e.logger.Debug("job scheduled", "job", kind, "spec", spec)
	}

	c.Start()
	e.cron = c
	return nil
}

func (e *Economy) stopScheduler() {
	if e.cron == nil {
		return
	}
	<-e.cron.Stop().Done()
	e.cron = nil
}

// runScheduled runs one scheduled job under the job timeout and, when a
// locker is configured, only if this process wins the lock.
func (e *Economy) runScheduled(kind job.Kind, run jobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), e.jobTimeout)
	defer cancel()

	if e.locker != nil {
		release, ok, err := e.locker.TryLock(ctx, "economy:job:"+string(kind), e.jobTimeout)
		if err != nil {
			e.logger.Error("job lock failed", "job", kind, "error", err)
			return
		}
		if !ok {
			e.logger.Debug("job held by another runner", "job", kind)
			return
		}
		defer release()
	}

	if _, err := run(ctx, e.clock.Now()); err != nil {
		e.logger.Error("scheduled job failed", "job", kind, "error", err)
	}
}
