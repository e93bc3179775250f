package economy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/tax"
)

// DefaultAnnualAllocation is the fixed number of points allocated per fiscal year.
const DefaultAnnualAllocation int64 = 5_400_000_000

// Defaults for the weekly community bonus.
const (
	DefaultWeeklyBonus         int64 = 10
	DefaultWeeklyBonusInterval       = 7 * 24 * time.Hour
)

// Economy is the points economy engine.
type Economy struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock
	locks   *keyedMutex

	// Background jobs
	cron     *cron.Cron
	schedule Schedule
	locker   JobLocker
	mu       sync.Mutex
	started  bool

	// Configuration
	annualAllocation    int64
	allocations         map[fund.Type]int64
	bonusAmount         int64
	bonusInterval       time.Duration
	bonusFund           fund.Type
	initialMonthlyRate  decimal.Decimal
	initialPurchaseRate decimal.Decimal
	adjustmentStep      decimal.Decimal
	rateWarnThreshold   decimal.Decimal
	strictInvariants    bool
	opTimeout           time.Duration
	jobTimeout          time.Duration
	pageSize            int
	location            *time.Location
}

// New creates a new Economy instance.
func New(s store.Store, opts ...Option) *Economy {
	e := &Economy{
		store:               s,
		plugins:             plugin.NewRegistry(),
		logger:              slog.Default(),
		clock:               SystemClock{},
		locks:               newKeyedMutex(),
		schedule:            DefaultSchedule(),
		annualAllocation:    DefaultAnnualAllocation,
		bonusAmount:         DefaultWeeklyBonus,
		bonusInterval:       DefaultWeeklyBonusInterval,
		initialMonthlyRate:  tax.DefaultMonthlyRate,
		initialPurchaseRate: tax.DefaultPurchaseRate,
		adjustmentStep:      tax.DefaultStep,
		strictInvariants:    true,
		jobTimeout:          30 * time.Minute,
		pageSize:            500,
		location:            time.UTC,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Economy instance.
type Option func(*Economy)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Economy) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Economy) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds how long each plugin hook may run.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Economy) {
		e.plugins.WithTimeout(d)
	}
}

// WithClock sets the time source used by scheduled jobs and reports.
func WithClock(c Clock) Option {
	return func(e *Economy) {
		e.clock = c
	}
}

// WithLocation sets the calendar location used for month and year
// boundaries. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Economy) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithAnnualAllocation overrides the fixed per-year point allocation.
func WithAnnualAllocation(points int64) Option {
	return func(e *Economy) {
		e.annualAllocation = points
	}
}

// WithFundAllocations sets the absolute per-fund allocations used when a
// fiscal year is seeded automatically. The reserve fund also receives
// whatever the allocations leave of the annual allocation.
func WithFundAllocations(allocations map[fund.Type]int64) Option {
	return func(e *Economy) {
		e.allocations = allocations
	}
}

// WithWeeklyBonus configures the stipend amount and the minimum interval
// between two bonuses for the same account.
func WithWeeklyBonus(amount int64, interval time.Duration) Option {
	return func(e *Economy) {
		e.bonusAmount = amount
		e.bonusInterval = interval
	}
}

// WithWeeklyBonusFund makes each weekly bonus disburse from the given fund.
func WithWeeklyBonusFund(t fund.Type) Option {
	return func(e *Economy) {
		e.bonusFund = t
	}
}

// WithInitialTaxRates sets the rates, in percent, used when no tax settings
// exist yet.
func WithInitialTaxRates(monthly, purchase decimal.Decimal) Option {
	return func(e *Economy) {
		e.initialMonthlyRate = monthly
		e.initialPurchaseRate = purchase
	}
}

// WithAdjustmentStep sets the annual increase in percentage points.
func WithAdjustmentStep(step decimal.Decimal) Option {
	return func(e *Economy) {
		e.adjustmentStep = step
	}
}

// WithRateWarningThreshold logs a warning whenever an annual adjustment
// pushes a rate to or above threshold percent. Rates are never capped.
func WithRateWarningThreshold(threshold decimal.Decimal) Option {
	return func(e *Economy) {
		e.rateWarnThreshold = threshold
	}
}

// WithStrictInvariants toggles the post-write balance-versus-history check.
func WithStrictInvariants(strict bool) Option {
	return func(e *Economy) {
		e.strictInvariants = strict
	}
}

// WithOperationTimeout bounds every unit of work. Zero leaves the caller's
// context deadline in charge.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Economy) {
		e.opTimeout = d
	}
}

// WithJobPageSize sets how many accounts a job loads per page.
func WithJobPageSize(n int) Option {
	return func(e *Economy) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// Store returns the underlying store.
func (e *Economy) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Economy) Plugins() *plugin.Registry { return e.plugins }

// Now returns the engine's current time.
func (e *Economy) Now() time.Time { return e.clock.Now() }

// Start migrates the store, bootstraps tax settings and the current fiscal
// year, and starts the job scheduler.
func (e *Economy) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	now := e.clock.Now()
	if _, err := e.EnsureTaxSettings(ctx, now); err != nil {
		return err
	}

	if _, err := e.RunFiscalYearJob(ctx, now); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	if err := e.startScheduler(); err != nil {
		return err
	}
	e.started = true

	e.logger.Info("economy started",
		"annual_allocation", e.annualAllocation,
		"weekly_bonus", e.bonusAmount,
		"scheduler", e.schedule.Enabled,
	)

	return nil
}

// Stop stops the scheduler, waits for running jobs, and closes the store.
func (e *Economy) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopScheduler()
	e.started = false

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Units of work
// ──────────────────────────────────────────────────

// effects collects what a unit of work did so events can be emitted once it
// has committed.
type effects struct {
	txs         []*account.Transaction
	disbursed   []fundDelta
	replenished []fundDelta
}

type fundDelta struct {
	fundType fund.Type
	amount   int64
}

// atomically runs fn as one unit of work while holding the given keys.
func (e *Economy) atomically(ctx context.Context, keys []string, fn func(ctx context.Context, tx store.Store, fx *effects) error) (*effects, error) {
	if e.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opTimeout)
		defer cancel()
	}

	unlock := e.locks.lock(keys...)
	defer unlock()

	var fx *effects
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		// Reset per attempt so a retried transaction does not double count.
		fx = &effects{}
		return fn(ctx, tx, fx)
	})
	if err != nil {
		if isInconsistent(err) {
			e.logger.Error("invariant check failed, unit rolled back", "error", err)
			e.plugins.EmitInvariantViolated(ctx, err)
		}
		return nil, err
	}
	return fx, nil
}

// emit publishes committed effects to plugins.
func (e *Economy) emit(ctx context.Context, fx *effects) {
	if fx == nil {
		return
	}
	e.plugins.EmitTransactionsRecorded(ctx, fx.txs...)
	for _, d := range fx.disbursed {
		e.plugins.EmitFundDisbursed(ctx, d.fundType, d.amount)
	}
	for _, d := range fx.replenished {
		e.plugins.EmitFundReplenished(ctx, d.fundType, d.amount)
	}
}
