package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/tax"
)

// DefaultHookTimeout bounds how long a single plugin hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onAccountOpened        []OnAccountOpened
	onAccountStatusChanged []OnAccountStatusChanged
	onTransactionRecorded  []OnTransactionRecorded
	onFundDisbursed        []OnFundDisbursed
	onFundReplenished      []OnFundReplenished
	onFiscalYearSeeded     []OnFiscalYearSeeded
	onTaxApplied           []OnTaxApplied
	onTaxRatesAdjusted     []OnTaxRatesAdjusted
	onJobCompleted         []OnJobCompleted
	onInvariantViolated    []OnInvariantViolated
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountOpened); ok {
		r.onAccountOpened = append(r.onAccountOpened, v)
	}
	if v, ok := p.(OnAccountStatusChanged); ok {
		r.onAccountStatusChanged = append(r.onAccountStatusChanged, v)
	}
	if v, ok := p.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
	}
	if v, ok := p.(OnFundDisbursed); ok {
		r.onFundDisbursed = append(r.onFundDisbursed, v)
	}
	if v, ok := p.(OnFundReplenished); ok {
		r.onFundReplenished = append(r.onFundReplenished, v)
	}
	if v, ok := p.(OnFiscalYearSeeded); ok {
		r.onFiscalYearSeeded = append(r.onFiscalYearSeeded, v)
	}
	if v, ok := p.(OnTaxApplied); ok {
		r.onTaxApplied = append(r.onTaxApplied, v)
	}
	if v, ok := p.(OnTaxRatesAdjusted); ok {
		r.onTaxRatesAdjusted = append(r.onTaxRatesAdjusted, v)
	}
	if v, ok := p.(OnJobCompleted); ok {
		r.onJobCompleted = append(r.onJobCompleted, v)
	}
	if v, ok := p.(OnInvariantViolated); ok {
		r.onInvariantViolated = append(r.onInvariantViolated, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnAccountOpened", reflect.TypeOf((*OnAccountOpened)(nil)).Elem()},
	{"OnAccountStatusChanged", reflect.TypeOf((*OnAccountStatusChanged)(nil)).Elem()},
	{"OnTransactionRecorded", reflect.TypeOf((*OnTransactionRecorded)(nil)).Elem()},
	{"OnFundDisbursed", reflect.TypeOf((*OnFundDisbursed)(nil)).Elem()},
	{"OnFundReplenished", reflect.TypeOf((*OnFundReplenished)(nil)).Elem()},
	{"OnFiscalYearSeeded", reflect.TypeOf((*OnFiscalYearSeeded)(nil)).Elem()},
	{"OnTaxApplied", reflect.TypeOf((*OnTaxApplied)(nil)).Elem()},
	{"OnTaxRatesAdjusted", reflect.TypeOf((*OnTaxRatesAdjusted)(nil)).Elem()},
	{"OnJobCompleted", reflect.TypeOf((*OnJobCompleted)(nil)).Elem()},
	{"OnInvariantViolated", reflect.TypeOf((*OnInvariantViolated)(nil)).Elem()},
}

// implementedInterfaces returns a list of hook interfaces implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch calls hook for each plugin in list, logging failures.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, list []T, call func(T) error) {
	for _, p := range list {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(ctx, r, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitAccountOpened emits an account opened event.
func (r *Registry) EmitAccountOpened(ctx context.Context, acct *account.Account) {
	r.mu.RLock()
	plugins := r.onAccountOpened
	r.mu.RUnlock()

	dispatch(ctx, r, "OnAccountOpened", plugins, func(p OnAccountOpened) error {
		return p.OnAccountOpened(ctx, acct)
	})
}

// EmitAccountStatusChanged emits an account status change event.
func (r *Registry) EmitAccountStatusChanged(ctx context.Context, acct *account.Account) {
	r.mu.RLock()
	plugins := r.onAccountStatusChanged
	r.mu.RUnlock()

	dispatch(ctx, r, "OnAccountStatusChanged", plugins, func(p OnAccountStatusChanged) error {
		return p.OnAccountStatusChanged(ctx, acct)
	})
}

// EmitTransactionsRecorded emits one event per committed transaction.
func (r *Registry) EmitTransactionsRecorded(ctx context.Context, txs ...*account.Transaction) {
	r.mu.RLock()
	plugins := r.onTransactionRecorded
	r.mu.RUnlock()

	for _, tx := range txs {
		dispatch(ctx, r, "OnTransactionRecorded", plugins, func(p OnTransactionRecorded) error {
			return p.OnTransactionRecorded(ctx, tx)
		})
	}
}

// EmitFundDisbursed emits a fund disbursed event.
func (r *Registry) EmitFundDisbursed(ctx context.Context, fundType fund.Type, amount int64) {
	r.mu.RLock()
	plugins := r.onFundDisbursed
	r.mu.RUnlock()

	dispatch(ctx, r, "OnFundDisbursed", plugins, func(p OnFundDisbursed) error {
		return p.OnFundDisbursed(ctx, fundType, amount)
	})
}

// EmitFundReplenished emits a fund replenished event.
func (r *Registry) EmitFundReplenished(ctx context.Context, fundType fund.Type, amount int64) {
	r.mu.RLock()
	plugins := r.onFundReplenished
	r.mu.RUnlock()

	dispatch(ctx, r, "OnFundReplenished", plugins, func(p OnFundReplenished) error {
		return p.OnFundReplenished(ctx, fundType, amount)
	})
}

// EmitFiscalYearSeeded emits a fiscal year seeded event.
func (r *Registry) EmitFiscalYearSeeded(ctx context.Context, year int, funds []fund.State) {
	r.mu.RLock()
	plugins := r.onFiscalYearSeeded
	r.mu.RUnlock()

	dispatch(ctx, r, "OnFiscalYearSeeded", plugins, func(p OnFiscalYearSeeded) error {
		return p.OnFiscalYearSeeded(ctx, year, funds)
	})
}

// EmitTaxApplied emits a tax applied event.
func (r *Registry) EmitTaxApplied(ctx context.Context, result *tax.Result) {
	r.mu.RLock()
	plugins := r.onTaxApplied
	r.mu.RUnlock()

	dispatch(ctx, r, "OnTaxApplied", plugins, func(p OnTaxApplied) error {
		return p.OnTaxApplied(ctx, result)
	})
}

// EmitTaxRatesAdjusted emits a tax rates adjusted event.
func (r *Registry) EmitTaxRatesAdjusted(ctx context.Context, adj *tax.Adjustment) {
	r.mu.RLock()
	plugins := r.onTaxRatesAdjusted
	r.mu.RUnlock()

	dispatch(ctx, r, "OnTaxRatesAdjusted", plugins, func(p OnTaxRatesAdjusted) error {
		return p.OnTaxRatesAdjusted(ctx, adj)
	})
}

// EmitJobCompleted emits a job completed event.
func (r *Registry) EmitJobCompleted(ctx context.Context, report *job.Report) {
	r.mu.RLock()
	plugins := r.onJobCompleted
	r.mu.RUnlock()

	dispatch(ctx, r, "OnJobCompleted", plugins, func(p OnJobCompleted) error {
		return p.OnJobCompleted(ctx, report)
	})
}

// EmitInvariantViolated emits an invariant violation event.
func (r *Registry) EmitInvariantViolated(ctx context.Context, violation error) {
	r.mu.RLock()
	plugins := r.onInvariantViolated
	r.mu.RUnlock()

	dispatch(ctx, r, "OnInvariantViolated", plugins, func(p OnInvariantViolated) error {
		return p.OnInvariantViolated(ctx, violation)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
