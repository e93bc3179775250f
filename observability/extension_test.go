package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/tax"
)

type fakeMetric struct {
	total    float64
	observed []float64
}

func (f *fakeMetric) Inc()              { f.total++ }
func (f *fakeMetric) Add(v float64)     { f.total += v }
func (f *fakeMetric) Observe(v float64) { f.observed = append(f.observed, v) }

type fakeFactory struct {
	metrics map[string]*fakeMetric
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{metrics: make(map[string]*fakeMetric)}
}

func (f *fakeFactory) get(name string) *fakeMetric {
	m, ok := f.metrics[name]
	if !ok {
		m = &fakeMetric{}
		f.metrics[name] = m
	}
	return m
}

func (f *fakeFactory) Counter(name string) Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) Histogram { return f.get(name) }

func TestTransactionMetrics(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnTransactionRecorded(ctx, &account.Transaction{Kind: account.KindMint, Amount: 100}))
	require.NoError(t, m.OnTransactionRecorded(ctx, &account.Transaction{Kind: account.KindTaxEarnings, Amount: -5}))
	require.NoError(t, m.OnTransactionRecorded(ctx, &account.Transaction{Kind: account.KindTaxEarnings, Amount: -5}))

	assert.Equal(t, 1.0, f.metrics["economy.transactions.mint"].total)
	assert.Equal(t, 100.0, f.metrics["economy.points.mint"].total)
	assert.Equal(t, 2.0, f.metrics["economy.transactions.tax_earnings"].total)
	assert.Equal(t, 10.0, f.metrics["economy.points.tax_earnings"].total)
}

func TestTaxMetrics(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnTaxApplied(ctx, &tax.Result{TaxAmount: 5, Burn: 2, ReserveShare: 3}))
	require.NoError(t, m.OnTaxApplied(ctx, &tax.Result{Exempt: true}))

	assert.Equal(t, 2.0, f.metrics["economy.tax.events"].total)
	assert.Equal(t, 1.0, f.metrics["economy.tax.exempt"].total)
	assert.Equal(t, 2.0, f.metrics["economy.tax.burned_points"].total)
	assert.Equal(t, 3.0, f.metrics["economy.tax.reserve_points"].total)
	assert.Equal(t, []float64{5}, f.metrics["economy.tax.amount"].observed)
}

func TestFundAndJobMetrics(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnFundDisbursed(ctx, fund.TypeRewards, 40))
	require.NoError(t, m.OnFundReplenished(ctx, fund.TypeReserve, 7))
	assert.Equal(t, 40.0, f.metrics["economy.fund.rewards.disbursed_points"].total)
	assert.Equal(t, 7.0, f.metrics["economy.fund.reserve.replenished_points"].total)

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	report := &job.Report{Kind: job.KindWeeklyBonus, Failed: 2, StartedAt: start, FinishedAt: start.Add(3 * time.Second)}
	require.NoError(t, m.OnJobCompleted(ctx, report))
	assert.Equal(t, 1.0, f.metrics["economy.job.weekly_bonus.runs"].total)
	assert.Equal(t, 2.0, f.metrics["economy.job.weekly_bonus.failures"].total)

	require.NoError(t, m.OnInvariantViolated(ctx, errors.New("boom")))
	assert.Equal(t, 1.0, f.metrics["economy.invariant.violations"].total)
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	c := f.Counter("economy.tax.events")
	c.Inc()
	c.Add(2)
	assert.Same(t, c, f.Counter("economy.tax.events"))

	// A second factory on the same registry reuses the collector.
	other := NewPrometheusFactory(reg)
	other.Counter("economy.tax.events").Inc()

	assert.Equal(t, 4.0, testutil.ToFloat64(c.(prometheus.Counter)))

	f.Histogram("economy.job.duration_seconds").Observe(0.5)
	n, err := testutil.GatherAndCount(reg, "economy_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
