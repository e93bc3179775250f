package plugin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
)

type countingPlugin struct {
	name     string
	txs      atomic.Int64
	disburse atomic.Int64
	fail     bool
}

func (p *countingPlugin) Name() string { return p.name }

func (p *countingPlugin) OnTransactionRecorded(_ context.Context, _ *account.Transaction) error {
	p.txs.Add(1)
	if p.fail {
		return errors.New("hook failed")
	}
	return nil
}

func (p *countingPlugin) OnFundDisbursed(_ context.Context, _ fund.Type, amount int64) error {
	p.disburse.Add(amount)
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&countingPlugin{name: "a"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&countingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	r := NewRegistry()
	p := &countingPlugin{name: "counter"}
	failing := &countingPlugin{name: "failing", fail: true}
	_ = r.Register(p)
	_ = r.Register(failing)

	ctx := context.Background()
	r.EmitTransactionsRecorded(ctx, &account.Transaction{}, &account.Transaction{})
	r.EmitFundDisbursed(ctx, fund.TypeGrant, 40)

	if got := p.txs.Load(); got != 2 {
		t.Errorf("transactions seen = %d, want 2", got)
	}
	if got := failing.txs.Load(); got != 2 {
		t.Errorf("failing plugin should still be called, got %d", got)
	}
	if got := p.disburse.Load(); got != 40 {
		t.Errorf("disbursed = %d, want 40", got)
	}
}

func TestHookTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(10 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitShutdown(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("EmitShutdown blocked for %v", elapsed)
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&countingPlugin{name: "x"})
	want := map[string]bool{"OnTransactionRecorded": true, "OnFundDisbursed": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected interface %q", name)
		}
	}
}
