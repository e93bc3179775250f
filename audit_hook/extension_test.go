package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy/account"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/tax"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) recorder() Recorder {
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		c.events = append(c.events, evt)
		return nil
	})
}

func TestAccountStatusActions(t *testing.T) {
	var c captured
	ext := New(c.recorder())
	ctx := context.Background()

	acct := &account.Account{ID: id.NewAccountID(), Status: account.StatusDisabled, Balance: 10}
	require.NoError(t, ext.OnAccountStatusChanged(ctx, acct))
	acct.Status = account.StatusActive
	require.NoError(t, ext.OnAccountStatusChanged(ctx, acct))

	require.Len(t, c.events, 2)
	assert.Equal(t, ActionAccountDisabled, c.events[0].Action)
	assert.Equal(t, SeverityWarning, c.events[0].Severity)
	assert.Equal(t, ActionAccountEnabled, c.events[1].Action)
	assert.Equal(t, acct.ID.String(), c.events[1].ResourceID)
}

func TestTaxApplied(t *testing.T) {
	var c captured
	ext := New(c.recorder())

	res := &tax.Result{
		AccountID:    id.NewAccountID(),
		Event:        tax.EventEarnings,
		Base:         1000,
		Rate:         decimal.NewFromInt(5),
		TaxAmount:    50,
		Burn:         25,
		ReserveShare: 25,
	}
	require.NoError(t, ext.OnTaxApplied(context.Background(), res))
	require.NoError(t, ext.OnTaxApplied(context.Background(), &tax.Result{AccountID: res.AccountID, Exempt: true}))

	require.Len(t, c.events, 2)
	assert.Equal(t, ActionTaxApplied, c.events[0].Action)
	assert.Equal(t, "5", c.events[0].Metadata["rate"])
	assert.Equal(t, int64(25), c.events[0].Metadata["burn"])
	assert.Equal(t, ActionTaxExempted, c.events[1].Action)
}

func TestJobCompletedOutcome(t *testing.T) {
	var c captured
	ext := New(c.recorder())

	report := &job.Report{
		RunID:    id.NewJobRunID(),
		Kind:     job.KindWeeklyBonus,
		Outcome:  job.OutcomePartial,
		Applied:  3,
		Failed:   1,
		Failures: []job.Failure{{Subject: "acct_1", Error: "boom"}},
	}
	require.NoError(t, ext.OnJobCompleted(context.Background(), report))

	require.Len(t, c.events, 1)
	evt := c.events[0]
	assert.Equal(t, OutcomePartial, evt.Outcome)
	assert.Equal(t, SeverityWarning, evt.Severity)
	assert.Contains(t, evt.Reason, "acct_1")
}

func TestEnabledAndDisabledActions(t *testing.T) {
	var c captured
	ext := New(c.recorder(), WithDisabledActions(ActionTransactionRecorded))
	ctx := context.Background()

	require.NoError(t, ext.OnTransactionRecorded(ctx, &account.Transaction{ID: id.NewTransactionID(), AccountID: id.NewAccountID()}))
	require.NoError(t, ext.OnInvariantViolated(ctx, errors.New("balance mismatch")))
	require.Len(t, c.events, 1)
	assert.Equal(t, ActionInvariantViolated, c.events[0].Action)
	assert.Equal(t, SeverityCritical, c.events[0].Severity)

	c.events = nil
	only := New(c.recorder(), WithEnabledActions(ActionTransactionRecorded))
	require.NoError(t, only.OnInvariantViolated(ctx, errors.New("x")))
	assert.Empty(t, c.events)
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend down")
	}))
	assert.NoError(t, ext.OnInvariantViolated(context.Background(), errors.New("x")))
}
