package job

import (
	"errors"
	"testing"
	"time"
)

func TestFinishOutcome(t *testing.T) {
	now := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	tests := []struct {
		name string
		run  func(r *Report)
		want Outcome
	}{
		{"empty run is a no-op", func(*Report) {}, OutcomeNoOp},
		{"only skips", func(r *Report) { r.Skip(); r.Skip() }, OutcomeNoOp},
		{"applied", func(r *Report) { r.Apply(10); r.Skip() }, OutcomeApplied},
		{"partial", func(r *Report) { r.Apply(10); r.Fail("acct", boom) }, OutcomePartial},
		{"failed", func(r *Report) { r.Fail("acct", boom) }, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(KindWeeklyBonus, now)
			tt.run(r)
			if got := r.Finish().Outcome; got != tt.want {
				t.Errorf("Outcome = %q, want %q", got, tt.want)
			}
			if r.Processed != r.Applied+r.Skipped+r.Failed {
				t.Errorf("processed %d != applied+skipped+failed", r.Processed)
			}
		})
	}
}

func TestApplyAccumulatesPoints(t *testing.T) {
	r := New(KindWeeklyBonus, time.Now())
	r.Apply(10)
	r.Apply(10)
	if r.Points != 20 {
		t.Errorf("Points = %d, want 20", r.Points)
	}
}
