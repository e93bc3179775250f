package fund

import "testing"

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		fund    Fund
		wantErr bool
	}{
		{"grant within bounds", Fund{Type: TypeGrant, Allocated: 100, Remaining: 40}, false},
		{"grant full", Fund{Type: TypeGrant, Allocated: 100, Remaining: 100}, false},
		{"grant over ceiling", Fund{Type: TypeGrant, Allocated: 100, Remaining: 101}, true},
		{"rewards negative", Fund{Type: TypeRewards, Allocated: 100, Remaining: -1}, true},
		{"reserve above allocation", Fund{Type: TypeReserve, Allocated: 100, Remaining: 150, Inflow: 50}, false},
		{"reserve negative", Fund{Type: TypeReserve, Allocated: 100, Remaining: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fund.Check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeadroom(t *testing.T) {
	g := Fund{Type: TypeGrant, Allocated: 100, Remaining: 70}
	if h, bounded := g.Headroom(); !bounded || h != 30 {
		t.Errorf("grant headroom: got %d bounded=%v", h, bounded)
	}

	r := Fund{Type: TypeReserve, Allocated: 100, Remaining: 70}
	if _, bounded := r.Headroom(); bounded {
		t.Error("reserve should be unbounded")
	}
}

func TestDisbursed(t *testing.T) {
	r := Fund{Type: TypeReserve, Allocated: 1000, Remaining: 900, Inflow: 25}
	if got := r.Disbursed(); got != 125 {
		t.Errorf("Disbursed() = %d, want 125", got)
	}
}

func TestParseType(t *testing.T) {
	if ft, err := ParseType("rewards"); err != nil || ft != TypeRewards {
		t.Errorf("got %q, %v", ft, err)
	}
	if _, err := ParseType("marketing"); err == nil {
		t.Error("expected error for unknown fund type")
	}
}
