package economy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/tax"
)

// Config is the declarative form of the engine options, shared by the Forge
// extension and the standalone binary. Rates are decimal strings in percent.
type Config struct {
	// Timezone is the IANA name of the calendar used for month and year
	// boundaries (default: UTC).
	Timezone string `json:"timezone" mapstructure:"timezone" toml:"timezone" yaml:"timezone"`

	// AnnualAllocation is the number of points allocated per fiscal year.
	AnnualAllocation int64 `json:"annual_allocation" mapstructure:"annual_allocation" toml:"annual_allocation" yaml:"annual_allocation"`

	// Allocations maps fund type (grant, rewards, reserve) to its yearly
	// allocation. Points left unallocated go to the reserve, so an empty map
	// seeds the whole annual allocation into the reserve fund.
	Allocations map[string]int64 `json:"allocations" mapstructure:"allocations" toml:"allocations" yaml:"allocations"`

	WeeklyBonus         int64         `json:"weekly_bonus"          mapstructure:"weekly_bonus"          toml:"weekly_bonus"          yaml:"weekly_bonus"`
	WeeklyBonusInterval time.Duration `json:"weekly_bonus_interval" mapstructure:"weekly_bonus_interval" toml:"weekly_bonus_interval" yaml:"weekly_bonus_interval"`
	// WeeklyBonusFund, when set, pays each bonus out of that fund.
	WeeklyBonusFund string `json:"weekly_bonus_fund" mapstructure:"weekly_bonus_fund" toml:"weekly_bonus_fund" yaml:"weekly_bonus_fund"`

	MonthlyTaxRate       string `json:"monthly_tax_rate"       mapstructure:"monthly_tax_rate"       toml:"monthly_tax_rate"       yaml:"monthly_tax_rate"`
	PurchaseTaxRate      string `json:"purchase_tax_rate"      mapstructure:"purchase_tax_rate"      toml:"purchase_tax_rate"      yaml:"purchase_tax_rate"`
	AdjustmentStep       string `json:"adjustment_step"        mapstructure:"adjustment_step"        toml:"adjustment_step"        yaml:"adjustment_step"`
	RateWarningThreshold string `json:"rate_warning_threshold" mapstructure:"rate_warning_threshold" toml:"rate_warning_threshold" yaml:"rate_warning_threshold"`

	Schedule Schedule `json:"schedule" mapstructure:"schedule" toml:"schedule" yaml:"schedule"`

	OperationTimeout time.Duration `json:"operation_timeout" mapstructure:"operation_timeout" toml:"operation_timeout" yaml:"operation_timeout"`
	JobTimeout       time.Duration `json:"job_timeout"       mapstructure:"job_timeout"       toml:"job_timeout"       yaml:"job_timeout"`
	JobPageSize      int           `json:"job_page_size"     mapstructure:"job_page_size"     toml:"job_page_size"     yaml:"job_page_size"`

	// LenientInvariants turns off the post-write balance check.
	LenientInvariants bool `json:"lenient_invariants" mapstructure:"lenient_invariants" toml:"lenient_invariants" yaml:"lenient_invariants"`
}

// DefaultConfig returns the configuration matching New's defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:            "UTC",
		AnnualAllocation:    DefaultAnnualAllocation,
		WeeklyBonus:         DefaultWeeklyBonus,
		WeeklyBonusInterval: DefaultWeeklyBonusInterval,
		MonthlyTaxRate:      tax.DefaultMonthlyRate.String(),
		PurchaseTaxRate:     tax.DefaultPurchaseRate.String(),
		AdjustmentStep:      tax.DefaultStep.String(),
		Schedule:            DefaultSchedule(),
		JobTimeout:          30 * time.Minute,
		JobPageSize:         500,
	}
}

// Options validates c and converts it to engine options. Zero-valued fields
// keep the engine defaults.
func (c Config) Options() ([]Option, error) {
	var opts []Option

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, ValidationError{Field: "timezone", Message: err.Error()}
		}
		opts = append(opts, WithLocation(loc))
	}
	if c.AnnualAllocation < 0 {
		return nil, ValidationError{Field: "annual_allocation", Message: "must not be negative"}
	}
	if c.AnnualAllocation > 0 {
		opts = append(opts, WithAnnualAllocation(c.AnnualAllocation))
	}

	if len(c.Allocations) > 0 {
		allocations := make(map[fund.Type]int64, len(c.Allocations))
		var total int64
		for name, points := range c.Allocations {
			t, err := fund.ParseType(name)
			if err != nil {
				return nil, ValidationError{Field: "allocations", Message: err.Error()}
			}
			if points < 0 {
				return nil, ValidationError{Field: "allocations." + name, Message: "must not be negative"}
			}
			allocations[t] = points
			total += points
		}
		annual := c.AnnualAllocation
		if annual == 0 {
			annual = DefaultAnnualAllocation
		}
		if total > annual {
			return nil, fmt.Errorf("%w: %d > %d", ErrOverAllocated, total, annual)
		}
		opts = append(opts, WithFundAllocations(allocations))
	}

	if c.WeeklyBonus < 0 || c.WeeklyBonusInterval < 0 {
		return nil, ValidationError{Field: "weekly_bonus", Message: "must not be negative"}
	}
	if c.WeeklyBonus > 0 || c.WeeklyBonusInterval > 0 {
		amount, interval := c.WeeklyBonus, c.WeeklyBonusInterval
		if amount == 0 {
			amount = DefaultWeeklyBonus
		}
		if interval == 0 {
			interval = DefaultWeeklyBonusInterval
		}
		opts = append(opts, WithWeeklyBonus(amount, interval))
	}
	if c.WeeklyBonusFund != "" {
		t, err := fund.ParseType(c.WeeklyBonusFund)
		if err != nil {
			return nil, ValidationError{Field: "weekly_bonus_fund", Message: err.Error()}
		}
		opts = append(opts, WithWeeklyBonusFund(t))
	}

	monthly, err := parseRate("monthly_tax_rate", c.MonthlyTaxRate)
	if err != nil {
		return nil, err
	}
	purchase, err := parseRate("purchase_tax_rate", c.PurchaseTaxRate)
	if err != nil {
		return nil, err
	}
	if monthly != nil || purchase != nil {
		m, p := tax.DefaultMonthlyRate, tax.DefaultPurchaseRate
		if monthly != nil {
			m = *monthly
		}
		if purchase != nil {
			p = *purchase
		}
		opts = append(opts, WithInitialTaxRates(m, p))
	}
	if step, err := parseRate("adjustment_step", c.AdjustmentStep); err != nil {
		return nil, err
	} else if step != nil {
		opts = append(opts, WithAdjustmentStep(*step))
	}
	if threshold, err := parseRate("rate_warning_threshold", c.RateWarningThreshold); err != nil {
		return nil, err
	} else if threshold != nil {
		opts = append(opts, WithRateWarningThreshold(*threshold))
	}

	// A zero Schedule keeps the default jobs.
	if c.Schedule != (Schedule{}) {
		if err := c.Schedule.Validate(); err != nil {
			return nil, err
		}
		opts = append(opts, WithSchedule(c.Schedule))
	}

	if c.OperationTimeout > 0 {
		opts = append(opts, WithOperationTimeout(c.OperationTimeout))
	}
	if c.JobTimeout > 0 {
		opts = append(opts, WithJobTimeout(c.JobTimeout))
	}
	if c.JobPageSize > 0 {
		opts = append(opts, WithJobPageSize(c.JobPageSize))
	}
	if c.LenientInvariants {
		opts = append(opts, WithStrictInvariants(false))
	}

	return opts, nil
}

func parseRate(field, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ValidationError{Field: field, Message: err.Error()}
	}
	if d.IsNegative() {
		return nil, ValidationError{Field: field, Message: "must not be negative"}
	}
	return &d, nil
}
