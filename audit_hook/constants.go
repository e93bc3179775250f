package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountOpened   = "account.opened"
	ActionAccountDisabled = "account.disabled"
	ActionAccountEnabled  = "account.enabled"

	// Ledger actions
	ActionTransactionRecorded = "transaction.recorded"

	// Fund actions
	ActionFundDisbursed    = "fund.disbursed"
	ActionFundReplenished  = "fund.replenished"
	ActionFiscalYearSeeded = "fund.fiscal_year_seeded"

	// Tax actions
	ActionTaxApplied       = "tax.applied"
	ActionTaxExempted      = "tax.exempted"
	ActionTaxRatesAdjusted = "tax.rates_adjusted"

	// Job actions
	ActionJobCompleted = "job.completed"

	// Integrity actions
	ActionInvariantViolated = "invariant.violated"
)

// Resource constants for audit events.
const (
	ResourceAccount     = "account"
	ResourceTransaction = "transaction"
	ResourceFund        = "fund"
	ResourceTaxSettings = "tax_settings"
	ResourceJob         = "job"
	ResourceLedger      = "ledger"
)

// Category constants for audit events.
const (
	CategoryAccount   = "account"
	CategoryLedger    = "ledger"
	CategoryTreasury  = "treasury"
	CategoryTaxation  = "taxation"
	CategoryScheduler = "scheduler"
	CategoryIntegrity = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
