package economy

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("economy: not found")
	ErrAlreadyExists = errors.New("economy: already exists")
	ErrInvalidInput  = errors.New("economy: invalid input")

	// Balance errors
	ErrInvalidAmount       = errors.New("economy: amount must be a positive whole number of points")
	ErrInvalidKind         = errors.New("economy: invalid transaction kind")
	ErrAccountNotFound     = errors.New("economy: account not found")
	ErrAccountExists       = errors.New("economy: account already exists")
	ErrAccountDisabled     = errors.New("economy: account is disabled")
	ErrInsufficientBalance = errors.New("economy: insufficient balance")

	// Fund errors
	ErrFundNotFound    = errors.New("economy: fund not found")
	ErrFundExhausted   = errors.New("economy: fund exhausted")
	ErrInvalidFundType = errors.New("economy: invalid fund type")
	ErrOverAllocated   = errors.New("economy: allocations exceed the annual total")

	// Tax errors
	ErrNoActiveTaxSettings = errors.New("economy: no active tax settings")
	ErrAdjustmentNotFound  = errors.New("economy: tax rate adjustment not found")

	// Consistency errors
	ErrInconsistentState = errors.New("economy: inconsistent state")
	ErrAlreadyApplied    = errors.New("economy: already applied")

	// Store errors
	ErrStoreNotReady     = errors.New("economy: store not ready")
	ErrStoreClosed       = errors.New("economy: store is closed")
	ErrTransactionFailed = errors.New("economy: transaction failed")
	ErrMigrationFailed   = errors.New("economy: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("economy: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "economy: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("economy: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrFundNotFound) ||
		errors.Is(err, ErrNoActiveTaxSettings) ||
		errors.Is(err, ErrAdjustmentNotFound)
}

// IsNoOp returns true if the error reports work that was already done.
// Scheduled jobs treat it as success.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrAlreadyApplied)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}

func errInconsistentf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInconsistentState}, args...)...)
}
