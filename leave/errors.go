/*
errors.go - Centralized error taxonomy for the leave engine

PURPOSE:
  All expected, recoverable-by-caller outcomes in one place. Callers match
  with errors.Is(); structured errors carry detail and Unwrap() to their
  sentinel so both styles work.

ERROR CATEGORIES:
  1. Accrual errors   - missing policy/contract
  2. Guard errors     - date range, overlap, balance, document
  3. Workflow errors  - illegal transitions, self-approval, authorization

Only storage/transaction-layer failures propagate as plain wrapped errors;
everything below leaves entity state untouched.
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when no accrual policy applies to the
	// employee for the requested reference year. Never silently defaulted.
	ErrPolicyNotFound = errors.New("no applicable accrual policy")

	// ErrNoActiveContract is returned when the employee has no contract
	// overlapping the as-of date.
	ErrNoActiveContract = errors.New("no active contract")

	// ErrInvalidDateRange covers end-before-start and half-day periods used
	// on multi-day ranges or non-working days.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrOverlapConflict is returned when a proposed range collides with an
	// existing non-terminal absence for the same employee.
	ErrOverlapConflict = errors.New("overlapping absence")

	// ErrInsufficientBalance is returned when the requested working-day
	// count exceeds the remaining balance for the reference year.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition is returned when an operation is not legal from
	// the absence's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSelfApproval is returned when an actor attempts a manager or HR
	// decision on their own absence.
	ErrSelfApproval = errors.New("cannot decide on own absence")

	// ErrMissingDocument is returned when the leave type requires a
	// supporting document and none was provided.
	ErrMissingDocument = errors.New("supporting document required")

	// ErrNotAuthorized is returned when the injected Authorizer denies the
	// actor for the attempted stage.
	ErrNotAuthorized = errors.New("actor not authorized for stage")

	// ErrAbsenceNotFound is returned for unknown absence identifiers.
	ErrAbsenceNotFound = errors.New("absence not found")

	// ErrLeaveTypeNotFound is returned for unknown leave type identifiers.
	ErrLeaveTypeNotFound = errors.New("leave type not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports requested vs. available days.
type InsufficientBalanceError struct {
	EmployeeID    EmployeeID
	ReferenceYear int
	Requested     decimal.Decimal
	Available     decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for reference year %d: requested=%s available=%s",
		e.ReferenceYear, e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// TransitionError reports an operation attempted from an illegal status.
type TransitionError struct {
	AbsenceID AbsenceID
	From      Status
	Operation string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s absence %s in status %s", e.Operation, e.AbsenceID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is a guard rejection caused by the
// request itself rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrOverlapConflict) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSelfApproval) ||
		errors.Is(err, ErrMissingDocument) ||
		errors.Is(err, ErrNotAuthorized)
}

// IsNotFound reports whether the error indicates a missing entity or policy.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAbsenceNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrPolicyNotFound)
}
