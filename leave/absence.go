/*
absence.go - Absence entity and approval state machine states

LIFECYCLE:
  DRAFT -> PENDING_MANAGER -> PENDING_HR -> APPROVED
  PENDING_MANAGER and PENDING_HR can exit to REJECTED.
  CANCELLED is reachable from DRAFT, PENDING_MANAGER, PENDING_HR and
  APPROVED. APPROVED, REJECTED and CANCELLED are terminal: the only
  transition out of a terminal state is APPROVED -> CANCELLED.

INVARIANT:
  A multi-day absence is always FULL_DAY. Half-day periods exist only for
  single-day requests on a working day.

Absences are mutated exclusively by workflow transitions (workflow.go) and
deleted only while DRAFT. Every transition appends a ValidationStep; steps
are never updated or removed.
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusPendingManager Status = "PENDING_MANAGER"
	StatusPendingHR      Status = "PENDING_HR"
	StatusApproved       Status = "APPROVED"
	StatusRejected       Status = "REJECTED"
	StatusCancelled      Status = "CANCELLED"
)

// Terminal reports whether no transition except APPROVED -> CANCELLED can
// leave this status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Cancellable reports whether Cancel is legal from this status.
func (s Status) Cancellable() bool {
	switch s {
	case StatusDraft, StatusPendingManager, StatusPendingHR, StatusApproved:
		return true
	}
	return false
}

// Blocking reports whether the absence occupies its date range for overlap
// purposes. DRAFT, REJECTED and CANCELLED never conflict.
func (s Status) Blocking() bool {
	switch s {
	case StatusPendingManager, StatusPendingHR, StatusApproved:
		return true
	}
	return false
}

// =============================================================================
// DECISION
// =============================================================================

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// DecisionRecord captures one approval-stage outcome on the absence itself
// (the append-only trail lives in ValidationStep).
type DecisionRecord struct {
	ActorID   EmployeeID
	Decision  Decision
	Comment   string
	DecidedAt time.Time
}

// =============================================================================
// ABSENCE
// =============================================================================

type Absence struct {
	ID          AbsenceID
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID

	StartDate Date
	EndDate   Date
	Period    PeriodOfDay

	Reason     string
	DocumentID string // reference to externally stored supporting document

	Status      Status
	SubmittedAt *time.Time

	ManagerDecision *DecisionRecord
	HRDecision      *DecisionRecord

	// WorkingDays is computed at submission; DebitedDays is the amount
	// actually taken from the ledger at HR approval, credited back in full
	// on cancellation.
	WorkingDays decimal.Decimal
	DebitedDays decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateRange enforces the date-range and half-day invariants. It runs at
// creation and again at submission so an absence can never advance with an
// illegal range.
func (a *Absence) ValidateRange() error {
	if a.StartDate.IsZero() || a.EndDate.IsZero() || a.EndDate.Before(a.StartDate) {
		return ErrInvalidDateRange
	}
	if !a.StartDate.Equal(a.EndDate) && a.Period != FullDay {
		return ErrInvalidDateRange
	}
	return nil
}

// ReferenceYear resolves which balance year this absence draws from.
func (a *Absence) ReferenceYear() int { return ReferenceYearFor(a.StartDate) }

// =============================================================================
// VALIDATION STEP - Append-only audit trail
// =============================================================================

type Stage string

const (
	StageManager      Stage = "MANAGER"
	StageHR           Stage = "HR"
	StageCancellation Stage = "CANCELLATION"
)

// ValidationStep records one workflow transition. Steps are observational:
// never mutated, never deleted.
type ValidationStep struct {
	ID        string
	AbsenceID AbsenceID
	Stage     Stage
	ActorID   EmployeeID
	Decision  Decision
	Comment   string
	At        time.Time
}
