/*
workflow.go - Absence lifecycle orchestration

PURPOSE:
  The Workflow drives a leave request from creation through the two-stage
  approval chain, debiting the balance ledger at final approval and
  crediting it back on cancellation of an approved request.

TRANSITION GUARDS:
  Submit:   valid range, no overlap, document present when required,
            sufficient balance for balance-consuming types (N-1 rule)
  Manager:  PENDING_MANAGER only, no self-approval, authorizer consent
  HR:       PENDING_HR only, no self-approval, authorizer consent;
            approval debits the ledger atomically with the status write
  Cancel:   any cancellable status; restitution of the debited amount when
            the absence was APPROVED and its type consumes balance

ATOMICITY:
  Every transition runs inside TxStore.WithEmployeeTx: a single unit of
  work serialized per employee, so a concurrent submission observes the
  first one's committed row and two approvals against the same record
  cannot both pass the sufficiency check.

EVENTS:
  Transitions return the domain events they produced. The caller forwards
  them to its notification gateway; nothing is fired globally.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// STORAGE & COLLABORATOR INTERFACES
// =============================================================================

// Store is the persistence surface a single unit of work operates on.
type Store interface {
	AbsenceReader
	RecordStore

	// Absence returns the absence or ErrAbsenceNotFound.
	Absence(ctx context.Context, id AbsenceID) (*Absence, error)
	SaveAbsence(ctx context.Context, a *Absence) error
	// DeleteAbsence removes a row; the workflow only calls it for drafts.
	DeleteAbsence(ctx context.Context, id AbsenceID) error

	// AppendStep records one audit-trail row. Append-only.
	AppendStep(ctx context.Context, step ValidationStep) error
	Steps(ctx context.Context, id AbsenceID) ([]ValidationStep, error)

	// LeaveType returns the type or ErrLeaveTypeNotFound.
	LeaveType(ctx context.Context, id LeaveTypeID) (LeaveType, error)
}

// TxStore adds the atomic unit of work. Implementations must serialize
// concurrent units for the same employee; different employees proceed in
// parallel.
type TxStore interface {
	Store

	// WithEmployeeTx runs fn inside a transaction holding the employee's
	// exclusive lock. fn returning an error rolls everything back.
	WithEmployeeTx(ctx context.Context, employee EmployeeID, fn func(Store) error) error
}

// ContractRepository looks up the employee's contract snapshot. Returns
// ErrNoActiveContract when no contract overlaps the date.
type ContractRepository interface {
	ActiveContractAt(ctx context.Context, employee EmployeeID, at Date) (EmployeeInfo, error)
}

// PolicyRepository resolves the accrual policy governing an employee for a
// reference year, via convention assignment. Returns ErrPolicyNotFound
// when nothing applies.
type PolicyRepository interface {
	ActivePolicyFor(ctx context.Context, employee EmployeeID, year int) (AccrualPolicy, error)
}

// Authorizer is the single capability the caller injects for role checks.
// The engine never queries roles itself; it only refuses self-approval on
// its own.
type Authorizer interface {
	CanDecide(ctx context.Context, actor EmployeeID, stage Stage, a *Absence) bool
}

// AllowAll authorizes every actor. Used in tests and by callers that gate
// access entirely upstream.
type AllowAll struct{}

func (AllowAll) CanDecide(context.Context, EmployeeID, Stage, *Absence) bool { return true }

// =============================================================================
// WORKFLOW
// =============================================================================

type Workflow struct {
	Store     TxStore
	Contracts ContractRepository
	Policies  PolicyRepository
	Calendar  HolidayCalendar
	Auth      Authorizer

	engine Engine
	now    func() time.Time
}

func NewWorkflow(store TxStore, contracts ContractRepository, policies PolicyRepository, cal HolidayCalendar, auth Authorizer) *Workflow {
	if cal == nil {
		cal = NoHolidays{}
	}
	if auth == nil {
		auth = AllowAll{}
	}
	return &Workflow{
		Store:     store,
		Contracts: contracts,
		Policies:  policies,
		Calendar:  cal,
		Auth:      auth,
		now:       time.Now,
	}
}

// CreateAbsenceInput is the caller-supplied shape of a new draft.
type CreateAbsenceInput struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Start       Date
	End         Date
	Period      PeriodOfDay
	Reason      string
	DocumentID  string
}

// CreateAbsence creates a DRAFT. Range and half-day invariants are checked
// here so an illegal request never persists; everything else waits for
// Submit.
func (w *Workflow) CreateAbsence(ctx context.Context, in CreateAbsenceInput) (*Absence, error) {
	if in.Period == "" {
		in.Period = FullDay
	}
	if !in.Period.Valid() {
		return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidDateRange, in.Period)
	}

	now := w.now().UTC()
	a := &Absence{
		ID:          AbsenceID(uuid.NewString()),
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: in.LeaveTypeID,
		StartDate:   in.Start,
		EndDate:     in.End,
		Period:      in.Period,
		Reason:      in.Reason,
		DocumentID:  in.DocumentID,
		Status:      StatusDraft,
		WorkingDays: decimal.Zero,
		DebitedDays: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.ValidateRange(); err != nil {
		return nil, err
	}
	if _, err := w.Store.LeaveType(ctx, in.LeaveTypeID); err != nil {
		return nil, err
	}
	if err := w.Store.SaveAbsence(ctx, a); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return a, nil
}

// Submit moves DRAFT -> PENDING_MANAGER after all creation guards pass.
func (w *Workflow) Submit(ctx context.Context, id AbsenceID) ([]Event, error) {
	a, err := w.Store.Absence(ctx, id)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = w.Store.WithEmployeeTx(ctx, a.EmployeeID, func(s Store) error {
		a, err := s.Absence(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusDraft {
			return &TransitionError{AbsenceID: a.ID, From: a.Status, Operation: "submit"}
		}
		if err := a.ValidateRange(); err != nil {
			return err
		}

		lt, err := s.LeaveType(ctx, a.LeaveTypeID)
		if err != nil {
			return err
		}
		if lt.RequiresDocument && a.DocumentID == "" {
			return ErrMissingDocument
		}

		// Half-days are only meaningful on a working day.
		if a.Period.IsHalfDay() && !IsWorkingDay(w.Calendar, a.StartDate) {
			return fmt.Errorf("%w: half-day on non-working day %s", ErrInvalidDateRange, a.StartDate)
		}

		validator := &OverlapValidator{Absences: s}
		if err := validator.Check(ctx, a.EmployeeID, a.StartDate, a.EndDate, a.ID); err != nil {
			return err
		}

		a.WorkingDays = WorkingDays(w.Calendar, a.StartDate, a.EndDate, a.Period)

		if lt.ConsumesBalance {
			ledger := &Ledger{Records: s}
			year := a.ReferenceYear()
			// Materialize the record so a missing year reads as a zero
			// balance rather than a lookup failure.
			rec, err := ledger.ensure(ctx, a.EmployeeID, year)
			if err != nil {
				return err
			}
			if a.WorkingDays.GreaterThan(rec.Remaining()) {
				return &InsufficientBalanceError{
					EmployeeID:    a.EmployeeID,
					ReferenceYear: year,
					Requested:     a.WorkingDays,
					Available:     rec.Remaining(),
				}
			}
		}

		now := w.now().UTC()
		a.Status = StatusPendingManager
		a.SubmittedAt = &now
		a.UpdatedAt = now
		if err := s.SaveAbsence(ctx, a); err != nil {
			return err
		}
		events = append(events, newEvent(EventRequestCreated, a, a.EmployeeID, a.Reason, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DecideManager records the manager-stage decision:
// PENDING_MANAGER -> PENDING_HR on approve, -> REJECTED on reject.
func (w *Workflow) DecideManager(ctx context.Context, id AbsenceID, actor EmployeeID, approve bool, comment string) ([]Event, error) {
	return w.decide(ctx, id, actor, approve, comment, StageManager)
}

// DecideHR records the HR-stage decision: PENDING_HR -> APPROVED on
// approve (debiting the ledger in the same unit of work), -> REJECTED on
// reject.
func (w *Workflow) DecideHR(ctx context.Context, id AbsenceID, actor EmployeeID, approve bool, comment string) ([]Event, error) {
	return w.decide(ctx, id, actor, approve, comment, StageHR)
}

func (w *Workflow) decide(ctx context.Context, id AbsenceID, actor EmployeeID, approve bool, comment string, stage Stage) ([]Event, error) {
	a, err := w.Store.Absence(ctx, id)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = w.Store.WithEmployeeTx(ctx, a.EmployeeID, func(s Store) error {
		a, err := s.Absence(ctx, id)
		if err != nil {
			return err
		}

		expected := StatusPendingManager
		if stage == StageHR {
			expected = StatusPendingHR
		}
		if a.Status != expected {
			return &TransitionError{AbsenceID: a.ID, From: a.Status, Operation: "decide " + string(stage)}
		}
		if actor == a.EmployeeID {
			return ErrSelfApproval
		}
		if !w.Auth.CanDecide(ctx, actor, stage, a) {
			return ErrNotAuthorized
		}

		now := w.now().UTC()
		decision := DecisionRejected
		if approve {
			decision = DecisionApproved
		}
		record := &DecisionRecord{ActorID: actor, Decision: decision, Comment: comment, DecidedAt: now}

		var kind EventKind
		switch {
		case stage == StageManager && approve:
			a.Status = StatusPendingHR
			a.ManagerDecision = record
			kind = EventManagerApproved
		case stage == StageManager:
			a.Status = StatusRejected
			a.ManagerDecision = record
			kind = EventManagerRejected
		case approve: // HR
			lt, err := s.LeaveType(ctx, a.LeaveTypeID)
			if err != nil {
				return err
			}
			if lt.ConsumesBalance {
				ledger := &Ledger{Records: s}
				if err := ledger.Debit(ctx, a.EmployeeID, a.ReferenceYear(), a.WorkingDays); err != nil {
					return err
				}
				a.DebitedDays = a.WorkingDays
			}
			a.Status = StatusApproved
			a.HRDecision = record
			kind = EventHRApproved
		default: // HR reject
			a.Status = StatusRejected
			a.HRDecision = record
			kind = EventHRRejected
		}

		a.UpdatedAt = now
		if err := s.SaveAbsence(ctx, a); err != nil {
			return err
		}
		if err := s.AppendStep(ctx, ValidationStep{
			ID:        uuid.NewString(),
			AbsenceID: a.ID,
			Stage:     stage,
			ActorID:   actor,
			Decision:  decision,
			Comment:   comment,
			At:        now,
		}); err != nil {
			return err
		}
		events = append(events, newEvent(kind, a, actor, comment, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Cancel moves any cancellable status to CANCELLED. The requesting
// employee may cancel their own request before terminal closure; an
// HR-privileged actor (per the Authorizer) may cancel at any time,
// including after approval. Cancelling an APPROVED balance-consuming
// absence credits back exactly what approval debited.
func (w *Workflow) Cancel(ctx context.Context, id AbsenceID, actor EmployeeID, reason string) ([]Event, error) {
	a, err := w.Store.Absence(ctx, id)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = w.Store.WithEmployeeTx(ctx, a.EmployeeID, func(s Store) error {
		a, err := s.Absence(ctx, id)
		if err != nil {
			return err
		}
		if !a.Status.Cancellable() {
			return &TransitionError{AbsenceID: a.ID, From: a.Status, Operation: "cancel"}
		}

		privileged := w.Auth.CanDecide(ctx, actor, StageCancellation, a)
		if a.Status == StatusApproved {
			if !privileged {
				return ErrNotAuthorized
			}
		} else if actor != a.EmployeeID && !privileged {
			return ErrNotAuthorized
		}

		now := w.now().UTC()
		if a.Status == StatusApproved && a.DebitedDays.IsPositive() {
			ledger := &Ledger{Records: s}
			if err := ledger.Credit(ctx, a.EmployeeID, a.ReferenceYear(), a.DebitedDays); err != nil {
				return err
			}
			a.DebitedDays = decimal.Zero
		}

		a.Status = StatusCancelled
		a.UpdatedAt = now
		if err := s.SaveAbsence(ctx, a); err != nil {
			return err
		}
		if err := s.AppendStep(ctx, ValidationStep{
			ID:        uuid.NewString(),
			AbsenceID: a.ID,
			Stage:     StageCancellation,
			ActorID:   actor,
			Decision:  DecisionApproved,
			Comment:   reason,
			At:        now,
		}); err != nil {
			return err
		}
		events = append(events, newEvent(EventRequestCancelled, a, actor, reason, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Delete removes a DRAFT. Only the owner may delete, and only while the
// request has never been submitted.
func (w *Workflow) Delete(ctx context.Context, id AbsenceID, actor EmployeeID) error {
	a, err := w.Store.Absence(ctx, id)
	if err != nil {
		return err
	}
	return w.Store.WithEmployeeTx(ctx, a.EmployeeID, func(s Store) error {
		a, err := s.Absence(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusDraft {
			return &TransitionError{AbsenceID: a.ID, From: a.Status, Operation: "delete"}
		}
		if actor != a.EmployeeID {
			return ErrNotAuthorized
		}
		return s.DeleteAbsence(ctx, id)
	})
}

// =============================================================================
// ACCRUAL OPERATIONS
// =============================================================================

// ComputeAccrual resolves the employee's policy and contract and runs the
// pure engine. ErrPolicyNotFound propagates untouched; a missing contract
// yields a zero result with a documented reason, matching the engine's
// contract.
func (w *Workflow) ComputeAccrual(ctx context.Context, employee EmployeeID, year int, asOf Date) (AccrualResult, error) {
	policy, err := w.Policies.ActivePolicyFor(ctx, employee, year)
	if err != nil {
		return AccrualResult{}, err
	}
	emp, err := w.Contracts.ActiveContractAt(ctx, employee, asOf)
	if err != nil {
		if errors.Is(err, ErrNoActiveContract) {
			return AccrualResult{
				EmployeeID:    employee,
				PolicyID:      policy.ID,
				ReferenceYear: year,
				AsOf:          asOf,
				EarnedDays:    decimal.Zero,
				Detail:        AccrualDetail{Reason: ReasonNoActiveContract},
			}, nil
		}
		return AccrualResult{}, err
	}
	return w.engine.ComputeEarned(emp, policy, asOf), nil
}

// RefreshAccrual recomputes earned days and upserts the balance record,
// inside the employee's unit of work. Invoked by the batch scheduler and
// on demand.
func (w *Workflow) RefreshAccrual(ctx context.Context, employee EmployeeID, year int, asOf Date) (AccrualResult, error) {
	res, err := w.ComputeAccrual(ctx, employee, year, asOf)
	if err != nil {
		return AccrualResult{}, err
	}
	err = w.Store.WithEmployeeTx(ctx, employee, func(s Store) error {
		ledger := &Ledger{Records: s}
		_, err := ledger.Refresh(ctx, employee, year, res.EarnedDays)
		return err
	})
	if err != nil {
		return AccrualResult{}, err
	}
	return res, nil
}

// RemainingBalance exposes the ledger read for the caller.
func (w *Workflow) RemainingBalance(ctx context.Context, employee EmployeeID, year int) (decimal.Decimal, error) {
	ledger := &Ledger{Records: w.Store}
	return ledger.Remaining(ctx, employee, year)
}

// AccrualDiff compares the stored earned figure against a fresh engine run.
type AccrualDiff struct {
	Result       AccrualResult
	StoredEarned decimal.Decimal
	Delta        decimal.Decimal // computed minus stored
}

// VerifyAccrual recomputes without writing and reports the drift against
// the stored record (zero stored when no record exists yet).
func (w *Workflow) VerifyAccrual(ctx context.Context, employee EmployeeID, year int, asOf Date) (AccrualDiff, error) {
	res, err := w.ComputeAccrual(ctx, employee, year, asOf)
	if err != nil {
		return AccrualDiff{}, err
	}
	stored := decimal.Zero
	rec, err := w.Store.AccrualRecord(ctx, employee, year)
	if err != nil {
		return AccrualDiff{}, err
	}
	if rec != nil {
		stored = rec.EarnedDays
	}
	return AccrualDiff{
		Result:       res,
		StoredEarned: stored,
		Delta:        res.EarnedDays.Sub(stored),
	}, nil
}

// CloseYear runs the carry-over for one employee under their policy's
// principal-duration cap.
func (w *Workflow) CloseYear(ctx context.Context, employee EmployeeID, year int) (decimal.Decimal, error) {
	policy, err := w.Policies.ActivePolicyFor(ctx, employee, year)
	if err != nil {
		return decimal.Zero, err
	}
	var carried decimal.Decimal
	err = w.Store.WithEmployeeTx(ctx, employee, func(s Store) error {
		ledger := &Ledger{Records: s}
		c, err := ledger.CloseYear(ctx, employee, year, policy.PrincipalDuration)
		carried = c
		return err
	})
	return carried, err
}
