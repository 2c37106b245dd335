/*
ledger.go - Per-employee-per-year balance records

PURPOSE:
  The BalanceLedger is the only component allowed to mutate balance state,
  and it does so exclusively in response to workflow transitions (debit at
  HR approval, credit at cancellation of an approved absence) and accrual
  refreshes.

INVARIANTS:
  1. remaining == earned + carriedOver - taken, always recomputed, never
     stored independently.
  2. Debit fails without mutation when amount > remaining.
  3. Credit only restores amounts previously debited for the same absence;
     the workflow guarantees this, the ledger records it.
  4. Records referencing non-terminal or validated absences are never
     deleted.

Records are lazily created with zero balance the first time an absence
references a not-yet-computed reference year; the subsequent sufficiency
check then rejects on insufficiency rather than erroring on a missing row.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL RECORD
// =============================================================================

// AccrualRecord is one BalanceLedger row: the balance of (employee,
// reference year). Amounts are fixed-point with 2 decimal places.
type AccrualRecord struct {
	EmployeeID    EmployeeID
	ReferenceYear int

	EarnedDays     decimal.Decimal
	TakenDays      decimal.Decimal
	CarriedOver    decimal.Decimal // brought in from the prior year
	NewCarryOver   decimal.Decimal // computed at year close for the next year

	UpdatedAt time.Time
}

// Remaining recomputes the available balance. Never cached.
func (r *AccrualRecord) Remaining() decimal.Decimal {
	return r.EarnedDays.Add(r.CarriedOver).Sub(r.TakenDays)
}

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore persists accrual records. Implementations must make
// Get-then-Save safe under the unit of work the workflow runs in.
type RecordStore interface {
	// AccrualRecord returns the row for (employee, year), or nil when none
	// exists yet.
	AccrualRecord(ctx context.Context, employee EmployeeID, year int) (*AccrualRecord, error)

	// SaveAccrualRecord inserts or updates the row.
	SaveAccrualRecord(ctx context.Context, rec *AccrualRecord) error
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// Ledger mediates every balance mutation.
type Ledger struct {
	Records RecordStore
}

// Remaining returns the available balance for (employee, year). A missing
// record reads as zero; it is not materialized by a read.
func (l *Ledger) Remaining(ctx context.Context, employee EmployeeID, year int) (decimal.Decimal, error) {
	rec, err := l.Records.AccrualRecord(ctx, employee, year)
	if err != nil {
		return decimal.Zero, err
	}
	if rec == nil {
		return decimal.Zero, nil
	}
	return rec.Remaining(), nil
}

// Debit takes amount from (employee, year). Fails with
// InsufficientBalanceError - and mutates nothing - when amount exceeds the
// remaining balance. The record is lazily created so the failure reads as
// insufficiency, not as a missing row.
func (l *Ledger) Debit(ctx context.Context, employee EmployeeID, year int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("debit amount %s is negative", amount)
	}
	rec, err := l.ensure(ctx, employee, year)
	if err != nil {
		return err
	}
	if amount.GreaterThan(rec.Remaining()) {
		return &InsufficientBalanceError{
			EmployeeID:    employee,
			ReferenceYear: year,
			Requested:     amount,
			Available:     rec.Remaining(),
		}
	}
	rec.TakenDays = RoundDays(rec.TakenDays.Add(amount))
	rec.UpdatedAt = time.Now().UTC()
	return l.Records.SaveAccrualRecord(ctx, rec)
}

// Credit restores amount to (employee, year). The workflow only ever
// credits what it previously debited for the same absence, so credit
// always succeeds.
func (l *Ledger) Credit(ctx context.Context, employee EmployeeID, year int, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit amount %s is negative", amount)
	}
	rec, err := l.ensure(ctx, employee, year)
	if err != nil {
		return err
	}
	rec.TakenDays = RoundDays(rec.TakenDays.Sub(amount))
	rec.UpdatedAt = time.Now().UTC()
	return l.Records.SaveAccrualRecord(ctx, rec)
}

// Refresh upserts the earned-days figure from an accrual computation,
// leaving taken and carried-over amounts untouched. Safe to re-run: the
// engine is idempotent with respect to recomputation.
func (l *Ledger) Refresh(ctx context.Context, employee EmployeeID, year int, earned decimal.Decimal) (*AccrualRecord, error) {
	rec, err := l.ensure(ctx, employee, year)
	if err != nil {
		return nil, err
	}
	rec.EarnedDays = RoundDays(earned)
	rec.UpdatedAt = time.Now().UTC()
	if err := l.Records.SaveAccrualRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CloseYear computes the carry-over from (employee, year) into year+1:
// whatever remains, capped at the policy's principal duration. The next
// year's record receives it as CarriedOver.
func (l *Ledger) CloseYear(ctx context.Context, employee EmployeeID, year int, cap decimal.Decimal) (carried decimal.Decimal, err error) {
	rec, err := l.ensure(ctx, employee, year)
	if err != nil {
		return decimal.Zero, err
	}

	carried = rec.Remaining()
	if carried.IsNegative() {
		carried = decimal.Zero
	}
	if cap.IsPositive() && carried.GreaterThan(cap) {
		carried = cap
	}

	rec.NewCarryOver = carried
	rec.UpdatedAt = time.Now().UTC()
	if err := l.Records.SaveAccrualRecord(ctx, rec); err != nil {
		return decimal.Zero, err
	}

	next, err := l.ensure(ctx, employee, year+1)
	if err != nil {
		return decimal.Zero, err
	}
	next.CarriedOver = carried
	next.UpdatedAt = time.Now().UTC()
	if err := l.Records.SaveAccrualRecord(ctx, next); err != nil {
		return decimal.Zero, err
	}
	return carried, nil
}

func (l *Ledger) ensure(ctx context.Context, employee EmployeeID, year int) (*AccrualRecord, error) {
	rec, err := l.Records.AccrualRecord(ctx, employee, year)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &AccrualRecord{
			EmployeeID:    employee,
			ReferenceYear: year,
			EarnedDays:    decimal.Zero,
			TakenDays:     decimal.Zero,
			CarriedOver:   decimal.Zero,
			NewCarryOver:  decimal.Zero,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := l.Records.SaveAccrualRecord(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
