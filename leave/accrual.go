/*
accrual.go - Earned-days computation

PURPOSE:
  Pure computation of how many paid-leave days an employee has earned as of
  a given date under a policy. Usable both for live accrual refresh and for
  verification (recompute-and-diff against the stored record).

MONTH MODEL:
  Months worked are fixed 30-day buckets counted over the computation
  window, NOT calendar months. A remainder of 15+ days grants a flat 0.50
  bonus day. This bucket model is policy-defined behavior; changing it to
  calendar-month semantics would silently move every employee's earned
  figure.

ORDER OF OPERATIONS:
  base = rate x months (+0.50 remainder bonus)
  base clamped to the annual cap
  + seniority bonus (highest tier wins)
  x part-time coefficient (when the policy prorates)
  rounded to 2 decimal places

The engine never mutates state and raises no error for a zero result; a
zero result always carries a documented reason in the detail record.
*/
package leave

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL RESULT
// =============================================================================

// AccrualResult is the outcome of one earned-days computation.
type AccrualResult struct {
	EmployeeID    EmployeeID
	PolicyID      PolicyID
	ReferenceYear int
	AsOf          Date

	EarnedDays   decimal.Decimal
	MonthsWorked int

	Detail AccrualDetail
}

// AccrualDetail records how the figure was assembled, for audit display.
type AccrualDetail struct {
	BaseDays           decimal.Decimal
	RemainderBonus     decimal.Decimal
	SeniorityDays      decimal.Decimal
	CoefficientApplied decimal.Decimal
	CapApplied         bool
	MonthsWorked       int
	RemainderDays      int
	Reason             string
}

// Zero-result reasons.
const (
	ReasonNoActiveContract  = "no active contract at as-of date"
	ReasonWindowInverted    = "computation window inverted"
	ReasonBelowMinimumMonths = "below minimum months worked"
)

// =============================================================================
// ACCRUAL ENGINE
// =============================================================================

// Engine computes earned days. It holds no state; a single value serves
// every caller.
type Engine struct{}

const bucketDays = 30
const remainderThreshold = 15

// ComputeEarned applies the policy's accrual rules to the employee snapshot
// as of the given date. The reference year is taken from the policy's
// taking window.
//
// The computation window is [effectiveStart, min(asOf, windowEnd)] where
// effectiveStart is the later of the contract start and the window start.
func (Engine) ComputeEarned(emp EmployeeInfo, policy AccrualPolicy, asOf Date) AccrualResult {
	res := AccrualResult{
		EmployeeID:    emp.ID,
		PolicyID:      policy.ID,
		ReferenceYear: policy.ReferenceYear,
		AsOf:          asOf,
		EarnedDays:    decimal.Zero,
	}

	if !emp.HasActiveContractAt(asOf) {
		res.Detail.Reason = ReasonNoActiveContract
		return res
	}

	start := policy.WindowStart
	if emp.ContractStart.After(start) {
		start = emp.ContractStart
	}
	end := asOf
	if policy.WindowEnd.Before(end) {
		end = policy.WindowEnd
	}
	if start.After(end) {
		res.Detail.Reason = ReasonWindowInverted
		return res
	}

	daysElapsed := DaysBetween(start, end)
	months := daysElapsed / bucketDays
	remainder := daysElapsed % bucketDays

	res.MonthsWorked = months
	res.Detail.MonthsWorked = months
	res.Detail.RemainderDays = remainder

	if months < policy.MinMonthsRequired {
		res.Detail.Reason = ReasonBelowMinimumMonths
		return res
	}

	base := policy.MonthlyRate.Mul(decimal.NewFromInt(int64(months)))
	if remainder >= remainderThreshold {
		base = base.Add(half)
		res.Detail.RemainderBonus = half
	}
	if policy.AnnualCap.IsPositive() && base.GreaterThan(policy.AnnualCap) {
		base = policy.AnnualCap
		res.Detail.CapApplied = true
	}
	res.Detail.BaseDays = base

	bonus := policy.Seniority.BonusFor(emp.TenureYears)
	res.Detail.SeniorityDays = bonus

	total := base.Add(bonus)

	coeff := decimal.NewFromInt(1)
	if policy.ProratePartTime {
		coeff = emp.Coefficient()
		total = total.Mul(coeff)
	}
	res.Detail.CoefficientApplied = coeff

	res.EarnedDays = RoundDays(total)
	return res
}

// ReferenceYearFor resolves the balance reference year for an absence
// starting in calendar year Y: leave earned in year Y-1 becomes available
// in year Y (the N-1 rule).
func ReferenceYearFor(absenceStart Date) int {
	return absenceStart.Year() - 1
}
