/*
policy.go - Accrual policy model

PURPOSE:
  An AccrualPolicy is the per-reference-year contract between the
  organization and an employee group: how many days accrue per 30-day
  bucket, the window during which accrued days may be taken, the minimum
  months-worked threshold, the annual cap, and the seniority bonus table.

POLICY RESOLUTION:
  Exactly one policy governs an employee for a reference year. Resolution
  happens through convention assignments (assignment.go); the policy is
  never stored as a foreign key on balance records so a convention change
  takes effect on the next computation.

SENIORITY:
  The bonus table is a sparse threshold -> bonus-days mapping. The highest
  threshold not exceeding the employee's tenure wins; tiers never stack.
*/
package leave

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL POLICY
// =============================================================================

// AccrualPolicy is immutable for a given reference year once resolved.
type AccrualPolicy struct {
	ID            PolicyID
	Name          string
	ReferenceYear int

	// TakingWindow bounds both the accrual computation and the period
	// during which the earned days may be consumed: [Start, End).
	WindowStart Date
	WindowEnd   Date

	// MonthlyRate is the fixed-point accrual per 30-day bucket,
	// e.g. 2.50 days/month.
	MonthlyRate decimal.Decimal

	// PrincipalDuration is the principal-leave entitlement in days; it also
	// caps how much balance may carry over into the next reference year.
	PrincipalDuration decimal.Decimal

	// MinMonthsRequired gates accrual entirely below this many 30-day
	// buckets worked.
	MinMonthsRequired int

	// AnnualCap clamps base accrual (before seniority bonus). Zero means
	// uncapped.
	AnnualCap decimal.Decimal

	// ProratePartTime multiplies the total by the employee's part-time
	// coefficient when set.
	ProratePartTime bool

	Seniority SeniorityBonusTable
}

// Validate enforces the structural invariants a policy must satisfy before
// it can govern computations.
func (p AccrualPolicy) Validate() error {
	if !p.WindowEnd.After(p.WindowStart) {
		return fmt.Errorf("policy %s: taking window end %s not after start %s",
			p.ID, p.WindowEnd, p.WindowStart)
	}
	if p.MonthlyRate.IsNegative() {
		return fmt.Errorf("policy %s: negative monthly rate", p.ID)
	}
	if p.MinMonthsRequired < 0 {
		return fmt.Errorf("policy %s: negative minimum months", p.ID)
	}
	return p.Seniority.validate()
}

// =============================================================================
// SENIORITY BONUS TABLE
// =============================================================================

// SeniorityTier grants BonusDays once tenure reaches Threshold years.
type SeniorityTier struct {
	ThresholdYears int
	BonusDays      decimal.Decimal
}

// SeniorityBonusTable is a sparse tenure threshold -> bonus mapping.
// Thresholds are distinct non-negative integers.
type SeniorityBonusTable struct {
	Tiers []SeniorityTier
}

// BonusFor returns the bonus of the highest tier whose threshold does not
// exceed the tenure. Zero when no tier applies.
func (t SeniorityBonusTable) BonusFor(tenureYears int) decimal.Decimal {
	best := decimal.Zero
	bestThreshold := -1
	for _, tier := range t.Tiers {
		if tier.ThresholdYears <= tenureYears && tier.ThresholdYears > bestThreshold {
			best = tier.BonusDays
			bestThreshold = tier.ThresholdYears
		}
	}
	return best
}

func (t SeniorityBonusTable) validate() error {
	seen := make(map[int]bool, len(t.Tiers))
	for _, tier := range t.Tiers {
		if tier.ThresholdYears < 0 {
			return fmt.Errorf("seniority threshold %d is negative", tier.ThresholdYears)
		}
		if seen[tier.ThresholdYears] {
			return fmt.Errorf("duplicate seniority threshold %d", tier.ThresholdYears)
		}
		seen[tier.ThresholdYears] = true
	}
	return nil
}

// Sorted returns the tiers in ascending threshold order (display/export).
func (t SeniorityBonusTable) Sorted() []SeniorityTier {
	tiers := make([]SeniorityTier, len(t.Tiers))
	copy(tiers, t.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].ThresholdYears < tiers[j].ThresholdYears })
	return tiers
}

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType carries the flags that drive workflow guards.
type LeaveType struct {
	ID               LeaveTypeID
	Name             string
	Paid             bool
	ConsumesBalance  bool
	RequiresDocument bool
}
