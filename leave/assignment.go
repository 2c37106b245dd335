/*
assignment.go - Convention assignments: which policy governs an employee

PURPOSE:
  An employee is bound to an accrual policy through a convention
  assignment with an effective range. Resolution picks the assignment
  active for the reference year; at most one policy governs a given
  employee-year, so overlapping assignments resolve to the most recently
  effective one.

The resolver implements PolicyRepository so the workflow and the accrual
engine stay ignorant of how conventions are stored.
*/
package leave

import (
	"context"
	"fmt"
	"sort"
)

// =============================================================================
// CONVENTION ASSIGNMENT
// =============================================================================

// ConventionAssignment binds an employee to a policy over an effective
// range.
type ConventionAssignment struct {
	ID         string
	EmployeeID EmployeeID
	PolicyID   PolicyID

	EffectiveFrom Date
	EffectiveTo   *Date // nil = still active
}

// ActiveAt reports whether the assignment covers the given date.
func (c ConventionAssignment) ActiveAt(d Date) bool {
	if d.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && d.After(*c.EffectiveTo) {
		return false
	}
	return true
}

// =============================================================================
// STORES
// =============================================================================

type AssignmentStore interface {
	SaveAssignment(ctx context.Context, a ConventionAssignment) error
	AssignmentsFor(ctx context.Context, employee EmployeeID) ([]ConventionAssignment, error)
	// AllActiveAssignments returns every assignment active at the date,
	// across employees. Used by the batch accrual refresh.
	AllActiveAssignments(ctx context.Context, at Date) ([]ConventionAssignment, error)
}

type PolicyStore interface {
	SavePolicy(ctx context.Context, p AccrualPolicy) error
	// Policy returns the stored policy or ErrPolicyNotFound.
	Policy(ctx context.Context, id PolicyID, year int) (AccrualPolicy, error)
	Policies(ctx context.Context) ([]AccrualPolicy, error)
}

// =============================================================================
// RESOLVER - PolicyRepository over assignments
// =============================================================================

// AssignmentResolver resolves the active policy for an employee-year
// through convention assignments.
type AssignmentResolver struct {
	Assignments AssignmentStore
	Policies    PolicyStore
}

var _ PolicyRepository = (*AssignmentResolver)(nil)

// ActivePolicyFor picks the assignment active on the reference year's
// January 1st; when several overlap, the latest EffectiveFrom wins.
func (r *AssignmentResolver) ActivePolicyFor(ctx context.Context, employee EmployeeID, year int) (AccrualPolicy, error) {
	assignments, err := r.Assignments.AssignmentsFor(ctx, employee)
	if err != nil {
		return AccrualPolicy{}, fmt.Errorf("load assignments: %w", err)
	}

	at := StartOfYear(year)
	var active []ConventionAssignment
	for _, a := range assignments {
		if a.ActiveAt(at) {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return AccrualPolicy{}, fmt.Errorf("employee %s, year %d: %w", employee, year, ErrPolicyNotFound)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].EffectiveFrom.After(active[j].EffectiveFrom)
	})

	return r.Policies.Policy(ctx, active[0].PolicyID, year)
}
