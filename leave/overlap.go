/*
overlap.go - Temporal conflict detection

CONFLICT RULE:
  Two inclusive ranges [s1,e1] and [s2,e2] conflict iff s1 <= e2 AND
  s2 <= e1, evaluated only against the same employee's absences in a
  blocking status (PENDING_MANAGER, PENDING_HR, APPROVED). When
  re-validating an edited request its own row is excluded by identifier.

The error detail lists at most three conflicting absences plus a "+N more"
summary so messages stay bounded.
*/
package leave

import (
	"context"
	"fmt"
	"strings"
)

// maxConflictDetails bounds the error-message size.
const maxConflictDetails = 3

// AbsenceReader is the slice of storage the validator needs.
type AbsenceReader interface {
	// BlockingAbsences returns the employee's absences in a blocking status
	// whose ranges intersect [from, to], excluding the given identifier
	// (empty to exclude nothing).
	BlockingAbsences(ctx context.Context, employee EmployeeID, from, to Date, exclude AbsenceID) ([]Absence, error)
}

// ConflictDetail identifies one colliding absence.
type ConflictDetail struct {
	AbsenceID AbsenceID
	Start     Date
	End       Date
	Status    Status
}

// OverlapError carries the (capped) conflict list.
type OverlapError struct {
	EmployeeID EmployeeID
	Conflicts  []ConflictDetail
	Total      int
}

func (e *OverlapError) Error() string {
	var b strings.Builder
	b.WriteString("requested range overlaps existing absences: ")
	for i, c := range e.Conflicts {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s..%s (%s)", c.Start, c.End, c.Status)
	}
	if e.Total > len(e.Conflicts) {
		fmt.Fprintf(&b, " +%d more", e.Total-len(e.Conflicts))
	}
	return b.String()
}

func (e *OverlapError) Unwrap() error { return ErrOverlapConflict }

// OverlapValidator checks a proposed range against existing absences.
type OverlapValidator struct {
	Absences AbsenceReader
}

// Check returns an *OverlapError when [start, end] collides with any of the
// employee's blocking absences, nil when the range is free. Storage
// failures are returned as-is.
func (v *OverlapValidator) Check(ctx context.Context, employee EmployeeID, start, end Date, exclude AbsenceID) error {
	existing, err := v.Absences.BlockingAbsences(ctx, employee, start, end, exclude)
	if err != nil {
		return fmt.Errorf("overlap lookup: %w", err)
	}

	var conflicts []ConflictDetail
	total := 0
	for _, a := range existing {
		if !Overlaps(start, end, a.StartDate, a.EndDate) {
			continue
		}
		total++
		if len(conflicts) < maxConflictDetails {
			conflicts = append(conflicts, ConflictDetail{
				AbsenceID: a.ID,
				Start:     a.StartDate,
				End:       a.EndDate,
				Status:    a.Status,
			})
		}
	}

	if total == 0 {
		return nil
	}
	return &OverlapError{EmployeeID: employee, Conflicts: conflicts, Total: total}
}

// Overlaps implements the inclusive-endpoint overlap predicate.
func Overlaps(s1, e1, s2, e2 Date) bool {
	return s1.BeforeOrEqual(e2) && s2.BeforeOrEqual(e1)
}
