/*
Package leave implements the leave-accrual and absence-approval engine.

PURPOSE:
  This package contains the domain types and algorithms for computing
  earned paid-leave days under tenure- and convention-dependent accrual
  policies, and for driving a leave request through its multi-stage
  approval lifecycle with balance debit and restitution.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day (UTC, day granularity) used for all domain dates
  - Days: A fixed-point day amount backed by decimal.Decimal
  - Employee/Absence/Policy IDs: Type-safe identifiers
  - PeriodOfDay: FULL_DAY / MORNING / AFTERNOON for half-day requests

DESIGN PRINCIPLES:
  1. Precision: day amounts use decimal.Decimal, never binary floats
  2. Purity: accrual computation never mutates state (see accrual.go)
  3. Type safety: strong typing for IDs prevents mixing employee/absence IDs
  4. Auditability: every workflow transition appends a ValidationStep

SEE ALSO:
  - accrual.go:  earned-days computation
  - workflow.go: absence lifecycle state machine
  - ledger.go:   per-employee-per-year balance records
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type AbsenceID string
type PolicyID string
type LeaveTypeID string

// =============================================================================
// DAYS - Fixed-point day amounts
// =============================================================================

// Days is a leave-day quantity with two decimal places of precision.
// Half-days (0.50) are the smallest unit the engine produces.
type Days = decimal.Decimal

// DaysOf builds a Days amount from a float (test and config convenience).
func DaysOf(v float64) Days { return decimal.NewFromFloat(v) }

// ZeroDays is the canonical zero balance.
var ZeroDays = decimal.Zero

// RoundDays normalizes an amount to the engine's 2-decimal fixed point.
func RoundDays(d Days) Days { return d.Round(2) }

// ParseDays parses a decimal day amount from caller-supplied input.
func ParseDays(s string) (Days, error) { return decimal.NewFromString(s) }

// MustParseDays parses a decimal string, returning zero on malformed input.
// Used when rehydrating amounts from storage, where values were written by
// this engine and are trusted.
func MustParseDays(s string) Days {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// DATE - Calendar day, UTC, day granularity
// =============================================================================

// Date is a calendar day. All absence and policy boundaries are whole days;
// the engine has no sub-day scheduling beyond the PeriodOfDay flag.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }
func (d Date) IsZero() bool              { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// DaysBetween returns the number of calendar days from 'from' to 'to'
// (to minus from). Negative when 'to' precedes 'from'.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// Properties
func (d Date) Year() int              { return d.t.Year() }
func (d Date) Month() time.Month      { return d.t.Month() }
func (d Date) Day() int               { return d.t.Day() }
func (d Date) Weekday() time.Weekday  { return d.t.Weekday() }
func (d Date) Time() time.Time        { return d.t }
func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// =============================================================================
// PERIOD OF DAY - Half-day support
// =============================================================================

// PeriodOfDay qualifies a single-day absence. Multi-day absences are always
// FullDay; the workflow normalizes and rejects anything else.
type PeriodOfDay string

const (
	FullDay   PeriodOfDay = "FULL_DAY"
	Morning   PeriodOfDay = "MORNING"
	Afternoon PeriodOfDay = "AFTERNOON"
)

func (p PeriodOfDay) Valid() bool {
	switch p {
	case FullDay, Morning, Afternoon:
		return true
	}
	return false
}

// IsHalfDay reports whether the period consumes 0.5 day instead of 1.0.
func (p PeriodOfDay) IsHalfDay() bool { return p == Morning || p == Afternoon }

// =============================================================================
// EMPLOYEE SNAPSHOT - Contract facts supplied by the external HR system
// =============================================================================

// EmployeeInfo is the value snapshot the accrual engine computes over.
// It is produced by a ContractRepository lookup so the engine itself stays
// a pure function of its inputs.
type EmployeeInfo struct {
	ID            EmployeeID
	ContractStart Date
	ContractEnd   *Date // nil for open-ended contracts
	TenureYears   int
	// PartTimeCoefficient is in (0, 1]; 1 for full-time employees.
	PartTimeCoefficient decimal.Decimal
}

// HasActiveContractAt reports whether the employee's contract covers the
// given date.
func (e EmployeeInfo) HasActiveContractAt(d Date) bool {
	if e.ContractStart.IsZero() || d.Before(e.ContractStart) {
		return false
	}
	if e.ContractEnd != nil && d.After(*e.ContractEnd) {
		return false
	}
	return true
}

// Coefficient returns the part-time coefficient, defaulting to 1 when unset.
func (e EmployeeInfo) Coefficient() decimal.Decimal {
	if e.PartTimeCoefficient.IsZero() {
		return decimal.NewFromInt(1)
	}
	return e.PartTimeCoefficient
}
