package leave

import "github.com/shopspring/decimal"

// =============================================================================
// HOLIDAY CALENDAR - Read-only lookup supplied externally
// =============================================================================

// Holiday is a non-working day in the statutory calendar.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	Recurring bool // same month/day every year
}

// HolidayCalendar answers "is date D a non-working holiday?". The engine
// only reads it; calendar maintenance lives outside this module.
type HolidayCalendar interface {
	IsHoliday(d Date) bool
	Holidays(year int) []Holiday
}

// NoHolidays is the calendar used when no statutory calendar is configured.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) bool    { return false }
func (NoHolidays) Holidays(int) []Holiday { return nil }

// =============================================================================
// WORKING-DAY COUNT
// =============================================================================

var half = decimal.New(5, -1) // 0.50

// IsWorkingDay reports whether the date is a weekday outside the holiday
// calendar.
func IsWorkingDay(cal HolidayCalendar, d Date) bool {
	if d.IsWeekend() {
		return false
	}
	if cal != nil && cal.IsHoliday(d) {
		return false
	}
	return true
}

// WorkingDays counts the working days in [start, end] inclusive, each
// contributing 1.0 day. A single-day range with a half-day period
// contributes 0.5 instead; the caller has already validated that half-days
// only occur on single working days.
func WorkingDays(cal HolidayCalendar, start, end Date, period PeriodOfDay) Days {
	if start.Equal(end) && period.IsHalfDay() {
		if IsWorkingDay(cal, start) {
			return half
		}
		return decimal.Zero
	}

	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if IsWorkingDay(cal, d) {
			count++
		}
	}
	return decimal.NewFromInt(int64(count))
}
