package leave_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newLedger(t *testing.T) (*leave.Ledger, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return &leave.Ledger{Records: m}, m
}

func seedRecord(t *testing.T, m *store.Memory, employee string, year int, earned, taken, carried string) {
	t.Helper()
	err := m.SaveAccrualRecord(context.Background(), &leave.AccrualRecord{
		EmployeeID:    leave.EmployeeID(employee),
		ReferenceYear: year,
		EarnedDays:    leave.MustParseDays(earned),
		TakenDays:     leave.MustParseDays(taken),
		CarriedOver:   leave.MustParseDays(carried),
	})
	require.NoError(t, err)
}

// =============================================================================
// BALANCE ARITHMETIC
// =============================================================================

func TestLedger_RemainingIsAlwaysRecomputed(t *testing.T) {
	// remaining = earned + carriedOver - taken, never stored independently
	rec := &leave.AccrualRecord{
		EarnedDays:  leave.MustParseDays("25"),
		TakenDays:   leave.MustParseDays("7.5"),
		CarriedOver: leave.MustParseDays("3"),
	}
	assert.True(t, rec.Remaining().Equal(leave.MustParseDays("20.5")))
}

func TestLedger_MissingRecordReadsAsZero_NotMaterialized(t *testing.T) {
	// GIVEN: No record for (emp-1, 2024)
	// WHEN: Reading the remaining balance
	// THEN: Zero is returned and no record is created

	ctx := context.Background()
	ledger, m := newLedger(t)

	remaining, err := ledger.Remaining(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())

	rec, err := m.AccrualRecord(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Nil(t, rec, "a plain read must not materialize a record")
}

// =============================================================================
// DEBIT / CREDIT
// =============================================================================

func TestLedger_Debit_Succeeds(t *testing.T) {
	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "20", "0", "0")

	err := ledger.Debit(ctx, "emp-1", 2024, leave.MustParseDays("3.5"))
	require.NoError(t, err)

	remaining, err := ledger.Remaining(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(leave.MustParseDays("16.5")))
}

func TestLedger_Debit_InsufficientFailsWithoutMutation(t *testing.T) {
	// GIVEN: 2 days remaining
	// WHEN: Debiting 3 days
	// THEN: InsufficientBalanceError, and the record is untouched

	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "10", "8", "0")

	err := ledger.Debit(ctx, "emp-1", 2024, leave.MustParseDays("3"))
	require.Error(t, err)

	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	assert.True(t, insufficient.Requested.Equal(leave.MustParseDays("3")))
	assert.True(t, insufficient.Available.Equal(leave.MustParseDays("2")))

	rec, err := m.AccrualRecord(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, rec.TakenDays.Equal(leave.MustParseDays("8")), "failed debit must not mutate")
}

func TestLedger_Debit_MissingYearReadsAsInsufficiency(t *testing.T) {
	// GIVEN: No record for the year
	// WHEN: Debiting
	// THEN: The record is lazily created with zero balance and the debit
	//       fails as insufficiency, not as a missing row

	ctx := context.Background()
	ledger, m := newLedger(t)

	err := ledger.Debit(ctx, "emp-1", 2024, leave.MustParseDays("1"))
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	rec, err := m.AccrualRecord(ctx, "emp-1", 2024)
	require.NoError(t, err)
	require.NotNil(t, rec, "debit materializes the zero record")
	assert.True(t, rec.Remaining().IsZero())
}

func TestLedger_DebitThenCredit_RestoresConservation(t *testing.T) {
	// GIVEN: A debit of 5 days
	// WHEN: Crediting the same 5 days back
	// THEN: Remaining returns to its original value exactly

	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "20", "2", "1.5")

	before, err := ledger.Remaining(ctx, "emp-1", 2024)
	require.NoError(t, err)

	amount := leave.MustParseDays("5")
	require.NoError(t, ledger.Debit(ctx, "emp-1", 2024, amount))
	require.NoError(t, ledger.Credit(ctx, "emp-1", 2024, amount))

	after, err := ledger.Remaining(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, after.Equal(before), "debit+credit must conserve the balance")
}

func TestLedger_NegativeAmountsRejected(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	assert.Error(t, ledger.Debit(ctx, "emp-1", 2024, leave.MustParseDays("-1")))
	assert.Error(t, ledger.Credit(ctx, "emp-1", 2024, leave.MustParseDays("-1")))
}

// =============================================================================
// REFRESH
// =============================================================================

func TestLedger_Refresh_UpsertsEarnedOnly(t *testing.T) {
	// GIVEN: A record with taken and carried-over amounts
	// WHEN: Refreshing the earned figure
	// THEN: Only earned changes; re-running is idempotent

	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "10", "4", "2")

	_, err := ledger.Refresh(ctx, "emp-1", 2024, leave.MustParseDays("17.5"))
	require.NoError(t, err)
	_, err = ledger.Refresh(ctx, "emp-1", 2024, leave.MustParseDays("17.5"))
	require.NoError(t, err)

	rec, err := m.AccrualRecord(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, rec.EarnedDays.Equal(leave.MustParseDays("17.5")))
	assert.True(t, rec.TakenDays.Equal(leave.MustParseDays("4")))
	assert.True(t, rec.CarriedOver.Equal(leave.MustParseDays("2")))
}

// =============================================================================
// YEAR CLOSE / CARRY-OVER
// =============================================================================

func TestLedger_CloseYear_CarriesRemainingCapped(t *testing.T) {
	// GIVEN: 35 remaining against a 30-day principal duration
	// WHEN: Closing the year
	// THEN: 30 carries into the next year's record

	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "40", "5", "0")

	carried, err := ledger.CloseYear(ctx, "emp-1", 2024, leave.MustParseDays("30"))
	require.NoError(t, err)
	assert.True(t, carried.Equal(leave.MustParseDays("30")))

	closed, err := m.AccrualRecord(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, closed.NewCarryOver.Equal(leave.MustParseDays("30")))

	next, err := m.AccrualRecord(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.CarriedOver.Equal(leave.MustParseDays("30")))
}

func TestLedger_CloseYear_NegativeRemainingCarriesZero(t *testing.T) {
	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "5", "6", "0")

	carried, err := ledger.CloseYear(ctx, "emp-1", 2024, leave.MustParseDays("30"))
	require.NoError(t, err)
	assert.True(t, carried.Equal(decimal.Zero))
}

func TestLedger_CloseYear_ZeroCapMeansUncapped(t *testing.T) {
	ctx := context.Background()
	ledger, m := newLedger(t)
	seedRecord(t, m, "emp-1", 2024, "45", "0", "0")

	carried, err := ledger.CloseYear(ctx, "emp-1", 2024, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, carried.Equal(leave.MustParseDays("45")))
}
