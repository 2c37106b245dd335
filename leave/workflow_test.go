package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	employee = leave.EmployeeID("emp-1")
	manager  = leave.EmployeeID("mgr-1")
	hr       = leave.EmployeeID("hr-1")
)

// jun returns a June 2025 date. June 2025 starts on a Sunday, so the 9th
// through the 13th are a full working week.
func jun(day int) leave.Date { return leave.NewDate(2025, time.June, day) }

// newTestWorkflow wires a workflow over the memory store with a contracted
// employee, the standard leave types and a 20-day balance for 2024 (the
// reference year of any 2025 absence).
func newTestWorkflow(t *testing.T) (*leave.Workflow, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	m.PutLeaveType(leave.LeaveType{ID: "paid-leave", Name: "Paid leave", Paid: true, ConsumesBalance: true})
	m.PutLeaveType(leave.LeaveType{ID: "sick-leave", Name: "Sick leave", Paid: true, RequiresDocument: true})
	m.PutContract(leave.EmployeeInfo{ID: employee, ContractStart: leave.NewDate(2020, time.January, 1)})

	err := m.SaveAccrualRecord(context.Background(), &leave.AccrualRecord{
		EmployeeID:    employee,
		ReferenceYear: 2024,
		EarnedDays:    leave.MustParseDays("20"),
	})
	require.NoError(t, err)

	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	return leave.NewWorkflow(m, m, resolver, m, nil), m
}

// draftAbsence creates a paid-leave draft over a Monday-to-Wednesday range.
func draftAbsence(t *testing.T, wf *leave.Workflow) *leave.Absence {
	t.Helper()
	a, err := wf.CreateAbsence(context.Background(), leave.CreateAbsenceInput{
		EmployeeID:  employee,
		LeaveTypeID: "paid-leave",
		Start:       jun(9),
		End:         jun(11),
		Reason:      "summer break",
	})
	require.NoError(t, err)
	require.Equal(t, leave.StatusDraft, a.Status)
	return a
}

func submitted(t *testing.T, wf *leave.Workflow) *leave.Absence {
	t.Helper()
	a := draftAbsence(t, wf)
	_, err := wf.Submit(context.Background(), a.ID)
	require.NoError(t, err)
	return a
}

func remaining(t *testing.T, wf *leave.Workflow, year int) leave.Days {
	t.Helper()
	r, err := wf.RemainingBalance(context.Background(), employee, year)
	require.NoError(t, err)
	return r
}

// stageAuth authorizes only the listed actors, for every stage.
type stageAuth struct {
	allowed map[leave.EmployeeID]bool
}

func (s stageAuth) CanDecide(_ context.Context, actor leave.EmployeeID, _ leave.Stage, _ *leave.Absence) bool {
	return s.allowed[actor]
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestWorkflow_FullApprovalLifecycle(t *testing.T) {
	// GIVEN: A draft for three working days with 20 days of balance
	// WHEN: Submitting, then manager approval, then HR approval
	// THEN: The absence walks DRAFT -> PENDING_MANAGER -> PENDING_HR ->
	//       APPROVED and the ledger is debited exactly once, at HR approval

	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	a := draftAbsence(t, wf)

	// Submit
	events, err := wf.Submit(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventRequestCreated, events[0].Kind)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingManager, a.Status)
	assert.True(t, a.WorkingDays.Equal(leave.MustParseDays("3")))
	require.NotNil(t, a.SubmittedAt)
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")), "submission must not debit")

	// Manager approves
	events, err = wf.DecideManager(ctx, a.ID, manager, true, "enjoy")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventManagerApproved, events[0].Kind)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingHR, a.Status)
	require.NotNil(t, a.ManagerDecision)
	assert.Equal(t, manager, a.ManagerDecision.ActorID)
	assert.Equal(t, leave.DecisionApproved, a.ManagerDecision.Decision)
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")), "manager approval must not debit")

	// HR approves
	events, err = wf.DecideHR(ctx, a.ID, hr, true, "ok")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventHRApproved, events[0].Kind)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, a.Status)
	require.NotNil(t, a.HRDecision)
	assert.True(t, a.DebitedDays.Equal(leave.MustParseDays("3")))
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("17")))

	// Audit trail holds one step per decision.
	steps, err := m.Steps(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, leave.StageManager, steps[0].Stage)
	assert.Equal(t, leave.StageHR, steps[1].Stage)
}

func TestWorkflow_HalfDayConsumesHalf(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)

	a, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID:  employee,
		LeaveTypeID: "paid-leave",
		Start:       jun(9),
		End:         jun(9),
		Period:      leave.Morning,
	})
	require.NoError(t, err)

	_, err = wf.Submit(ctx, a.ID)
	require.NoError(t, err)
	_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)
	_, err = wf.DecideHR(ctx, a.ID, hr, true, "")
	require.NoError(t, err)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, a.DebitedDays.Equal(leave.MustParseDays("0.5")))
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("19.5")))
}

func TestWorkflow_NonConsumingTypeSkipsLedger(t *testing.T) {
	// GIVEN: A documented sick-leave request (does not consume balance)
	// WHEN: Approving it end to end
	// THEN: The balance is untouched and nothing was debited

	ctx := context.Background()
	wf, m := newTestWorkflow(t)

	a, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID:  employee,
		LeaveTypeID: "sick-leave",
		Start:       jun(9),
		End:         jun(13),
		DocumentID:  "doc-42",
	})
	require.NoError(t, err)

	_, err = wf.Submit(ctx, a.ID)
	require.NoError(t, err)
	_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)
	_, err = wf.DecideHR(ctx, a.ID, hr, true, "")
	require.NoError(t, err)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, a.Status)
	assert.True(t, a.DebitedDays.IsZero())
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")))
}

// =============================================================================
// CREATION & SUBMISSION GUARDS
// =============================================================================

func TestWorkflow_CreateRejectsIllegalRanges(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)

	// End before start.
	_, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "paid-leave", Start: jun(12), End: jun(9),
	})
	assert.ErrorIs(t, err, leave.ErrInvalidDateRange)

	// Half-day over multiple days.
	_, err = wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "paid-leave", Start: jun(9), End: jun(10), Period: leave.Afternoon,
	})
	assert.ErrorIs(t, err, leave.ErrInvalidDateRange)

	// Unknown leave type.
	_, err = wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "nope", Start: jun(9), End: jun(9),
	})
	assert.ErrorIs(t, err, leave.ErrLeaveTypeNotFound)
}

func TestWorkflow_SubmitRequiresDocument(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)

	a, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "sick-leave", Start: jun(9), End: jun(9),
	})
	require.NoError(t, err)

	_, err = wf.Submit(ctx, a.ID)
	assert.ErrorIs(t, err, leave.ErrMissingDocument)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDraft, a.Status, "failed submit must leave the draft as-is")
}

func TestWorkflow_SubmitRejectsHalfDayOnNonWorkingDay(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)

	// June 14 2025 is a Saturday.
	a, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "paid-leave", Start: jun(14), End: jun(14), Period: leave.Morning,
	})
	require.NoError(t, err)

	_, err = wf.Submit(ctx, a.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidDateRange)
}

func TestWorkflow_SubmitRejectsInsufficientBalance(t *testing.T) {
	// GIVEN: 2 days of balance and a 3-working-day request
	// WHEN: Submitting
	// THEN: Insufficiency with the requested and available amounts

	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	err := m.SaveAccrualRecord(ctx, &leave.AccrualRecord{
		EmployeeID: employee, ReferenceYear: 2024, EarnedDays: leave.MustParseDays("2"),
	})
	require.NoError(t, err)

	a := draftAbsence(t, wf)
	_, err = wf.Submit(ctx, a.ID)
	require.Error(t, err)

	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2024, insufficient.ReferenceYear)
	assert.True(t, insufficient.Requested.Equal(leave.MustParseDays("3")))
	assert.True(t, insufficient.Available.Equal(leave.MustParseDays("2")))
}

func TestWorkflow_SubmitRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)

	first := submitted(t, wf)
	_ = first

	second, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
		EmployeeID: employee, LeaveTypeID: "paid-leave", Start: jun(11), End: jun(12),
	})
	require.NoError(t, err)

	_, err = wf.Submit(ctx, second.ID)
	assert.ErrorIs(t, err, leave.ErrOverlapConflict)
}

func TestWorkflow_SubmitOnlyFromDraft(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)
	a := submitted(t, wf)

	_, err := wf.Submit(ctx, a.ID)
	require.Error(t, err)

	var transition *leave.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
	assert.Equal(t, leave.StatusPendingManager, transition.From)
}

// =============================================================================
// DECISION GUARDS
// =============================================================================

func TestWorkflow_SelfApprovalRefused(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)
	a := submitted(t, wf)

	_, err := wf.DecideManager(ctx, a.ID, employee, true, "")
	assert.ErrorIs(t, err, leave.ErrSelfApproval)
}

func TestWorkflow_AuthorizerGatesDecisions(t *testing.T) {
	ctx := context.Background()
	_, m := newTestWorkflow(t)
	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	wf := leave.NewWorkflow(m, m, resolver, m, stageAuth{allowed: map[leave.EmployeeID]bool{manager: true}})

	a := submitted(t, wf)

	_, err := wf.DecideManager(ctx, a.ID, "random-peer", true, "")
	assert.ErrorIs(t, err, leave.ErrNotAuthorized)

	_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
	assert.NoError(t, err)
}

func TestWorkflow_DecisionStagesAreOrdered(t *testing.T) {
	// HR cannot decide while the manager stage is pending, and the manager
	// stage cannot be decided twice.

	ctx := context.Background()
	wf, _ := newTestWorkflow(t)
	a := submitted(t, wf)

	_, err := wf.DecideHR(ctx, a.ID, hr, true, "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)

	_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

func TestWorkflow_ManagerRejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	a := submitted(t, wf)

	events, err := wf.DecideManager(ctx, a.ID, manager, false, "team is short-staffed")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventManagerRejected, events[0].Kind)
	assert.Equal(t, "team is short-staffed", events[0].Comment)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, a.Status)
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")))

	// No way out of REJECTED.
	_, err = wf.DecideHR(ctx, a.ID, hr, true, "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
	_, err = wf.Cancel(ctx, a.ID, employee, "")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

func TestWorkflow_HRRejectionDoesNotDebit(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	a := submitted(t, wf)

	_, err := wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)

	events, err := wf.DecideHR(ctx, a.ID, hr, false, "blackout period")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventHRRejected, events[0].Kind)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, a.Status)
	assert.True(t, a.DebitedDays.IsZero())
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")))
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestWorkflow_OwnerCancelsPendingRequest(t *testing.T) {
	ctx := context.Background()
	_, m := newTestWorkflow(t)
	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	wf := leave.NewWorkflow(m, m, resolver, m, stageAuth{allowed: map[leave.EmployeeID]bool{hr: true}})

	a := submitted(t, wf)

	events, err := wf.Cancel(ctx, a.ID, employee, "changed plans")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, leave.EventRequestCancelled, events[0].Kind)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, a.Status)
}

func TestWorkflow_StrangerCannotCancel(t *testing.T) {
	ctx := context.Background()
	_, m := newTestWorkflow(t)
	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	wf := leave.NewWorkflow(m, m, resolver, m, stageAuth{allowed: map[leave.EmployeeID]bool{}})

	a := submitted(t, wf)

	_, err := wf.Cancel(ctx, a.ID, "random-peer", "")
	assert.ErrorIs(t, err, leave.ErrNotAuthorized)
}

func TestWorkflow_CancelApprovedCreditsBack(t *testing.T) {
	// GIVEN: An approved absence that debited 3 days
	// WHEN: A privileged actor cancels it
	// THEN: The ledger recovers the full debited amount

	ctx := context.Background()
	_, m := newTestWorkflow(t)
	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	auth := stageAuth{allowed: map[leave.EmployeeID]bool{manager: true, hr: true}}
	wf := leave.NewWorkflow(m, m, resolver, m, auth)

	a := submitted(t, wf)
	_, err := wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)
	_, err = wf.DecideHR(ctx, a.ID, hr, true, "")
	require.NoError(t, err)
	require.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("17")))

	_, err = wf.Cancel(ctx, a.ID, hr, "operational recall")
	require.NoError(t, err)

	a, err = m.Absence(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, a.Status)
	assert.True(t, a.DebitedDays.IsZero())
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("20")), "cancellation must restore the balance")
}

func TestWorkflow_OwnerCannotCancelApproved(t *testing.T) {
	ctx := context.Background()
	_, m := newTestWorkflow(t)
	resolver := &leave.AssignmentResolver{Assignments: m, Policies: m}
	auth := stageAuth{allowed: map[leave.EmployeeID]bool{manager: true, hr: true}}
	wf := leave.NewWorkflow(m, m, resolver, m, auth)

	a := submitted(t, wf)
	_, err := wf.DecideManager(ctx, a.ID, manager, true, "")
	require.NoError(t, err)
	_, err = wf.DecideHR(ctx, a.ID, hr, true, "")
	require.NoError(t, err)

	_, err = wf.Cancel(ctx, a.ID, employee, "changed my mind")
	assert.ErrorIs(t, err, leave.ErrNotAuthorized)
}

// =============================================================================
// DRAFT DELETION
// =============================================================================

func TestWorkflow_DeleteDraft(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	a := draftAbsence(t, wf)

	// Only the owner may delete.
	err := wf.Delete(ctx, a.ID, manager)
	assert.ErrorIs(t, err, leave.ErrNotAuthorized)

	require.NoError(t, wf.Delete(ctx, a.ID, employee))
	_, err = m.Absence(ctx, a.ID)
	assert.ErrorIs(t, err, leave.ErrAbsenceNotFound)
}

func TestWorkflow_DeleteOnlyWhileDraft(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)
	a := submitted(t, wf)

	err := wf.Delete(ctx, a.ID, employee)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

// =============================================================================
// ACCRUAL OPERATIONS
// =============================================================================

func seedConvention(t *testing.T, m *store.Memory) {
	t.Helper()
	ctx := context.Background()
	err := m.SavePolicy(ctx, leave.AccrualPolicy{
		ID:                "standard",
		Name:              "Standard",
		ReferenceYear:     2024,
		WindowStart:       leave.NewDate(2024, time.January, 1),
		WindowEnd:         leave.NewDate(2024, time.December, 31),
		MonthlyRate:       leave.MustParseDays("2.5"),
		PrincipalDuration: leave.MustParseDays("30"),
		MinMonthsRequired: 1,
		AnnualCap:         leave.MustParseDays("30"),
	})
	require.NoError(t, err)
	err = m.SaveAssignment(ctx, leave.ConventionAssignment{
		ID:            "assign-1",
		EmployeeID:    employee,
		PolicyID:      "standard",
		EffectiveFrom: leave.NewDate(2020, time.January, 1),
	})
	require.NoError(t, err)
}

func TestWorkflow_RefreshAccrualUpsertsEarned(t *testing.T) {
	// GIVEN: A full 2024 window at 2.5 days per 30-day bucket
	// WHEN: Refreshing as of year end
	// THEN: Earned lands at the 30-day principal and the stored record follows

	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	seedConvention(t, m)

	res, err := wf.RefreshAccrual(ctx, employee, 2024, leave.NewDate(2024, time.December, 31))
	require.NoError(t, err)
	assert.True(t, res.EarnedDays.Equal(leave.MustParseDays("30")))

	rec, err := m.AccrualRecord(ctx, employee, 2024)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.EarnedDays.Equal(leave.MustParseDays("30")))
}

func TestWorkflow_VerifyAccrualReportsDrift(t *testing.T) {
	// The seeded record says 20 earned; the engine computes 30. The diff is
	// computed minus stored, and verification never writes.

	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	seedConvention(t, m)

	diff, err := wf.VerifyAccrual(ctx, employee, 2024, leave.NewDate(2024, time.December, 31))
	require.NoError(t, err)
	assert.True(t, diff.StoredEarned.Equal(leave.MustParseDays("20")))
	assert.True(t, diff.Delta.Equal(leave.MustParseDays("10")))

	rec, err := m.AccrualRecord(ctx, employee, 2024)
	require.NoError(t, err)
	assert.True(t, rec.EarnedDays.Equal(leave.MustParseDays("20")), "verify must not write")
}

func TestWorkflow_CloseYearCapsAtPrincipalDuration(t *testing.T) {
	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	seedConvention(t, m)

	err := m.SaveAccrualRecord(ctx, &leave.AccrualRecord{
		EmployeeID:    employee,
		ReferenceYear: 2024,
		EarnedDays:    leave.MustParseDays("30"),
		CarriedOver:   leave.MustParseDays("5"),
	})
	require.NoError(t, err)

	carried, err := wf.CloseYear(ctx, employee, 2024)
	require.NoError(t, err)
	assert.True(t, carried.Equal(leave.MustParseDays("30")), "carry-over is capped at the principal duration")

	next, err := m.AccrualRecord(ctx, employee, 2025)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.CarriedOver.Equal(leave.MustParseDays("30")))
}

func TestWorkflow_ComputeAccrualWithoutPolicyFails(t *testing.T) {
	ctx := context.Background()
	wf, _ := newTestWorkflow(t)

	_, err := wf.ComputeAccrual(ctx, employee, 2024, leave.NewDate(2024, time.December, 31))
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestWorkflow_ConcurrentOverlappingSubmits(t *testing.T) {
	// GIVEN: Two drafts over the same June week
	// WHEN: Both are submitted at the same time
	// THEN: The per-employee unit of work serializes them, so exactly one
	//       enters the approval chain and the other fails the overlap check
	//       against the first one's saved row

	ctx := context.Background()
	wf, _ := newTestWorkflow(t)
	first := draftAbsence(t, wf)
	second := draftAbsence(t, wf)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []leave.AbsenceID{first.ID, second.ID} {
		wg.Add(1)
		go func(id leave.AbsenceID) {
			defer wg.Done()
			_, err := wf.Submit(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	accepted, conflicted := 0, 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.ErrorIs(t, err, leave.ErrOverlapConflict)
		conflicted++
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, conflicted)
}

func TestWorkflow_ConcurrentHRApprovalsCannotOverdraw(t *testing.T) {
	// GIVEN: Two pending-HR absences of three days each against a four-day
	//        balance (submission checks sufficiency but reserves nothing)
	// WHEN: Both HR approvals run at the same time
	// THEN: One debits; the other fails the sufficiency check instead of
	//       driving the balance negative

	ctx := context.Background()
	wf, m := newTestWorkflow(t)
	require.NoError(t, m.SaveAccrualRecord(ctx, &leave.AccrualRecord{
		EmployeeID:    employee,
		ReferenceYear: 2024,
		EarnedDays:    leave.MustParseDays("4"),
	}))

	ids := make([]leave.AbsenceID, 0, 2)
	for _, span := range [][2]leave.Date{{jun(9), jun(11)}, {jun(16), jun(18)}} {
		a, err := wf.CreateAbsence(ctx, leave.CreateAbsenceInput{
			EmployeeID:  employee,
			LeaveTypeID: "paid-leave",
			Start:       span[0],
			End:         span[1],
		})
		require.NoError(t, err)
		_, err = wf.Submit(ctx, a.ID)
		require.NoError(t, err)
		_, err = wf.DecideManager(ctx, a.ID, manager, true, "")
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	errs := make(chan error, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id leave.AbsenceID) {
			defer wg.Done()
			_, err := wf.DecideHR(ctx, id, hr, true, "")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	approved, refused := 0, 0
	for err := range errs {
		if err == nil {
			approved++
			continue
		}
		require.ErrorIs(t, err, leave.ErrInsufficientBalance)
		refused++
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, refused)
	assert.True(t, remaining(t, wf, 2024).Equal(leave.MustParseDays("1")))
}
