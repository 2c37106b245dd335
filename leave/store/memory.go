/*
Package store provides in-memory implementations of the leave engine's
persistence interfaces, for tests and demos.

The memory store serializes units of work with a per-employee mutex, the
same discipline the SQLite store applies, but runs them in place: workflow
guards reject before any write, so rollback support is not needed here.
For durable storage with real transactions see store/sqlite.
*/
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// Memory implements leave.TxStore, leave.AssignmentStore, leave.PolicyStore,
// leave.ContractRepository and leave.HolidayCalendar.
type Memory struct {
	mu sync.Mutex

	absences    map[leave.AbsenceID]leave.Absence
	steps       []leave.ValidationStep
	leaveTypes  map[leave.LeaveTypeID]leave.LeaveType
	records     map[string]leave.AccrualRecord // key employee|year
	assignments []leave.ConventionAssignment
	policies    map[string]leave.AccrualPolicy // key policy|year
	contracts   map[leave.EmployeeID]leave.EmployeeInfo
	holidays    map[string]leave.Holiday // key date string

	locks *employeeLocks
}

var (
	_ leave.TxStore            = (*Memory)(nil)
	_ leave.AssignmentStore    = (*Memory)(nil)
	_ leave.PolicyStore        = (*Memory)(nil)
	_ leave.ContractRepository = (*Memory)(nil)
	_ leave.HolidayCalendar    = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		absences:   make(map[leave.AbsenceID]leave.Absence),
		leaveTypes: make(map[leave.LeaveTypeID]leave.LeaveType),
		records:    make(map[string]leave.AccrualRecord),
		policies:   make(map[string]leave.AccrualPolicy),
		contracts:  make(map[leave.EmployeeID]leave.EmployeeInfo),
		holidays:   make(map[string]leave.Holiday),
		locks:      newEmployeeLocks(),
	}
}

func recordKey(e leave.EmployeeID, year int) string { return fmt.Sprintf("%s|%d", e, year) }
func policyKey(p leave.PolicyID, year int) string   { return fmt.Sprintf("%s|%d", p, year) }

// =============================================================================
// PER-EMPLOYEE LOCKS
// =============================================================================

type employeeLocks struct {
	mu    sync.Mutex
	locks map[leave.EmployeeID]*sync.Mutex
}

func newEmployeeLocks() *employeeLocks {
	return &employeeLocks{locks: make(map[leave.EmployeeID]*sync.Mutex)}
}

func (l *employeeLocks) forEmployee(e leave.EmployeeID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[e]
	if !ok {
		m = &sync.Mutex{}
		l.locks[e] = m
	}
	return m
}

// =============================================================================
// TX STORE
// =============================================================================

// WithEmployeeTx holds the employee's exclusive lock for the duration of fn.
func (m *Memory) WithEmployeeTx(ctx context.Context, employee leave.EmployeeID, fn func(leave.Store) error) error {
	lock := m.locks.forEmployee(employee)
	lock.Lock()
	defer lock.Unlock()
	return fn(m)
}

// =============================================================================
// ABSENCES
// =============================================================================

func (m *Memory) Absence(ctx context.Context, id leave.AbsenceID) (*leave.Absence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.absences[id]
	if !ok {
		return nil, leave.ErrAbsenceNotFound
	}
	cp := a
	return &cp, nil
}

func (m *Memory) SaveAbsence(ctx context.Context, a *leave.Absence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.absences[a.ID] = *a
	return nil
}

func (m *Memory) DeleteAbsence(ctx context.Context, id leave.AbsenceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.absences, id)
	return nil
}

func (m *Memory) BlockingAbsences(ctx context.Context, employee leave.EmployeeID, from, to leave.Date, exclude leave.AbsenceID) ([]leave.Absence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.Absence
	for _, a := range m.absences {
		if a.EmployeeID != employee || a.ID == exclude || !a.Status.Blocking() {
			continue
		}
		if leave.Overlaps(from, to, a.StartDate, a.EndDate) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *Memory) AbsencesFor(ctx context.Context, employee leave.EmployeeID) ([]leave.Absence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.Absence
	for _, a := range m.absences {
		if a.EmployeeID == employee {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// VALIDATION STEPS (append-only)
// =============================================================================

func (m *Memory) AppendStep(ctx context.Context, step leave.ValidationStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
	return nil
}

func (m *Memory) Steps(ctx context.Context, id leave.AbsenceID) ([]leave.ValidationStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.ValidationStep
	for _, s := range m.steps {
		if s.AbsenceID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (m *Memory) PutLeaveType(lt leave.LeaveType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[lt.ID] = lt
}

func (m *Memory) LeaveType(ctx context.Context, id leave.LeaveTypeID) (leave.LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lt, ok := m.leaveTypes[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return lt, nil
}

// =============================================================================
// ACCRUAL RECORDS
// =============================================================================

func (m *Memory) AccrualRecord(ctx context.Context, employee leave.EmployeeID, year int) (*leave.AccrualRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(employee, year)]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (m *Memory) SaveAccrualRecord(ctx context.Context, rec *leave.AccrualRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(rec.EmployeeID, rec.ReferenceYear)] = *rec
	return nil
}

// =============================================================================
// ASSIGNMENTS & POLICIES
// =============================================================================

func (m *Memory) SaveAssignment(ctx context.Context, a leave.ConventionAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *Memory) AssignmentsFor(ctx context.Context, employee leave.EmployeeID) ([]leave.ConventionAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.ConventionAssignment
	for _, a := range m.assignments {
		if a.EmployeeID == employee {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) AllActiveAssignments(ctx context.Context, at leave.Date) ([]leave.ConventionAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.ConventionAssignment
	for _, a := range m.assignments {
		if a.ActiveAt(at) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) SavePolicy(ctx context.Context, p leave.AccrualPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policyKey(p.ID, p.ReferenceYear)] = p
	return nil
}

func (m *Memory) Policy(ctx context.Context, id leave.PolicyID, year int) (leave.AccrualPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[policyKey(id, year)]
	if !ok {
		return leave.AccrualPolicy{}, leave.ErrPolicyNotFound
	}
	return p, nil
}

func (m *Memory) Policies(ctx context.Context) ([]leave.AccrualPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]leave.AccrualPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) PutContract(info leave.EmployeeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[info.ID] = info
}

func (m *Memory) ActiveContractAt(ctx context.Context, employee leave.EmployeeID, at leave.Date) (leave.EmployeeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.contracts[employee]
	if !ok || !info.HasActiveContractAt(at) {
		return leave.EmployeeInfo{}, leave.ErrNoActiveContract
	}
	return info, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) PutHoliday(h leave.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.Date.String()] = h
}

func (m *Memory) IsHoliday(d leave.Date) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[d.String()]; ok {
		return true
	}
	for _, h := range m.holidays {
		if h.Recurring && h.Date.Month() == d.Month() && h.Date.Day() == d.Day() {
			return true
		}
	}
	return false
}

func (m *Memory) Holidays(year int) []leave.Holiday {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []leave.Holiday
	for _, h := range m.holidays {
		if h.Recurring || h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
