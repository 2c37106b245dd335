/*
Package sqlite provides the SQLite-backed implementation of the leave
engine's storage interfaces.

INTERFACES IMPLEMENTED:
  leave.TxStore:            absences, validation steps, accrual records,
                            leave types + the atomic unit of work
  leave.AssignmentStore:    convention assignments
  leave.PolicyStore:        accrual policies
  leave.ContractRepository: employee contract snapshots
  leave.HolidayCalendar:    statutory holiday lookup

APPEND-ONLY ENFORCEMENT:
  validation_steps has no UPDATE or DELETE path: the audit trail only ever
  grows. Balance corrections happen through workflow credits, never by
  editing a step.

ATOMICITY:
  WithEmployeeTx pairs a database transaction with a per-employee exclusive
  lock. The lock serializes concurrent units of work for the same employee
  so a submission's overlap check observes the previous submission's
  committed row, and two approvals against the same accrual record cannot
  both pass the sufficiency check. Different employees proceed in parallel.

KEY TABLES:
  absences:                One row per request, status-machine state
  validation_steps:        Immutable audit trail of transitions
  accrual_records:         One balance row per (employee, reference year)
  policies:                Accrual policies, keyed by (id, reference year)
  convention_assignments:  Employee-to-policy bindings with effective range
  contracts:               Contract snapshots for the accrual engine
  holidays:                Statutory calendar (fixed-date and recurring)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  wf := leave.NewWorkflow(store, store, resolver, store, authorizer)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/workflow.go: interface definitions and the unit-of-work contract
  - leave/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	queries
	db    *sql.DB
	locks sync.Map // leave.EmployeeID -> *sync.Mutex
}

var (
	_ leave.TxStore            = (*Store)(nil)
	_ leave.AssignmentStore    = (*Store)(nil)
	_ leave.PolicyStore        = (*Store)(nil)
	_ leave.ContractRepository = (*Store)(nil)
	_ leave.HolidayCalendar    = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, queries: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Absences (one row per leave request)
	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		period TEXT NOT NULL,
		reason TEXT,
		document_id TEXT,
		status TEXT NOT NULL,
		submitted_at TEXT,
		manager_decision_json TEXT,
		hr_decision_json TEXT,
		working_days TEXT NOT NULL DEFAULT '0',
		debited_days TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap checks always scan one employee's blocking rows over a range
	CREATE INDEX IF NOT EXISTS idx_absences_employee_status_dates
		ON absences(employee_id, status, start_date, end_date);

	CREATE INDEX IF NOT EXISTS idx_absences_status
		ON absences(status);

	-- Validation steps (append-only audit trail, one row per transition)
	CREATE TABLE IF NOT EXISTS validation_steps (
		id TEXT PRIMARY KEY,
		absence_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		decision TEXT NOT NULL,
		comment TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_steps_absence
		ON validation_steps(absence_id);

	-- Accrual records: exactly one balance row per (employee, year).
	-- Remaining balance is never stored; it is recomputed from these
	-- three amounts on every read.
	CREATE TABLE IF NOT EXISTS accrual_records (
		employee_id TEXT NOT NULL,
		reference_year INTEGER NOT NULL,
		earned_days TEXT NOT NULL DEFAULT '0',
		taken_days TEXT NOT NULL DEFAULT '0',
		carried_over TEXT NOT NULL DEFAULT '0',
		new_carry_over TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, reference_year)
	);

	-- Leave types
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT TRUE,
		consumes_balance BOOLEAN NOT NULL DEFAULT TRUE,
		requires_document BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Policies (one version per reference year)
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT NOT NULL,
		reference_year INTEGER NOT NULL,
		name TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		monthly_rate TEXT NOT NULL,
		principal_duration TEXT NOT NULL DEFAULT '0',
		min_months_required INTEGER NOT NULL DEFAULT 0,
		annual_cap TEXT NOT NULL DEFAULT '0',
		prorate_part_time BOOLEAN NOT NULL DEFAULT FALSE,
		seniority_json TEXT,
		PRIMARY KEY (id, reference_year)
	);

	-- Convention Assignments
	CREATE TABLE IF NOT EXISTS convention_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON convention_assignments(employee_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_effective
		ON convention_assignments(effective_from, effective_to);

	-- Contracts (snapshot per employee, fed by the external HR system)
	CREATE TABLE IF NOT EXISTS contracts (
		employee_id TEXT PRIMARY KEY,
		contract_start TEXT NOT NULL,
		contract_end TEXT,
		tenure_years INTEGER NOT NULL DEFAULT 0,
		part_time_coefficient TEXT NOT NULL DEFAULT '1'
	);

	-- Holidays (fixed-date and yearly recurring)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UNIT OF WORK (leave.TxStore interface)
// =============================================================================

func (s *Store) lockFor(employee leave.EmployeeID) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(employee, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// WithEmployeeTx executes fn inside a database transaction while holding
// the employee's exclusive lock. fn returning an error rolls back.
func (s *Store) WithEmployeeTx(ctx context.Context, employee leave.EmployeeID, fn func(leave.Store) error) error {
	lock := s.lockFor(employee)
	lock.Lock()
	defer lock.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries: queries{db: sqlTx}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore is the transaction-bound view handed to the unit of work.
type txStore struct {
	queries
}

var _ leave.Store = (*txStore)(nil)

// =============================================================================
// QUERIES - shared between Store (autocommit) and txStore (transaction)
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// -----------------------------------------------------------------------------
// Absences
// -----------------------------------------------------------------------------

const absenceColumns = `id, employee_id, leave_type_id, start_date, end_date, period,
	reason, document_id, status, submitted_at,
	manager_decision_json, hr_decision_json,
	working_days, debited_days, created_at, updated_at`

// Absence retrieves one absence or leave.ErrAbsenceNotFound.
func (q queries) Absence(ctx context.Context, id leave.AbsenceID) (*leave.Absence, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+absenceColumns+` FROM absences WHERE id = ?`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query absence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, leave.ErrAbsenceNotFound
	}
	return scanAbsence(rows)
}

// SaveAbsence inserts or updates an absence row.
func (q queries) SaveAbsence(ctx context.Context, a *leave.Absence) error {
	query := `
		INSERT INTO absences (` + absenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			period = excluded.period,
			reason = excluded.reason,
			document_id = excluded.document_id,
			status = excluded.status,
			submitted_at = excluded.submitted_at,
			manager_decision_json = excluded.manager_decision_json,
			hr_decision_json = excluded.hr_decision_json,
			working_days = excluded.working_days,
			debited_days = excluded.debited_days,
			updated_at = excluded.updated_at
	`

	_, err := q.db.ExecContext(ctx, query,
		string(a.ID), string(a.EmployeeID), string(a.LeaveTypeID),
		a.StartDate.String(), a.EndDate.String(), string(a.Period),
		a.Reason, a.DocumentID, string(a.Status),
		nullTime(a.SubmittedAt),
		decisionJSON(a.ManagerDecision), decisionJSON(a.HRDecision),
		a.WorkingDays.String(), a.DebitedDays.String(),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save absence: %w", err)
	}
	return nil
}

// DeleteAbsence removes an absence row. The workflow only deletes drafts.
func (q queries) DeleteAbsence(ctx context.Context, id leave.AbsenceID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM absences WHERE id = ?", string(id))
	return err
}

// BlockingAbsences returns the employee's blocking-status rows intersecting
// [from, to], excluding the given identifier. ISO date strings compare
// lexicographically, so the range predicate runs in SQL.
func (q queries) BlockingAbsences(ctx context.Context, employee leave.EmployeeID, from, to leave.Date, exclude leave.AbsenceID) ([]leave.Absence, error) {
	query := `
		SELECT ` + absenceColumns + ` FROM absences
		WHERE employee_id = ?
		  AND status IN (?, ?, ?)
		  AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC
	`

	rows, err := q.db.QueryContext(ctx, query,
		string(employee),
		string(leave.StatusPendingManager), string(leave.StatusPendingHR), string(leave.StatusApproved),
		string(exclude), to.String(), from.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocking absences: %w", err)
	}
	defer rows.Close()

	return collectAbsences(rows)
}

// AbsencesFor returns every absence of an employee, oldest first.
func (q queries) AbsencesFor(ctx context.Context, employee leave.EmployeeID) ([]leave.Absence, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+absenceColumns+` FROM absences
		WHERE employee_id = ?
		ORDER BY created_at ASC`, string(employee))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAbsences(rows)
}

// PendingAbsences lists requests sitting in the given status, oldest
// submission first. Used by the approval-queue endpoints.
func (q queries) PendingAbsences(ctx context.Context, status leave.Status) ([]leave.Absence, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+absenceColumns+` FROM absences
		WHERE status = ?
		ORDER BY submitted_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAbsences(rows)
}

func collectAbsences(rows *sql.Rows) ([]leave.Absence, error) {
	var out []leave.Absence
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAbsence(rows *sql.Rows) (*leave.Absence, error) {
	var (
		a           leave.Absence
		id          string
		employeeID  string
		leaveTypeID string
		startDate   string
		endDate     string
		period      string
		reason      sql.NullString
		documentID  sql.NullString
		status      string
		submittedAt sql.NullString
		managerJSON sql.NullString
		hrJSON      sql.NullString
		workingDays string
		debitedDays string
		createdAt   string
		updatedAt   string
	)

	err := rows.Scan(
		&id, &employeeID, &leaveTypeID, &startDate, &endDate, &period,
		&reason, &documentID, &status, &submittedAt,
		&managerJSON, &hrJSON, &workingDays, &debitedDays, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan absence: %w", err)
	}

	a.ID = leave.AbsenceID(id)
	a.EmployeeID = leave.EmployeeID(employeeID)
	a.LeaveTypeID = leave.LeaveTypeID(leaveTypeID)
	a.StartDate, _ = leave.ParseDate(startDate)
	a.EndDate, _ = leave.ParseDate(endDate)
	a.Period = leave.PeriodOfDay(period)
	a.Reason = reason.String
	a.DocumentID = documentID.String
	a.Status = leave.Status(status)
	a.WorkingDays = leave.MustParseDays(workingDays)
	a.DebitedDays = leave.MustParseDays(debitedDays)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if submittedAt.Valid {
		t, _ := time.Parse(time.RFC3339, submittedAt.String)
		a.SubmittedAt = &t
	}
	a.ManagerDecision = parseDecision(managerJSON)
	a.HRDecision = parseDecision(hrJSON)

	return &a, nil
}

// decisionRecord is the JSON shape of a DecisionRecord column.
type decisionRecord struct {
	ActorID   string    `json:"actor_id"`
	Decision  string    `json:"decision"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

func decisionJSON(d *leave.DecisionRecord) any {
	if d == nil {
		return nil
	}
	b, _ := json.Marshal(decisionRecord{
		ActorID:   string(d.ActorID),
		Decision:  string(d.Decision),
		Comment:   d.Comment,
		DecidedAt: d.DecidedAt,
	})
	return string(b)
}

func parseDecision(col sql.NullString) *leave.DecisionRecord {
	if !col.Valid || col.String == "" {
		return nil
	}
	var raw decisionRecord
	if err := json.Unmarshal([]byte(col.String), &raw); err != nil {
		return nil
	}
	return &leave.DecisionRecord{
		ActorID:   leave.EmployeeID(raw.ActorID),
		Decision:  leave.Decision(raw.Decision),
		Comment:   raw.Comment,
		DecidedAt: raw.DecidedAt,
	}
}

// -----------------------------------------------------------------------------
// Validation steps (append-only)
// -----------------------------------------------------------------------------

// AppendStep inserts one audit-trail row. There is no update or delete path.
func (q queries) AppendStep(ctx context.Context, step leave.ValidationStep) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO validation_steps (id, absence_id, stage, actor_id, decision, comment, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		step.ID, string(step.AbsenceID), string(step.Stage), string(step.ActorID),
		string(step.Decision), step.Comment, step.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append validation step: %w", err)
	}
	return nil
}

// Steps returns the absence's audit trail in chronological order.
func (q queries) Steps(ctx context.Context, id leave.AbsenceID) ([]leave.ValidationStep, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, absence_id, stage, actor_id, decision, comment, at
		FROM validation_steps
		WHERE absence_id = ?
		ORDER BY at ASC`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []leave.ValidationStep
	for rows.Next() {
		var (
			s       leave.ValidationStep
			absID   string
			stage   string
			actorID string
			dec     string
			comment sql.NullString
			at      string
		)
		if err := rows.Scan(&s.ID, &absID, &stage, &actorID, &dec, &comment, &at); err != nil {
			return nil, err
		}
		s.AbsenceID = leave.AbsenceID(absID)
		s.Stage = leave.Stage(stage)
		s.ActorID = leave.EmployeeID(actorID)
		s.Decision = leave.Decision(dec)
		s.Comment = comment.String
		s.At, _ = time.Parse(time.RFC3339, at)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// -----------------------------------------------------------------------------
// Accrual records
// -----------------------------------------------------------------------------

// AccrualRecord returns the balance row for (employee, year), nil when none
// exists yet.
func (q queries) AccrualRecord(ctx context.Context, employee leave.EmployeeID, year int) (*leave.AccrualRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT employee_id, reference_year, earned_days, taken_days, carried_over, new_carry_over, updated_at
		FROM accrual_records
		WHERE employee_id = ? AND reference_year = ?`,
		string(employee), year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var (
		rec       leave.AccrualRecord
		empID     string
		earned    string
		taken     string
		carried   string
		newCarry  string
		updatedAt string
	)
	if err := rows.Scan(&empID, &rec.ReferenceYear, &earned, &taken, &carried, &newCarry, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan accrual record: %w", err)
	}
	rec.EmployeeID = leave.EmployeeID(empID)
	rec.EarnedDays = leave.MustParseDays(earned)
	rec.TakenDays = leave.MustParseDays(taken)
	rec.CarriedOver = leave.MustParseDays(carried)
	rec.NewCarryOver = leave.MustParseDays(newCarry)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// SaveAccrualRecord inserts or updates the one row per (employee, year).
func (q queries) SaveAccrualRecord(ctx context.Context, rec *leave.AccrualRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accrual_records
			(employee_id, reference_year, earned_days, taken_days, carried_over, new_carry_over, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, reference_year) DO UPDATE SET
			earned_days = excluded.earned_days,
			taken_days = excluded.taken_days,
			carried_over = excluded.carried_over,
			new_carry_over = excluded.new_carry_over,
			updated_at = excluded.updated_at`,
		string(rec.EmployeeID), rec.ReferenceYear,
		rec.EarnedDays.String(), rec.TakenDays.String(),
		rec.CarriedOver.String(), rec.NewCarryOver.String(),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save accrual record: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Leave types
// -----------------------------------------------------------------------------

// SaveLeaveType inserts or updates a leave type.
func (q queries) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO leave_types (id, name, paid, consumes_balance, requires_document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			paid = excluded.paid,
			consumes_balance = excluded.consumes_balance,
			requires_document = excluded.requires_document`,
		string(lt.ID), lt.Name, lt.Paid, lt.ConsumesBalance, lt.RequiresDocument,
	)
	return err
}

// LeaveType retrieves a leave type or leave.ErrLeaveTypeNotFound.
func (q queries) LeaveType(ctx context.Context, id leave.LeaveTypeID) (leave.LeaveType, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, paid, consumes_balance, requires_document
		FROM leave_types WHERE id = ?`, string(id))
	if err != nil {
		return leave.LeaveType{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return leave.LeaveType{}, err
		}
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return scanLeaveType(rows)
}

// LeaveTypes returns all leave types ordered by name.
func (q queries) LeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, paid, consumes_balance, requires_document
		FROM leave_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func scanLeaveType(rows *sql.Rows) (leave.LeaveType, error) {
	var (
		lt leave.LeaveType
		id string
	)
	if err := rows.Scan(&id, &lt.Name, &lt.Paid, &lt.ConsumesBalance, &lt.RequiresDocument); err != nil {
		return leave.LeaveType{}, fmt.Errorf("failed to scan leave type: %w", err)
	}
	lt.ID = leave.LeaveTypeID(id)
	return lt, nil
}

// -----------------------------------------------------------------------------
// Policies
// -----------------------------------------------------------------------------

// seniorityTier is the JSON shape of one bonus-table entry.
type seniorityTier struct {
	ThresholdYears int    `json:"threshold_years"`
	BonusDays      string `json:"bonus_days"`
}

// SavePolicy inserts or updates one (policy, reference year) version.
func (q queries) SavePolicy(ctx context.Context, p leave.AccrualPolicy) error {
	tiers := make([]seniorityTier, 0, len(p.Seniority.Tiers))
	for _, t := range p.Seniority.Sorted() {
		tiers = append(tiers, seniorityTier{ThresholdYears: t.ThresholdYears, BonusDays: t.BonusDays.String()})
	}
	seniorityJSON, _ := json.Marshal(tiers)

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO policies
			(id, reference_year, name, window_start, window_end, monthly_rate,
			 principal_duration, min_months_required, annual_cap, prorate_part_time, seniority_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, reference_year) DO UPDATE SET
			name = excluded.name,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			monthly_rate = excluded.monthly_rate,
			principal_duration = excluded.principal_duration,
			min_months_required = excluded.min_months_required,
			annual_cap = excluded.annual_cap,
			prorate_part_time = excluded.prorate_part_time,
			seniority_json = excluded.seniority_json`,
		string(p.ID), p.ReferenceYear, p.Name,
		p.WindowStart.String(), p.WindowEnd.String(),
		p.MonthlyRate.String(), p.PrincipalDuration.String(),
		p.MinMonthsRequired, p.AnnualCap.String(), p.ProratePartTime,
		string(seniorityJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// Policy retrieves one (policy, reference year) version or
// leave.ErrPolicyNotFound.
func (q queries) Policy(ctx context.Context, id leave.PolicyID, year int) (leave.AccrualPolicy, error) {
	rows, err := q.db.QueryContext(ctx,
		policySelect+` WHERE id = ? AND reference_year = ?`, string(id), year)
	if err != nil {
		return leave.AccrualPolicy{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return leave.AccrualPolicy{}, err
		}
		return leave.AccrualPolicy{}, fmt.Errorf("policy %s, year %d: %w", id, year, leave.ErrPolicyNotFound)
	}
	return scanPolicy(rows)
}

// Policies returns every stored policy version.
func (q queries) Policies(ctx context.Context) ([]leave.AccrualPolicy, error) {
	rows, err := q.db.QueryContext(ctx, policySelect+` ORDER BY id, reference_year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.AccrualPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

const policySelect = `
	SELECT id, reference_year, name, window_start, window_end, monthly_rate,
	       principal_duration, min_months_required, annual_cap, prorate_part_time, seniority_json
	FROM policies`

func scanPolicy(rows *sql.Rows) (leave.AccrualPolicy, error) {
	var (
		p             leave.AccrualPolicy
		id            string
		windowStart   string
		windowEnd     string
		monthlyRate   string
		principal     string
		annualCap     string
		seniorityJSON sql.NullString
	)
	err := rows.Scan(&id, &p.ReferenceYear, &p.Name, &windowStart, &windowEnd,
		&monthlyRate, &principal, &p.MinMonthsRequired, &annualCap,
		&p.ProratePartTime, &seniorityJSON)
	if err != nil {
		return leave.AccrualPolicy{}, fmt.Errorf("failed to scan policy: %w", err)
	}

	p.ID = leave.PolicyID(id)
	p.WindowStart, _ = leave.ParseDate(windowStart)
	p.WindowEnd, _ = leave.ParseDate(windowEnd)
	p.MonthlyRate = leave.MustParseDays(monthlyRate)
	p.PrincipalDuration = leave.MustParseDays(principal)
	p.AnnualCap = leave.MustParseDays(annualCap)

	if seniorityJSON.Valid && seniorityJSON.String != "" {
		var tiers []seniorityTier
		if err := json.Unmarshal([]byte(seniorityJSON.String), &tiers); err == nil {
			for _, t := range tiers {
				p.Seniority.Tiers = append(p.Seniority.Tiers, leave.SeniorityTier{
					ThresholdYears: t.ThresholdYears,
					BonusDays:      leave.MustParseDays(t.BonusDays),
				})
			}
		}
	}
	return p, nil
}

// -----------------------------------------------------------------------------
// Convention assignments
// -----------------------------------------------------------------------------

// SaveAssignment inserts or updates an assignment.
func (q queries) SaveAssignment(ctx context.Context, a leave.ConventionAssignment) error {
	var effectiveTo any
	if a.EffectiveTo != nil {
		effectiveTo = a.EffectiveTo.String()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO convention_assignments (id, employee_id, policy_id, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			policy_id = excluded.policy_id,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to`,
		a.ID, string(a.EmployeeID), string(a.PolicyID),
		a.EffectiveFrom.String(), effectiveTo,
	)
	return err
}

// AssignmentsFor returns every assignment ever recorded for the employee.
func (q queries) AssignmentsFor(ctx context.Context, employee leave.EmployeeID) ([]leave.ConventionAssignment, error) {
	rows, err := q.db.QueryContext(ctx, assignmentSelect+`
		WHERE employee_id = ?
		ORDER BY effective_from ASC`, string(employee))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssignments(rows)
}

// AllActiveAssignments returns every assignment active at the date, across
// employees. Used by the batch accrual refresh.
func (q queries) AllActiveAssignments(ctx context.Context, at leave.Date) ([]leave.ConventionAssignment, error) {
	rows, err := q.db.QueryContext(ctx, assignmentSelect+`
		WHERE effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY employee_id ASC`, at.String(), at.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssignments(rows)
}

const assignmentSelect = `
	SELECT id, employee_id, policy_id, effective_from, effective_to
	FROM convention_assignments`

func collectAssignments(rows *sql.Rows) ([]leave.ConventionAssignment, error) {
	var out []leave.ConventionAssignment
	for rows.Next() {
		var (
			a           leave.ConventionAssignment
			employeeID  string
			policyID    string
			from        string
			effectiveTo sql.NullString
		)
		if err := rows.Scan(&a.ID, &employeeID, &policyID, &from, &effectiveTo); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.EmployeeID = leave.EmployeeID(employeeID)
		a.PolicyID = leave.PolicyID(policyID)
		a.EffectiveFrom, _ = leave.ParseDate(from)
		if effectiveTo.Valid {
			d, err := leave.ParseDate(effectiveTo.String)
			if err == nil {
				a.EffectiveTo = &d
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

// SaveContract stores the employee's contract snapshot.
func (q queries) SaveContract(ctx context.Context, info leave.EmployeeInfo) error {
	var contractEnd any
	if info.ContractEnd != nil {
		contractEnd = info.ContractEnd.String()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO contracts (employee_id, contract_start, contract_end, tenure_years, part_time_coefficient)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			contract_start = excluded.contract_start,
			contract_end = excluded.contract_end,
			tenure_years = excluded.tenure_years,
			part_time_coefficient = excluded.part_time_coefficient`,
		string(info.ID), info.ContractStart.String(), contractEnd,
		info.TenureYears, info.Coefficient().String(),
	)
	return err
}

// ActiveContractAt returns the snapshot when the contract covers the date,
// leave.ErrNoActiveContract otherwise.
func (q queries) ActiveContractAt(ctx context.Context, employee leave.EmployeeID, at leave.Date) (leave.EmployeeInfo, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT employee_id, contract_start, contract_end, tenure_years, part_time_coefficient
		FROM contracts WHERE employee_id = ?`, string(employee))
	if err != nil {
		return leave.EmployeeInfo{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return leave.EmployeeInfo{}, err
		}
		return leave.EmployeeInfo{}, leave.ErrNoActiveContract
	}

	var (
		info        leave.EmployeeInfo
		id          string
		start       string
		end         sql.NullString
		coefficient string
	)
	if err := rows.Scan(&id, &start, &end, &info.TenureYears, &coefficient); err != nil {
		return leave.EmployeeInfo{}, fmt.Errorf("failed to scan contract: %w", err)
	}
	info.ID = leave.EmployeeID(id)
	info.ContractStart, _ = leave.ParseDate(start)
	if end.Valid {
		d, err := leave.ParseDate(end.String)
		if err == nil {
			info.ContractEnd = &d
		}
	}
	info.PartTimeCoefficient = leave.MustParseDays(coefficient)

	if !info.HasActiveContractAt(at) {
		return leave.EmployeeInfo{}, leave.ErrNoActiveContract
	}
	return info, nil
}

// -----------------------------------------------------------------------------
// Holidays (leave.HolidayCalendar interface)
// -----------------------------------------------------------------------------

// SaveHoliday inserts or updates a holiday, keyed on (date, name), and
// returns the persisted row. Re-posting an existing holiday keeps the
// stored identifier rather than the caller's.
func (q queries) SaveHoliday(ctx context.Context, h leave.Holiday) (leave.Holiday, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring`,
		h.ID, h.Date.String(), h.Name, h.Recurring,
	)
	if err != nil {
		return leave.Holiday{}, err
	}

	row := q.db.QueryRowContext(ctx,
		`SELECT id, recurring FROM holidays WHERE date = ? AND name = ?`,
		h.Date.String(), h.Name)
	if err := row.Scan(&h.ID, &h.Recurring); err != nil {
		return leave.Holiday{}, fmt.Errorf("failed to read saved holiday: %w", err)
	}
	return h, nil
}

// DeleteHoliday removes a holiday by ID.
func (q queries) DeleteHoliday(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// IsHoliday checks fixed-date holidays by exact match and recurring ones by
// month-day.
func (q queries) IsHoliday(d leave.Date) bool {
	monthDay := d.Time().Format("01-02")

	rows, err := q.db.QueryContext(context.Background(), `
		SELECT COUNT(*) FROM holidays
		WHERE (recurring = FALSE AND date = ?)
		   OR (recurring = TRUE AND strftime('%m-%d', date) = ?)`,
		d.String(), monthDay)
	if err != nil {
		return false
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false
		}
	}
	return count > 0
}

// Holidays returns the calendar for a year; recurring entries are projected
// onto the requested year.
func (q queries) Holidays(year int) []leave.Holiday {
	rows, err := q.db.QueryContext(context.Background(), `
		SELECT id, date, name, recurring
		FROM holidays
		WHERE recurring = TRUE OR strftime('%Y', date) = ?
		ORDER BY date ASC`, fmt.Sprintf("%d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var (
			h       leave.Holiday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Recurring); err != nil {
			continue
		}
		d, err := leave.ParseDate(dateStr)
		if err != nil {
			continue
		}
		if h.Recurring {
			d = leave.NewDate(year, d.Month(), d.Day())
		}
		h.Date = d
		holidays = append(holidays, h)
	}
	return holidays
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"absences", "validation_steps", "accrual_records",
		"leave_types", "policies", "convention_assignments",
		"contracts", "holidays",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
