/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Day amounts travel as decimal strings ("15.50"), matching the engine's
  fixed-point arithmetic. Clients must not round-trip them through floats.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AbsenceDTO represents a leave request in API responses.
type AbsenceDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Period    string `json:"period"`

	Reason     string `json:"reason,omitempty"`
	DocumentID string `json:"document_id,omitempty"`

	Status      string       `json:"status"`
	SubmittedAt *string      `json:"submitted_at,omitempty"`
	Manager     *DecisionDTO `json:"manager_decision,omitempty"`
	HR          *DecisionDTO `json:"hr_decision,omitempty"`

	WorkingDays string `json:"working_days"`
	DebitedDays string `json:"debited_days"`

	ReferenceYear int    `json:"reference_year"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// DecisionDTO represents one approval-stage outcome.
type DecisionDTO struct {
	ActorID   string `json:"actor_id"`
	Decision  string `json:"decision"`
	Comment   string `json:"comment,omitempty"`
	DecidedAt string `json:"decided_at"`
}

// CreateAbsenceRequest is the request to create a draft.
type CreateAbsenceRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Period      string `json:"period,omitempty"`
	Reason      string `json:"reason,omitempty"`
	DocumentID  string `json:"document_id,omitempty"`
}

// DecideRequest is the body of a manager or HR decision.
type DecideRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty"`
}

// CancelRequest is the body of a cancellation.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// StepDTO represents one audit-trail row.
type StepDTO struct {
	ID        string `json:"id"`
	Stage     string `json:"stage"`
	ActorID   string `json:"actor_id"`
	Decision  string `json:"decision"`
	Comment   string `json:"comment,omitempty"`
	At        string `json:"at"`
}

// EventDTO represents a domain event emitted by a transition.
type EventDTO struct {
	Kind       string `json:"kind"`
	AbsenceID  string `json:"absence_id"`
	EmployeeID string `json:"employee_id"`
	ActorID    string `json:"actor_id"`
	Comment    string `json:"comment,omitempty"`
	At         string `json:"at"`
}

// TransitionResponse wraps the updated absence with the events the
// transition produced.
type TransitionResponse struct {
	Absence AbsenceDTO `json:"absence"`
	Events  []EventDTO `json:"events"`
}

// BalanceDTO represents the balance row for one (employee, reference year).
type BalanceDTO struct {
	EmployeeID    string `json:"employee_id"`
	ReferenceYear int    `json:"reference_year"`
	EarnedDays    string `json:"earned_days"`
	TakenDays     string `json:"taken_days"`
	CarriedOver   string `json:"carried_over"`
	Remaining     string `json:"remaining"`
}

// AccrualResultDTO represents one engine computation.
type AccrualResultDTO struct {
	EmployeeID    string `json:"employee_id"`
	PolicyID      string `json:"policy_id"`
	ReferenceYear int    `json:"reference_year"`
	AsOf          string `json:"as_of"`
	EarnedDays    string `json:"earned_days"`
	MonthsWorked  int    `json:"months_worked"`

	BaseDays       string `json:"base_days"`
	RemainderBonus string `json:"remainder_bonus"`
	SeniorityDays  string `json:"seniority_days"`
	Coefficient    string `json:"coefficient_applied"`
	CapApplied     bool   `json:"cap_applied"`
	RemainderDays  int    `json:"remainder_days"`
	Reason         string `json:"reason,omitempty"`
}

// AccrualDiffDTO reports drift between stored and recomputed earned days.
type AccrualDiffDTO struct {
	Result       AccrualResultDTO `json:"result"`
	StoredEarned string           `json:"stored_earned"`
	Delta        string           `json:"delta"`
}

// CloseYearResponse reports the carry-over produced by a year close.
type CloseYearResponse struct {
	EmployeeID    string `json:"employee_id"`
	ReferenceYear int    `json:"reference_year"`
	CarriedOver   string `json:"carried_over"`
}

// ContractRequest upserts an employee contract snapshot.
type ContractRequest struct {
	EmployeeID          string  `json:"employee_id"`
	ContractStart       string  `json:"contract_start"`
	ContractEnd         *string `json:"contract_end,omitempty"`
	TenureYears         int     `json:"tenure_years"`
	PartTimeCoefficient string  `json:"part_time_coefficient,omitempty"`
}

// CreateAssignmentRequest binds an employee to a policy.
type CreateAssignmentRequest struct {
	EmployeeID    string  `json:"employee_id"`
	PolicyID      string  `json:"policy_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// AssignmentDTO represents a convention assignment.
type AssignmentDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	PolicyID      string  `json:"policy_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// HolidayDTO represents a statutory holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// LeaveTypeDTO represents a leave type.
type LeaveTypeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Paid             bool   `json:"paid"`
	ConsumesBalance  bool   `json:"consumes_balance"`
	RequiresDocument bool   `json:"requires_document"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAbsenceDTO(a *leave.Absence) AbsenceDTO {
	dto := AbsenceDTO{
		ID:            string(a.ID),
		EmployeeID:    string(a.EmployeeID),
		LeaveTypeID:   string(a.LeaveTypeID),
		StartDate:     a.StartDate.String(),
		EndDate:       a.EndDate.String(),
		Period:        string(a.Period),
		Reason:        a.Reason,
		DocumentID:    a.DocumentID,
		Status:        string(a.Status),
		WorkingDays:   a.WorkingDays.StringFixed(2),
		DebitedDays:   a.DebitedDays.StringFixed(2),
		ReferenceYear: a.ReferenceYear(),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.Format(time.RFC3339),
	}
	if a.SubmittedAt != nil {
		s := a.SubmittedAt.Format(time.RFC3339)
		dto.SubmittedAt = &s
	}
	dto.Manager = toDecisionDTO(a.ManagerDecision)
	dto.HR = toDecisionDTO(a.HRDecision)
	return dto
}

func toDecisionDTO(d *leave.DecisionRecord) *DecisionDTO {
	if d == nil {
		return nil
	}
	return &DecisionDTO{
		ActorID:   string(d.ActorID),
		Decision:  string(d.Decision),
		Comment:   d.Comment,
		DecidedAt: d.DecidedAt.Format(time.RFC3339),
	}
}

func toEventDTOs(events []leave.Event) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = EventDTO{
			Kind:       string(e.Kind),
			AbsenceID:  string(e.AbsenceID),
			EmployeeID: string(e.EmployeeID),
			ActorID:    string(e.ActorID),
			Comment:    e.Comment,
			At:         e.At.Format(time.RFC3339),
		}
	}
	return dtos
}

func toStepDTOs(steps []leave.ValidationStep) []StepDTO {
	dtos := make([]StepDTO, len(steps))
	for i, s := range steps {
		dtos[i] = StepDTO{
			ID:       s.ID,
			Stage:    string(s.Stage),
			ActorID:  string(s.ActorID),
			Decision: string(s.Decision),
			Comment:  s.Comment,
			At:       s.At.Format(time.RFC3339),
		}
	}
	return dtos
}

func toAccrualResultDTO(res leave.AccrualResult) AccrualResultDTO {
	return AccrualResultDTO{
		EmployeeID:     string(res.EmployeeID),
		PolicyID:       string(res.PolicyID),
		ReferenceYear:  res.ReferenceYear,
		AsOf:           res.AsOf.String(),
		EarnedDays:     res.EarnedDays.StringFixed(2),
		MonthsWorked:   res.MonthsWorked,
		BaseDays:       res.Detail.BaseDays.StringFixed(2),
		RemainderBonus: res.Detail.RemainderBonus.StringFixed(2),
		SeniorityDays:  res.Detail.SeniorityDays.StringFixed(2),
		Coefficient:    res.Detail.CoefficientApplied.String(),
		CapApplied:     res.Detail.CapApplied,
		RemainderDays:  res.Detail.RemainderDays,
		Reason:         res.Detail.Reason,
	}
}

func toBalanceDTO(rec *leave.AccrualRecord) BalanceDTO {
	return BalanceDTO{
		EmployeeID:    string(rec.EmployeeID),
		ReferenceYear: rec.ReferenceYear,
		EarnedDays:    rec.EarnedDays.StringFixed(2),
		TakenDays:     rec.TakenDays.StringFixed(2),
		CarriedOver:   rec.CarriedOver.StringFixed(2),
		Remaining:     rec.Remaining().StringFixed(2),
	}
}
