/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the accrual engine and absence workflow via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Absences:
    POST   /api/absences                       Create draft
    GET    /api/absences/{id}                  Get absence
    GET    /api/absences/{id}/steps            Audit trail
    POST   /api/absences/{id}/submit           DRAFT -> PENDING_MANAGER
    POST   /api/absences/{id}/decide/manager   Manager decision
    POST   /api/absences/{id}/decide/hr        HR decision
    POST   /api/absences/{id}/cancel           Cancel
    DELETE /api/absences/{id}                  Delete draft
    GET    /api/absences/pending               Approval queue

  Employees:
    GET    /api/employees/{id}/absences        Request history
    GET    /api/employees/{id}/balance         Balance for a reference year
    GET    /api/employees/{id}/accrual         Compute earned days (dry run)
    GET    /api/employees/{id}/accrual/verify  Recompute-and-diff audit
    POST   /api/employees/{id}/accrual/refresh Persist a fresh computation
    POST   /api/employees/{id}/close-year      Carry-over into the next year
    PUT    /api/employees/{id}/contract        Upsert contract snapshot

  Policies / Assignments / Calendar:
    GET    /api/policies                       List policies
    POST   /api/policies                       Create from JSON
    GET    /api/policies/{id}                  Get one (policy, year)
    POST   /api/admin/assignments              Bind employee to policy
    GET    /api/leave-types                    List leave types
    POST   /api/leave-types                    Create leave type
    GET    /api/holidays                       List holidays for a year
    POST   /api/holidays                       Create holiday
    DELETE /api/holidays/{id}                  Delete holiday

ACTOR IDENTIFICATION:
  Decision and cancellation endpoints read the acting employee from the
  X-Actor-ID header. Authentication itself happens upstream; this service
  only enforces self-approval and the injected Authorizer.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, missing document
  - 403: Self-approval or authorizer refusal
  - 404: Absence/policy/leave-type not found
  - 409: Overlap conflict, illegal state transition
  - 422: Insufficient balance
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Workflow      *leave.Workflow
	PolicyFactory *factory.PolicyFactory
	Log           *logrus.Logger
}

// NewHandler creates a new handler around the store and workflow.
func NewHandler(store *sqlite.Store, wf *leave.Workflow, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:         store,
		Workflow:      wf,
		PolicyFactory: factory.NewPolicyFactory(),
		Log:           log,
	}
}

func actorID(r *http.Request) leave.EmployeeID {
	return leave.EmployeeID(r.Header.Get("X-Actor-ID"))
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// CreateAbsence creates a new DRAFT request.
func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	var req CreateAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := leave.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := leave.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	a, err := h.Workflow.CreateAbsence(r.Context(), leave.CreateAbsenceInput{
		EmployeeID:  leave.EmployeeID(req.EmployeeID),
		LeaveTypeID: leave.LeaveTypeID(req.LeaveTypeID),
		Start:       start,
		End:         end,
		Period:      leave.PeriodOfDay(req.Period),
		Reason:      req.Reason,
		DocumentID:  req.DocumentID,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAbsenceDTO(a))
}

// GetAbsence returns a single absence.
func (h *Handler) GetAbsence(w http.ResponseWriter, r *http.Request) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))

	a, err := h.Store.Absence(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAbsenceDTO(a))
}

// GetSteps returns the absence's audit trail.
func (h *Handler) GetSteps(w http.ResponseWriter, r *http.Request) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))

	steps, err := h.Store.Steps(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load steps", err)
		return
	}
	writeJSON(w, http.StatusOK, toStepDTOs(steps))
}

// SubmitAbsence moves a draft into the approval chain.
func (h *Handler) SubmitAbsence(w http.ResponseWriter, r *http.Request) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))

	events, err := h.Workflow.Submit(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeTransition(w, r, id, events)
}

// DecideManager records the manager-stage decision.
func (h *Handler) DecideManager(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StageManager)
}

// DecideHR records the HR-stage decision.
func (h *Handler) DecideHR(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StageHR)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, stage leave.Stage) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-ID header", nil)
		return
	}

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		events []leave.Event
		err    error
	)
	if stage == leave.StageManager {
		events, err = h.Workflow.DecideManager(r.Context(), id, actor, req.Approve, req.Comment)
	} else {
		events, err = h.Workflow.DecideHR(r.Context(), id, actor, req.Approve, req.Comment)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeTransition(w, r, id, events)
}

// CancelAbsence cancels a request, with restitution when it was approved.
func (h *Handler) CancelAbsence(w http.ResponseWriter, r *http.Request) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-ID header", nil)
		return
	}

	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	events, err := h.Workflow.Cancel(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeTransition(w, r, id, events)
}

// DeleteAbsence removes a draft.
func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	id := leave.AbsenceID(chi.URLParam(r, "id"))
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-ID header", nil)
		return
	}

	if err := h.Workflow.Delete(r.Context(), id, actor); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPending returns the approval queue for one stage
// (?stage=manager|hr, default manager).
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	status := leave.StatusPendingManager
	if r.URL.Query().Get("stage") == "hr" {
		status = leave.StatusPendingHR
	}

	absences, err := h.Store.PendingAbsences(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending absences", err)
		return
	}

	dtos := make([]AbsenceDTO, len(absences))
	for i := range absences {
		dtos[i] = toAbsenceDTO(&absences[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) writeTransition(w http.ResponseWriter, r *http.Request, id leave.AbsenceID, events []leave.Event) {
	a, err := h.Store.Absence(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	for _, e := range events {
		h.Log.WithFields(logrus.Fields{
			"event":    e.Kind,
			"absence":  e.AbsenceID,
			"employee": e.EmployeeID,
			"actor":    e.ActorID,
		}).Info("workflow transition")
	}
	writeJSON(w, http.StatusOK, TransitionResponse{
		Absence: toAbsenceDTO(a),
		Events:  toEventDTOs(events),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployeeAbsences returns the employee's request history.
func (h *Handler) ListEmployeeAbsences(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))

	absences, err := h.Store.AbsencesFor(r.Context(), employee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list absences", err)
		return
	}

	dtos := make([]AbsenceDTO, len(absences))
	for i := range absences {
		dtos[i] = toAbsenceDTO(&absences[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBalance returns the balance row for ?year= (default: previous calendar
// year, per the N-1 availability rule).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.yearParam(w, r, leave.ReferenceYearFor(leave.Today()))
	if !ok {
		return
	}

	rec, err := h.Store.AccrualRecord(r.Context(), employee, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load balance", err)
		return
	}
	if rec == nil {
		rec = &leave.AccrualRecord{EmployeeID: employee, ReferenceYear: year}
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(rec))
}

// ComputeAccrual runs the engine without writing (?year=, ?as_of=).
func (h *Handler) ComputeAccrual(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, asOf, ok := h.accrualParams(w, r)
	if !ok {
		return
	}

	res, err := h.Workflow.ComputeAccrual(r.Context(), employee, year, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccrualResultDTO(res))
}

// VerifyAccrual recomputes and reports drift against the stored record.
func (h *Handler) VerifyAccrual(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, asOf, ok := h.accrualParams(w, r)
	if !ok {
		return
	}

	diff, err := h.Workflow.VerifyAccrual(r.Context(), employee, year, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccrualDiffDTO{
		Result:       toAccrualResultDTO(diff.Result),
		StoredEarned: diff.StoredEarned.StringFixed(2),
		Delta:        diff.Delta.StringFixed(2),
	})
}

// RefreshAccrual recomputes and persists the earned figure.
func (h *Handler) RefreshAccrual(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, asOf, ok := h.accrualParams(w, r)
	if !ok {
		return
	}

	res, err := h.Workflow.RefreshAccrual(r.Context(), employee, year, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccrualResultDTO(res))
}

// CloseYear carries the remaining balance into the next reference year.
func (h *Handler) CloseYear(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.yearParam(w, r, 0)
	if !ok {
		return
	}
	if year == 0 {
		writeError(w, http.StatusBadRequest, "Missing year parameter", nil)
		return
	}

	carried, err := h.Workflow.CloseYear(r.Context(), employee, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CloseYearResponse{
		EmployeeID:    string(employee),
		ReferenceYear: year,
		CarriedOver:   carried.StringFixed(2),
	})
}

// PutContract upserts the employee's contract snapshot.
func (h *Handler) PutContract(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))

	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := leave.ParseDate(req.ContractStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract_start format (use YYYY-MM-DD)", err)
		return
	}

	info := leave.EmployeeInfo{
		ID:            employee,
		ContractStart: start,
		TenureYears:   req.TenureYears,
	}
	if req.ContractEnd != nil {
		end, err := leave.ParseDate(*req.ContractEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid contract_end format (use YYYY-MM-DD)", err)
			return
		}
		info.ContractEnd = &end
	}
	if req.PartTimeCoefficient != "" {
		coeff, err := leave.ParseDays(req.PartTimeCoefficient)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid part_time_coefficient", err)
			return
		}
		info.PartTimeCoefficient = coeff
	}

	if err := h.Store.SaveContract(r.Context(), info); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year parameter", err)
		return 0, false
	}
	return year, true
}

// accrualParams reads ?year= and ?as_of= for the accrual endpoints. The
// year defaults to the previous calendar year: the reference year whose
// balance is currently available for taking, per the N-1 rule. The nightly
// batch instead maintains the year currently being earned, so calls about
// that year pass ?year= explicitly.
func (h *Handler) accrualParams(w http.ResponseWriter, r *http.Request) (int, leave.Date, bool) {
	year, ok := h.yearParam(w, r, leave.ReferenceYearFor(leave.Today()))
	if !ok {
		return 0, leave.Date{}, false
	}
	asOf := leave.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := leave.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return 0, leave.Date{}, false
		}
		asOf = parsed
	}
	return year, asOf, true
}

// =============================================================================
// POLICY & ASSIGNMENT HANDLERS
// =============================================================================

// ListPolicies returns every stored policy version.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.Policies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]factory.PolicyJSON, len(policies))
	for i, p := range policies {
		dtos[i] = h.PolicyFactory.ToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates a policy from its JSON definition.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy definition", err)
		return
	}
	if err := h.Store.SavePolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.PolicyFactory.ToJSON(policy))
}

// GetPolicy returns one (policy, reference year) version.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := leave.PolicyID(chi.URLParam(r, "id"))
	year, ok := h.yearParam(w, r, leave.Today().Year())
	if !ok {
		return
	}

	policy, err := h.Store.Policy(r.Context(), id, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(policy))
}

// CreateAssignment binds an employee to a policy over an effective range.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from, err := leave.ParseDate(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", err)
		return
	}

	a := leave.ConventionAssignment{
		ID:            uuid.NewString(),
		EmployeeID:    leave.EmployeeID(req.EmployeeID),
		PolicyID:      leave.PolicyID(req.PolicyID),
		EffectiveFrom: from,
	}
	if req.EffectiveTo != nil {
		to, err := leave.ParseDate(*req.EffectiveTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective_to format (use YYYY-MM-DD)", err)
			return
		}
		a.EffectiveTo = &to
	}

	if err := h.Store.SaveAssignment(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}

	dto := AssignmentDTO{
		ID:            a.ID,
		EmployeeID:    string(a.EmployeeID),
		PolicyID:      string(a.PolicyID),
		EffectiveFrom: a.EffectiveFrom.String(),
		EffectiveTo:   req.EffectiveTo,
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// LEAVE TYPE & HOLIDAY HANDLERS
// =============================================================================

// ListLeaveTypes returns all leave types.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.LeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = LeaveTypeDTO{
			ID:               string(lt.ID),
			Name:             lt.Name,
			Paid:             lt.Paid,
			ConsumesBalance:  lt.ConsumesBalance,
			RequiresDocument: lt.RequiresDocument,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLeaveType creates or updates a leave type.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var req LeaveTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Leave type id is required", nil)
		return
	}

	lt := leave.LeaveType{
		ID:               leave.LeaveTypeID(req.ID),
		Name:             req.Name,
		Paid:             req.Paid,
		ConsumesBalance:  req.ConsumesBalance,
		RequiresDocument: req.RequiresDocument,
	}
	if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListHolidays returns the calendar for ?year= (default: current year).
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r, leave.Today().Year())
	if !ok {
		return
	}

	holidays := h.Store.Holidays(year)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			ID:        hol.ID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday to the statutory calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := leave.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	hol := leave.Holiday{ID: req.ID, Date: date, Name: req.Name, Recurring: req.Recurring}
	saved, err := h.Store.SaveHoliday(r.Context(), hol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:        saved.ID,
		Date:      saved.Date.String(),
		Name:      saved.Name,
		Recurring: saved.Recurring,
	})
}

// DeleteHoliday removes a holiday by ID.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ERROR & RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case leave.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, leave.ErrOverlapConflict):
		status, code = http.StatusConflict, "overlap_conflict"
	case errors.Is(err, leave.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, leave.ErrInsufficientBalance):
		status, code = http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, leave.ErrSelfApproval):
		status, code = http.StatusForbidden, "self_approval_forbidden"
	case errors.Is(err, leave.ErrNotAuthorized):
		status, code = http.StatusForbidden, "not_authorized"
	case errors.Is(err, leave.ErrInvalidDateRange):
		status, code = http.StatusBadRequest, "invalid_date_range"
	case errors.Is(err, leave.ErrMissingDocument):
		status, code = http.StatusBadRequest, "missing_document"
	case errors.Is(err, leave.ErrNoActiveContract):
		status, code = http.StatusUnprocessableEntity, "no_active_contract"
	}

	if status == http.StatusInternalServerError {
		h.Log.WithError(err).Error("request failed")
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}

	// Surface structured details where the domain provides them.
	var overlap *leave.OverlapError
	if errors.As(err, &overlap) {
		resp.Details = map[string]any{
			"total_conflicts": overlap.Total,
			"conflicts":       overlap.Conflicts,
		}
	}
	var insufficient *leave.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		resp.Details = map[string]any{
			"requested": insufficient.Requested.StringFixed(2),
			"available": insufficient.Available.StringFixed(2),
			"year":      insufficient.ReferenceYear,
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = fmt.Sprintf("%v", err)
	}
	writeJSON(w, status, resp)
}
