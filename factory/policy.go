/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy definitions into leave.AccrualPolicy values. This
  enables policy configuration without code changes - HR can define
  accrual policies and leave types in JSON, and the factory creates the
  proper Go structs.

WHY JSON?
  - Non-developers can modify policies
  - Easy integration with admin UI
  - Version control for policy definitions
  - Database storage of policy configs

JSON SCHEMA:
  {
    "id": "convention-standard",
    "name": "Standard Convention",
    "reference_year": 2024,
    "window_start": "2024-06-01",
    "window_end": "2025-05-31",
    "monthly_rate": "2.50",
    "principal_duration": "30",
    "min_months_required": 1,
    "annual_cap": "30",
    "prorate_part_time": true,
    "seniority": [
      {"threshold_years": 10, "bonus_days": "1"},
      {"threshold_years": 20, "bonus_days": "2"}
    ]
  }

KEY FEATURES:
  - Validates the parsed policy before returning it
  - Amounts are decimal strings, never binary floats
  - Round-trips policies back to JSON for admin export
  - Leave-type presets for the common statutory types

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonStr)

SEE ALSO:
  - leave/policy.go: AccrualPolicy type definition and validation
  - api/handlers.go: admin endpoints that accept these JSON bodies
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of an accrual policy. All day
// amounts are decimal strings ("2.50") to avoid float drift.
type PolicyJSON struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	ReferenceYear     int                 `json:"reference_year"`
	WindowStart       string              `json:"window_start"`
	WindowEnd         string              `json:"window_end"`
	MonthlyRate       string              `json:"monthly_rate"`
	PrincipalDuration string              `json:"principal_duration,omitempty"`
	MinMonthsRequired int                 `json:"min_months_required,omitempty"`
	AnnualCap         string              `json:"annual_cap,omitempty"`
	ProratePartTime   bool                `json:"prorate_part_time,omitempty"`
	Seniority         []SeniorityTierJSON `json:"seniority,omitempty"`
}

// SeniorityTierJSON is one bonus-table entry.
type SeniorityTierJSON struct {
	ThresholdYears int    `json:"threshold_years"`
	BonusDays      string `json:"bonus_days"`
}

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Paid             bool   `json:"paid"`
	ConsumesBalance  bool   `json:"consumes_balance"`
	RequiresDocument bool   `json:"requires_document"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a validated AccrualPolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (leave.AccrualPolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return leave.AccrualPolicy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to a validated AccrualPolicy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (leave.AccrualPolicy, error) {
	if pj.ID == "" {
		return leave.AccrualPolicy{}, fmt.Errorf("policy id is required")
	}

	windowStart, err := leave.ParseDate(pj.WindowStart)
	if err != nil {
		return leave.AccrualPolicy{}, fmt.Errorf("invalid window_start: %w", err)
	}
	windowEnd, err := leave.ParseDate(pj.WindowEnd)
	if err != nil {
		return leave.AccrualPolicy{}, fmt.Errorf("invalid window_end: %w", err)
	}
	rate, err := parseDays("monthly_rate", pj.MonthlyRate, true)
	if err != nil {
		return leave.AccrualPolicy{}, err
	}
	principal, err := parseDays("principal_duration", pj.PrincipalDuration, false)
	if err != nil {
		return leave.AccrualPolicy{}, err
	}
	cap, err := parseDays("annual_cap", pj.AnnualCap, false)
	if err != nil {
		return leave.AccrualPolicy{}, err
	}

	policy := leave.AccrualPolicy{
		ID:                leave.PolicyID(pj.ID),
		Name:              pj.Name,
		ReferenceYear:     pj.ReferenceYear,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
		MonthlyRate:       rate,
		PrincipalDuration: principal,
		MinMonthsRequired: pj.MinMonthsRequired,
		AnnualCap:         cap,
		ProratePartTime:   pj.ProratePartTime,
	}

	for _, tj := range pj.Seniority {
		bonus, err := parseDays("bonus_days", tj.BonusDays, true)
		if err != nil {
			return leave.AccrualPolicy{}, err
		}
		policy.Seniority.Tiers = append(policy.Seniority.Tiers, leave.SeniorityTier{
			ThresholdYears: tj.ThresholdYears,
			BonusDays:      bonus,
		})
	}

	if err := policy.Validate(); err != nil {
		return leave.AccrualPolicy{}, err
	}
	return policy, nil
}

// ToJSON converts an AccrualPolicy back to its JSON shape.
func (f *PolicyFactory) ToJSON(p leave.AccrualPolicy) PolicyJSON {
	pj := PolicyJSON{
		ID:                string(p.ID),
		Name:              p.Name,
		ReferenceYear:     p.ReferenceYear,
		WindowStart:       p.WindowStart.String(),
		WindowEnd:         p.WindowEnd.String(),
		MonthlyRate:       p.MonthlyRate.String(),
		PrincipalDuration: p.PrincipalDuration.String(),
		MinMonthsRequired: p.MinMonthsRequired,
		AnnualCap:         p.AnnualCap.String(),
		ProratePartTime:   p.ProratePartTime,
	}
	for _, t := range p.Seniority.Sorted() {
		pj.Seniority = append(pj.Seniority, SeniorityTierJSON{
			ThresholdYears: t.ThresholdYears,
			BonusDays:      t.BonusDays.String(),
		})
	}
	return pj
}

// ParseLeaveType parses a JSON string into a LeaveType.
func (f *PolicyFactory) ParseLeaveType(jsonStr string) (leave.LeaveType, error) {
	var tj LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return leave.LeaveType{}, fmt.Errorf("failed to parse leave type JSON: %w", err)
	}
	if tj.ID == "" {
		return leave.LeaveType{}, fmt.Errorf("leave type id is required")
	}
	return leave.LeaveType{
		ID:               leave.LeaveTypeID(tj.ID),
		Name:             tj.Name,
		Paid:             tj.Paid,
		ConsumesBalance:  tj.ConsumesBalance,
		RequiresDocument: tj.RequiresDocument,
	}, nil
}

func parseDays(field, s string, required bool) (leave.Days, error) {
	if s == "" {
		if required {
			return leave.ZeroDays, fmt.Errorf("%s is required", field)
		}
		return leave.ZeroDays, nil
	}
	d, err := leave.ParseDays(s)
	if err != nil {
		return leave.ZeroDays, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d.IsNegative() {
		return leave.ZeroDays, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardConventionJSON builds the common one-year convention: a monthly
// rate over a June-to-May taking window with proration enabled.
func StandardConventionJSON(id, name string, referenceYear int, monthlyRate string) string {
	pj := PolicyJSON{
		ID:                id,
		Name:              name,
		ReferenceYear:     referenceYear,
		WindowStart:       fmt.Sprintf("%d-06-01", referenceYear),
		WindowEnd:         fmt.Sprintf("%d-05-31", referenceYear+1),
		MonthlyRate:       monthlyRate,
		PrincipalDuration: "30",
		MinMonthsRequired: 1,
		AnnualCap:         "30",
		ProratePartTime:   true,
	}
	b, _ := json.Marshal(pj)
	return string(b)
}

// DefaultLeaveTypes returns the statutory leave types a fresh deployment
// starts with.
func DefaultLeaveTypes() []leave.LeaveType {
	return []leave.LeaveType{
		{ID: "paid-leave", Name: "Paid leave", Paid: true, ConsumesBalance: true},
		{ID: "sick-leave", Name: "Sick leave", Paid: true, ConsumesBalance: false, RequiresDocument: true},
		{ID: "unpaid-leave", Name: "Unpaid leave", Paid: false, ConsumesBalance: false},
		{ID: "family-event", Name: "Family event", Paid: true, ConsumesBalance: false, RequiresDocument: true},
	}
}
