package leave

import "time"

// =============================================================================
// DOMAIN EVENTS - Returned from workflow transitions
// =============================================================================

// EventKind enumerates the notifications a transition can produce. The
// engine returns events explicitly instead of firing global hooks; the
// caller forwards them to its notification gateway, synchronously or via a
// queue.
type EventKind string

const (
	EventRequestCreated   EventKind = "request_created"
	EventManagerApproved  EventKind = "manager_approved"
	EventManagerRejected  EventKind = "manager_rejected"
	EventHRApproved       EventKind = "hr_approved"
	EventHRRejected       EventKind = "hr_rejected"
	EventRequestCancelled EventKind = "request_cancelled"
)

// Event describes one notification-worthy outcome of a transition.
type Event struct {
	Kind       EventKind
	AbsenceID  AbsenceID
	EmployeeID EmployeeID
	ActorID    EmployeeID
	Comment    string
	At         time.Time
}

func newEvent(kind EventKind, a *Absence, actor EmployeeID, comment string, at time.Time) Event {
	return Event{
		Kind:       kind,
		AbsenceID:  a.ID,
		EmployeeID: a.EmployeeID,
		ActorID:    actor,
		Comment:    comment,
		At:         at,
	}
}
