/*
scheduler.go - Scheduled accrual refresh

PURPOSE:
  Periodically recomputes earned days for every employee with an active
  convention assignment and upserts the balance records. This keeps the
  stored figures close to the engine's truth between on-demand refreshes;
  the recompute-and-diff endpoint reports any drift that slips through.

DESIGN:
  - robfig/cron drives the schedule (default: nightly at 02:00)
  - Each employee refreshes inside their own unit of work, so a running
    batch never blocks interactive transitions for other employees
  - Refresh is idempotent: the engine is a pure function of its inputs

USAGE:
  s := NewAccrualScheduler(store, wf, log, "0 2 * * *")
  s.Start()
  // ... later
  s.Stop()

SEE ALSO:
  - handlers.go: RefreshAccrual endpoint (manual refresh)
  - leave/workflow.go: RefreshAccrual
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

const defaultAccrualSchedule = "0 2 * * *"

// AccrualScheduler runs the nightly accrual refresh batch.
type AccrualScheduler struct {
	Store    *sqlite.Store
	Workflow *leave.Workflow
	Log      *logrus.Logger
	Spec     string

	cron *cron.Cron
}

// NewAccrualScheduler creates a scheduler with the given cron spec
// (empty for the default nightly run).
func NewAccrualScheduler(store *sqlite.Store, wf *leave.Workflow, log *logrus.Logger, spec string) *AccrualScheduler {
	if spec == "" {
		spec = defaultAccrualSchedule
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AccrualScheduler{
		Store:    store,
		Workflow: wf,
		Log:      log,
		Spec:     spec,
	}
}

// Start registers the batch job and begins the cron loop.
func (s *AccrualScheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Spec, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.Log.WithField("spec", s.Spec).Info("accrual scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running batch to finish.
func (s *AccrualScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.Log.Info("accrual scheduler stopped")
	}
}

// RunOnce refreshes the accrual of every employee with an assignment
// active today, for the reference year currently being earned.
func (s *AccrualScheduler) RunOnce() {
	ctx := context.Background()
	today := leave.Today()
	year := today.Year() // the reference year currently being earned

	assignments, err := s.Store.AllActiveAssignments(ctx, today)
	if err != nil {
		s.Log.WithError(err).Error("accrual batch: listing assignments failed")
		return
	}

	refreshed := 0
	failed := 0
	for _, a := range assignments {
		if _, err := s.Workflow.RefreshAccrual(ctx, a.EmployeeID, year, today); err != nil {
			failed++
			s.Log.WithError(err).WithField("employee", a.EmployeeID).
				Warn("accrual batch: refresh failed")
			continue
		}
		refreshed++
	}

	s.Log.WithFields(logrus.Fields{
		"year":      year,
		"refreshed": refreshed,
		"failed":    failed,
	}).Info("accrual batch completed")
}
