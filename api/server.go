/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for admin frontends

SECURITY NOTE:
  Authentication happens upstream; the engine trusts the X-Actor-ID header
  and enforces only the domain-level rules (self-approval, Authorizer).

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Absence lifecycle
		r.Route("/absences", func(r chi.Router) {
			r.Post("/", h.CreateAbsence)
			r.Get("/pending", h.ListPending)
			r.Get("/{id}", h.GetAbsence)
			r.Delete("/{id}", h.DeleteAbsence)
			r.Get("/{id}/steps", h.GetSteps)
			r.Post("/{id}/submit", h.SubmitAbsence)
			r.Post("/{id}/decide/manager", h.DecideManager)
			r.Post("/{id}/decide/hr", h.DecideHR)
			r.Post("/{id}/cancel", h.CancelAbsence)
		})

		// Employee views and accrual operations
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/absences", h.ListEmployeeAbsences)
			r.Get("/balance", h.GetBalance)
			r.Get("/accrual", h.ComputeAccrual)
			r.Get("/accrual/verify", h.VerifyAccrual)
			r.Post("/accrual/refresh", h.RefreshAccrual)
			r.Post("/close-year", h.CloseYear)
			r.Put("/contract", h.PutContract)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/assignments", h.CreateAssignment)
		})

		// Leave type routes
		r.Route("/leave-types", func(r chi.Router) {
			r.Get("/", h.ListLeaveTypes)
			r.Post("/", h.CreateLeaveType)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
