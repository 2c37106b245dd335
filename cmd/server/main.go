/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Seed default leave types on an empty database
  4. Wire workflow, handler and router
  5. Start the accrual scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables:
    -port        HTTP server port          (PORT, default 8080)
    -db          SQLite database path      (DATABASE_PATH, default leave.db)
                 Use ":memory:" for an in-memory database
    -cron        Accrual refresh schedule  (ACCRUAL_CRON, default "0 2 * * *")
    -log-level   logrus level              (LOG_LEVEL, default info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Accrual refresh batch
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "leave.db"), "SQLite database path")
	cronSpec := flag.String("cron", envStr("ACCRUAL_CRON", ""), "accrual refresh cron spec")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	ctx := context.Background()
	if err := seedLeaveTypes(ctx, store); err != nil {
		log.WithError(err).Warn("failed to seed default leave types")
	}

	resolver := &leave.AssignmentResolver{Assignments: store, Policies: store}
	wf := leave.NewWorkflow(store, store, resolver, store, nil)

	handler := api.NewHandler(store, wf, log)
	router := api.NewRouter(handler)

	scheduler := api.NewAccrualScheduler(store, wf, log, *cronSpec)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("failed to start accrual scheduler")
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

// seedLeaveTypes inserts the statutory defaults when none exist yet.
func seedLeaveTypes(ctx context.Context, store *sqlite.Store) error {
	existing, err := store.LeaveTypes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, lt := range factory.DefaultLeaveTypes() {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
