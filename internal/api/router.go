// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/turnover-ops/backend/internal/api/handlers"
	"github.com/turnover-ops/backend/internal/api/middleware"
	"github.com/turnover-ops/backend/internal/calendar"
	"github.com/turnover-ops/backend/internal/cleaning"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/websocket"
)

// Services are the dependencies the routes are wired to.
type Services struct {
	DB           *storage.DB
	Hub          *websocket.Hub
	Generator    *cleaning.Generator
	Sync         *calendar.SyncService
	Orchestrator *calendar.Orchestrator

	// ServiceKey guards every route except health and ws when non-empty
	ServiceKey string

	// Location is the operating timezone reported by the health check
	Location *time.Location

	// StaticDir optionally serves a dashboard build at /
	StaticDir string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	api := r.PathPrefix("/api").Subrouter()

	// Open endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, loc)).Methods("GET")
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Everything else reads or changes owner data, or makes the server
	// fetch feed URLs, and requires the service key.
	secured := api.NewRoute().Subrouter()
	secured.Use(middleware.ServiceKey(s.ServiceKey))

	// Pipeline endpoints
	secured.HandleFunc("/generate-cleaning-tasks", handlers.GenerateCleaningTasks(s.Generator)).Methods("POST")
	secured.HandleFunc("/sync-ical", handlers.SyncICal(s.Sync)).Methods("POST")
	secured.HandleFunc("/sync-ical-all", handlers.SyncICalAll(s.Orchestrator)).Methods("GET")
	secured.HandleFunc("/property/{id}/icals", handlers.ListPropertyFeeds(s.DB)).Methods("GET")
	secured.HandleFunc("/property/{id}/has-ical", handlers.HasICal(s.DB)).Methods("GET")

	// Property and feed endpoints
	secured.HandleFunc("/properties", handlers.ListProperties(s.DB)).Methods("GET")
	secured.HandleFunc("/properties", handlers.CreateProperty(s.DB)).Methods("POST")
	secured.HandleFunc("/property/{id}/icals", handlers.CreateFeed(s.DB)).Methods("POST")
	secured.HandleFunc("/property/{id}/reservations", handlers.ListReservations(s.DB)).Methods("GET")
	secured.HandleFunc("/icals/{id}", handlers.UpdateFeed(s.DB)).Methods("PUT")
	secured.HandleFunc("/icals/{id}", handlers.DeleteFeed(s.DB)).Methods("DELETE")

	// Task endpoints
	secured.HandleFunc("/task-types", handlers.ListTaskTypes(s.DB)).Methods("GET")
	secured.HandleFunc("/task-types", handlers.CreateTaskType(s.DB)).Methods("POST")
	secured.HandleFunc("/cleaners", handlers.ListCleaners(s.DB)).Methods("GET")
	secured.HandleFunc("/cleaners", handlers.CreateCleaner(s.DB)).Methods("POST")
	secured.HandleFunc("/cleaning-tasks", handlers.ListCleaningTasks(s.DB)).Methods("GET")
	secured.HandleFunc("/cleaning-tasks/{id}", handlers.UpdateCleaningTask(s.DB, s.Hub)).Methods("PATCH")

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}
