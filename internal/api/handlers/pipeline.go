package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/turnover-ops/backend/internal/api/middleware"
	"github.com/turnover-ops/backend/internal/calendar"
	"github.com/turnover-ops/backend/internal/cleaning"
)

// Pipeline failure summaries returned in the "error" field.
const (
	MsgGenerationFailed = "Failed to generate cleaning tasks"
	MsgPartialSync      = "Reservations saved, but task generation failed"
	MsgWriteFailed      = "Failed to save reservations"
	MsgSyncFailed       = "Calendar sync failed"
)

// SyncICalRequest is the body of POST /api/sync-ical.
type SyncICalRequest struct {
	PropertyID     string `json:"property_id" validate:"required"`
	PlatformUserID string `json:"platform_user_id" validate:"required"`
}

// SyncICalResponse is the successful result of POST /api/sync-ical.
type SyncICalResponse struct {
	Message            string                `json:"message"`
	SyncedReservations int                   `json:"synced_reservations"`
	Feeds              []calendar.FeedResult `json:"feeds"`
	TaskGeneration     *cleaning.Result      `json:"task_generation"`
}

// PartialSyncDetails accompanies a partial-failure response.
type PartialSyncDetails struct {
	SyncedReservations int                   `json:"synced_reservations"`
	Feeds              []calendar.FeedResult `json:"feeds"`
	Error              string                `json:"error"`
}

// GenerateCleaningTasks creates or refreshes the cleaning tasks of a property.
func GenerateCleaningTasks(gen *cleaning.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cleaning.Request
		if !decodeRequest(w, r, &req) {
			return
		}

		result, err := gen.Generate(r.Context(), req)
		if err != nil {
			if errors.Is(err, cleaning.ErrPropertyNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
				return
			}
			slog.Error("Task generation failed", "property_id", req.PropertyID, "error", err)
			middleware.WriteFailure(w, http.StatusInternalServerError, MsgGenerationFailed, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// SyncICal syncs every active feed of one property and generates its tasks.
func SyncICal(svc *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncICalRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		// A dropped client must not abort a half-written sync.
		ctx := context.WithoutCancel(r.Context())
		result, err := svc.SyncProperty(ctx, req.PropertyID, req.PlatformUserID)

		var writeErr *calendar.WriteError
		switch {
		case err == nil:
		case errors.Is(err, calendar.ErrPropertyNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		case errors.Is(err, calendar.ErrTaskGeneration):
			middleware.WriteErrorWithDetails(w, http.StatusInternalServerError, MsgPartialSync, "", PartialSyncDetails{
				SyncedReservations: result.SyncedReservations,
				Feeds:              result.Feeds,
				Error:              result.TaskGenerationError,
			})
			return
		case errors.As(err, &writeErr):
			middleware.WriteFailure(w, http.StatusInternalServerError, MsgWriteFailed, err)
			return
		default:
			slog.Error("Calendar sync failed", "property_id", req.PropertyID, "error", err)
			middleware.WriteFailure(w, http.StatusInternalServerError, MsgSyncFailed, err)
			return
		}

		writeJSON(w, http.StatusOK, SyncICalResponse{
			Message:            "Calendar sync completed",
			SyncedReservations: result.SyncedReservations,
			Feeds:              result.Feeds,
			TaskGeneration:     result.TaskGeneration,
		})
	}
}

// SyncICalAll runs the bulk sync across every active property.
func SyncICalAll(orchestrator *calendar.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := orchestrator.SyncAll(context.WithoutCancel(r.Context()))
		if err != nil {
			if errors.Is(err, calendar.ErrSyncInProgress) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "A bulk sync is already in progress")
				return
			}
			slog.Error("Bulk sync failed", "error", err)
			middleware.WriteFailure(w, http.StatusInternalServerError, MsgSyncFailed, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
