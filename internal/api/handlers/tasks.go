package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/turnover-ops/backend/internal/api/middleware"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
	"github.com/turnover-ops/backend/internal/websocket"
)

// CreateTaskTypeRequest is the body of POST /api/task-types.
type CreateTaskTypeRequest struct {
	PlatformUserID string `json:"platform_user_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
}

// CreateCleanerRequest is the body of POST /api/cleaners.
type CreateCleanerRequest struct {
	PlatformUserID string  `json:"platform_user_id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone"`
}

// UpdateTaskRequest is the body of PATCH /api/cleaning-tasks/{id}. Absent
// fields are left unchanged; an empty cleaner_id unassigns the task.
type UpdateTaskRequest struct {
	PlatformUserID string  `json:"platform_user_id" validate:"required"`
	Status         *string `json:"status"`
	CleanerID      *string `json:"cleaner_id"`
	Notes          *string `json:"notes"`
}

// ListTaskTypes returns an owner's task types.
func ListTaskTypes(db *storage.DB) http.HandlerFunc {
	repo := storage.NewTaskTypeRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		types, err := repo.List(r.Context(), owner)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task types")
			return
		}
		writeJSON(w, http.StatusOK, types)
	}
}

// CreateTaskType registers a task type such as "Clean" for an owner.
func CreateTaskType(db *storage.DB) http.HandlerFunc {
	repo := storage.NewTaskTypeRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskTypeRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)

		existing, err := repo.GetByName(r.Context(), req.PlatformUserID, name)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task types")
			return
		}
		if existing != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Task type already exists")
			return
		}

		tt := &models.TaskType{OwnerID: req.PlatformUserID, Name: name}
		if err := repo.Create(r.Context(), tt); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create task type")
			return
		}
		writeJSON(w, http.StatusCreated, tt)
	}
}

// ListCleaners returns an owner's cleaners.
func ListCleaners(db *storage.DB) http.HandlerFunc {
	repo := storage.NewTaskTypeRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		cleaners, err := repo.ListCleaners(r.Context(), owner)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query cleaners")
			return
		}
		writeJSON(w, http.StatusOK, cleaners)
	}
}

// CreateCleaner adds a cleaner for an owner.
func CreateCleaner(db *storage.DB) http.HandlerFunc {
	repo := storage.NewTaskTypeRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateCleanerRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		c := &models.Cleaner{
			OwnerID: req.PlatformUserID,
			Name:    strings.TrimSpace(req.Name),
			Email:   req.Email,
			Phone:   req.Phone,
		}
		if err := repo.CreateCleaner(r.Context(), c); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create cleaner")
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// ListCleaningTasks returns an owner's tasks, optionally filtered by
// property_id, date and status.
func ListCleaningTasks(db *storage.DB) http.HandlerFunc {
	repo := storage.NewTaskRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := storage.TaskFilter{
			OwnerID:    owner,
			PropertyID: q.Get("property_id"),
			Date:       q.Get("date"),
			Status:     q.Get("status"),
		}
		if filter.Date != "" {
			if _, err := time.Parse(models.DateLayout, filter.Date); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must be YYYY-MM-DD")
				return
			}
		}
		if filter.Status != "" && !models.ValidTaskStatus(filter.Status) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown task status")
			return
		}

		tasks, err := repo.List(r.Context(), filter)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query tasks")
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

// UpdateCleaningTask assigns a cleaner, changes status or edits notes.
// Moving a task to Completed stamps completed_at.
func UpdateCleaningTask(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	tasks := storage.NewTaskRepository(db)
	cleaners := storage.NewTaskTypeRepository(db)
	events := websocket.NewEventBroadcaster(hub)
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateTaskRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		ctx := r.Context()

		task, err := tasks.GetByID(ctx, req.PlatformUserID, mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
			return
		}
		if task == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
			return
		}

		if req.CleanerID != nil {
			if *req.CleanerID == "" {
				task.CleanerID = nil
			} else {
				cleaner, err := cleaners.GetCleaner(ctx, req.PlatformUserID, *req.CleanerID)
				if err != nil {
					middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query cleaner")
					return
				}
				if cleaner == nil {
					middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown cleaner")
					return
				}
				task.CleanerID = &cleaner.ID
				if task.Status == models.TaskStatusUnassigned && req.Status == nil {
					task.Status = models.TaskStatusAssigned
				}
			}
		}

		if req.Status != nil {
			if !models.ValidTaskStatus(*req.Status) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown task status")
				return
			}
			task.Status = *req.Status
		}

		switch {
		case task.Status == models.TaskStatusCompleted && task.CompletedAt == nil:
			now := time.Now().UTC()
			task.CompletedAt = &now
		case task.Status != models.TaskStatusCompleted:
			task.CompletedAt = nil
		}

		if req.Notes != nil {
			task.Notes = req.Notes
		}

		if err := tasks.Update(ctx, task); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update task")
			return
		}

		events.BroadcastTaskUpdated(task)
		writeJSON(w, http.StatusOK, task)
	}
}
