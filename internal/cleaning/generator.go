// Package cleaning turns upcoming reservations into cleaning tasks.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
	"github.com/turnover-ops/backend/internal/websocket"
)

// Result messages for generation runs that write nothing.
const (
	MessageNoReservations = "No relevant reservations found"
	MessageNoTasks        = "No tasks to generate"
	MessageGenerated      = "Cleaning tasks generated"
)

// Request selects what to generate tasks for.
type Request struct {
	PropertyID string `json:"property_id" validate:"required"`

	// ReservationIDs optionally restricts generation to these reservations
	ReservationIDs []string `json:"reservation_ids,omitempty"`
}

// Result summarizes a generation run.
type Result struct {
	Message                string `json:"message"`
	TasksCreated           int    `json:"tasks_created"`
	TasksUpdated           int    `json:"tasks_updated"`
	SkippedCompleted       int    `json:"skipped_completed"`
	ReservationsConsidered int    `json:"reservations_considered"`
}

// Generator creates and refreshes departure cleaning tasks.
type Generator struct {
	properties   *storage.PropertyRepository
	reservations *storage.ReservationRepository
	taskTypes    *storage.TaskTypeRepository
	tasks        *storage.TaskRepository
	events       *websocket.EventBroadcaster
	location     *time.Location
	now          func() time.Time
}

// NewGenerator creates a generator. loc is used for properties without
// their own timezone.
func NewGenerator(db *storage.DB, events *websocket.EventBroadcaster, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{
		properties:   storage.NewPropertyRepository(db),
		reservations: storage.NewReservationRepository(db),
		taskTypes:    storage.NewTaskTypeRepository(db),
		tasks:        storage.NewTaskRepository(db),
		events:       events,
		location:     loc,
		now:          time.Now,
	}
}

// SetClock replaces the generator's clock.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate creates a cleaning task on the end date of every confirmed
// reservation of the property that ends today or later. Tasks are tagged B2B
// when another reservation starts that day. Completed tasks are never
// touched.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	property, err := g.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, ErrPropertyNotFound
	}
	ownerID := property.Owner()
	if ownerID == "" {
		return nil, &ConfigurationError{PropertyID: property.ID, Reason: "property has no owning account"}
	}

	today := g.now().In(property.Location(g.location)).Format(models.DateLayout)

	reservations, err := g.reservations.ListConfirmedEndingFrom(ctx, ownerID, property.ID, today, req.ReservationIDs)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return &Result{Message: MessageNoReservations}, nil
	}

	taskType, err := g.taskTypes.GetByName(ctx, ownerID, models.TaskTypeClean)
	if err != nil {
		return nil, fmt.Errorf("resolving task type: %w", err)
	}
	if taskType == nil {
		return nil, &ConfigurationError{
			PropertyID: property.ID,
			Reason:     fmt.Sprintf("no %q task type registered for owner %s", models.TaskTypeClean, ownerID),
		}
	}

	result := &Result{ReservationsConsidered: len(reservations)}

	// Keyed so a repeated key within one run reconciles to the last task.
	batch := make(map[models.TaskKey]models.CleaningTask, len(reservations))
	isNew := make(map[models.TaskKey]bool, len(reservations))
	var order []models.TaskKey

	for _, r := range reservations {
		b2b, err := g.reservations.ExistsStartingOn(ctx, ownerID, property.ID, r.EndDate, r.ID)
		if err != nil {
			return nil, err
		}
		tag := models.PriorityDepartureClean
		if b2b {
			tag = models.PriorityB2B
		}

		reservationID := r.ID
		task := models.CleaningTask{
			OwnerID:       ownerID,
			PropertyID:    property.ID,
			ReservationID: &reservationID,
			TaskTypeID:    taskType.ID,
			PriorityTag:   tag,
			ScheduledDate: r.EndDate,
			Status:        models.TaskStatusUnassigned,
		}
		key := task.Key()

		existing, err := g.tasks.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.IsCompleted() {
			result.SkippedCompleted++
			continue
		}

		if _, seen := batch[key]; !seen {
			order = append(order, key)
		}
		batch[key] = task
		isNew[key] = existing == nil
	}

	if len(batch) == 0 {
		result.Message = MessageNoTasks
		return result, nil
	}

	tasks := make([]models.CleaningTask, 0, len(order))
	for _, key := range order {
		tasks = append(tasks, batch[key])
		if isNew[key] {
			result.TasksCreated++
		} else {
			result.TasksUpdated++
		}
	}

	_, skipped, err := g.tasks.UpsertGenerated(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("writing cleaning tasks: %w", err)
	}
	if skipped > 0 {
		// Completed between the lookup and the write.
		result.SkippedCompleted += skipped
		result.TasksUpdated -= min(skipped, result.TasksUpdated)
	}

	result.Message = MessageGenerated
	slog.Info("Cleaning tasks generated",
		"property_id", property.ID,
		"created", result.TasksCreated,
		"updated", result.TasksUpdated,
		"skipped_completed", result.SkippedCompleted)

	g.events.BroadcastTasksGenerated(ownerID, websocket.TasksGeneratedPayload{
		PropertyID:       property.ID,
		TasksCreated:     result.TasksCreated,
		TasksUpdated:     result.TasksUpdated,
		SkippedCompleted: result.SkippedCompleted,
	})

	return result, nil
}
