package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/turnover-ops/backend/internal/storage/models"
)

const taskColumns = `id, owner_id, property_id, reservation_id, task_type_id, priority_tag,
	scheduled_date, status, cleaner_id, notes, completed_at, created_at, updated_at`

// TaskFilter narrows a task listing. Empty fields are ignored.
type TaskFilter struct {
	OwnerID    string
	PropertyID string
	Date       string
	Status     string
}

// TaskRepository provides data access for cleaning tasks.
type TaskRepository struct {
	BaseRepository
}

// NewTaskRepository creates a new cleaning task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetByID retrieves a task owned by ownerID. It returns nil when not found.
func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id string) (*models.CleaningTask, error) {
	var task models.CleaningTask
	found, err := r.get(ctx, r.DB(), &task,
		`SELECT `+taskColumns+` FROM cleaning_tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &task, nil
}

// GetByKey retrieves the task for an idempotence key. It returns nil when no
// task exists yet.
func (r *TaskRepository) GetByKey(ctx context.Context, key models.TaskKey) (*models.CleaningTask, error) {
	var task models.CleaningTask
	found, err := r.get(ctx, r.DB(), &task, `
		SELECT `+taskColumns+` FROM cleaning_tasks
		WHERE reservation_id = ? AND task_type_id = ? AND scheduled_date = ?
	`, key.ReservationID, key.TaskTypeID, key.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("querying task by key: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &task, nil
}

// UpsertGenerated writes generated tasks keyed by (reservation, task type,
// scheduled date) in one transaction. Existing rows get their generated
// fields refreshed unless they are already completed; those are left
// untouched and reported as skipped.
func (r *TaskRepository) UpsertGenerated(ctx context.Context, tasks []models.CleaningTask) (written, skipped int, err error) {
	err = r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO cleaning_tasks (` + taskColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (reservation_id, task_type_id, scheduled_date) DO UPDATE SET
				property_id = excluded.property_id,
				priority_tag = excluded.priority_tag,
				updated_at = excluded.updated_at
			WHERE cleaning_tasks.status <> 'Completed'
			  AND cleaning_tasks.owner_id = excluded.owner_id
		`)

		for i := range tasks {
			t := &tasks[i]
			if t.ID == "" {
				t.ID = GenerateID()
			}
			if t.Status == "" {
				t.Status = models.TaskStatusUnassigned
			}
			now := r.Now()
			t.CreatedAt, t.UpdatedAt = now, now

			result, err := tx.ExecContext(ctx, query,
				t.ID, t.OwnerID, t.PropertyID, t.ReservationID, t.TaskTypeID, t.PriorityTag,
				t.ScheduledDate, t.Status, t.CleanerID, t.Notes, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("upserting task for %s: %w", t.ScheduledDate, err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				skipped++
				continue
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return written, skipped, nil
}

// Create inserts a manually created task.
func (r *TaskRepository) Create(ctx context.Context, t *models.CleaningTask) error {
	t.ID = GenerateID()
	t.CreatedAt = r.Now()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = models.TaskStatusUnassigned
	}

	_, err := r.DB().ExecContext(ctx, r.DB().Rebind(`
		INSERT INTO cleaning_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.OwnerID, t.PropertyID, t.ReservationID, t.TaskTypeID, t.PriorityTag,
		t.ScheduledDate, t.Status, t.CleanerID, t.Notes, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// List retrieves tasks matching the filter ordered by scheduled date.
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) ([]models.CleaningTask, error) {
	query := `SELECT ` + taskColumns + ` FROM cleaning_tasks WHERE owner_id = ?`
	args := []any{f.OwnerID}

	if f.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, f.PropertyID)
	}
	if f.Date != "" {
		query += ` AND scheduled_date = ?`
		args = append(args, f.Date)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY scheduled_date, priority_tag, id`

	tasks := []models.CleaningTask{}
	if err := r.DB().SelectContext(ctx, &tasks, r.DB().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// Update persists status, assignment and notes of an existing task.
func (r *TaskRepository) Update(ctx context.Context, t *models.CleaningTask) error {
	t.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, r.DB().Rebind(`
		UPDATE cleaning_tasks SET
			status = ?, cleaner_id = ?, notes = ?, priority_tag = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`), t.Status, t.CleanerID, t.Notes, t.PriorityTag, t.CompletedAt, t.UpdatedAt, t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}
