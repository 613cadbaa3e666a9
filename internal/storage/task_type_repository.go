package storage

import (
	"context"
	"fmt"

	"github.com/turnover-ops/backend/internal/storage/models"
)

// TaskTypeRepository provides data access for task types and cleaners.
type TaskTypeRepository struct {
	BaseRepository
}

// NewTaskTypeRepository creates a new task type repository.
func NewTaskTypeRepository(db *DB) *TaskTypeRepository {
	return &TaskTypeRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetByName retrieves an owner's task type by name. It returns nil when the
// owner has not registered it.
func (r *TaskTypeRepository) GetByName(ctx context.Context, ownerID, name string) (*models.TaskType, error) {
	var tt models.TaskType
	found, err := r.get(ctx, r.DB(), &tt,
		`SELECT id, owner_id, name, created_at FROM task_types WHERE owner_id = ? AND name = ?`, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("querying task type: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &tt, nil
}

// List retrieves all task types of an owner.
func (r *TaskTypeRepository) List(ctx context.Context, ownerID string) ([]models.TaskType, error) {
	types := []models.TaskType{}
	err := r.DB().SelectContext(ctx, &types, r.DB().Rebind(
		`SELECT id, owner_id, name, created_at FROM task_types WHERE owner_id = ? ORDER BY name`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying task types: %w", err)
	}
	return types, nil
}

// Create inserts a new task type.
func (r *TaskTypeRepository) Create(ctx context.Context, tt *models.TaskType) error {
	tt.ID = GenerateID()
	tt.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, r.DB().Rebind(
		`INSERT INTO task_types (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`),
		tt.ID, tt.OwnerID, tt.Name, tt.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting task type: %w", err)
	}
	return nil
}

// ListCleaners retrieves all cleaners of an owner.
func (r *TaskTypeRepository) ListCleaners(ctx context.Context, ownerID string) ([]models.Cleaner, error) {
	cleaners := []models.Cleaner{}
	err := r.DB().SelectContext(ctx, &cleaners, r.DB().Rebind(
		`SELECT id, owner_id, name, email, phone, created_at FROM cleaners WHERE owner_id = ? ORDER BY name`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying cleaners: %w", err)
	}
	return cleaners, nil
}

// GetCleaner retrieves a cleaner owned by ownerID. It returns nil when not found.
func (r *TaskTypeRepository) GetCleaner(ctx context.Context, ownerID, id string) (*models.Cleaner, error) {
	var c models.Cleaner
	found, err := r.get(ctx, r.DB(), &c,
		`SELECT id, owner_id, name, email, phone, created_at FROM cleaners WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying cleaner: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &c, nil
}

// CreateCleaner inserts a new cleaner.
func (r *TaskTypeRepository) CreateCleaner(ctx context.Context, c *models.Cleaner) error {
	c.ID = GenerateID()
	c.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, r.DB().Rebind(
		`INSERT INTO cleaners (id, owner_id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting cleaner: %w", err)
	}
	return nil
}
