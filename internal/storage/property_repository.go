package storage

import (
	"context"
	"fmt"

	"github.com/turnover-ops/backend/internal/storage/models"
)

const propertyColumns = `id, name, owner_id, timezone, active, created_at, updated_at`

// PropertyRepository provides data access for properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	p.ID = GenerateID()
	p.CreatedAt = r.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.DB().ExecContext(ctx, r.DB().Rebind(`
		INSERT INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.Name, p.OwnerID, p.Timezone, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by its ID. It returns nil when not found.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	found, err := r.get(ctx, r.DB(), &p, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// GetOwned retrieves a property only if it belongs to ownerID.
func (r *PropertyRepository) GetOwned(ctx context.Context, id, ownerID string) (*models.Property, error) {
	var p models.Property
	found, err := r.get(ctx, r.DB(), &p,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// ListByOwner retrieves all properties for an owner.
func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Property, error) {
	properties := []models.Property{}
	err := r.DB().SelectContext(ctx, &properties, r.DB().Rebind(
		`SELECT `+propertyColumns+` FROM properties WHERE owner_id = ? ORDER BY name`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	return properties, nil
}

// ListActive retrieves every active property, owned or not, oldest first.
func (r *PropertyRepository) ListActive(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	err := r.DB().SelectContext(ctx, &properties,
		`SELECT `+propertyColumns+` FROM properties WHERE active = TRUE ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying active properties: %w", err)
	}
	return properties, nil
}
