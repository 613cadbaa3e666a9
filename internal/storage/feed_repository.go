package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/turnover-ops/backend/internal/storage/models"
)

const feedColumns = `id, property_id, url, platform, active, sync_status, sync_error,
	last_sync_at, events_accepted, events_rejected, created_at, updated_at`

// FeedRepository provides data access for iCal feeds.
type FeedRepository struct {
	BaseRepository
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new feed for a property.
func (r *FeedRepository) Create(ctx context.Context, feed *models.ICalFeed) error {
	feed.ID = GenerateID()
	feed.CreatedAt = r.Now()
	feed.UpdatedAt = feed.CreatedAt
	feed.SyncStatus = models.SyncStatusPending

	_, err := r.DB().ExecContext(ctx, r.DB().Rebind(`
		INSERT INTO ical_feeds (id, property_id, url, platform, active, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), feed.ID, feed.PropertyID, feed.URL, feed.Platform, feed.Active, feed.SyncStatus, feed.CreatedAt, feed.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting feed: %w", err)
	}

	return nil
}

// GetByID retrieves a feed by its ID. It returns nil when not found.
func (r *FeedRepository) GetByID(ctx context.Context, id string) (*models.ICalFeed, error) {
	var feed models.ICalFeed
	found, err := r.get(ctx, r.DB(), &feed, `SELECT `+feedColumns+` FROM ical_feeds WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying feed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &feed, nil
}

// ListByProperty retrieves all feeds for a property.
func (r *FeedRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.ICalFeed, error) {
	feeds := []models.ICalFeed{}
	err := r.DB().SelectContext(ctx, &feeds, r.DB().Rebind(
		`SELECT `+feedColumns+` FROM ical_feeds WHERE property_id = ? ORDER BY created_at, id`), propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying feeds: %w", err)
	}
	return feeds, nil
}

// ListActiveByProperty retrieves the active feeds for a property.
func (r *FeedRepository) ListActiveByProperty(ctx context.Context, propertyID string) ([]models.ICalFeed, error) {
	var feeds []models.ICalFeed
	err := r.DB().SelectContext(ctx, &feeds, r.DB().Rebind(
		`SELECT `+feedColumns+` FROM ical_feeds WHERE property_id = ? AND active = TRUE ORDER BY created_at, id`), propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying active feeds: %w", err)
	}
	return feeds, nil
}

// HasActive reports whether a property has at least one active feed.
func (r *FeedRepository) HasActive(ctx context.Context, propertyID string) (bool, error) {
	var count int
	err := r.DB().GetContext(ctx, &count, r.DB().Rebind(
		`SELECT COUNT(*) FROM ical_feeds WHERE property_id = ? AND active = TRUE`), propertyID)
	if err != nil {
		return false, fmt.Errorf("counting feeds: %w", err)
	}
	return count > 0, nil
}

// Update changes a feed's URL, platform and active flag.
func (r *FeedRepository) Update(ctx context.Context, feed *models.ICalFeed) error {
	feed.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, r.DB().Rebind(`
		UPDATE ical_feeds SET url = ?, platform = ?, active = ?, updated_at = ?
		WHERE id = ?
	`), feed.URL, feed.Platform, feed.Active, feed.UpdatedAt, feed.ID)
	if err != nil {
		return fmt.Errorf("updating feed: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("feed %s: %w", feed.ID, ErrNotFound)
	}
	return nil
}

// UpdateSyncStatus records the outcome of a feed sync. accepted and rejected
// are only stored on success.
func (r *FeedRepository) UpdateSyncStatus(ctx context.Context, id, status string, syncError *string, accepted, rejected int) error {
	now := time.Now().UTC()

	var err error
	if status == models.SyncStatusSuccess {
		_, err = r.DB().ExecContext(ctx, r.DB().Rebind(`
			UPDATE ical_feeds SET
				sync_status = ?, sync_error = NULL, last_sync_at = ?,
				events_accepted = ?, events_rejected = ?, updated_at = ?
			WHERE id = ?
		`), status, now, accepted, rejected, now, id)
	} else {
		_, err = r.DB().ExecContext(ctx, r.DB().Rebind(`
			UPDATE ical_feeds SET sync_status = ?, sync_error = ?, updated_at = ?
			WHERE id = ?
		`), status, syncError, now, id)
	}
	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a feed by ID.
func (r *FeedRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, r.DB().Rebind("DELETE FROM ical_feeds WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting feed: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}
	return nil
}
