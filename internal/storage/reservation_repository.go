package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/turnover-ops/backend/internal/storage/models"
)

const reservationColumns = `id, external_id, owner_id, property_id, feed_id, start_date, end_date,
	guest_name, booking_source, status, notes, created_at, updated_at`

// ReservationRepository provides data access for reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ListExternalIDs returns the set of external identifiers already stored for
// a property.
func (r *ReservationRepository) ListExternalIDs(ctx context.Context, ownerID, propertyID string) (map[string]bool, error) {
	var ids []string
	err := r.DB().SelectContext(ctx, &ids, r.DB().Rebind(
		`SELECT external_id FROM reservations WHERE owner_id = ? AND property_id = ?`), ownerID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying external ids: %w", err)
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return known, nil
}

// UpsertBatch writes records for one property in a single transaction, keyed
// by external identifier. Records repeated within the batch collapse to the
// last occurrence. known is the prefetched set from ListExternalIDs and is
// only used to split the counts into created and updated.
func (r *ReservationRepository) UpsertBatch(
	ctx context.Context,
	ownerID, propertyID string,
	feedID *string,
	records []models.ReservationRecord,
	known map[string]bool,
) (models.UpsertStats, error) {
	var stats models.UpsertStats

	order := make([]string, 0, len(records))
	byID := make(map[string]models.ReservationRecord, len(records))
	for _, rec := range records {
		if _, seen := byID[rec.ExternalID]; !seen {
			order = append(order, rec.ExternalID)
		}
		byID[rec.ExternalID] = rec
	}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO reservations (` + reservationColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (external_id) DO UPDATE SET
				property_id = excluded.property_id,
				feed_id = excluded.feed_id,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				guest_name = excluded.guest_name,
				booking_source = excluded.booking_source,
				status = excluded.status,
				notes = excluded.notes,
				updated_at = excluded.updated_at
			WHERE reservations.owner_id = excluded.owner_id
		`)

		for _, externalID := range order {
			rec := byID[externalID]
			now := r.Now()
			result, err := tx.ExecContext(ctx, query,
				GenerateID(), rec.ExternalID, ownerID, propertyID, feedID,
				rec.StartDate, rec.EndDate, rec.GuestName, rec.BookingSource,
				rec.Status, rec.Notes, now, now,
			)
			if err != nil {
				return fmt.Errorf("upserting reservation %s: %w", rec.ExternalID, err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				return fmt.Errorf("upserting reservation %s: %w", rec.ExternalID, ErrOwnershipConflict)
			}

			if known[rec.ExternalID] {
				stats.Updated++
			} else {
				stats.Created++
			}
		}
		return nil
	})
	if err != nil {
		return models.UpsertStats{}, err
	}

	return stats, nil
}

// GetByExternalID retrieves a reservation by its external identifier.
func (r *ReservationRepository) GetByExternalID(ctx context.Context, ownerID, externalID string) (*models.Reservation, error) {
	var res models.Reservation
	found, err := r.get(ctx, r.DB(), &res,
		`SELECT `+reservationColumns+` FROM reservations WHERE owner_id = ? AND external_id = ?`, ownerID, externalID)
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &res, nil
}

// ListByProperty retrieves a property's reservations ordered by start date.
func (r *ReservationRepository) ListByProperty(ctx context.Context, ownerID, propertyID string) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := r.DB().SelectContext(ctx, &reservations, r.DB().Rebind(
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE owner_id = ? AND property_id = ?
		 ORDER BY start_date, external_id`), ownerID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	return reservations, nil
}

// ListConfirmedEndingFrom retrieves confirmed reservations of a property whose
// end date is on or after fromDate. When ids is non-empty only those
// reservations are considered.
func (r *ReservationRepository) ListConfirmedEndingFrom(
	ctx context.Context,
	ownerID, propertyID, fromDate string,
	ids []string,
) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE owner_id = ? AND property_id = ? AND end_date >= ? AND status = ?`
	args := []any{ownerID, propertyID, fromDate, models.ReservationStatusConfirmed}

	if len(ids) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND id IN (?)`, append(args, ids)...)
		if err != nil {
			return nil, fmt.Errorf("building reservation query: %w", err)
		}
	}
	query += ` ORDER BY end_date, id`

	var reservations []models.Reservation
	if err := r.DB().SelectContext(ctx, &reservations, r.DB().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying upcoming reservations: %w", err)
	}
	return reservations, nil
}

// ExistsStartingOn reports whether a reservation other than excludeID starts
// on date at the same property.
func (r *ReservationRepository) ExistsStartingOn(ctx context.Context, ownerID, propertyID, date, excludeID string) (bool, error) {
	var count int
	err := r.DB().GetContext(ctx, &count, r.DB().Rebind(`
		SELECT COUNT(*) FROM reservations
		WHERE owner_id = ? AND property_id = ? AND start_date = ? AND id <> ?
	`), ownerID, propertyID, date, excludeID)
	if err != nil {
		return false, fmt.Errorf("checking back-to-back reservation: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of reservations stored for a property.
func (r *ReservationRepository) Count(ctx context.Context, ownerID, propertyID string) (int, error) {
	var count int
	err := r.DB().GetContext(ctx, &count, r.DB().Rebind(
		`SELECT COUNT(*) FROM reservations WHERE owner_id = ? AND property_id = ?`), ownerID, propertyID)
	if err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return count, nil
}
