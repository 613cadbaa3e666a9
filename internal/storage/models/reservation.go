package models

import "time"

// ReservationStatusConfirmed is the default reservation status.
const ReservationStatusConfirmed = "confirmed"

// DateLayout is the calendar-day layout used for reservation and task dates.
const DateLayout = "2006-01-02"

// Reservation is one guest stay ingested from a booking calendar.
type Reservation struct {
	ID            string    `db:"id" json:"id"`
	ExternalID    string    `db:"external_id" json:"external_id"`
	OwnerID       string    `db:"owner_id" json:"owner_id"`
	PropertyID    string    `db:"property_id" json:"property_id"`
	FeedID        *string   `db:"feed_id" json:"feed_id,omitempty"`
	StartDate     string    `db:"start_date" json:"start_date"`
	EndDate       string    `db:"end_date" json:"end_date"`
	GuestName     *string   `db:"guest_name" json:"guest_name"`
	BookingSource string    `db:"booking_source" json:"booking_source"`
	Status        string    `db:"status" json:"status"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ReservationRecord is a normalized reservation ready to be upserted.
type ReservationRecord struct {
	ExternalID    string  `json:"external_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	GuestName     *string `json:"guest_name"`
	BookingSource string  `json:"booking_source"`
	Status        string  `json:"status"`
	Notes         *string `json:"notes,omitempty"`
}

// UpsertStats counts the outcome of a reservation upsert batch.
type UpsertStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
