// Package models contains the domain models for the application.
package models

import (
	"time"
)

// ICalFeed is an external booking calendar attached to a property.
type ICalFeed struct {
	ID             string     `db:"id" json:"id"`
	PropertyID     string     `db:"property_id" json:"property_id"`
	URL            string     `db:"url" json:"url"`
	Platform       *string    `db:"platform" json:"platform,omitempty"`
	Active         bool       `db:"active" json:"active"`
	SyncStatus     string     `db:"sync_status" json:"sync_status"`
	SyncError      *string    `db:"sync_error" json:"sync_error,omitempty"`
	LastSyncAt     *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	EventsAccepted int        `db:"events_accepted" json:"events_accepted"`
	EventsRejected int        `db:"events_rejected" json:"events_rejected"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncStatus constants
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// PlatformLabel returns the feed's platform tag or an empty string.
func (f *ICalFeed) PlatformLabel() string {
	if f.Platform == nil {
		return ""
	}
	return *f.Platform
}
