package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/turnover-ops/backend/internal/cleaning"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
	"github.com/turnover-ops/backend/internal/websocket"
)

// Per-feed and per-property result statuses.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// TaskTrigger requests cleaning task generation for a property once its
// feeds have been synced.
type TaskTrigger interface {
	Trigger(ctx context.Context, propertyID string) (*cleaning.Result, error)
}

// FeedResult is the outcome of syncing one feed.
type FeedResult struct {
	FeedID         string          `json:"feed_id"`
	URL            string          `json:"ical_url"`
	Status         string          `json:"status"`
	Created        int             `json:"created"`
	Updated        int             `json:"updated"`
	Rejected       int             `json:"rejected"`
	RejectedEvents []RejectedEvent `json:"rejected_events,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// PropertySyncResult is the outcome of syncing every active feed of a
// property.
type PropertySyncResult struct {
	PropertyID          string           `json:"property_id"`
	SyncedReservations  int              `json:"synced_reservations"`
	Feeds               []FeedResult     `json:"feeds"`
	TaskGeneration      *cleaning.Result `json:"task_generation,omitempty"`
	TaskGenerationError string           `json:"-"`
}

// SyncService ingests the feeds of a property and then triggers cleaning
// task generation for it.
type SyncService struct {
	properties   *storage.PropertyRepository
	feeds        *storage.FeedRepository
	reservations *storage.ReservationRepository
	fetcher      *Fetcher
	trigger      TaskTrigger
	events       *websocket.EventBroadcaster
	location     *time.Location
}

// NewSyncService creates a new calendar sync service. loc applies to
// properties without their own timezone.
func NewSyncService(
	db *storage.DB,
	fetcher *Fetcher,
	trigger TaskTrigger,
	events *websocket.EventBroadcaster,
	loc *time.Location,
) *SyncService {
	if loc == nil {
		loc = time.UTC
	}
	return &SyncService{
		properties:   storage.NewPropertyRepository(db),
		feeds:        storage.NewFeedRepository(db),
		reservations: storage.NewReservationRepository(db),
		fetcher:      fetcher,
		trigger:      trigger,
		events:       events,
		location:     loc,
	}
}

// SyncProperty syncs every active feed of a property owned by ownerID, then
// triggers task generation once.
//
// Fetch and parse failures are recorded on the feed and do not stop the
// remaining feeds. A *WriteError aborts the property. When reservations were
// saved but task generation failed, the result is returned together with an
// error wrapping ErrTaskGeneration.
func (s *SyncService) SyncProperty(ctx context.Context, propertyID, ownerID string) (*PropertySyncResult, error) {
	property, err := s.properties.GetOwned(ctx, propertyID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, ErrPropertyNotFound
	}

	feeds, err := s.feeds.ListActiveByProperty(ctx, property.ID)
	if err != nil {
		return nil, err
	}

	// Prefetched once per property; only used to split created/updated.
	known, err := s.reservations.ListExternalIDs(ctx, ownerID, property.ID)
	if err != nil {
		return nil, err
	}

	loc := property.Location(s.location)
	result := &PropertySyncResult{PropertyID: property.ID, Feeds: make([]FeedResult, 0, len(feeds))}

	for i := range feeds {
		feed := &feeds[i]
		fr, err := s.syncFeed(ctx, property, feed, loc, known)
		result.Feeds = append(result.Feeds, fr)
		result.SyncedReservations += fr.Created + fr.Updated

		var writeErr *WriteError
		if errors.As(err, &writeErr) {
			s.events.BroadcastCalendarSyncError(property, feed, "write_error", err)
			return result, err
		}
	}

	generation, err := s.trigger.Trigger(ctx, property.ID)
	if err != nil {
		slog.Error("Task generation failed after sync",
			"property_id", property.ID, "synced_reservations", result.SyncedReservations, "error", err)
		result.TaskGenerationError = err.Error()
		s.events.BroadcastCalendarSyncError(property, nil, "task_generation_error", err)
		return result, fmt.Errorf("%w: %v", ErrTaskGeneration, err)
	}
	result.TaskGeneration = generation

	s.events.BroadcastCalendarSyncCompleted(ownerID, s.completedPayload(property, result))
	return result, nil
}

// syncFeed fetches, parses, normalizes and stores one feed. The returned
// error is a *FetchError, a parse error, or a *WriteError; in every case
// the FeedResult describes the outcome.
func (s *SyncService) syncFeed(
	ctx context.Context,
	property *models.Property,
	feed *models.ICalFeed,
	loc *time.Location,
	known map[string]bool,
) (FeedResult, error) {
	fr := FeedResult{FeedID: feed.ID, URL: feed.URL}
	log := slog.With("property_id", property.ID, "feed_id", feed.ID)

	if err := s.feeds.UpdateSyncStatus(ctx, feed.ID, models.SyncStatusSyncing, nil, 0, 0); err != nil {
		log.Warn("Failed to update sync status", "error", err)
	}

	body, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return s.feedFailed(ctx, property, feed, fr, "fetch_error", err), err
	}

	events, err := Parse(strings.NewReader(body))
	if err != nil {
		return s.feedFailed(ctx, property, feed, fr, "parse_error", err), err
	}

	normalized := Normalize(events, feed.URL, feed.Platform, loc)
	fr.Rejected = len(normalized.Rejected)
	fr.RejectedEvents = normalized.Rejected
	for _, r := range normalized.Rejected {
		log.Debug("Skipped calendar event", "uid", r.UID, "reason", r.Reason)
	}

	stats, err := s.reservations.UpsertBatch(ctx, property.Owner(), property.ID, &feed.ID, normalized.Accepted, known)
	if err != nil {
		werr := &WriteError{PropertyID: property.ID, Err: err}
		msg := werr.Error()
		if serr := s.feeds.UpdateSyncStatus(ctx, feed.ID, models.SyncStatusError, &msg, 0, 0); serr != nil {
			log.Warn("Failed to update sync status", "error", serr)
		}
		fr.Status = StatusFailed
		fr.Error = msg
		log.Error("Failed to save reservations", "error", err)
		return fr, werr
	}
	for _, rec := range normalized.Accepted {
		known[rec.ExternalID] = true
	}

	fr.Status = StatusSuccess
	fr.Created = stats.Created
	fr.Updated = stats.Updated

	if err := s.feeds.UpdateSyncStatus(ctx, feed.ID, models.SyncStatusSuccess, nil, len(normalized.Accepted), fr.Rejected); err != nil {
		log.Warn("Failed to update sync status", "error", err)
	}

	log.Info("Feed synced",
		"platform", feed.PlatformLabel(),
		"created", fr.Created,
		"updated", fr.Updated,
		"rejected", fr.Rejected)
	return fr, nil
}

func (s *SyncService) feedFailed(
	ctx context.Context,
	property *models.Property,
	feed *models.ICalFeed,
	fr FeedResult,
	code string,
	err error,
) FeedResult {
	msg := err.Error()
	if serr := s.feeds.UpdateSyncStatus(ctx, feed.ID, models.SyncStatusError, &msg, 0, 0); serr != nil {
		slog.Warn("Failed to update sync status", "feed_id", feed.ID, "error", serr)
	}
	slog.Warn("Feed sync failed", "property_id", property.ID, "feed_id", feed.ID, "error", err)
	s.events.BroadcastCalendarSyncError(property, feed, code, err)

	fr.Status = StatusError
	fr.Error = msg
	return fr
}

func (s *SyncService) completedPayload(property *models.Property, result *PropertySyncResult) websocket.CalendarSyncPayload {
	payload := websocket.CalendarSyncPayload{
		PropertyID:   property.ID,
		PropertyName: property.Name,
	}
	for _, f := range result.Feeds {
		if f.Status == StatusSuccess {
			payload.FeedsSynced++
		} else {
			payload.FeedsFailed++
		}
		payload.ReservationsCreated += f.Created
		payload.ReservationsUpdated += f.Updated
		payload.EventsRejected += f.Rejected
	}
	if result.TaskGeneration != nil {
		payload.TasksCreated = result.TaskGeneration.TasksCreated
		payload.TasksUpdated = result.TaskGeneration.TasksUpdated
	}
	return payload
}
