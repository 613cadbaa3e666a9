package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turnover-ops/backend/internal/runlock"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/websocket"
)

const bulkLockName = "bulk-sync"

// BulkEntry is one (property, feed) line of a bulk sync report.
type BulkEntry struct {
	PropertyID string `json:"propertyId"`
	ICalURL    string `json:"icalUrl,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// BulkResult is the report of a bulk sync.
type BulkResult struct {
	Message string      `json:"message"`
	Results []BulkEntry `json:"results"`
}

// Orchestrator syncs every active property. One property's failure is
// recorded in the report and never stops the others.
type Orchestrator struct {
	sync        *SyncService
	properties  *storage.PropertyRepository
	feeds       *storage.FeedRepository
	locker      runlock.Locker
	concurrency int
	events      *websocket.EventBroadcaster
}

// NewOrchestrator creates a bulk orchestrator running at most concurrency
// properties at once.
func NewOrchestrator(
	db *storage.DB,
	sync *SyncService,
	locker runlock.Locker,
	concurrency int,
	events *websocket.EventBroadcaster,
) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		sync:        sync,
		properties:  storage.NewPropertyRepository(db),
		feeds:       storage.NewFeedRepository(db),
		locker:      locker,
		concurrency: concurrency,
		events:      events,
	}
}

// SyncAll syncs every active property and returns the per-feed report. It
// returns ErrSyncInProgress when another bulk sync holds the run lock.
func (o *Orchestrator) SyncAll(ctx context.Context) (*BulkResult, error) {
	release, err := o.locker.Acquire(ctx, bulkLockName)
	if errors.Is(err, runlock.ErrHeld) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	properties, err := o.properties.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	// One slot per property keeps the report in listing order.
	entries := make([][]BulkEntry, len(properties))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range properties {
		i := i
		g.Go(func() error {
			entries[i] = o.syncOne(ctx, properties[i].ID, properties[i].Owner())
			return nil
		})
	}
	g.Wait()

	result := &BulkResult{Results: []BulkEntry{}}
	var summary websocket.BulkSyncPayload
	for _, es := range entries {
		for _, e := range es {
			result.Results = append(result.Results, e)
			switch e.Status {
			case StatusSuccess:
				summary.Succeeded++
			case StatusSkipped:
				summary.Skipped++
			case StatusError:
				summary.Errored++
			case StatusFailed:
				summary.Failed++
			}
		}
	}
	summary.Total = len(result.Results)
	result.Message = fmt.Sprintf("Bulk sync completed for %d properties", len(properties))

	slog.Info("Bulk sync completed",
		"properties", len(properties),
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
		"failed", summary.Failed,
		"duration", time.Since(started).Round(time.Millisecond))
	o.events.BroadcastBulkSyncCompleted(summary)

	return result, nil
}

// syncOne syncs one property and converts the outcome to report entries.
func (o *Orchestrator) syncOne(ctx context.Context, propertyID, ownerID string) []BulkEntry {
	if ownerID == "" {
		return []BulkEntry{{PropertyID: propertyID, Status: StatusSkipped, Error: "no owning account"}}
	}

	hasFeeds, err := o.feeds.HasActive(ctx, propertyID)
	if err != nil {
		return []BulkEntry{{PropertyID: propertyID, Status: StatusFailed, Error: err.Error()}}
	}
	if !hasFeeds {
		return []BulkEntry{{PropertyID: propertyID, Status: StatusSkipped, Error: "no active feeds"}}
	}

	res, err := o.sync.SyncProperty(ctx, propertyID, ownerID)

	var entries []BulkEntry
	if res != nil {
		for _, f := range res.Feeds {
			entries = append(entries, BulkEntry{
				PropertyID: propertyID,
				ICalURL:    f.URL,
				Status:     f.Status,
				Error:      f.Error,
			})
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrTaskGeneration):
		entries = append(entries, BulkEntry{
			PropertyID: propertyID,
			Status:     StatusFailed,
			Error:      err.Error(),
		})
	default:
		var writeErr *WriteError
		if !errors.As(err, &writeErr) {
			// Write errors are already on the failing feed's entry.
			entries = append(entries, BulkEntry{
				PropertyID: propertyID,
				Status:     StatusFailed,
				Error:      err.Error(),
			})
		}
		slog.Error("Property sync failed", "property_id", propertyID, "error", err)
	}

	return entries
}
