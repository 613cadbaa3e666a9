package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/turnover-ops/backend/internal/cleaning"
	"github.com/turnover-ops/backend/internal/runlock"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
)

type syncFixture struct {
	db      *storage.DB
	feedURL string // serves airbnbFeed
	downURL string // always 503
	sync    *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	db, err := storage.NewDB(storage.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.ics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(airbnbFeed))
	})
	mux.HandleFunc("/down.ics", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	gen := cleaning.NewGenerator(db, nil, time.UTC)
	gen.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	return &syncFixture{
		db:      db,
		feedURL: server.URL + "/ok.ics",
		downURL: server.URL + "/down.ics",
		sync:    NewSyncService(db, NewFetcher(5*time.Second, 0), cleaning.NewLocalTrigger(gen), nil, time.UTC),
	}
}

func (f *syncFixture) property(t *testing.T, owner string, withClean bool, feedURLs ...string) *models.Property {
	t.Helper()
	ctx := context.Background()

	p := &models.Property{Name: "Unit", Active: true}
	if owner != "" {
		p.OwnerID = &owner
	}
	if err := storage.NewPropertyRepository(f.db).Create(ctx, p); err != nil {
		t.Fatalf("creating property: %v", err)
	}
	for _, url := range feedURLs {
		feed := &models.ICalFeed{PropertyID: p.ID, URL: url, Active: true}
		if err := storage.NewFeedRepository(f.db).Create(ctx, feed); err != nil {
			t.Fatalf("creating feed: %v", err)
		}
	}
	if withClean {
		tt := &models.TaskType{OwnerID: owner, Name: models.TaskTypeClean}
		if err := storage.NewTaskTypeRepository(f.db).Create(ctx, tt); err != nil {
			// The owner may already have one from an earlier property.
			t.Logf("creating task type: %v", err)
		}
	}
	return p
}

func TestSyncProperty_IngestsAndGenerates(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	p := f.property(t, "owner-1", true, f.feedURL)

	result, err := f.sync.SyncProperty(ctx, p.ID, "owner-1")
	if err != nil {
		t.Fatalf("SyncProperty() error = %v", err)
	}
	if result.SyncedReservations != 1 {
		t.Errorf("SyncedReservations = %d, want 1", result.SyncedReservations)
	}
	if len(result.Feeds) != 1 || result.Feeds[0].Status != StatusSuccess || result.Feeds[0].Rejected != 1 {
		t.Errorf("Feeds = %+v", result.Feeds)
	}
	if result.TaskGeneration == nil || result.TaskGeneration.TasksCreated != 1 {
		t.Errorf("TaskGeneration = %+v, want one task created", result.TaskGeneration)
	}

	res, err := storage.NewReservationRepository(f.db).GetByExternalID(ctx, "owner-1", "abc123")
	if err != nil || res == nil {
		t.Fatalf("GetByExternalID() = %v, %v", res, err)
	}
	if res.GuestName == nil || *res.GuestName != "John Smith" || res.EndDate != "2025-06-04" {
		t.Errorf("reservation = %+v", res)
	}

	feeds, _ := storage.NewFeedRepository(f.db).ListByProperty(ctx, p.ID)
	if feeds[0].SyncStatus != models.SyncStatusSuccess || feeds[0].EventsAccepted != 1 || feeds[0].EventsRejected != 1 {
		t.Errorf("feed after sync = %+v", feeds[0])
	}
}

func TestSyncProperty_Idempotent(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	p := f.property(t, "owner-1", true, f.feedURL)
	repo := storage.NewReservationRepository(f.db)

	if _, err := f.sync.SyncProperty(ctx, p.ID, "owner-1"); err != nil {
		t.Fatalf("first SyncProperty() error = %v", err)
	}
	before, _ := repo.Count(ctx, "owner-1", p.ID)

	result, err := f.sync.SyncProperty(ctx, p.ID, "owner-1")
	if err != nil {
		t.Fatalf("second SyncProperty() error = %v", err)
	}
	after, _ := repo.Count(ctx, "owner-1", p.ID)

	if before != 1 || after != before {
		t.Errorf("reservation count %d -> %d, want 1 -> 1", before, after)
	}
	if result.Feeds[0].Created != 0 || result.Feeds[0].Updated != 1 {
		t.Errorf("created/updated = %d/%d, want 0/1", result.Feeds[0].Created, result.Feeds[0].Updated)
	}
}

func TestSyncProperty_FailedFeedDoesNotStopOthers(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	p := f.property(t, "owner-1", true, f.downURL, f.feedURL)

	result, err := f.sync.SyncProperty(ctx, p.ID, "owner-1")
	if err != nil {
		t.Fatalf("SyncProperty() error = %v", err)
	}

	statuses := map[string]string{}
	for _, fr := range result.Feeds {
		statuses[fr.URL] = fr.Status
	}
	if statuses[f.downURL] != StatusError || statuses[f.feedURL] != StatusSuccess {
		t.Errorf("feed statuses = %v", statuses)
	}
	if result.SyncedReservations != 1 {
		t.Errorf("SyncedReservations = %d, want 1", result.SyncedReservations)
	}
}

func TestSyncProperty_TaskGenerationFailureIsPartialSuccess(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	// No Clean task type: generation fails after reservations are saved.
	p := f.property(t, "owner-1", false, f.feedURL)

	result, err := f.sync.SyncProperty(ctx, p.ID, "owner-1")
	if !errors.Is(err, ErrTaskGeneration) {
		t.Fatalf("SyncProperty() error = %v, want ErrTaskGeneration", err)
	}
	if result == nil || result.SyncedReservations != 1 || result.TaskGenerationError == "" {
		t.Errorf("result = %+v, want saved counts and error detail", result)
	}

	count, _ := storage.NewReservationRepository(f.db).Count(ctx, "owner-1", p.ID)
	if count != 1 {
		t.Errorf("reservations saved = %d, want 1", count)
	}
}

func TestSyncProperty_WrongOwner(t *testing.T) {
	f := newSyncFixture(t)
	p := f.property(t, "owner-1", true, f.feedURL)

	if _, err := f.sync.SyncProperty(context.Background(), p.ID, "owner-2"); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("SyncProperty() error = %v, want ErrPropertyNotFound", err)
	}
}

func TestSyncProperty_WriteErrorAcrossOwners(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	first := f.property(t, "owner-1", true, f.feedURL)
	second := f.property(t, "owner-2", true, f.feedURL)

	if _, err := f.sync.SyncProperty(ctx, first.ID, "owner-1"); err != nil {
		t.Fatalf("SyncProperty(owner-1) error = %v", err)
	}

	result, err := f.sync.SyncProperty(ctx, second.ID, "owner-2")
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("SyncProperty(owner-2) error = %v, want *WriteError", err)
	}
	if !errors.Is(err, storage.ErrOwnershipConflict) {
		t.Errorf("error = %v, want ownership conflict", err)
	}
	if len(result.Feeds) != 1 || result.Feeds[0].Status != StatusFailed {
		t.Errorf("Feeds = %+v, want one failed feed", result.Feeds)
	}

	res, _ := storage.NewReservationRepository(f.db).GetByExternalID(ctx, "owner-1", "abc123")
	if res == nil || res.PropertyID != first.ID {
		t.Errorf("reservation owned by owner-1 was overwritten: %+v", res)
	}
}

func TestOrchestrator_SyncAll(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	failing := f.property(t, "owner-1", true, f.downURL)
	working := f.property(t, "owner-2", true, f.feedURL)
	unowned := f.property(t, "", false, f.feedURL)
	noFeeds := f.property(t, "owner-3", true)

	o := NewOrchestrator(f.db, f.sync, runlock.NewLocal(), 2, nil)
	result, err := o.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	byProperty := map[string][]BulkEntry{}
	for _, e := range result.Results {
		byProperty[e.PropertyID] = append(byProperty[e.PropertyID], e)
	}

	tests := []struct {
		name   string
		id     string
		status string
	}{
		{"fetch failure", failing.ID, StatusError},
		{"success", working.ID, StatusSuccess},
		{"no owner", unowned.ID, StatusSkipped},
		{"no feeds", noFeeds.ID, StatusSkipped},
	}
	for _, tt := range tests {
		entries := byProperty[tt.id]
		if len(entries) != 1 || entries[0].Status != tt.status {
			t.Errorf("%s: entries = %+v, want one %q entry", tt.name, entries, tt.status)
		}
	}

	if e := byProperty[working.ID]; len(e) == 1 && e[0].ICalURL != f.feedURL {
		t.Errorf("ICalURL = %q, want %q", e[0].ICalURL, f.feedURL)
	}
	if e := byProperty[failing.ID]; len(e) == 1 && e[0].Error == "" {
		t.Error("failing entry has no error detail")
	}
}

func TestOrchestrator_RefusesConcurrentRun(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	locker := runlock.NewLocal()

	release, err := locker.Acquire(ctx, bulkLockName)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	o := NewOrchestrator(f.db, f.sync, locker, 1, nil)
	if _, err := o.SyncAll(ctx); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("SyncAll() error = %v, want ErrSyncInProgress", err)
	}

	release()
	if _, err := o.SyncAll(ctx); err != nil {
		t.Errorf("SyncAll() after release error = %v", err)
	}
}
