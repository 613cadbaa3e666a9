package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/turnover-ops/backend/internal/api/middleware"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
)

// CreatePropertyRequest is the body of POST /api/properties.
type CreatePropertyRequest struct {
	Name           string  `json:"name" validate:"required"`
	PlatformUserID string  `json:"platform_user_id" validate:"required"`
	Timezone       *string `json:"timezone" validate:"omitempty,timezone"`
	Active         *bool   `json:"active"`
}

// FeedRequest is the body of feed create and update requests.
type FeedRequest struct {
	PlatformUserID string  `json:"platform_user_id" validate:"required"`
	URL            string  `json:"url" validate:"omitempty,url"`
	Platform       *string `json:"platform"`
	Active         *bool   `json:"active"`
}

// HasICalResponse reports whether a property has an active feed.
type HasICalResponse struct {
	HasICal bool `json:"has_ical"`
}

// ListProperties returns the properties of an owner.
func ListProperties(db *storage.DB) http.HandlerFunc {
	repo := storage.NewPropertyRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		properties, err := repo.ListByOwner(r.Context(), owner)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query properties")
			return
		}
		writeJSON(w, http.StatusOK, properties)
	}
}

// CreateProperty adds a property for an owner.
func CreateProperty(db *storage.DB) http.HandlerFunc {
	repo := storage.NewPropertyRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePropertyRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		owner := req.PlatformUserID
		p := &models.Property{
			Name:     strings.TrimSpace(req.Name),
			OwnerID:  &owner,
			Timezone: req.Timezone,
			Active:   req.Active == nil || *req.Active,
		}
		if err := repo.Create(r.Context(), p); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create property")
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// loadProperty resolves the {id} path variable. When a platform_user_id
// query parameter is present the property must belong to that owner.
func loadProperty(w http.ResponseWriter, r *http.Request, repo *storage.PropertyRepository) (*models.Property, bool) {
	id := mux.Vars(r)["id"]
	owner := r.URL.Query().Get("platform_user_id")

	var (
		p   *models.Property
		err error
	)
	if owner != "" {
		p, err = repo.GetOwned(r.Context(), id, owner)
	} else {
		p, err = repo.GetByID(r.Context(), id)
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
		return nil, false
	}
	if p == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
		return nil, false
	}
	return p, true
}

// ListPropertyFeeds returns the feeds configured for a property.
func ListPropertyFeeds(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	feeds := storage.NewFeedRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, properties)
		if !ok {
			return
		}

		list, err := feeds.ListByProperty(r.Context(), p.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query feeds")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// HasICal reports whether a property has at least one active feed.
func HasICal(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	feeds := storage.NewFeedRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, properties)
		if !ok {
			return
		}

		has, err := feeds.HasActive(r.Context(), p.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query feeds")
			return
		}
		writeJSON(w, http.StatusOK, HasICalResponse{HasICal: has})
	}
}

// CreateFeed adds an iCal feed to a property.
func CreateFeed(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	feeds := storage.NewFeedRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req FeedRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if req.URL == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "url is required")
			return
		}

		p, err := properties.GetOwned(r.Context(), mux.Vars(r)["id"], req.PlatformUserID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		feed := &models.ICalFeed{
			PropertyID: p.ID,
			URL:        req.URL,
			Platform:   req.Platform,
			Active:     req.Active == nil || *req.Active,
		}
		if err := feeds.Create(r.Context(), feed); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create feed")
			return
		}
		writeJSON(w, http.StatusCreated, feed)
	}
}

// loadOwnedFeed resolves the {id} feed path variable and checks that its
// property belongs to owner.
func loadOwnedFeed(
	w http.ResponseWriter,
	r *http.Request,
	feeds *storage.FeedRepository,
	properties *storage.PropertyRepository,
	owner string,
) (*models.ICalFeed, bool) {
	feed, err := feeds.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query feed")
		return nil, false
	}
	if feed == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Feed not found")
		return nil, false
	}

	p, err := properties.GetOwned(r.Context(), feed.PropertyID, owner)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
		return nil, false
	}
	if p == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Feed not found")
		return nil, false
	}
	return feed, true
}

// UpdateFeed changes a feed's URL, platform label or active flag.
func UpdateFeed(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	feeds := storage.NewFeedRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req FeedRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		feed, ok := loadOwnedFeed(w, r, feeds, properties, req.PlatformUserID)
		if !ok {
			return
		}

		if req.URL != "" {
			feed.URL = req.URL
		}
		if req.Platform != nil {
			feed.Platform = req.Platform
		}
		if req.Active != nil {
			feed.Active = *req.Active
		}

		if err := feeds.Update(r.Context(), feed); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Feed not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update feed")
			return
		}
		writeJSON(w, http.StatusOK, feed)
	}
}

// DeleteFeed removes a feed. Reservations it wrote are kept.
func DeleteFeed(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	feeds := storage.NewFeedRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		feed, ok := loadOwnedFeed(w, r, feeds, properties, owner)
		if !ok {
			return
		}

		if err := feeds.Delete(r.Context(), feed.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete feed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListReservations returns the reservations of an owned property.
func ListReservations(db *storage.DB) http.HandlerFunc {
	properties := storage.NewPropertyRepository(db)
	reservations := storage.NewReservationRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := requireOwner(w, r)
		if !ok {
			return
		}

		p, ok := loadProperty(w, r, properties)
		if !ok {
			return
		}

		list, err := reservations.ListByProperty(r.Context(), owner, p.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
