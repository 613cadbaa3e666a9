package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrPropertyNotFound is returned when the property does not exist or
	// belongs to another owner.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrTaskGeneration marks a sync whose reservations were saved but whose
	// task generation failed.
	ErrTaskGeneration = errors.New("reservations saved, but task generation failed")

	// ErrSyncInProgress is returned when a bulk sync is already running.
	ErrSyncInProgress = errors.New("bulk sync already in progress")

	// ErrFeedTooLarge is wrapped by a FetchError when a feed exceeds the
	// download limit.
	ErrFeedTooLarge = errors.New("feed exceeds size limit")
)

// FetchError reports an unreachable feed or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: HTTP %s", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports that persistence rejected a property's reservations.
type WriteError struct {
	PropertyID string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("saving reservations for property %s: %v", e.PropertyID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
