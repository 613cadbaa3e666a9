package calendar

import (
	"regexp"
	"strings"
	"time"

	"github.com/turnover-ops/backend/internal/storage/models"
)

// Rejection reasons reported for events that do not become reservations.
const (
	RejectBlocked      = "blocked"
	RejectMissingUID   = "missing_uid"
	RejectMissingStart = "missing_start"
	RejectMissingEnd   = "missing_end"
	RejectUnterminated = "unterminated"
)

// BookingSourceOther is used when no booking source can be resolved.
const BookingSourceOther = "Other"

var (
	blockedPattern  = regexp.MustCompile(`(?i)not available|blocked`)
	codeByPattern   = regexp.MustCompile(`(?i)^\([^)]*\)\s*-\s*by\s+\S`)
	reservedPattern = regexp.MustCompile(`(?i)\breserved\b`)
	channelPattern  = regexp.MustCompile(`(?i)channel:\s*([^\s,;]+)`)
	parenPattern    = regexp.MustCompile(`\(([^()]+)\)`)
)

// platformDomains maps feed URL domains to booking source labels, checked in
// order.
var platformDomains = []struct {
	domain string
	label  string
}{
	{"airbnb.com", "Airbnb"},
	{"guesty.com", "Guesty"},
	{"vrbo.com", "Vrbo"},
	{"booking.com", "Booking.com"},
	{"hostaway.com", "Hostaway"},
}

// RejectedEvent is an event that was not turned into a reservation.
type RejectedEvent struct {
	UID     string `json:"uid,omitempty"`
	Summary string `json:"summary,omitempty"`
	Reason  string `json:"reason"`
}

// NormalizeResult splits a feed's events into reservation records and
// rejected events.
type NormalizeResult struct {
	Accepted []models.ReservationRecord
	Rejected []RejectedEvent
}

// Normalize converts parsed events into reservation records. feedURL and
// platform drive booking source resolution; loc is the property's operating
// timezone used for instants carrying a zone.
func Normalize(events []RawEvent, feedURL string, platform *string, loc *time.Location) NormalizeResult {
	result := NormalizeResult{
		Accepted: make([]models.ReservationRecord, 0, len(events)),
	}

	for _, e := range events {
		if reason := rejectReason(e); reason != "" {
			result.Rejected = append(result.Rejected, RejectedEvent{
				UID:     e.UID,
				Summary: e.Summary,
				Reason:  reason,
			})
			continue
		}

		rec := models.ReservationRecord{
			ExternalID:    e.UID,
			StartDate:     e.Start.Day(loc),
			EndDate:       e.End.Day(loc),
			GuestName:     guestName(e.Summary),
			BookingSource: bookingSource(e, feedURL, platform),
			Status:        reservationStatus(e.Status),
		}
		if notes := strings.TrimSpace(e.Description); notes != "" {
			rec.Notes = &notes
		}
		result.Accepted = append(result.Accepted, rec)
	}

	return result
}

func rejectReason(e RawEvent) string {
	switch {
	case e.Unterminated:
		return RejectUnterminated
	case blockedPattern.MatchString(e.Summary):
		return RejectBlocked
	case e.UID == "":
		return RejectMissingUID
	case e.Start == nil:
		return RejectMissingStart
	case e.End == nil:
		return RejectMissingEnd
	}
	return ""
}

// guestName derives the guest name from an event summary. Channel-manager
// summaries like "(HM123) - by Jane" carry no usable name.
func guestName(summary string) *string {
	summary = strings.TrimSpace(summary)
	if codeByPattern.MatchString(summary) {
		name := "Guest"
		return &name
	}
	if summary == "" || reservedPattern.MatchString(summary) {
		return nil
	}
	return &summary
}

func bookingSource(e RawEvent, feedURL string, platform *string) string {
	if m := channelPattern.FindStringSubmatch(e.Description); m != nil {
		return m[1]
	}
	if m := parenPattern.FindStringSubmatch(e.Summary); m != nil {
		if token := strings.TrimSpace(m[1]); token != "" {
			return token
		}
	}
	lowerURL := strings.ToLower(feedURL)
	for _, p := range platformDomains {
		if strings.Contains(lowerURL, p.domain) {
			return p.label
		}
	}
	if platform != nil && strings.TrimSpace(*platform) != "" {
		return strings.TrimSpace(*platform)
	}
	return BookingSourceOther
}

func reservationStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return models.ReservationStatusConfirmed
	}
	return status
}
