package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/turnover-ops/backend/internal/storage/models"
)

func dateOnly(day string) *DateValue {
	t, _ := time.Parse(models.DateLayout, day)
	return &DateValue{Time: t, DateOnly: true}
}

func event(uid, summary string) RawEvent {
	return RawEvent{UID: uid, Summary: summary, Start: dateOnly("2025-06-01"), End: dateOnly("2025-06-04")}
}

func TestNormalize_Scenario(t *testing.T) {
	events, err := Parse(strings.NewReader(airbnbFeed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	result := Normalize(events, "https://www.airbnb.com/calendar/ical/1.ics?s=x", nil, time.UTC)

	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(result.Accepted))
	}
	rec := result.Accepted[0]
	if rec.ExternalID != "abc123" || rec.StartDate != "2025-06-01" || rec.EndDate != "2025-06-04" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.GuestName == nil || *rec.GuestName != "John Smith" {
		t.Errorf("GuestName = %v, want John Smith", rec.GuestName)
	}
	if rec.BookingSource != "Airbnb" {
		t.Errorf("BookingSource = %q, want Airbnb", rec.BookingSource)
	}
	if rec.Status != models.ReservationStatusConfirmed {
		t.Errorf("Status = %q, want confirmed", rec.Status)
	}

	if len(result.Rejected) != 1 || result.Rejected[0].Reason != RejectBlocked {
		t.Errorf("rejected = %+v, want one blocked event", result.Rejected)
	}
}

func TestNormalize_BlockedOnly(t *testing.T) {
	result := Normalize([]RawEvent{event("x1", "Not Available - Blocked")}, "https://example.com/feed.ics", nil, time.UTC)
	if len(result.Accepted) != 0 {
		t.Errorf("accepted = %d, want 0", len(result.Accepted))
	}
}

func TestNormalize_MissingFieldsDoNotAffectOthers(t *testing.T) {
	good := event("good", "Jane")
	noUID := event("", "Nobody")
	noStart := event("s", "Nobody")
	noStart.Start = nil
	noEnd := event("e", "Nobody")
	noEnd.End = nil

	result := Normalize([]RawEvent{noUID, good, noStart, noEnd}, "", nil, time.UTC)

	if len(result.Accepted) != 1 || result.Accepted[0].ExternalID != "good" {
		t.Fatalf("accepted = %+v, want only the well-formed event", result.Accepted)
	}

	reasons := map[string]bool{}
	for _, r := range result.Rejected {
		reasons[r.Reason] = true
	}
	for _, want := range []string{RejectMissingUID, RejectMissingStart, RejectMissingEnd} {
		if !reasons[want] {
			t.Errorf("missing rejection reason %q in %+v", want, result.Rejected)
		}
	}
}

func TestGuestName(t *testing.T) {
	tests := []struct {
		summary string
		want    *string
	}{
		{"  John Smith ", strPtr("John Smith")},
		{"(HM4KX9) - by Jane", strPtr("Guest")},
		{"Reserved", nil},
		{"airbnb RESERVED stay", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := guestName(tt.summary)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("guestName(%q) = %q, want nil", tt.summary, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("guestName(%q) = %v, want %q", tt.summary, got, *tt.want)
		}
	}
}

func TestBookingSource(t *testing.T) {
	vrboTag := "Vrbo"
	emptyTag := " "

	tests := []struct {
		name     string
		event    RawEvent
		url      string
		platform *string
		want     string
	}{
		{
			name:  "channel marker wins",
			event: RawEvent{Summary: "(Airbnb) Jane", Description: "Guest: Jane\nChannel: BookingCom"},
			url:   "https://app.guesty.com/ical/1",
			want:  "BookingCom",
		},
		{
			name:  "parenthesized summary token",
			event: RawEvent{Summary: "Jane (Expedia)"},
			url:   "https://app.guesty.com/ical/1",
			want:  "Expedia",
		},
		{"guesty domain", RawEvent{Summary: "Jane"}, "https://app.GUESTY.com/ical/1", nil, "Guesty"},
		{"vrbo domain", RawEvent{Summary: "Jane"}, "http://www.vrbo.com/icalendar/1.ics", nil, "Vrbo"},
		{"booking domain", RawEvent{Summary: "Jane"}, "https://admin.booking.com/hotel/ical", nil, "Booking.com"},
		{"hostaway domain", RawEvent{Summary: "Jane"}, "https://platform.hostaway.com/ical/9", nil, "Hostaway"},
		{"platform tag fallback", RawEvent{Summary: "Jane"}, "https://ical.example.com/1", &vrboTag, "Vrbo"},
		{"blank platform tag", RawEvent{Summary: "Jane"}, "https://ical.example.com/1", &emptyTag, BookingSourceOther},
		{"nothing resolves", RawEvent{Summary: "Jane"}, "", nil, BookingSourceOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bookingSource(tt.event, tt.url, tt.platform); got != tt.want {
				t.Errorf("bookingSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReservationStatus(t *testing.T) {
	tests := map[string]string{
		"":           models.ReservationStatusConfirmed,
		"CONFIRMED":  "confirmed",
		" Tentative": "tentative",
		"CANCELLED":  "cancelled",
	}
	for in, want := range tests {
		if got := reservationStatus(in); got != want {
			t.Errorf("reservationStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func strPtr(s string) *string { return &s }
