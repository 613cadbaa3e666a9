package calendar

import (
	"strings"
	"testing"
	"time"
)

const airbnbFeed = "BEGIN:VCALENDAR\r\n" +
	"PRODID:-//Airbnb Inc//Hosting Calendar 0.8.8//EN\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20250520T101010Z\r\n" +
	"DTSTART;VALUE=DATE:20250601\r\n" +
	"DTEND;VALUE=DATE:20250604\r\n" +
	"SUMMARY:John Smith\r\n" +
	"UID:abc123\r\n" +
	"DESCRIPTION:Reservation URL: https://www.airbnb.com/hosting/reservations/d\r\n" +
	" etails/HMXYZ\\nPhone Number (Last 4 Digits): 1234\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;VALUE=DATE:20250610\r\n" +
	"DTEND;VALUE=DATE:20250612\r\n" +
	"SUMMARY:Airbnb (Not available)\r\n" +
	"UID:blocked-1\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse_AirbnbFeed(t *testing.T) {
	events, err := Parse(strings.NewReader(airbnbFeed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	e := events[0]
	if e.UID != "abc123" || e.Summary != "John Smith" {
		t.Errorf("UID/Summary = %q/%q", e.UID, e.Summary)
	}
	if e.Start == nil || !e.Start.DateOnly || e.Start.Day(time.UTC) != "2025-06-01" {
		t.Errorf("Start = %+v, want date-only 2025-06-01", e.Start)
	}
	if e.End == nil || e.End.Day(time.UTC) != "2025-06-04" {
		t.Errorf("End = %+v, want 2025-06-04", e.End)
	}
	want := "Reservation URL: https://www.airbnb.com/hosting/reservations/details/HMXYZ\nPhone Number (Last 4 Digits): 1234"
	if e.Description != want {
		t.Errorf("Description = %q, want %q", e.Description, want)
	}
}

func TestParse_IgnoresNestedComponents(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:evt-1
SUMMARY:Jane Doe
DTSTART:20250601T150000Z
DTEND:20250604T110000Z
BEGIN:VALARM
ACTION:DISPLAY
DESCRIPTION:Reminder
END:VALARM
STATUS:TENTATIVE
END:VEVENT
END:VCALENDAR
`
	events, err := Parse(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Description != "" {
		t.Errorf("Description = %q, alarm text leaked into event", events[0].Description)
	}
	if events[0].Status != "TENTATIVE" {
		t.Errorf("Status = %q, want TENTATIVE", events[0].Status)
	}
}

func TestParse_MissingFieldsAreKept(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
SUMMARY:No uid
DTSTART;VALUE=DATE:20250601
DTEND;VALUE=DATE:20250602
END:VEVENT
BEGIN:VEVENT
UID:no-end
DTSTART;VALUE=DATE:20250601
END:VEVENT
END:VCALENDAR
`
	events, err := Parse(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].UID != "" || events[1].End != nil {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestParse_UnterminatedEvents(t *testing.T) {
	tests := []struct {
		name string
		feed string
	}{
		{
			name: "next event begins",
			feed: "BEGIN:VCALENDAR\n" +
				"BEGIN:VEVENT\nUID:broken\nDTSTART;VALUE=DATE:20250601\n" +
				"BEGIN:VEVENT\nUID:good\nDTSTART;VALUE=DATE:20250605\nDTEND;VALUE=DATE:20250608\nEND:VEVENT\n" +
				"END:VCALENDAR\n",
		},
		{
			name: "calendar ends",
			feed: "BEGIN:VCALENDAR\n" +
				"BEGIN:VEVENT\nUID:good\nDTSTART;VALUE=DATE:20250605\nDTEND;VALUE=DATE:20250608\nEND:VEVENT\n" +
				"BEGIN:VEVENT\nUID:broken\nDTSTART;VALUE=DATE:20250601\n" +
				"END:VCALENDAR\n",
		},
		{
			name: "input ends",
			feed: "BEGIN:VCALENDAR\n" +
				"BEGIN:VEVENT\nUID:good\nDTSTART;VALUE=DATE:20250605\nDTEND;VALUE=DATE:20250608\nEND:VEVENT\n" +
				"BEGIN:VEVENT\nUID:broken\nDTSTART;VALUE=DATE:20250601\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Parse(strings.NewReader(tt.feed))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(events) != 2 {
				t.Fatalf("len(events) = %d, want 2", len(events))
			}

			byUID := map[string]RawEvent{}
			for _, e := range events {
				byUID[e.UID] = e
			}
			if !byUID["broken"].Unterminated {
				t.Error("broken event not marked unterminated")
			}
			good := byUID["good"]
			if good.Unterminated || good.End == nil || good.End.Day(time.UTC) != "2025-06-08" {
				t.Errorf("good event = %+v, want complete", good)
			}

			result := Normalize(events, "https://example.com/feed.ics", nil, time.UTC)
			if len(result.Accepted) != 1 || result.Accepted[0].ExternalID != "good" {
				t.Errorf("accepted = %+v, want only good", result.Accepted)
			}
			if len(result.Rejected) != 1 || result.Rejected[0].Reason != RejectUnterminated {
				t.Errorf("rejected = %+v, want one unterminated", result.Rejected)
			}
		})
	}
}

func TestUnescapeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, "plain"},
		{`a\, b\; c`, "a, b; c"},
		{`line\nbreak`, "line\nbreak"},
		{`back\\slash`, `back\slash`},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		if got := unescapeText(tt.in); got != tt.want {
			t.Errorf("unescapeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateValue_Day(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	tests := []struct {
		name   string
		value  string
		params map[string]string
		loc    *time.Location
		want   string
	}{
		{"date only is literal", "20250604", map[string]string{"VALUE": "DATE"}, ny, "2025-06-04"},
		{"utc converted to property zone", "20250604T020000Z", nil, ny, "2025-06-03"},
		{"utc in utc zone", "20250604T020000Z", nil, time.UTC, "2025-06-04"},
		{"tzid converted", "20250603T230000", map[string]string{"TZID": "America/Los_Angeles"}, ny, "2025-06-04"},
		{"floating is literal", "20250604T230000", nil, ny, "2025-06-04"},
		{"unknown tzid is floating", "20250604T230000", map[string]string{"TZID": "Nowhere/Land"}, ny, "2025-06-04"},
		{"iso date", "2025-06-04", nil, ny, "2025-06-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := parseDateValue(tt.value, tt.params)
			if d == nil {
				t.Fatalf("parseDateValue(%q) = nil", tt.value)
			}
			if got := d.Day(tt.loc); got != tt.want {
				t.Errorf("Day() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDateValue_Invalid(t *testing.T) {
	for _, v := range []string{"", "tomorrow", "2025130"} {
		if d := parseDateValue(v, nil); d != nil {
			t.Errorf("parseDateValue(%q) = %+v, want nil", v, d)
		}
	}
}
