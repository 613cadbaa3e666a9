// Package calendar ingests booking calendars: it fetches iCal feeds, parses
// and normalizes their events into reservations, and syncs them per
// property or across every active property.
package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// DateValue is a parsed DTSTART/DTEND value.
type DateValue struct {
	// Time is the parsed instant. Date-only and floating values are parsed
	// as UTC wall-clock values.
	Time time.Time

	// DateOnly is set for VALUE=DATE values (all-day events)
	DateOnly bool

	// UTC is set for values carrying the Z suffix
	UTC bool

	// TZID is the zone named by the TZID parameter, if it resolved
	TZID string
}

// Day returns the calendar day of the value as YYYY-MM-DD. Date-only and
// floating values are taken literally; UTC and zoned instants are converted
// into loc first.
func (d DateValue) Day(loc *time.Location) string {
	t := d.Time
	if !d.DateOnly && (d.UTC || d.TZID != "") && loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02")
}

// RawEvent is a VEVENT as found in the feed, before normalization.
type RawEvent struct {
	UID         string
	Summary     string
	Description string
	Status      string
	Start       *DateValue
	End         *DateValue

	// Unterminated is set when the feed never closed the VEVENT
	Unterminated bool
}

// Parse reads iCal data and returns its VEVENTs in feed order. Events are
// returned even when fields are missing; Normalize decides what to keep.
func Parse(r io.Reader) ([]RawEvent, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, err
	}

	var events []RawEvent
	var current *RawEvent
	// Nested components inside a VEVENT (VALARM) must not overwrite its fields.
	depth := 0

	for _, line := range lines {
		name, params, value, ok := splitContentLine(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				// VEVENTs do not nest; an open one was never closed.
				if current != nil {
					current.Unterminated = true
					events = append(events, *current)
				}
				current = &RawEvent{}
				depth = 0
			} else if current != nil {
				depth++
			}
			continue
		case "END":
			if current == nil {
				continue
			}
			if strings.EqualFold(value, "VCALENDAR") {
				current.Unterminated = true
				events = append(events, *current)
				current = nil
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			if strings.EqualFold(value, "VEVENT") {
				events = append(events, *current)
				current = nil
			}
			continue
		}

		if current == nil || depth > 0 {
			continue
		}

		switch name {
		case "UID":
			current.UID = strings.TrimSpace(unescapeText(value))
		case "SUMMARY":
			current.Summary = unescapeText(value)
		case "DESCRIPTION":
			current.Description = unescapeText(value)
		case "STATUS":
			current.Status = strings.TrimSpace(value)
		case "DTSTART":
			current.Start = parseDateValue(value, params)
		case "DTEND":
			current.End = parseDateValue(value, params)
		}
	}

	if current != nil {
		current.Unterminated = true
		events = append(events, *current)
	}

	return events, nil
}

// unfold joins RFC 5545 folded lines (continuations start with a space or
// tab) and strips CR line endings.
func unfold(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	return lines, nil
}

// splitContentLine splits NAME;PARAM=V;...:VALUE. Colons inside quoted
// parameter values do not end the name part.
func splitContentLine(line string) (name string, params map[string]string, value string, ok bool) {
	inQuotes := false
	colon := -1
	for i, c := range line {
		if c == '"' {
			inQuotes = !inQuotes
		} else if c == ':' && !inQuotes {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return "", nil, "", false
	}

	head := line[:colon]
	value = line[colon+1:]

	parts := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		params = make(map[string]string, len(parts)-1)
		for _, p := range parts[1:] {
			k, v, found := strings.Cut(p, "=")
			if !found {
				continue
			}
			params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(v, `"`)
		}
	}
	return name, params, value, true
}

// unescapeText reverses iCal TEXT escaping.
func unescapeText(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i == len(value)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch value[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			// \, \; \\ and anything unknown
			b.WriteByte(value[i])
		}
	}
	return b.String()
}

// parseDateValue parses a DTSTART/DTEND value. It returns nil when the value
// cannot be parsed.
func parseDateValue(value string, params map[string]string) *DateValue {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.EqualFold(params["VALUE"], "DATE") || len(value) == 8 {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return nil
		}
		return &DateValue{Time: t, DateOnly: true}
	}

	if strings.HasSuffix(value, "Z") {
		for _, layout := range []string{"20060102T150405Z", "2006-01-02T15:04:05Z"} {
			if t, err := time.Parse(layout, value); err == nil {
				return &DateValue{Time: t, UTC: true}
			}
		}
		return nil
	}

	loc := time.UTC
	tzid := ""
	if name := params["TZID"]; name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc, tzid = l, name
		}
	}

	for _, layout := range []string{"20060102T150405", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &DateValue{Time: t, TZID: tzid}
		}
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &DateValue{Time: t, DateOnly: true}
	}
	return nil
}
