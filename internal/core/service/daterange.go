package service

import (
	"strings"
	"time"

	"github.com/presensi/attendance-api/internal/core/domain"
)

const dateLayout = "2006-01-02"

// dayWindow returns the first and last millisecond of the calendar day that
// contains t in loc, both in UTC.
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start.UTC(), end.UTC()
}

// parseDay parses a YYYY-MM-DD calendar day in loc and returns its window.
func parseDay(field, value string, loc *time.Location) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.Validationf("%s must use the YYYY-MM-DD format", field)
	}
	start, end := dayWindow(d, loc)
	return start, end, nil
}

// reportRange resolves the optional report bounds:
//   - both present: from the start of startDate to the end of endDate
//   - only start:   that single day
//   - only end:     everything up to the end of endDate
//   - neither:      unbounded (zero times)
func reportRange(startDate, endDate string, loc *time.Location) (time.Time, time.Time, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)

	switch {
	case startDate != "" && endDate != "":
		from, _, err := parseDay("startDate", startDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		_, to, err := parseDay("endDate", endDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if from.After(to) {
			return time.Time{}, time.Time{}, domain.Validationf("startDate must not be after endDate")
		}
		return from, to, nil
	case startDate != "":
		return parseDay("startDate", startDate, loc)
	case endDate != "":
		_, to, err := parseDay("endDate", endDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return time.Time{}, to, nil
	default:
		return time.Time{}, time.Time{}, nil
	}
}

// timestampLayouts are the ISO-8601 shapes accepted for corrections.
// Layouts without an offset are read in the configured zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	dateLayout,
}

// parseTimestamp parses an ISO-8601 timestamp.
func parseTimestamp(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, domain.Validationf("%s must be a non-empty ISO-8601 timestamp", field)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.Validationf("%s is not a valid ISO-8601 timestamp", field)
}
