package store

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Date and time grammars accepted for timestamp derivation. Anything else
// falls back to "now" rather than rejecting the record.
var (
	dateRegexp = regexp.MustCompile(`^\d{1,4}[/-]\d{1,2}[/-]\d{1,4}$`)
	timeRegexp = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?\s?(?i:[ap]m)?$`)
)

var errMalformedField = errors.New("malformed date/time field")

// timestampLayouts is the cross product of accepted date and time layouts,
// built once at init. Day-first forms come before month-first so ambiguous
// dates resolve the way transcript exports write them.
var timestampLayouts = buildLayouts()

func buildLayouts() []string {
	dates := []string{
		"2/1/2006", "2/1/06", "1/2/2006", "1/2/06",
		"2-1-2006", "2-1-06", "1-2-2006", "1-2-06",
		"2006-1-2", "2006/1/2",
	}
	times := []string{
		"15:04:05", "15:04",
		"3:04:05 PM", "3:04 PM", "3:04:05PM", "3:04PM",
	}
	layouts := make([]string, 0, len(dates)*len(times))
	for _, d := range dates {
		for _, t := range times {
			layouts = append(layouts, d+" "+t)
		}
	}
	return layouts
}

// DeriveTimestamp parses date+time into a unix-millisecond sort key. On
// grammar mismatch or an unparseable value it returns the current time —
// availability over precision for malformed input.
func DeriveTimestamp(date, timeStr string) int64 {
	if ts, err := parseTimestamp(date, timeStr); err == nil {
		return ts
	}
	return time.Now().UnixMilli()
}

func parseTimestamp(date, timeStr string) (int64, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.ToUpper(strings.TrimSpace(timeStr))
	if !dateRegexp.MatchString(date) || !timeRegexp.MatchString(timeStr) {
		return 0, errMalformedField
	}
	combined := date + " " + timeStr
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, combined, time.Local); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errMalformedField
}
