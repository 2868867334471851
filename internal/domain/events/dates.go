package events

import (
	"errors"
	"regexp"
	"strings"
	"time"

	dateparser "github.com/markusmobius/go-dateparser"
)

var (
	isoPrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	digitsOnly = regexp.MustCompile(`^\d+$`)

	errUnrecognizedDate = errors.New("unrecognized date")
)

// isoLayouts are tried after RFC 3339 for ISO input missing a zone.
var isoLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and falls back to natural-language and
// locale formats ("next friday 8pm", "12 March 2027 19:30"). Relative
// expressions resolve against now. Values without a zone are read as UTC.
//
// ISO-shaped input must be a real calendar date; it never falls through to the
// natural-language parser. Absolute dates need a day, month and year.
func ParseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if isoPrefix.MatchString(value) {
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errUnrecognizedDate
	}
	if value == "" || digitsOnly.MatchString(value) {
		return time.Time{}, errUnrecognizedDate
	}

	parsed, err := dateparser.Parse(&dateparser.Configuration{
		CurrentTime:     now,
		DefaultTimezone: time.UTC,
		StrictParsing:   true,
	}, value)
	if err != nil {
		return time.Time{}, err
	}
	if parsed.Time.IsZero() {
		return time.Time{}, errUnrecognizedDate
	}
	return parsed.Time.UTC(), nil
}
