// ABOUTME: Time normalization between user input, UTC instants and the display zone
// ABOUTME: Timezone-less input is read in a configured implicit zone (UTC+9 by default)

package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned for input that is not a parseable instant,
// or for a range whose end does not come after its start.
var ErrInvalidDateFormat = errors.New("invalid date format")

// DefaultDisplayLayout renders instants with their offset so the output
// still identifies a single instant.
const DefaultDisplayLayout = "2006-01-02 15:04:05 -07:00"

const dateLayout = "2006-01-02"

// Layouts tried for input carrying an explicit zone designator.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
}

// Layouts tried for input without a zone designator.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	dateLayout,
}

// Normalizer converts between ambiguous user-supplied times, UTC instants
// and a fixed display zone.
type Normalizer struct {
	implicit *time.Location
	display  *time.Location
	layout   string
}

// New creates a Normalizer. Nil locations fall back to DefaultZone and an
// empty layout to DefaultDisplayLayout.
func New(implicit, display *time.Location, layout string) *Normalizer {
	if implicit == nil {
		implicit = DefaultZone
	}
	if display == nil {
		display = DefaultZone
	}
	if layout == "" {
		layout = DefaultDisplayLayout
	}
	return &Normalizer{implicit: implicit, display: display, layout: layout}
}

// Default returns a Normalizer using UTC+9 for both zones.
func Default() *Normalizer {
	return New(nil, nil, "")
}

// ImplicitZone returns the zone assumed for input without a zone designator.
func (n *Normalizer) ImplicitZone() *time.Location {
	return n.implicit
}

// DisplayZone returns the zone used for human-readable output.
func (n *Normalizer) DisplayZone() *time.Location {
	return n.display
}

// HasZoneMarker reports whether the time-of-day part of input contains any of
// 'Z', '+' or '-'. The date part is skipped since its '-' are separators.
func HasZoneMarker(input string) bool {
	return strings.ContainsAny(timeOfDay(input), "Z+-")
}

func timeOfDay(input string) string {
	if idx := strings.IndexAny(input, "T "); idx >= 0 {
		return input[idx+1:]
	}
	return ""
}

// Parse reads input as an instant, assuming the implicit zone when input has
// no zone designator.
func (n *Normalizer) Parse(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDateFormat)
	}

	if HasZoneMarker(s) {
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	} else {
		for _, layout := range localLayouts {
			if t, err := time.ParseInLocation(layout, s, n.implicit); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, input)
}

// ToUTC converts input to an RFC 3339 instant in UTC.
func (n *Normalizer) ToUTC(input string) (string, error) {
	t, err := n.Parse(input)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

// NormalizeRange converts both bounds to UTC and checks that end comes
// strictly after start.
func (n *Normalizer) NormalizeRange(start, end string) (string, string, error) {
	startUTC, err := n.ToUTC(start)
	if err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}
	endUTC, err := n.ToUTC(end)
	if err != nil {
		return "", "", fmt.Errorf("end: %w", err)
	}
	if err := ValidateRange(startUTC, endUTC); err != nil {
		return "", "", err
	}
	return startUTC, endUTC, nil
}

// ValidateRange checks two RFC 3339 instants for end > start.
func ValidateRange(start, end string) error {
	s, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidDateFormat, start)
	}
	e, err := time.Parse(time.RFC3339Nano, end)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidDateFormat, end)
	}
	if !e.After(s) {
		return fmt.Errorf("%w: end time %s must be after start time %s", ErrInvalidDateFormat, end, start)
	}
	return nil
}

// ToDisplayZone renders an instant in the display zone. Empty input yields
// empty output, and all-day dates (YYYY-MM-DD) are returned unchanged.
func (n *Normalizer) ToDisplayZone(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if len(s) == len(dateLayout) {
		if _, err := time.Parse(dateLayout, s); err == nil {
			return s, nil
		}
	}

	t, err := n.Parse(s)
	if err != nil {
		return "", err
	}
	return n.Format(t), nil
}

// Format renders t in the display zone with the display layout.
func (n *Normalizer) Format(t time.Time) string {
	return t.In(n.display).Format(n.layout)
}
