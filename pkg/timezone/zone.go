// ABOUTME: Timezone parsing for configuration values
// ABOUTME: Accepts UTC, fixed +HH:MM offsets, or IANA location names

package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultOffset is the implicit and display zone used when none is configured.
const DefaultOffset = "+09:00"

// DefaultZone is the fixed UTC+9 zone. It does not depend on the host's locale.
var DefaultZone = time.FixedZone("UTC+09:00", 9*60*60)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// ParseZone resolves a zone setting. Supported forms are "UTC" or "Z",
// a fixed offset such as "+09:00" or "-0530", and IANA names like "Asia/Tokyo".
func ParseZone(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("timezone cannot be empty")
	}

	if strings.EqualFold(s, "UTC") || s == "Z" {
		return time.UTC, nil
	}

	if m := offsetPattern.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("timezone offset out of range: %s", s)
		}
		secs := hours*3600 + minutes*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone(fmt.Sprintf("UTC%s%s:%s", m[1], m[2], m[3]), secs), nil
	}

	loc, err := time.LoadLocation(s)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", s, err)
	}
	return loc, nil
}
