// Package timechannel renders current wall-clock times for a fixed set
// of well-known timezones, keyed by short region names.
package timechannel

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// zoneKeys maps the short keys users see to IANA zone names.
var zoneKeys = map[string]string{
	"hawaii":      "Pacific/Honolulu",
	"pacific":     "America/Los_Angeles",
	"mountain":    "America/Denver",
	"central":     "America/Chicago",
	"eastern":     "America/New_York",
	"brazil":      "America/Sao_Paulo",
	"utc":         "UTC",
	"london":      "Europe/London",
	"paris":       "Europe/Paris",
	"moscow":      "Europe/Moscow",
	"india":       "Asia/Kolkata",
	"china":       "Asia/Shanghai",
	"japan":       "Asia/Tokyo",
	"sydney":      "Australia/Sydney",
	"new-zealand": "Pacific/Auckland",
}

// Keys returns the known zone keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(zoneKeys))
	for key := range zoneKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Replacements returns, for every zone key, the current time formatted
// in 12 hour style, plus a "<key>-24h" variant in 24 hour style. Zones
// missing from the host's tz database are skipped.
func Replacements(now time.Time) map[string]string {
	replacements := make(map[string]string, len(zoneKeys)*2)

	for key, zone := range zoneKeys {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			continue
		}

		local := now.In(loc)
		replacements[key] = local.Format("3:04PM")
		replacements[key+"-24h"] = local.Format("15:04")
	}

	return replacements
}

// Render builds a display block with one line per zone, e.g. for the
// timezones command.
func Render(now time.Time) string {
	replacements := Replacements(now)

	var builder strings.Builder
	for _, key := range Keys() {
		twelve, ok := replacements[key]
		if !ok {
			continue
		}
		builder.WriteString(fmt.Sprintf(
			"%-12v %v (%v)\n",
			key,
			twelve,
			replacements[key+"-24h"],
		))
	}
	return builder.String()
}
