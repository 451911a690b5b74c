package geofence

import "strings"

// zoneAbbr maps IANA zone names to the short codes used in timezone:
// region tags.
var zoneAbbr = map[string]string{
	"America/New_York":             "EST",
	"America/Detroit":              "EST",
	"America/Toronto":              "EST",
	"America/Indiana/Indianapolis": "EST",
	"America/Chicago":              "CST",
	"America/Winnipeg":             "CST",
	"America/Mexico_City":          "CST",
	"America/Denver":               "MST",
	"America/Phoenix":              "MST",
	"America/Edmonton":             "MST",
	"America/Los_Angeles":          "PST",
	"America/Vancouver":            "PST",
	"America/Anchorage":            "AKST",
	"Pacific/Honolulu":             "HST",
	"Europe/London":                "GMT",
	"Europe/Dublin":                "GMT",
	"Europe/Paris":                 "CET",
	"Europe/Berlin":                "CET",
	"Europe/Madrid":                "CET",
	"Europe/Rome":                  "CET",
	"Asia/Tokyo":                   "JST",
	"Asia/Kolkata":                 "IST",
	"Asia/Shanghai":                "CST",
	"Australia/Sydney":             "AEST",
	"UTC":                          "UTC",
}

// TimezoneAbbr returns the short code for an IANA zone.  Unknown zones
// fall back to the last path segment upper-cased, so "Africa/Lagos"
// becomes "LAGOS".
func TimezoneAbbr(zone string) string {
	if abbr, ok := zoneAbbr[zone]; ok {
		return abbr
	}
	if i := strings.LastIndex(zone, "/"); i >= 0 {
		zone = zone[i+1:]
	}
	return strings.ToUpper(zone)
}
