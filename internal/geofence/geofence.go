// Package geofence decides whether a viewer's location claims satisfy a
// session's region policy.  Evaluation is pure and never fails: missing
// claims only produce fewer matches.
package geofence

import (
	"slices"
	"strings"

	"github.com/iliyamo/live-event-sessions/internal/model"
)

const (
	tokenGlobal        = "global"
	tokenInternational = "region:international"
	prefixCountry      = "country:"
	prefixState        = "state:"
	prefixCity         = "city:"
	prefixTimezone     = "timezone:"
	countryUS          = "US"
)

// Policy is the effective region policy for one session.
type Policy struct {
	// Restricted is false when neither the session nor its event constrain
	// location; such policies always allow.
	Restricted bool
	Type       model.GeofenceType
	Regions    []string
}

// Claims are the location facts a viewer supplies.  Any field may be empty.
type Claims struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	Timezone string `json:"timezone"` // IANA name, e.g. America/New_York
}

// Decision is the evaluation outcome.  Reason is set only on denial.
type Decision struct {
	Allowed        bool     `json:"allowed"`
	Reason         string   `json:"reason,omitempty"`
	MatchedRegions []string `json:"matched_regions"`
}

// Effective builds the policy for a session: the session's own regions
// win when present, otherwise the event's regions (or its attached
// policy's regions) apply.  The policy type comes from the event's
// geofence and defaults to ALLOWLIST.
func Effective(ev model.Event, s model.StreamingSession) Policy {
	p := Policy{Type: model.GeofenceAllowlist}
	if ev.Geofence != nil && ev.Geofence.Type != "" {
		p.Type = ev.Geofence.Type
	}
	if len(s.GeoRegions) == 0 && !ev.GeoRestricted {
		return p
	}
	p.Restricted = true
	switch {
	case len(s.GeoRegions) > 0:
		p.Regions = s.GeoRegions
	case len(ev.GeoRegions) > 0:
		p.Regions = ev.GeoRegions
	case ev.Geofence != nil:
		p.Regions = ev.Geofence.Regions
	}
	return p
}

// Evaluate applies p to the viewer's claims.
func Evaluate(p Policy, c Claims) Decision {
	if !p.Restricted {
		return Decision{Allowed: true, MatchedRegions: []string{}}
	}
	ids := Identifiers(c)
	matched := []string{}
	for _, region := range p.Regions {
		if matches(region, c, ids) {
			matched = append(matched, region)
		}
	}

	d := Decision{MatchedRegions: matched}
	// global opens the session to every viewer, whatever the list type
	if slices.Contains(p.Regions, tokenGlobal) {
		d.Allowed = true
		return d
	}
	switch p.Type {
	case model.GeofenceBlocklist:
		d.Allowed = len(matched) == 0
		if !d.Allowed {
			d.Reason = "content is not available in your region (" + strings.Join(matched, ", ") + ")"
		}
	default:
		d.Allowed = len(matched) > 0
		if !d.Allowed {
			d.Reason = "content is only available in: " + strings.Join(p.Regions, ", ")
		}
	}
	return d
}

// Identifiers returns the region tags describing a viewer, in the order
// country, state, city, timezone.
func Identifiers(c Claims) []string {
	var ids []string
	if c.Country != "" {
		ids = append(ids, prefixCountry+c.Country)
	}
	if c.State != "" {
		ids = append(ids, prefixState+c.State)
	}
	if c.City != "" {
		ids = append(ids, prefixCity+c.City)
	}
	if c.Timezone != "" {
		ids = append(ids, prefixTimezone+TimezoneAbbr(c.Timezone))
	}
	return ids
}

// matches reports whether a single policy region covers the viewer.
//
// A state: region matches any viewer whose country is US, regardless of
// which state the viewer is in.  This loose rule is kept as-is pending a
// product decision; see DESIGN.md.
func matches(region string, c Claims, ids []string) bool {
	switch {
	case region == tokenGlobal:
		return true
	case region == tokenInternational:
		return c.Country != "" && c.Country != countryUS
	}
	for _, id := range ids {
		if id == region {
			return true
		}
	}
	return strings.HasPrefix(region, prefixState) && c.Country == countryUS
}
