// Package geo extracts request origin metadata injected by the CDN edge.
package geo

import (
	"net/http"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
)

// Cloudflare request headers carrying visitor geolocation.
const (
	headerCountry   = "CF-IPCountry"
	headerCity      = "CF-IPCity"
	headerRegion    = "CF-Region"
	headerLatitude  = "CF-IPLatitude"
	headerLongitude = "CF-IPLongitude"
	headerTimezone  = "CF-Timezone"
)

// ClientContextFromRequest builds the user-agent and geo snapshot captured
// alongside a session. Absent headers yield nil fields, not empty strings.
func ClientContextFromRequest(r *http.Request) telemetry.ClientContext {
	return telemetry.ClientContext{
		UserAgent: optionalHeader(r, "User-Agent"),
		Country:   optionalHeader(r, headerCountry),
		City:      optionalHeader(r, headerCity),
		Region:    optionalHeader(r, headerRegion),
	}
}

// Location is the extended edge geolocation recorded with form submissions.
type Location struct {
	Country   *string
	City      *string
	Region    *string
	Latitude  *string
	Longitude *string
	Timezone  *string
}

// LocationFromRequest reads the full set of edge geolocation headers.
func LocationFromRequest(r *http.Request) Location {
	return Location{
		Country:   optionalHeader(r, headerCountry),
		City:      optionalHeader(r, headerCity),
		Region:    optionalHeader(r, headerRegion),
		Latitude:  optionalHeader(r, headerLatitude),
		Longitude: optionalHeader(r, headerLongitude),
		Timezone:  optionalHeader(r, headerTimezone),
	}
}

func optionalHeader(r *http.Request, name string) *string {
	value := r.Header.Get(name)
	if value == "" {
		return nil
	}
	return &value
}
