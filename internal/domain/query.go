package domain

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// MinThreshold and MaxThreshold bound the minimum-magnitude filter.
	MinThreshold = 1
	MaxThreshold = 9

	// SearchRadius is the near-me radius in degrees sent as maxradius.
	SearchRadius = 5
)

// Coordinates is a latitude/longitude pair kept in the textual form the
// location source produced it in, so queries carry it verbatim.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Valid reports whether both halves of the pair are present.
func (c Coordinates) Valid() bool {
	return c.Latitude != "" && c.Longitude != ""
}

// Validate reports whether both halves parse as finite numbers within
// ±90 latitude and ±180 longitude. The error wraps ErrInvalidCoordinates.
func (c Coordinates) Validate() error {
	if err := validateDegrees("latitude", c.Latitude, 90); err != nil {
		return err
	}
	return validateDegrees("longitude", c.Longitude, 180)
}

func validateDegrees(name, value string, limit float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return fmt.Errorf("%w: %s %q", ErrInvalidCoordinates, name, value)
	}
	return nil
}

// Filter is the query-relevant slice of the filter state.
type Filter struct {
	Provider ProviderID `json:"provider"`
	// MinMagnitude is 0 when no threshold is active.
	MinMagnitude int `json:"min_magnitude,omitempty"`
	// Location is nil when the near-me filter is off.
	Location *Coordinates `json:"location,omitempty"`
}

// ValidThreshold reports whether n is an accepted magnitude threshold.
func ValidThreshold(n int) bool {
	return n >= MinThreshold && n <= MaxThreshold
}

// BuildQuery composes the full request URL for f against p: base URL, then
// the magnitude clause, then the location clause.
func BuildQuery(p Provider, f Filter) string {
	q := p.BaseQueryURL()
	if f.MinMagnitude != 0 {
		q += "&minmagnitude=" + strconv.Itoa(f.MinMagnitude)
	}
	if f.Location != nil {
		q += "&latitude=" + f.Location.Latitude +
			"&longitude=" + f.Location.Longitude +
			"&maxradius=" + strconv.Itoa(SearchRadius)
	}
	return q
}

// Query builds the request URL for f using the matching adapter.
func (p Providers) Query(f Filter) string {
	return BuildQuery(p.Lookup(f.Provider), f)
}
