package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, place string) (GeocodingResult, error)
}

// Locator is the device-location capability. ok is false when no position
// is available (no configured position, geocoding failed, nothing found);
// that is a normal state, not an error.
type Locator interface {
	LastKnownCoordinates(ctx context.Context) (coords Coordinates, ok bool)
}
