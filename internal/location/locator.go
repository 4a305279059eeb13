// Package location provides the device-location capability used by the
// near-me filter.
package location

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/couchcryptid/quake-watch/internal/domain"
)

// Static reports a fixed position, typically from LOCATION_LAT/LOCATION_LON.
type Static struct {
	coords domain.Coordinates
}

// NewStatic returns a locator that always reports the given position.
func NewStatic(lat, lon string) *Static {
	return &Static{coords: domain.Coordinates{Latitude: lat, Longitude: lon}}
}

func (s *Static) LastKnownCoordinates(_ context.Context) (domain.Coordinates, bool) {
	return s.coords, s.coords.Valid()
}

// Geocoded resolves a configured place name through a geocoder. The first
// successful lookup is remembered; failures are retried on the next call.
type Geocoded struct {
	geocoder domain.Geocoder
	place    string
	logger   *slog.Logger

	mu     sync.Mutex
	coords *domain.Coordinates
}

// NewGeocoded returns a locator that geocodes place on demand.
func NewGeocoded(g domain.Geocoder, place string, logger *slog.Logger) *Geocoded {
	return &Geocoded{geocoder: g, place: place, logger: logger}
}

func (g *Geocoded) LastKnownCoordinates(ctx context.Context) (domain.Coordinates, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.coords != nil {
		return *g.coords, true
	}

	result, err := g.geocoder.ForwardGeocode(ctx, g.place)
	if err != nil {
		g.logger.Warn("geocode location failed", "place", g.place, "error", err)
		return domain.Coordinates{}, false
	}
	if result.FormattedAddress == "" {
		g.logger.Warn("location not found", "place", g.place)
		return domain.Coordinates{}, false
	}

	coords := domain.Coordinates{
		Latitude:  formatDegrees(result.Lat),
		Longitude: formatDegrees(result.Lon),
	}
	g.coords = &coords
	g.logger.Info("location resolved", "place", result.FormattedAddress,
		"lat", coords.Latitude, "lon", coords.Longitude)
	return coords, true
}

// Chain asks each locator in order and returns the first position found.
type Chain []domain.Locator

func (c Chain) LastKnownCoordinates(ctx context.Context) (domain.Coordinates, bool) {
	for _, l := range c {
		if coords, ok := l.LastKnownCoordinates(ctx); ok {
			return coords, true
		}
	}
	return domain.Coordinates{}, false
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
