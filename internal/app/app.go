// Package app wires configuration into a running state store with its fetch
// pipeline, sinks and location source. Every front-end builds exactly one.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/quake-watch/internal/adapter/duckdb"
	"github.com/couchcryptid/quake-watch/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-watch/internal/adapter/kafka"
	"github.com/couchcryptid/quake-watch/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-watch/internal/config"
	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/location"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/couchcryptid/quake-watch/internal/pipeline"
	"github.com/couchcryptid/quake-watch/internal/store"
)

// App owns the store and everything it depends on.
type App struct {
	Store *store.Store
	// Archive is nil when ARCHIVE_PATH is unset.
	Archive *duckdb.Store

	publisher *kafka.Publisher
	logger    *slog.Logger
}

// New builds the store from cfg. Optional sinks that fail to open are fatal;
// a disabled sink is simply left out.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{logger: logger}
	var opts []pipeline.Option

	if cfg.ArchivePath != "" {
		archive, err := duckdb.NewStore(ctx, cfg.ArchivePath, 0)
		if err != nil {
			return nil, err
		}
		a.Archive = archive
		opts = append(opts, pipeline.WithRecorder(archive))
		logger.Info("fetch archive enabled", "path", cfg.ArchivePath)
	}

	if cfg.KafkaEnabled {
		a.publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts = append(opts, pipeline.WithPublisher(a.publisher))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	client := fdsn.NewClient(cfg.FetchConnectTimeout, cfg.FetchReadTimeout, logger)
	p := pipeline.New(client, logger, metrics, opts...)

	var storeOpts []store.Option
	if loc := newLocator(cfg, logger, metrics); loc != nil {
		storeOpts = append(storeOpts, store.WithLocator(loc))
	}
	a.Store = store.New(cfg.Providers(), cfg.Provider, p, logger, metrics, storeOpts...)
	return a, nil
}

// newLocator prefers the configured position and falls back to geocoding
// LOCATION_PLACE when Mapbox is enabled. It returns nil when neither is set.
func newLocator(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Locator {
	var chain location.Chain
	if cfg.LocationLat != "" {
		chain = append(chain, location.NewStatic(cfg.LocationLat, cfg.LocationLon))
	}
	if cfg.MapboxEnabled && cfg.LocationPlace != "" {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		chain = append(chain, location.NewGeocoded(geocoder, cfg.LocationPlace, logger))
		logger.Info("mapbox geocoding enabled", "place", cfg.LocationPlace, "cache_size", cfg.MapboxCacheSize)
	}
	if len(chain) == 0 {
		logger.Info("no location source configured; near-me is unavailable")
		return nil
	}
	return chain
}

// Close stops the store first so no fetch writes to a closed sink.
func (a *App) Close() error {
	a.Store.Close()

	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
