// Command quakefetch runs a single earthquake query and prints the
// normalized records as JSON. With -raw-out it also saves the provider's
// response body, which is how the test fixtures are refreshed.
//
// Usage:
//
//	go run ./cmd/quakefetch -provider usgs -min-magnitude 5
//	go run ./cmd/quakefetch -provider emsc -lat 37.98 -lon 23.72 -out quakes.json
//	go run ./cmd/quakefetch -provider emsc -raw-out testdata/emsc.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/couchcryptid/quake-watch/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-watch/internal/config"
	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/couchcryptid/quake-watch/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	provider := flag.String("provider", "", "provider to query: usgs or emsc (default QUAKE_PROVIDER)")
	minMag := flag.Int("min-magnitude", 0, "minimum magnitude 1-9, 0 for none")
	lat := flag.String("lat", "", "latitude for the near-me filter")
	lon := flag.String("lon", "", "longitude for the near-me filter")
	out := flag.String("out", "", "write records to this file instead of stdout")
	rawOut := flag.String("raw-out", "", "also write the raw provider response to this file")
	quiet := flag.Bool("q", false, "skip the summary on stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg.LogLevel, "text")

	filter, err := buildFilter(cfg.Provider, *provider, *minMag, *lat, *lon)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers := cfg.Providers()
	p := providers.Lookup(filter.Provider)
	query := providers.Query(filter)

	var fetcher pipeline.Fetcher = fdsn.NewClient(cfg.FetchConnectTimeout, cfg.FetchReadTimeout, logger)
	if *rawOut != "" {
		fetcher = &teeFetcher{inner: fetcher, path: *rawOut}
	}

	records, err := pipeline.New(fetcher, logger, observability.NewMetricsForTesting()).
		FetchAndNormalize(ctx, query, p)
	if err != nil {
		return err
	}

	if err := writeRecords(*out, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if !*quiet {
		printStats(os.Stderr, query, records)
	}
	return nil
}

// buildFilter turns the flags into a query filter. An empty provider keeps
// the configured default.
func buildFilter(def domain.ProviderID, provider string, minMag int, lat, lon string) (domain.Filter, error) {
	filter := domain.Filter{Provider: def, MinMagnitude: minMag}
	if provider != "" {
		p, err := domain.ParseProviderID(provider)
		if err != nil {
			return domain.Filter{}, err
		}
		filter.Provider = p
	}
	if minMag != 0 && !domain.ValidThreshold(minMag) {
		return domain.Filter{}, domain.ErrInvalidThreshold
	}
	if (lat == "") != (lon == "") {
		return domain.Filter{}, errors.New("-lat and -lon must be given together")
	}
	if lat != "" {
		coords := domain.Coordinates{Latitude: lat, Longitude: lon}
		if err := coords.Validate(); err != nil {
			return domain.Filter{}, err
		}
		filter.Location = &coords
	}
	return filter, nil
}

// teeFetcher saves every response body it passes through.
type teeFetcher struct {
	inner pipeline.Fetcher
	path  string
}

func (t *teeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := t.inner.Fetch(ctx, url)
	if err != nil {
		return body, err
	}
	if err := writeFile(t.path, body); err != nil {
		return nil, fmt.Errorf("write raw response: %w", err)
	}
	return body, nil
}

func writeRecords(path string, records []domain.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(w io.Writer, query string, records []domain.Record) {
	fmt.Fprintf(w, "query: %s\n", query)
	fmt.Fprintf(w, "records: %d\n", len(records))
	if len(records) == 0 {
		return
	}

	byMag := map[int]int{}
	strongest := records[0]
	for _, r := range records {
		byMag[int(r.Magnitude)]++
		if r.Magnitude > strongest.Magnitude {
			strongest = r
		}
	}
	mags := make([]int, 0, len(byMag))
	for m := range byMag {
		mags = append(mags, m)
	}
	sort.Ints(mags)
	for _, m := range mags {
		fmt.Fprintf(w, "  M%d.x: %d\n", m, byMag[m])
	}
	fmt.Fprintf(w, "strongest: M%.1f %s (%s)\n", strongest.Magnitude, strongest.Place, strongest.DetailURL)
}
