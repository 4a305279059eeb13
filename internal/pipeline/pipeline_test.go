package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/couchcryptid/quake-watch/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usgsBody = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"mag":6.1,"place":"Off the coast of Chile","time":1700000000000,
   "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us6000lf5k"}},
  {"type":"Feature","properties":{"mag":4.4,"place":"Kermadec Islands","time":1699990000000,
   "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us6000lf3p"}}]}`

const query = "https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&limit=100&minmagnitude=4"

// --- mocks ---

type mockFetcher struct {
	body []byte
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	return m.body, m.err
}

type mockPublisher struct {
	mu        sync.Mutex
	err       error
	batches   [][]domain.Record
	summaries []domain.FetchSummary
}

func (m *mockPublisher) Publish(_ context.Context, s domain.FetchSummary, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, records)
	m.summaries = append(m.summaries, s)
	return m.err
}

type mockRecorder struct {
	err       error
	summaries []domain.FetchSummary
}

func (m *mockRecorder) RecordFetch(_ context.Context, s domain.FetchSummary) error {
	m.summaries = append(m.summaries, s)
	return m.err
}

func freezeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })
	return fake
}

// --- tests ---

func TestFetchAndNormalize_Success(t *testing.T) {
	freezeClock(t)
	fetcher := &mockFetcher{body: []byte(usgsBody)}
	pub := &mockPublisher{}
	rec := &mockRecorder{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(fetcher, observability.DiscardLogger(), metrics,
		pipeline.WithPublisher(pub), pipeline.WithRecorder(rec))

	records, err := p.FetchAndNormalize(context.Background(), query, domain.USGS{})
	require.NoError(t, err)

	want := []domain.Record{
		{Magnitude: 6.1, Place: "Off the coast of Chile", OccurredAtMs: 1700000000000,
			DetailURL: "https://earthquake.usgs.gov/earthquakes/eventpage/us6000lf5k"},
		{Magnitude: 4.4, Place: "Kermadec Islands", OccurredAtMs: 1699990000000,
			DetailURL: "https://earthquake.usgs.gov/earthquakes/eventpage/us6000lf3p"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{query}, fetcher.urls)

	require.Len(t, rec.summaries, 1)
	s := rec.summaries[0]
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, domain.ProviderUSGS, s.Provider)
	assert.Equal(t, query, s.Query)
	assert.Equal(t, domain.OutcomeSuccess, s.Outcome)
	assert.Equal(t, 2, s.RecordCount)
	assert.Empty(t, s.Error)
	assert.Equal(t, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC), s.CompletedAt)

	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
	assert.Equal(t, s.ID, pub.summaries[0].ID, "publisher and recorder see the same fetch id")

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("usgs", domain.OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestFetchAndNormalize_FetchError(t *testing.T) {
	fetcher := &mockFetcher{err: &domain.FetchError{URL: query, StatusCode: 503}}
	pub := &mockPublisher{}
	rec := &mockRecorder{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(fetcher, observability.DiscardLogger(), metrics,
		pipeline.WithPublisher(pub), pipeline.WithRecorder(rec))

	records, err := p.FetchAndNormalize(context.Background(), query, domain.USGS{})
	require.Error(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 503, fe.StatusCode)

	require.Len(t, rec.summaries, 1, "failed fetches are still recorded")
	assert.Equal(t, domain.OutcomeFetchError, rec.summaries[0].Outcome)
	assert.True(t, rec.summaries[0].Failed())
	assert.Contains(t, rec.summaries[0].Error, "status 503")
	assert.Empty(t, pub.batches, "failed fetches are never published")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("usgs", domain.OutcomeFetchError)), 0)
}

func TestFetchAndNormalize_WrapsPlainTransportErrors(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("connection reset by peer")}
	p := pipeline.New(fetcher, observability.DiscardLogger(), observability.NewMetricsForTesting())

	_, err := p.FetchAndNormalize(context.Background(), query, domain.EMSC{})
	require.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestFetchAndNormalize_ParseError(t *testing.T) {
	fetcher := &mockFetcher{body: []byte(`{"features": [`)}
	rec := &mockRecorder{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, observability.DiscardLogger(), metrics, pipeline.WithRecorder(rec))

	records, err := p.FetchAndNormalize(context.Background(), query, domain.EMSC{})
	require.ErrorIs(t, err, domain.ErrParse)
	assert.Empty(t, records)

	require.Len(t, rec.summaries, 1)
	assert.Equal(t, domain.OutcomeParseError, rec.summaries[0].Outcome)
	assert.Equal(t, domain.ProviderEMSC, rec.summaries[0].Provider)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("emsc", domain.OutcomeParseError)), 0)
}

func TestFetchAndNormalize_SinkFailuresDoNotChangeResult(t *testing.T) {
	fetcher := &mockFetcher{body: []byte(usgsBody)}
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	rec := &mockRecorder{err: errors.New("disk full")}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(fetcher, observability.DiscardLogger(), metrics,
		pipeline.WithPublisher(pub), pipeline.WithRecorder(rec))

	records, err := p.FetchAndNormalize(context.Background(), query, domain.USGS{})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchiveErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestFetchAndNormalize_EmptyBatchNotPublished(t *testing.T) {
	fetcher := &mockFetcher{body: []byte(`{"type":"FeatureCollection","features":[]}`)}
	pub := &mockPublisher{}
	p := pipeline.New(fetcher, observability.DiscardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithPublisher(pub))

	records, err := p.FetchAndNormalize(context.Background(), query, domain.USGS{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, pub.batches)
}

func TestFetchAndNormalize_CancelledContextSkipsSinks(t *testing.T) {
	fetcher := &mockFetcher{err: context.Canceled}
	rec := &mockRecorder{}
	p := pipeline.New(fetcher, observability.DiscardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FetchAndNormalize(ctx, query, domain.USGS{})
	require.ErrorIs(t, err, domain.ErrFetch)
	assert.Empty(t, rec.summaries)
}

func TestFetchAndNormalize_DistinctFetchIDs(t *testing.T) {
	fetcher := &mockFetcher{body: []byte(usgsBody)}
	rec := &mockRecorder{}
	p := pipeline.New(fetcher, observability.DiscardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithRecorder(rec))

	for range 3 {
		_, err := p.FetchAndNormalize(context.Background(), query, domain.USGS{})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for _, s := range rec.summaries {
		seen[s.ID] = true
	}
	assert.Len(t, seen, 3)
}
