//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/quake-watch/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-watch/internal/adapter/kafka"
	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/couchcryptid/quake-watch/internal/pipeline"
	"github.com/couchcryptid/quake-watch/internal/store"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-earthquake-records"

const usgsFixture = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"mag":7.1,"place":"Kamchatka Peninsula, Russia","time":1700000000000,
   "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us7000l1a1"}},
  {"type":"Feature","properties":{"mag":5.2,"place":"Vanuatu Islands","time":1699990000000,
   "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us7000l1a2"}},
  {"type":"Feature","properties":{"mag":4.8,"place":"Northern Peru","time":1699980000000,
   "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us7000l1a3"}}]}`

type publishedMessage struct {
	Key     string
	Headers map[string]string
	Body    map[string]any
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body), "unmarshal message")
	return publishedMessage{Key: string(msg.Key), Headers: headers, Body: body}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestStoreFetchPublishesRecords drives a store refresh against a fake USGS
// endpoint and verifies every record lands on the topic.
func TestStoreFetchPublishesRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("minmagnitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usgsFixture))
	}))
	t.Cleanup(upstream.Close)

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fdsn.NewClient(5*time.Second, 5*time.Second, discardLogger()),
		discardLogger(), metrics, pipeline.WithPublisher(publisher))

	providers := domain.Providers{USGS: domain.USGS{Endpoint: upstream.URL + "/query?format=geojson&limit=100"}}
	s := store.New(providers, domain.ProviderUSGS, p, discardLogger(), metrics)
	t.Cleanup(s.Close)

	require.NoError(t, s.SetMagnitudeFilter(4))
	require.Eventually(t, func() bool {
		return len(s.Snapshot().Results) == 3
	}, 30*time.Second, 50*time.Millisecond)

	consumer := newConsumer(t, broker)
	received := map[string]publishedMessage{}
	for len(received) < 3 {
		pm := readPublished(ctx, t, consumer)
		received[pm.Key] = pm
	}

	pm, ok := received["https://earthquake.usgs.gov/earthquakes/eventpage/us7000l1a1"]
	require.True(t, ok, "expected the Kamchatka record keyed by detail URL")
	assert.Equal(t, "usgs", pm.Headers[kafka.HeaderProvider])
	_, err := time.Parse(time.RFC3339, pm.Headers[kafka.HeaderFetchedAt])
	assert.NoError(t, err, "fetched_at should be valid RFC3339")
	assert.NotEmpty(t, pm.Headers[kafka.HeaderFetchID])
	assert.Equal(t, "Kamchatka Peninsula, Russia", pm.Body["place"])
	assert.InDelta(t, 7.1, pm.Body["magnitude"], 0.0001)
	assert.Equal(t, "usgs", pm.Body["provider"])

	fetchIDs := map[string]bool{}
	for _, m := range received {
		fetchIDs[m.Headers[kafka.HeaderFetchID]] = true
	}
	assert.Len(t, fetchIDs, 1, "one fetch produces one fetch id")
}

// TestFailedFetchPublishesNothing verifies a failing upstream never reaches
// the topic while the store still settles with empty results.
func TestFailedFetchPublishesNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(upstream.Close)

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fdsn.NewClient(5*time.Second, 5*time.Second, discardLogger()),
		discardLogger(), metrics, pipeline.WithPublisher(publisher))

	providers := domain.Providers{EMSC: domain.EMSC{Endpoint: upstream.URL + "/query?format=json&limit=100"}}
	s := store.New(providers, domain.ProviderEMSC, p, discardLogger(), metrics)
	t.Cleanup(s.Close)

	s.Refresh()
	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return !st.Loading && st.LastFetchFailed
	}, 30*time.Second, 50*time.Millisecond)
	assert.Empty(t, s.Snapshot().Results)

	consumer := newConsumer(t, broker)
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message on topic")
}
