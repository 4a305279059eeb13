package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/google/uuid"
)

// Fetcher retrieves the raw body of a provider query URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Publisher forwards a successful batch of records to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, summary domain.FetchSummary, records []domain.Record) error
}

// Recorder appends a fetch outcome to a durable log.
type Recorder interface {
	RecordFetch(ctx context.Context, summary domain.FetchSummary) error
}

// Pipeline fetches a query URL, hands the body to the provider's parser and
// reports every outcome to metrics, logs and the optional sinks.
type Pipeline struct {
	fetcher   Fetcher
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures optional pipeline sinks.
type Option func(*Pipeline)

// WithPublisher publishes every successful batch.
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithRecorder records every fetch outcome, failed or not.
func WithRecorder(r Recorder) Option {
	return func(pl *Pipeline) { pl.recorder = r }
}

// New creates a Pipeline around the given fetcher.
func New(f Fetcher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: f,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchAndNormalize performs one GET of url and parses the body with
// provider. It returns a *domain.FetchError for transport failures and non-200
// responses and a *domain.ParseError for malformed payloads. Sink failures are
// logged and never change the result.
func (p *Pipeline) FetchAndNormalize(ctx context.Context, url string, provider domain.Provider) ([]domain.Record, error) {
	id := uuid.NewString()
	start := domain.Now()
	logger := p.logger.With("fetch_id", id, "provider", provider.ID().String())

	records, err := p.fetchAndParse(ctx, url, provider)

	summary := domain.FetchSummary{
		ID:          id,
		Provider:    provider.ID(),
		Query:       url,
		Outcome:     domain.OutcomeOf(err),
		RecordCount: len(records),
		Duration:    domain.Since(start),
		CompletedAt: domain.Now().UTC(),
	}
	if err != nil {
		summary.Error = err.Error()
	}

	p.observe(summary)
	if err != nil {
		logger.Warn("fetch failed", "query", url, "outcome", summary.Outcome, "error", err)
	} else {
		logger.Info("fetch completed", "query", url, "records", len(records), "duration", summary.Duration)
	}

	p.sink(ctx, logger, summary, records)
	return records, err
}

func (p *Pipeline) fetchAndParse(ctx context.Context, url string, provider domain.Provider) ([]domain.Record, error) {
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			err = &domain.FetchError{URL: url, Err: err}
		}
		return []domain.Record{}, err
	}
	return provider.Parse(body)
}

func (p *Pipeline) observe(s domain.FetchSummary) {
	provider := s.Provider.String()
	p.metrics.FetchRequests.WithLabelValues(provider, s.Outcome).Inc()
	p.metrics.FetchDuration.WithLabelValues(provider).Observe(s.Duration.Seconds())
	if !s.Failed() {
		p.metrics.RecordsFetched.WithLabelValues(provider).Observe(float64(s.RecordCount))
	}
}

// sink runs the optional sinks. A cancelled caller context skips them: the
// fetch was abandoned and nothing downstream needs to hear about it.
func (p *Pipeline) sink(ctx context.Context, logger *slog.Logger, s domain.FetchSummary, records []domain.Record) {
	if ctx.Err() != nil {
		return
	}
	if p.recorder != nil {
		if err := p.recorder.RecordFetch(ctx, s); err != nil {
			p.metrics.ArchiveErrors.Inc()
			logger.Error("record fetch failed", "error", err)
		}
	}
	if p.publisher != nil && !s.Failed() && len(records) > 0 {
		if err := p.publisher.Publish(ctx, s, records); err != nil {
			p.metrics.PublishErrors.Inc()
			logger.Error("publish records failed", "error", err, "records", len(records))
			return
		}
		p.metrics.RecordsPublished.Add(float64(len(records)))
	}
}
