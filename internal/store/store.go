// Package store holds the single session state shared by every front-end and
// runs the fetches the reducer asks for.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/quake-watch/internal/domain"
	"github.com/couchcryptid/quake-watch/internal/observability"
)

// Fetcher runs one provider query. It is satisfied by *pipeline.Pipeline.
type Fetcher interface {
	FetchAndNormalize(ctx context.Context, url string, provider domain.Provider) ([]domain.Record, error)
}

// Store applies events to the session state under a mutex and dispatches the
// fetches they request on their own goroutines. Fetches are neither cancelled
// nor sequenced, so the last one to complete determines the results.
type Store struct {
	providers domain.Providers
	fetcher   Fetcher
	locator   domain.Locator
	logger    *slog.Logger
	metrics   *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	ready  atomic.Bool

	mu      sync.Mutex
	state   domain.State
	subs    map[int]chan domain.State
	nextSub int
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLocator sets the location capability used by ToggleNearMe.
func WithLocator(l domain.Locator) Option {
	return func(s *Store) { s.locator = l }
}

// New creates a Store with the default state for provider.
func New(providers domain.Providers, provider domain.ProviderID, f Fetcher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		providers: providers,
		fetcher:   f,
		logger:    logger,
		metrics:   metrics,
		ctx:       ctx,
		cancel:    cancel,
		state:     domain.NewState(provider),
		subs:      make(map[int]chan domain.State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMagnitudeFilter toggles threshold n: it becomes the active threshold,
// or is cleared when it already was.
func (s *Store) SetMagnitudeFilter(n int) error {
	if !domain.ValidThreshold(n) {
		return domain.ErrInvalidThreshold
	}
	s.dispatch(domain.MagnitudeToggled{Threshold: n})
	return nil
}

// CheckMagnitude reports a chip's checked state for threshold n.
func (s *Store) CheckMagnitude(n int, checked bool) error {
	if !domain.ValidThreshold(n) {
		return domain.ErrInvalidThreshold
	}
	s.dispatch(domain.MagnitudeChecked{Threshold: n, Checked: checked})
	return nil
}

// ClearMagnitudeFilter drops the magnitude threshold.
func (s *Store) ClearMagnitudeFilter() {
	s.dispatch(domain.MagnitudeCleared{})
}

// SetProvider selects p as the active provider.
func (s *Store) SetProvider(p domain.ProviderID) {
	s.dispatch(domain.ProviderSelected{Provider: p})
}

// ToggleProvider switches to the other provider.
func (s *Store) ToggleProvider() {
	s.dispatch(domain.ProviderToggled{})
}

// ToggleNearMe flips the near-me filter. Turning it on asks the locator for
// coordinates first; when none are available nothing changes and false is
// returned. The on/off direction is re-checked under the lock; if another
// caller already moved the filter there during the lookup, nothing is
// dispatched and true is returned.
func (s *Store) ToggleNearMe(ctx context.Context) bool {
	if s.Snapshot().Location != nil {
		return s.dispatchIf(func(st domain.State) bool { return st.Location != nil }, domain.NearMeToggled{})
	}
	if s.locator == nil {
		s.logger.Info("near-me unavailable", "reason", "no location source")
		return false
	}

	coords, ok := s.locator.LastKnownCoordinates(ctx)
	if !ok {
		s.logger.Info("near-me unavailable", "reason", "location unknown")
		return false
	}
	return s.dispatchIf(func(st domain.State) bool { return st.Location == nil }, domain.NearMeToggled{Coordinates: &coords})
}

// SetLocationFilter replaces the near-me filter. nil turns it off.
func (s *Store) SetLocationFilter(coords *domain.Coordinates) {
	s.dispatch(domain.LocationSet{Coordinates: coords})
}

// Refresh re-issues the current query.
func (s *Store) Refresh() {
	s.dispatch(domain.Refreshed{})
}

// Snapshot returns the current state. Results is shared with the store and
// must not be modified.
func (s *Store) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives the state after every change.
// Only the latest state is kept for a slow reader. The returned function
// unsubscribes; the channel is closed by it or by Close.
func (s *Store) Subscribe() (<-chan domain.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// CheckReadiness returns nil once a fetch has completed, successful or not.
func (s *Store) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no fetch has completed yet")
	}
	return nil
}

// Close aborts in-flight fetches, waits for their goroutines and closes all
// subscriber channels. Completions that arrive after Close are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.metrics.StoreLoading.Set(0)
}

// dispatch applies ev and starts the fetch it requests. It reports whether
// the event changed anything.
func (s *Store) dispatch(ev domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ev)
}

// dispatchIf applies ev only while cond holds for the current state. When
// cond no longer holds it reports true without applying anything. A closed
// store reports false.
func (s *Store) dispatchIf(cond func(domain.State) bool, ev domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !cond(s.state) {
		return true
	}
	return s.dispatchLocked(ev)
}

func (s *Store) dispatchLocked(ev domain.Event) bool {
	if s.closed {
		return false
	}

	eff := s.applyLocked(ev)
	if !eff.Fetch {
		return false
	}

	provider := s.providers.Lookup(s.state.Provider)
	s.logger.Debug("dispatching fetch", "event", ev.Kind(), "query", eff.Query)
	s.wg.Add(1)
	go s.fetch(eff.Query, provider)
	return true
}

func (s *Store) fetch(query string, provider domain.Provider) {
	defer s.wg.Done()

	records, err := s.fetcher.FetchAndNormalize(s.ctx, query, provider)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.applyLocked(domain.FetchCompleted{Records: records, Err: err})
	s.ready.Store(true)
}

// applyLocked must be called with s.mu held.
func (s *Store) applyLocked(ev domain.Event) domain.Effect {
	next, eff := domain.Apply(s.providers, s.state, ev)
	s.state = next
	s.metrics.FilterEvents.WithLabelValues(ev.Kind()).Inc()
	if next.Loading {
		s.metrics.StoreLoading.Set(1)
	} else {
		s.metrics.StoreLoading.Set(0)
	}
	s.publishLocked()
	return eff
}

// publishLocked replaces whatever a subscriber has not read yet with the
// current state.
func (s *Store) publishLocked() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}
