package domain

// State is the complete session state observed by front-ends.
type State struct {
	Filter
	Loading         bool     `json:"loading"`
	Results         []Record `json:"results"`
	LastFetchFailed bool     `json:"last_fetch_failed"`
	// Query is the URL of the most recently dispatched fetch.
	Query string `json:"query"`
}

// NewState returns the session defaults for the given provider.
func NewState(provider ProviderID) State {
	return State{
		Filter:  Filter{Provider: provider},
		Results: []Record{},
	}
}

// Effect is the side effect requested by a transition.
type Effect struct {
	// Fetch is true when Query must be fetched.
	Fetch bool
	Query string
}

// Event is a state transition request.
type Event interface {
	// Kind is a short label used for logs and metrics.
	Kind() string
}

// MagnitudeToggled turns Threshold on, or off when it is already active.
type MagnitudeToggled struct{ Threshold int }

// MagnitudeChecked mirrors a checkable chip: Checked sets Threshold, an
// uncheck only clears it when Threshold is the active one.
type MagnitudeChecked struct {
	Threshold int
	Checked   bool
}

// MagnitudeCleared drops any active threshold.
type MagnitudeCleared struct{}

// ProviderSelected makes Provider the active provider.
type ProviderSelected struct{ Provider ProviderID }

// ProviderToggled switches to the other provider.
type ProviderToggled struct{}

// NearMeToggled flips the near-me filter. Coordinates are required to turn
// it on; without them the event is a no-op.
type NearMeToggled struct{ Coordinates *Coordinates }

// LocationSet replaces the near-me filter outright. A nil or incomplete
// Coordinates turns the filter off.
type LocationSet struct{ Coordinates *Coordinates }

// Refreshed re-issues the current query.
type Refreshed struct{}

// FetchCompleted delivers the outcome of a dispatched fetch.
type FetchCompleted struct {
	Records []Record
	Err     error
}

func (MagnitudeToggled) Kind() string { return "magnitude_toggled" }
func (MagnitudeChecked) Kind() string { return "magnitude_checked" }
func (MagnitudeCleared) Kind() string { return "magnitude_cleared" }
func (ProviderSelected) Kind() string { return "provider_selected" }
func (ProviderToggled) Kind() string  { return "provider_toggled" }
func (NearMeToggled) Kind() string    { return "near_me_toggled" }
func (LocationSet) Kind() string      { return "location_set" }
func (Refreshed) Kind() string        { return "refreshed" }
func (FetchCompleted) Kind() string   { return "fetch_completed" }

// Apply advances s by ev. The returned Effect asks the caller to fetch when
// the query-relevant state changed or a refresh was requested; the returned
// state already has Loading set and Query recorded in that case.
func Apply(providers Providers, s State, ev Event) (State, Effect) {
	switch ev := ev.(type) {
	case MagnitudeToggled:
		if !ValidThreshold(ev.Threshold) {
			return s, Effect{}
		}
		if s.MinMagnitude == ev.Threshold {
			s.MinMagnitude = 0
		} else {
			s.MinMagnitude = ev.Threshold
		}
		return dispatch(providers, s)

	case MagnitudeChecked:
		if !ValidThreshold(ev.Threshold) {
			return s, Effect{}
		}
		switch {
		case ev.Checked:
			s.MinMagnitude = ev.Threshold
		case s.MinMagnitude == ev.Threshold:
			s.MinMagnitude = 0
		default:
			return s, Effect{}
		}
		return dispatch(providers, s)

	case MagnitudeCleared:
		s.MinMagnitude = 0
		return dispatch(providers, s)

	case ProviderSelected:
		s.Provider = ev.Provider
		return dispatch(providers, s)

	case ProviderToggled:
		s.Provider = s.Provider.Other()
		return dispatch(providers, s)

	case NearMeToggled:
		if s.Location != nil {
			s.Location = nil
			return dispatch(providers, s)
		}
		if ev.Coordinates == nil || !ev.Coordinates.Valid() {
			return s, Effect{}
		}
		loc := *ev.Coordinates
		s.Location = &loc
		return dispatch(providers, s)

	case LocationSet:
		if ev.Coordinates == nil || !ev.Coordinates.Valid() {
			s.Location = nil
		} else {
			loc := *ev.Coordinates
			s.Location = &loc
		}
		return dispatch(providers, s)

	case Refreshed:
		return dispatch(providers, s)

	case FetchCompleted:
		s.Loading = false
		s.LastFetchFailed = ev.Err != nil
		if ev.Err != nil || ev.Records == nil {
			s.Results = []Record{}
		} else {
			s.Results = ev.Records
		}
		return s, Effect{}
	}
	return s, Effect{}
}

func dispatch(providers Providers, s State) (State, Effect) {
	s.Query = providers.Query(s.Filter)
	s.Loading = true
	return s, Effect{Fetch: true, Query: s.Query}
}
