package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zagreb = Coordinates{Latitude: "45.81", Longitude: "15.98"}

func applyAll(t *testing.T, s State, events ...Event) (State, []Effect) {
	t.Helper()
	var effects []Effect
	for _, ev := range events {
		var eff Effect
		s, eff = Apply(Providers{}, s, ev)
		effects = append(effects, eff)
	}
	return s, effects
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState(ProviderEMSC)
	assert.Equal(t, ProviderEMSC, s.Provider)
	assert.Zero(t, s.MinMagnitude)
	assert.Nil(t, s.Location)
	assert.False(t, s.Loading)
	assert.NotNil(t, s.Results)
	assert.Empty(t, s.Results)
}

func TestApply_MagnitudeToggled(t *testing.T) {
	s := NewState(ProviderUSGS)

	s, eff := Apply(Providers{}, s, MagnitudeToggled{Threshold: 5})
	assert.Equal(t, 5, s.MinMagnitude)
	assert.True(t, s.Loading)
	assert.Equal(t, Effect{Fetch: true, Query: USGSBaseURL + "&minmagnitude=5"}, eff)
	assert.Equal(t, eff.Query, s.Query)

	// A different threshold replaces the active one.
	s, eff = Apply(Providers{}, s, MagnitudeToggled{Threshold: 3})
	assert.Equal(t, 3, s.MinMagnitude)
	assert.Equal(t, USGSBaseURL+"&minmagnitude=3", eff.Query)

	// Toggling the active threshold clears it.
	s, eff = Apply(Providers{}, s, MagnitudeToggled{Threshold: 3})
	assert.Zero(t, s.MinMagnitude)
	assert.Equal(t, USGSBaseURL, eff.Query)
}

func TestApply_MagnitudeToggled_OutOfRange(t *testing.T) {
	s := NewState(ProviderEMSC)
	next, eff := Apply(Providers{}, s, MagnitudeToggled{Threshold: 12})
	assert.False(t, eff.Fetch)
	if diff := cmp.Diff(s, next); diff != "" {
		t.Fatalf("state changed (-want +got):\n%s", diff)
	}
}

func TestApply_MagnitudeRoundTrip(t *testing.T) {
	for _, start := range []State{
		NewState(ProviderEMSC),
		{Filter: Filter{Provider: ProviderUSGS, Location: &zagreb}},
		{Filter: Filter{Provider: ProviderEMSC, MinMagnitude: 2}},
	} {
		before := Providers{}.Query(start.Filter)
		s, effects := applyAll(t, start, MagnitudeToggled{Threshold: 6}, MagnitudeToggled{Threshold: 6})
		after := effects[len(effects)-1].Query
		if start.MinMagnitude == 0 {
			assert.Equal(t, before, after)
		}
		assert.Equal(t, Providers{}.Query(s.Filter), after)
	}
}

func TestApply_MagnitudeChecked(t *testing.T) {
	s := NewState(ProviderEMSC)

	s, eff := Apply(Providers{}, s, MagnitudeChecked{Threshold: 4, Checked: true})
	assert.Equal(t, 4, s.MinMagnitude)
	assert.True(t, eff.Fetch)

	// Unchecking a chip that is not the active one is ignored.
	s, eff = Apply(Providers{}, s, MagnitudeChecked{Threshold: 2, Checked: false})
	assert.Equal(t, 4, s.MinMagnitude)
	assert.False(t, eff.Fetch)

	s, eff = Apply(Providers{}, s, MagnitudeChecked{Threshold: 4, Checked: false})
	assert.Zero(t, s.MinMagnitude)
	assert.True(t, eff.Fetch)
}

func TestApply_MagnitudeCleared(t *testing.T) {
	s := State{Filter: Filter{Provider: ProviderEMSC, MinMagnitude: 7}}
	s, eff := Apply(Providers{}, s, MagnitudeCleared{})
	assert.Zero(t, s.MinMagnitude)
	assert.Equal(t, EMSCBaseURL, eff.Query)
}

func TestApply_Provider(t *testing.T) {
	s := State{Filter: Filter{Provider: ProviderEMSC, MinMagnitude: 5, Location: &zagreb}}

	s, eff := Apply(Providers{}, s, ProviderSelected{Provider: ProviderUSGS})
	assert.Equal(t, ProviderUSGS, s.Provider)
	assert.Equal(t, USGSBaseURL+"&minmagnitude=5&latitude=45.81&longitude=15.98&maxradius=5", eff.Query)

	// Selecting the active provider still refetches.
	s, eff = Apply(Providers{}, s, ProviderSelected{Provider: ProviderUSGS})
	assert.Equal(t, ProviderUSGS, s.Provider)
	assert.True(t, eff.Fetch)

	s, eff = Apply(Providers{}, s, ProviderToggled{})
	assert.Equal(t, ProviderEMSC, s.Provider)
	assert.Equal(t, EMSCBaseURL+"&minmagnitude=5&latitude=45.81&longitude=15.98&maxradius=5", eff.Query)

	s, _ = Apply(Providers{}, s, ProviderToggled{})
	assert.Equal(t, ProviderUSGS, s.Provider)
}

func TestApply_NearMeToggled(t *testing.T) {
	s := NewState(ProviderEMSC)

	// No coordinates: nothing happens.
	next, eff := Apply(Providers{}, s, NearMeToggled{})
	assert.False(t, eff.Fetch)
	assert.Nil(t, next.Location)

	next, eff = Apply(Providers{}, s, NearMeToggled{Coordinates: &Coordinates{Latitude: "10.0"}})
	assert.False(t, eff.Fetch, "half a pair is not a location")
	assert.Nil(t, next.Location)

	coords := Coordinates{Latitude: "10.0", Longitude: "20.0"}
	s, eff = Apply(Providers{}, s, NearMeToggled{Coordinates: &coords})
	require.NotNil(t, s.Location)
	assert.Equal(t, EMSCBaseURL+"&latitude=10.0&longitude=20.0&maxradius=5", eff.Query)

	// The state keeps its own copy.
	coords.Latitude = "99"
	assert.Equal(t, "10.0", s.Location.Latitude)

	// Turning off ignores coordinates.
	s, eff = Apply(Providers{}, s, NearMeToggled{Coordinates: &zagreb})
	assert.Nil(t, s.Location)
	assert.Equal(t, EMSCBaseURL, eff.Query)
}

func TestApply_LocationSet(t *testing.T) {
	s := NewState(ProviderUSGS)

	s, eff := Apply(Providers{}, s, LocationSet{Coordinates: &zagreb})
	require.NotNil(t, s.Location)
	assert.Equal(t, USGSBaseURL+"&latitude=45.81&longitude=15.98&maxradius=5", eff.Query)

	// Setting again keeps the filter on, unlike a toggle.
	s, eff = Apply(Providers{}, s, LocationSet{Coordinates: &zagreb})
	require.NotNil(t, s.Location)
	assert.True(t, eff.Fetch)

	s, eff = Apply(Providers{}, s, LocationSet{})
	assert.Nil(t, s.Location)
	assert.Equal(t, USGSBaseURL, eff.Query)
}

func TestApply_Refreshed(t *testing.T) {
	s := State{Filter: Filter{Provider: ProviderUSGS, MinMagnitude: 2}, Results: []Record{{Place: "x"}}}
	next, eff := Apply(Providers{}, s, Refreshed{})
	assert.Equal(t, Effect{Fetch: true, Query: USGSBaseURL + "&minmagnitude=2"}, eff)
	assert.True(t, next.Loading)
	assert.Equal(t, s.Filter, next.Filter)
	assert.Equal(t, s.Results, next.Results, "results stay visible while loading")
}

func TestApply_FetchCompleted(t *testing.T) {
	s, _ := Apply(Providers{}, NewState(ProviderEMSC), Refreshed{})
	require.True(t, s.Loading)

	records := []Record{{Magnitude: 3, Place: "A", OccurredAtMs: 2, DetailURL: "u2"}, {Magnitude: 4, Place: "B", OccurredAtMs: 1, DetailURL: "u1"}}
	s, eff := Apply(Providers{}, s, FetchCompleted{Records: records})
	assert.False(t, eff.Fetch)
	assert.False(t, s.Loading)
	assert.False(t, s.LastFetchFailed)
	assert.Equal(t, records, s.Results, "native order is kept")

	s, _ = Apply(Providers{}, s, Refreshed{})
	s, _ = Apply(Providers{}, s, FetchCompleted{Records: records, Err: errors.New("boom")})
	assert.False(t, s.Loading)
	assert.True(t, s.LastFetchFailed)
	assert.Empty(t, s.Results)
	assert.NotNil(t, s.Results)
}

// The query depends only on the (provider, threshold, location) tuple.
func TestApply_QueryHasNoHiddenHistory(t *testing.T) {
	sequences := [][]Event{
		{ProviderToggled{}, MagnitudeToggled{Threshold: 5}, NearMeToggled{Coordinates: &zagreb}},
		{NearMeToggled{Coordinates: &zagreb}, MagnitudeToggled{Threshold: 2}, MagnitudeToggled{Threshold: 5}, ProviderSelected{Provider: ProviderUSGS}},
		{MagnitudeToggled{Threshold: 5}, ProviderToggled{}, ProviderToggled{}, ProviderToggled{}, NearMeToggled{Coordinates: &zagreb}, NearMeToggled{}, NearMeToggled{Coordinates: &zagreb}},
	}

	var queries []string
	for _, seq := range sequences {
		s, effects := applyAll(t, NewState(ProviderEMSC), seq...)
		assert.Equal(t, Filter{Provider: ProviderUSGS, MinMagnitude: 5, Location: &zagreb}, s.Filter)
		queries = append(queries, effects[len(effects)-1].Query)
	}
	for _, q := range queries[1:] {
		assert.Equal(t, queries[0], q)
	}
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeOf(nil))
	assert.Equal(t, OutcomeParseError, OutcomeOf(&ParseError{Provider: ProviderUSGS, Err: errors.New("bad")}))
	assert.Equal(t, OutcomeFetchError, OutcomeOf(&FetchError{URL: "http://x", StatusCode: 500}))
	assert.Equal(t, OutcomeFetchError, OutcomeOf(errors.New("context canceled")))

	assert.False(t, FetchSummary{Outcome: OutcomeSuccess}.Failed())
	assert.True(t, FetchSummary{Outcome: OutcomeParseError}.Failed())
}
