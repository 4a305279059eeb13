// Package domain models recent-earthquake data from the USGS and EMSC FDSN
// event services and the filter state that drives queries against them.
//
// # Providers
//
// Both providers expose an FDSN event query endpoint and answer with a JSON
// object holding a top-level "features" array, one entry per event. The
// per-event "properties" object differs:
//
//	USGS  (format=geojson): mag (number), place (string), time (epoch ms), url (string)
//	EMSC  (format=json):    mag (number), flynn_region (string), time (string), source_id (string)
//
// EMSC times use the layout "2006-01-02T15:04:05.000Z" and are read as UTC.
// EMSC does not return a detail page link; it is built from [EMSCDetailBaseURL]
// and the event's source_id.
//
// # Parsing
//
// Parsing is all-or-nothing per response. A missing "features" array, a
// payload that is not JSON, or a single entry missing a required property
// yields an empty record list together with a [*ParseError]. An EMSC time
// that cannot be parsed is not an entry failure: the record gets a zero
// timestamp.
//
// # Query composition
//
// A query URL is always rebuilt from scratch from the provider base URL,
// then the optional minimum magnitude clause, then the optional location
// clause with a fixed search radius of [SearchRadius] degrees:
//
//	<base>&minmagnitude=5&latitude=45.8&longitude=15.9&maxradius=5
//
// # Filter state
//
// [State] is advanced only by [Apply], which returns the next state and an
// [Effect] telling the caller whether a fetch must be issued and for which
// query. Fetch completions are themselves events ([FetchCompleted]), so the
// reducer alone defines how results, loading and failure flags move.
package domain
