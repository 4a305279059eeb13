package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// USGSBaseURL is the USGS FDSN event query with the fixed ordering and limit.
	USGSBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&orderby=time&limit=100"
	// EMSCBaseURL is the EMSC seismic portal FDSN event query.
	EMSCBaseURL = "https://www.seismicportal.eu/fdsnws/event/1/query?format=json&limit=100&orderby=time"
	// EMSCDetailBaseURL prefixes an EMSC source_id to form the event page link.
	EMSCDetailBaseURL = "https://www.emsc-csem.org/Earthquake/earthquake.php?id="

	emscTimeLayout = "2006-01-02T15:04:05.000Z"
)

// ProviderID identifies one of the supported data providers.
type ProviderID int

const (
	ProviderEMSC ProviderID = iota
	ProviderUSGS
)

func (p ProviderID) String() string {
	switch p {
	case ProviderUSGS:
		return "usgs"
	case ProviderEMSC:
		return "emsc"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// Other returns the provider that is not p.
func (p ProviderID) Other() ProviderID {
	if p == ProviderUSGS {
		return ProviderEMSC
	}
	return ProviderUSGS
}

// MarshalText encodes the provider as its lower-case name.
func (p ProviderID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the provider names understood by ParseProviderID.
func (p *ProviderID) UnmarshalText(b []byte) error {
	id, err := ParseProviderID(string(b))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// ParseProviderID resolves a case-insensitive provider name.
func ParseProviderID(name string) (ProviderID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "usgs":
		return ProviderUSGS, nil
	case "emsc":
		return ProviderEMSC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Provider builds queries for and parses responses from one data source.
type Provider interface {
	ID() ProviderID
	BaseQueryURL() string
	Parse(raw []byte) ([]Record, error)
}

// USGS parses the USGS GeoJSON dialect. A zero Endpoint uses USGSBaseURL.
type USGS struct {
	Endpoint string
}

func (USGS) ID() ProviderID { return ProviderUSGS }

func (u USGS) BaseQueryURL() string {
	if u.Endpoint != "" {
		return u.Endpoint
	}
	return USGSBaseURL
}

type usgsProperties struct {
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Time  *int64   `json:"time"`
	URL   *string  `json:"url"`
}

func (u USGS) Parse(raw []byte) ([]Record, error) {
	return parseFeatures(raw, ProviderUSGS, func(p usgsProperties) (Record, error) {
		if p.Mag == nil || p.Place == nil || p.Time == nil || p.URL == nil {
			return Record{}, errors.New("missing one of mag, place, time, url")
		}
		return Record{
			Magnitude:    *p.Mag,
			Place:        *p.Place,
			OccurredAtMs: *p.Time,
			DetailURL:    *p.URL,
		}, nil
	})
}

// EMSC parses the EMSC seismic portal dialect. A zero Endpoint uses
// EMSCBaseURL and a zero DetailBaseURL uses EMSCDetailBaseURL.
type EMSC struct {
	Endpoint      string
	DetailBaseURL string
}

func (EMSC) ID() ProviderID { return ProviderEMSC }

func (e EMSC) BaseQueryURL() string {
	if e.Endpoint != "" {
		return e.Endpoint
	}
	return EMSCBaseURL
}

type emscProperties struct {
	Mag         *float64 `json:"mag"`
	FlynnRegion *string  `json:"flynn_region"`
	Time        *string  `json:"time"`
	SourceID    *string  `json:"source_id"`
}

func (e EMSC) Parse(raw []byte) ([]Record, error) {
	detailBase := e.DetailBaseURL
	if detailBase == "" {
		detailBase = EMSCDetailBaseURL
	}
	return parseFeatures(raw, ProviderEMSC, func(p emscProperties) (Record, error) {
		if p.Mag == nil || p.FlynnRegion == nil || p.Time == nil || p.SourceID == nil {
			return Record{}, errors.New("missing one of mag, flynn_region, time, source_id")
		}
		return Record{
			Magnitude:    *p.Mag,
			Place:        *p.FlynnRegion,
			OccurredAtMs: ParseEMSCTime(*p.Time),
			DetailURL:    detailBase + *p.SourceID,
		}, nil
	})
}

// ParseEMSCTime converts an EMSC timestamp to epoch milliseconds.
// Returns 0 when the value matches neither the EMSC layout nor RFC 3339.
func ParseEMSCTime(s string) int64 {
	t, err := time.Parse(emscTimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0
		}
	}
	return t.UnixMilli()
}

type featureCollection struct {
	Features *[]json.RawMessage `json:"features"`
}

// parseFeatures walks the features array and maps each properties object.
// Any failure discards the whole batch.
func parseFeatures[P any](raw []byte, id ProviderID, mapFn func(P) (Record, error)) ([]Record, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return []Record{}, &ParseError{Provider: id, Err: err}
	}
	if fc.Features == nil {
		return []Record{}, &ParseError{Provider: id, Err: errors.New(`missing "features" array`)}
	}

	records := make([]Record, 0, len(*fc.Features))
	for i, rawFeature := range *fc.Features {
		var f struct {
			Properties *P `json:"properties"`
		}
		if err := json.Unmarshal(rawFeature, &f); err != nil {
			return []Record{}, &ParseError{Provider: id, Err: fmt.Errorf("feature %d: %w", i, err)}
		}
		if f.Properties == nil {
			return []Record{}, &ParseError{Provider: id, Err: fmt.Errorf("feature %d: missing properties", i)}
		}
		rec, err := mapFn(*f.Properties)
		if err != nil {
			return []Record{}, &ParseError{Provider: id, Err: fmt.Errorf("feature %d: %w", i, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Providers holds one adapter per provider case.
type Providers struct {
	USGS USGS
	EMSC EMSC
}

// Lookup returns the adapter for id.
func (p Providers) Lookup(id ProviderID) Provider {
	if id == ProviderUSGS {
		return p.USGS
	}
	return p.EMSC
}
