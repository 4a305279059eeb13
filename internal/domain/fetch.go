package domain

import (
	"errors"
	"time"
)

// Fetch outcomes recorded in metrics and the fetch archive.
const (
	OutcomeSuccess    = "success"
	OutcomeFetchError = "fetch_error"
	OutcomeParseError = "parse_error"
)

// FetchSummary describes one completed provider fetch. It is handed to the
// optional sinks after the records have been returned to the caller's path.
type FetchSummary struct {
	ID          string        `json:"id"`
	Provider    ProviderID    `json:"provider"`
	Query       string        `json:"query"`
	Outcome     string        `json:"outcome"`
	RecordCount int           `json:"record_count"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Failed reports whether the fetch produced no usable records.
func (s FetchSummary) Failed() bool {
	return s.Outcome != OutcomeSuccess
}

// OutcomeOf classifies a fetch error.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrParse):
		return OutcomeParseError
	default:
		return OutcomeFetchError
	}
}

// ProviderStats aggregates archived fetches for one provider.
type ProviderStats struct {
	Provider        string    `json:"provider"`
	Fetches         int64     `json:"fetches"`
	Failures        int64     `json:"failures"`
	Records         int64     `json:"records"`
	AvgDurationMs   float64   `json:"avg_duration_ms"`
	LastCompletedAt time.Time `json:"last_completed_at"`
}
