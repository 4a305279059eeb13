package domain

import "time"

// Record is one earthquake after provider-specific normalization.
type Record struct {
	Magnitude    float64 `json:"magnitude"`
	Place        string  `json:"place"`
	OccurredAtMs int64   `json:"occurred_at_ms"`
	DetailURL    string  `json:"detail_url"`
}

// OccurredAt returns the event time in UTC, or the zero time when the
// provider timestamp could not be parsed.
func (r Record) OccurredAt() time.Time {
	if r.OccurredAtMs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.OccurredAtMs).UTC()
}
