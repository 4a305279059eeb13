package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every *FetchError via errors.Is.
	ErrFetch = errors.New("fetch failed")
	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("parse failed")
	// ErrInvalidThreshold is returned for magnitude thresholds outside 1..9.
	ErrInvalidThreshold = errors.New("magnitude threshold must be between 1 and 9")
	// ErrInvalidCoordinates is returned for a latitude or longitude that is not
	// a finite number in range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnknownProvider is returned when a provider name cannot be resolved.
	ErrUnknownProvider = errors.New("unknown provider")
)

// FetchError reports a transport failure or a non-200 response.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a payload that is not JSON or does not have the
// provider's expected shape.
type ParseError struct {
	Provider ProviderID
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
