package dataflows

import (
	"errors"
	"fmt"
)

var (
	// ErrQuoteNotFound means the provider confirmed it has no data for the
	// symbol and date.
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrBeyondHistory means the date is older than a provider can reach in
	// one request, so absence of a quote proves nothing.
	ErrBeyondHistory = errors.New("date beyond longport history window")
	// ErrFetchFailed means both the direct fetch and the rendering fallback failed.
	ErrFetchFailed = errors.New("page fetch failed")
)

// TransportError is a connection level failure: the request never produced
// an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
