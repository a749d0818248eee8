package scrape

import (
	"errors"
	"fmt"
)

// AuthenticationError means the marketplace refused the session: a
// two-factor challenge, a checkpoint or a failed login. It is never retried.
type AuthenticationError struct {
	Reason string
	URL    string
	Err    error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed: " + e.Reason
	if e.URL != "" {
		msg += " (at " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// NavigationTimeoutError means the login or search page did not load in time.
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s timed out: %v", e.URL, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

// IsNavigationTimeoutError checks if an error is a navigation timeout.
func IsNavigationTimeoutError(err error) bool {
	var target *NavigationTimeoutError
	return errors.As(err, &target)
}

// NoListingsFoundError means no results container matched on the search page.
type NoListingsFoundError struct {
	SearchURL string
	// Artifacts lists where diagnostics for the failure were written.
	Artifacts []string
}

func (e *NoListingsFoundError) Error() string {
	return fmt.Sprintf("no listings found at %s: the page structure may have changed or there are no matches in the area", e.SearchURL)
}

// IsNoListingsFoundError checks if an error is a no-listings error.
func IsNoListingsFoundError(err error) bool {
	var target *NoListingsFoundError
	return errors.As(err, &target)
}

// NoValidListingsError means the search page had results but no link
// matched the listing URL shape.
type NoValidListingsError struct {
	SearchURL  string
	Candidates int
}

func (e *NoValidListingsError) Error() string {
	return fmt.Sprintf("no valid listing URLs found at %s (%d candidate links)", e.SearchURL, e.Candidates)
}

// IsNoValidListingsError checks if an error is a no-valid-listings error.
func IsNoValidListingsError(err error) bool {
	var target *NoValidListingsError
	return errors.As(err, &target)
}

// PerListingExtractionError wraps a failure while processing one listing.
// The run logs it and moves on.
type PerListingExtractionError struct {
	URL string
	Err error
}

func (e *PerListingExtractionError) Error() string {
	return fmt.Sprintf("failed to process listing %s: %v", e.URL, e.Err)
}

func (e *PerListingExtractionError) Unwrap() error { return e.Err }

// IsPerListingExtractionError checks if an error is a per-listing failure.
func IsPerListingExtractionError(err error) bool {
	var target *PerListingExtractionError
	return errors.As(err, &target)
}
