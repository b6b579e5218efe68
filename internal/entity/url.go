// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL together with
// its validity window and click ledger, and the relevant error definitions.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that is already live.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code is absent or expired.
	ErrURLNotFound = errors.New("url not found")
	// ErrMaxRetriesExceeded is returned when no free short code could be generated.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

// UnknownLocation is recorded when the origin of a click cannot be determined.
const UnknownLocation = "Unknown"

// URL represents a shortened URL.
type URL struct {
	ID          string    // ID is the opaque unique identifier assigned at creation.
	ShortCode   string    // ShortCode is the code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	Clicks      []Click   // Clicks is the append-only ledger of redirects, oldest first.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   time.Time // ExpiresAt is the moment the short code stops resolving.
}

// ClickCount returns the number of recorded redirects.
func (u *URL) ClickCount() int {
	return len(u.Clicks)
}

// IsExpired reports whether the URL is no longer resolvable at now.
func (u *URL) IsExpired(now time.Time) bool {
	return !now.Before(u.ExpiresAt)
}

// Click represents a single redirect of a shortened URL.
type Click struct {
	Timestamp time.Time // Timestamp is when the redirect happened.
	Referrer  string    // Referrer is the Referer header of the request, if any.
	UserAgent string    // UserAgent is the User-Agent header of the request, if any.
	Location  string    // Location is a best-effort origin descriptor.
}
