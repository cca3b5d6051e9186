package origin

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL indicates the target is not an absolute http(s) URL with a valid host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrFetchFailed indicates the origin could not be reached or did not
	// answer in time.
	ErrFetchFailed = errors.New("origin fetch failed")

	// ErrPrivateAddress indicates the target resolved only to addresses the
	// proxy refuses to connect to.
	ErrPrivateAddress = errors.New("origin resolves to a private address")
)

// StatusError is returned when the origin answers with status >= 400
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("origin returned status %d", e.StatusCode)
}

// RedirectError is returned when the origin answers with a 3xx and a
// Location. Location is absolute, resolved against the requested URL.
type RedirectError struct {
	StatusCode int
	Location   string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("origin redirected (%d) to %s", e.StatusCode, e.Location)
}
