package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTableMissing is returned when a page lacks the table the extractor expects.
	ErrTableMissing = errors.New("expected table not found")

	// ErrRowMalformed is returned when a table row cannot be parsed.
	ErrRowMalformed = errors.New("malformed table row")

	// ErrPageLimitReached is returned in strict mode when pagination never signals its end.
	ErrPageLimitReached = errors.New("page limit reached without end-of-data signal")
)

// HTTPError is returned by fetchers for non-2xx responses.
type HTTPError struct {
	URL        string
	StatusCode int
	// RetryAfter is the raw Retry-After header value, if any.
	RetryAfter string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRateLimited reports whether the response was an HTTP 429.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// UnitError reports the failure of one unit of aggregation work: a season's
// registry fetch or a manager's record collection.
type UnitError struct {
	Season  int
	Manager *Manager
	Err     error
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	if e.Manager != nil {
		return fmt.Sprintf("collect records for manager %s (%s): %v", e.Manager.ID, e.Manager.Name, e.Err)
	}
	return fmt.Sprintf("list managers for season %d: %v", e.Season, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UnitError) Unwrap() error {
	return e.Err
}
