package source

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

// ErrRateLimited indicates the upstream API answered 429.
var ErrRateLimited = errors.New("source: rate limit exceeded")

// StatusError is a non-2xx response from a plain HTTP source.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Is lets errors.Is(err, ErrRateLimited) hold for 429 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err came from a 429 response of any source.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// retryAfter extracts the Retry-After delay carried by err, or 0.
func retryAfter(err error) time.Duration {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.RetryAfter
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return parseRetryAfter(gerr.Header.Get("Retry-After"))
	}
	return 0
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
