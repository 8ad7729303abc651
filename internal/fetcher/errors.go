package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// HTTPError reports a non-2xx, non-304 response.
type HTTPError struct {
	Status int
	URL    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.URL)
}

// IsTimeout reports whether err is a network or context deadline timeout.
// The backfill ladder routes timeouts straight to the deep-research stage.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// retryableStatus reports whether a status code is worth retrying on an
// idempotent GET.
func retryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
