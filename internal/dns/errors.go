package dns

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for DNS resolution.
var (
	// ErrNotFound means the name does not exist (NXDOMAIN) or the answer
	// held no records of the requested type.
	ErrNotFound = errors.New("dns: record not found")

	// ErrTimeout means the query did not complete within the deadline.
	ErrTimeout = errors.New("dns: query timed out")

	// ErrServFail means the upstream resolver reported a server failure.
	ErrServFail = errors.New("dns: server failure")
)

// IsNotFound reports whether err is a definitive "no such record" answer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether err is a transient resolution failure
// (timeout, SERVFAIL, cancelled context, network error). Transient
// failures must never be treated as proof that a record is absent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrServFail) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
