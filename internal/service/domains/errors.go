package domains

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domains service layer.
var (
	ErrNotFound         = errors.New("domain not found")
	ErrDomainExists     = errors.New("domain is already registered")
	ErrHasAddresses     = errors.New("domain still has recipient addresses")
	ErrNotRetryable     = errors.New("only failed domains can be retried")
	ErrMissingEndpoint  = errors.New("catch-all requires an endpoint")
	ErrEndpointNotOwned = errors.New("endpoint does not belong to this user")
)

// ConflictError rejects onboarding because of pre-existing DNS records.
// Reason names the offending record so the user can act on it.
type ConflictError struct {
	Hostname string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot onboard %s: %s", e.Hostname, e.Reason)
}
