package routing

import "errors"

var (
	// ErrNotFound indicates that the requested address does not exist.
	ErrNotFound = errors.New("address not found")

	// ErrDomainNotFound indicates that the parent domain of the address
	// is not registered for the caller.
	ErrDomainNotFound = errors.New("domain not found")

	// ErrAddressExists indicates that the recipient address is already
	// taken. Addresses are unique system-wide, not per user.
	ErrAddressExists = errors.New("address already exists")

	// ErrBothTargets indicates that an address was given an endpoint and a
	// webhook at once; a target is one or the other.
	ErrBothTargets = errors.New("address may route to an endpoint or a webhook, not both")

	// ErrEndpointNotOwned indicates that the referenced endpoint does not
	// belong to the calling user.
	ErrEndpointNotOwned = errors.New("endpoint not owned by user")

	// ErrWebhookNotOwned indicates that the referenced webhook does not
	// belong to the calling user.
	ErrWebhookNotOwned = errors.New("webhook not owned by user")

	// ErrNoRoute indicates that an inbound recipient matched neither an
	// active address nor a catch-all.
	ErrNoRoute = errors.New("no route for recipient")
)
