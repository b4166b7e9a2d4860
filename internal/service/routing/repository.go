package routing

import (
	"context"

	"github.com/ignite/inbound/internal/domain"
)

// Store defines the data access contract for recipient addresses plus the
// domain lookups routing needs. Implementations must be safe for
// concurrent use.
type Store interface {
	// GetDomain returns the domain owned by userID with the given
	// hostname. Returns ErrDomainNotFound if it doesn't exist.
	GetDomain(ctx context.Context, userID, hostname string) (*domain.Domain, error)

	// GetDomainByID returns a domain by primary key, any owner.
	GetDomainByID(ctx context.Context, id string) (*domain.Domain, error)

	// GetDomainByHostname returns the domain with the given hostname,
	// regardless of owner. Inbound mail carries no user context; the
	// hostname alone identifies the domain. When several users hold the
	// same hostname, implementations prefer the verified one.
	GetDomainByHostname(ctx context.Context, hostname string) (*domain.Domain, error)

	// CreateAddress inserts a recipient address. Returns ErrAddressExists
	// when the address string is already taken by anyone.
	CreateAddress(ctx context.Context, a *domain.RecipientAddress) error

	// GetAddress returns the address owned by userID. Returns ErrNotFound
	// if it doesn't exist.
	GetAddress(ctx context.Context, userID, address string) (*domain.RecipientAddress, error)

	// GetActiveAddress returns the address row for an exact, active match
	// on the address string, any owner. Returns ErrNotFound otherwise.
	GetActiveAddress(ctx context.Context, address string) (*domain.RecipientAddress, error)

	// ListAddresses returns every address on the domain, newest first.
	// Reconciliation reads this fresh on every run.
	ListAddresses(ctx context.Context, domainID string) ([]domain.RecipientAddress, error)

	// SetAddressActive flips the active flag.
	SetAddressActive(ctx context.Context, id string, active bool) error

	// SetAddressTarget replaces the routing target. Exactly one of
	// endpointID / webhookID may be non-nil; both nil clears the target.
	SetAddressTarget(ctx context.Context, id string, endpointID, webhookID *string) error

	// DeleteAddress removes the address row.
	DeleteAddress(ctx context.Context, id string) error

	// MarkAddressRuleConfigured records whether the address is covered by
	// the provider-side rule, and under which rule name.
	MarkAddressRuleConfigured(ctx context.Context, id string, ruleName string, configured bool) error

	// EndpointOwnedBy reports whether the endpoint exists and belongs to
	// userID.
	EndpointOwnedBy(ctx context.Context, endpointID, userID string) (bool, error)

	// WebhookOwnedBy reports whether the webhook exists and belongs to
	// userID.
	WebhookOwnedBy(ctx context.Context, webhookID, userID string) (bool, error)
}
