package domains

import (
	"context"
	"time"

	"github.com/ignite/inbound/internal/domain"
)

// CheckUpdate carries the fields a check operation writes back to a domain
// row. Nil timestamps leave the stored value untouched.
type CheckUpdate struct {
	DomainID       string
	Status         domain.DomainStatus
	LastDNSCheckAt *time.Time
	LastSESCheckAt *time.Time
}

// Store defines the data access contract for domains and their required
// DNS records. Implementations must be safe for concurrent use; every
// write is a single-row upsert keyed by id.
type Store interface {
	// GetDomain returns the domain owned by userID with the given
	// hostname. Returns ErrNotFound if it doesn't exist.
	GetDomain(ctx context.Context, userID, hostname string) (*domain.Domain, error)

	// GetDomainByID returns a domain by primary key, any owner.
	GetDomainByID(ctx context.Context, id string) (*domain.Domain, error)

	// CreateDomain inserts a domain together with its required records in
	// one transaction. Returns ErrDomainExists on a hostname collision for
	// the same user.
	CreateDomain(ctx context.Context, d *domain.Domain, records []domain.RequiredDNSRecord) error

	// UpdateDomainCheck persists the outcome of a check operation.
	UpdateDomainCheck(ctx context.Context, u CheckUpdate) error

	// UpdateDomainStatus transitions only the status column.
	UpdateDomainStatus(ctx context.Context, id string, status domain.DomainStatus) error

	// SetCatchAll flips the catch-all flag and target endpoint.
	SetCatchAll(ctx context.Context, id string, enabled bool, endpointID *string) error

	// ListDomains returns all domains owned by userID, newest first.
	ListDomains(ctx context.Context, userID string) ([]domain.Domain, error)

	// ListDomainsForRecheck returns pending domains plus verified domains
	// whose last DNS check is older than staleBefore, capped at limit.
	ListDomainsForRecheck(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Domain, error)

	// DeleteDomain removes a domain and its required records.
	DeleteDomain(ctx context.Context, id string) error

	// ListRequiredRecords returns the records the user must publish,
	// in creation order.
	ListRequiredRecords(ctx context.Context, domainID string) ([]domain.RequiredDNSRecord, error)

	// MarkRecordVerified updates one record's verified flag and check time.
	MarkRecordVerified(ctx context.Context, recordID string, verified bool, checkedAt time.Time) error

	// CountAddresses returns how many recipient addresses (active or not)
	// reference the domain.
	CountAddresses(ctx context.Context, domainID string) (int, error)

	// EndpointOwnedBy reports whether the endpoint exists and belongs to
	// userID. Endpoints themselves are another service's concern; this
	// engine only validates ownership of the reference.
	EndpointOwnedBy(ctx context.Context, endpointID, userID string) (bool, error)
}
