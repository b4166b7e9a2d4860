package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/pkg/logger"
)

// Service owns recipient address lifecycle and inbound route resolution.
// Every mutation ends with a reconciliation of the parent domain so the
// provider-side rule always reflects the stored active set.
type Service struct {
	store      Store
	reconciler *Reconciler
}

// NewService creates the routing service.
func NewService(store Store, provider RuleProvider) *Service {
	return &Service{
		store:      store,
		reconciler: NewReconciler(store, provider),
	}
}

// CreateAddressInput carries the fields for a new recipient address. The
// routing target is optional; an address without one still reserves the
// mailbox and is carried in the receipt rule.
type CreateAddressInput struct {
	Address    string  `json:"address"`
	EndpointID *string `json:"endpoint_id,omitempty"`
	WebhookID  *string `json:"webhook_id,omitempty"`
}

// AddressResult pairs an address with the reconciliation outcome of the
// mutation that produced it.
type AddressResult struct {
	Address   *domain.RecipientAddress `json:"address"`
	Reconcile *ReconcileResult         `json:"reconcile,omitempty"`
}

// CreateAddress adds a recipient address under one of the user's domains.
// The parent domain is derived from the address's domain part, never
// passed separately, so an address can't be attached to the wrong domain.
func (s *Service) CreateAddress(ctx context.Context, userID string, in CreateAddressInput) (*AddressResult, error) {
	addr := domain.NormalizeAddress(in.Address)
	_, host, err := domain.SplitAddress(addr)
	if err != nil {
		return nil, err
	}

	dom, err := s.store.GetDomain(ctx, userID, host)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAddress(addr, dom.Hostname); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, userID, in.EndpointID, in.WebhookID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &domain.RecipientAddress{
		ID:         uuid.New().String(),
		DomainID:   dom.ID,
		UserID:     userID,
		Address:    addr,
		EndpointID: in.EndpointID,
		WebhookID:  in.WebhookID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateAddress(ctx, a); err != nil {
		return nil, err
	}

	rec, err := s.reconciler.Reconcile(ctx, dom)
	if err != nil {
		// The address row exists either way. Surface the provider failure
		// so the caller knows the rule isn't live yet; a later mutation or
		// explicit resync converges it.
		return nil, fmt.Errorf("address created but rule not applied: %w", err)
	}

	a.RuleConfigured = true
	a.RuleName = rec.RuleName
	logger.Info("address created", "address", addr, "domain_id", dom.ID, "rule", rec.RuleName)
	return &AddressResult{Address: a, Reconcile: rec}, nil
}

// SetActive enables or disables an address. Disabling removes it from the
// receipt rule without losing its configuration; disabling the last active
// address removes the rule entirely.
func (s *Service) SetActive(ctx context.Context, userID, address string, active bool) (*AddressResult, error) {
	a, dom, err := s.lookup(ctx, userID, address)
	if err != nil {
		return nil, err
	}

	if a.Active != active {
		if err := s.store.SetAddressActive(ctx, a.ID, active); err != nil {
			return nil, err
		}
		a.Active = active
	}

	rec, err := s.reconciler.Reconcile(ctx, dom)
	if err != nil {
		return nil, fmt.Errorf("address updated but rule not applied: %w", err)
	}
	a.RuleConfigured = active && !rec.Deleted
	a.RuleName = rec.RuleName
	return &AddressResult{Address: a, Reconcile: rec}, nil
}

// SetTarget replaces the routing target of an address. Assigning one kind
// clears the other; nil for both detaches the target entirely. Targets are
// local routing state, so no reconciliation runs.
func (s *Service) SetTarget(ctx context.Context, userID, address string, endpointID, webhookID *string) (*domain.RecipientAddress, error) {
	a, _, err := s.lookup(ctx, userID, address)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, userID, endpointID, webhookID); err != nil {
		return nil, err
	}
	if err := s.store.SetAddressTarget(ctx, a.ID, endpointID, webhookID); err != nil {
		return nil, err
	}
	a.EndpointID = endpointID
	a.WebhookID = webhookID
	return a, nil
}

// DeleteAddress removes an address and reconciles the remaining set.
func (s *Service) DeleteAddress(ctx context.Context, userID, address string) (*ReconcileResult, error) {
	a, dom, err := s.lookup(ctx, userID, address)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteAddress(ctx, a.ID); err != nil {
		return nil, err
	}

	rec, err := s.reconciler.Reconcile(ctx, dom)
	if err != nil {
		return nil, fmt.Errorf("address deleted but rule not updated: %w", err)
	}
	logger.Info("address deleted", "address", a.Address, "domain_id", dom.ID)
	return rec, nil
}

// ListAddresses returns every address on the user's domain.
func (s *Service) ListAddresses(ctx context.Context, userID, hostname string) ([]domain.RecipientAddress, error) {
	dom, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}
	return s.store.ListAddresses(ctx, dom.ID)
}

// Resync forces a reconciliation of the domain's receipt rule against the
// stored address set. The repair entry point when a prior mutation left a
// warning or the provider was edited out-of-band.
func (s *Service) Resync(ctx context.Context, userID, hostname string) (*ReconcileResult, error) {
	dom, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, dom)
}

// Route is the resolved delivery target for one inbound recipient.
type Route struct {
	// Kind is "address" for an exact match or "catchall" for a domain
	// catch-all fallback.
	Kind       string  `json:"kind"`
	DomainID   string  `json:"domain_id"`
	AddressID  string  `json:"address_id,omitempty"`
	EndpointID *string `json:"endpoint_id,omitempty"`
	WebhookID  *string `json:"webhook_id,omitempty"`
}

// ResolveRoute maps an inbound recipient to its delivery target: an exact
// active address wins, then the domain catch-all, then ErrNoRoute. A
// disabled address does not fall through differently from a missing one.
func (s *Service) ResolveRoute(ctx context.Context, recipient string) (*Route, error) {
	addr := domain.NormalizeAddress(recipient)
	_, host, err := domain.SplitAddress(addr)
	if err != nil {
		return nil, err
	}

	a, err := s.store.GetActiveAddress(ctx, addr)
	if err == nil {
		return &Route{
			Kind:       "address",
			DomainID:   a.DomainID,
			AddressID:  a.ID,
			EndpointID: a.EndpointID,
			WebhookID:  a.WebhookID,
		}, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	dom, err := s.store.GetDomainByHostname(ctx, host)
	if err != nil {
		if err == ErrDomainNotFound {
			return nil, ErrNoRoute
		}
		return nil, err
	}
	if !dom.CatchAllEnabled || dom.CatchAllEndpoint == nil {
		return nil, ErrNoRoute
	}
	return &Route{
		Kind:       "catchall",
		DomainID:   dom.ID,
		EndpointID: dom.CatchAllEndpoint,
	}, nil
}

// lookup fetches the address and its parent domain for a mutation.
func (s *Service) lookup(ctx context.Context, userID, address string) (*domain.RecipientAddress, *domain.Domain, error) {
	a, err := s.store.GetAddress(ctx, userID, domain.NormalizeAddress(address))
	if err != nil {
		return nil, nil, err
	}
	dom, err := s.store.GetDomainByID(ctx, a.DomainID)
	if err != nil {
		return nil, nil, err
	}
	return a, dom, nil
}

// checkTarget validates a routing target reference: at most one of
// endpoint / webhook, and whichever is set must belong to the user.
func (s *Service) checkTarget(ctx context.Context, userID string, endpointID, webhookID *string) error {
	if endpointID != nil && webhookID != nil {
		return ErrBothTargets
	}
	if endpointID != nil {
		owned, err := s.store.EndpointOwnedBy(ctx, *endpointID, userID)
		if err != nil {
			return fmt.Errorf("check endpoint ownership: %w", err)
		}
		if !owned {
			return ErrEndpointNotOwned
		}
	}
	if webhookID != nil {
		owned, err := s.store.WebhookOwnedBy(ctx, *webhookID, userID)
		if err != nil {
			return fmt.Errorf("check webhook ownership: %w", err)
		}
		if !owned {
			return ErrWebhookNotOwned
		}
	}
	return nil
}
