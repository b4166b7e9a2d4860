package domains

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/inbound/internal/dns"
	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/pkg/logger"
	"github.com/ignite/inbound/internal/ses"
)

// IdentityClient is the slice of the SES client the state machine needs.
type IdentityClient interface {
	GetIdentityStatus(ctx context.Context, hostname string) (ses.IdentityStatus, error)
	CreateIdentity(ctx context.Context, hostname string) error
	DeleteIdentity(ctx context.Context, hostname string) error
}

// RecordPublisher can write required records directly into a user's hosted
// zone when their DNS lives somewhere we can reach (Route53).
type RecordPublisher interface {
	CanPublish(ctx context.Context, hostname string) (bool, error)
	PublishRequiredRecords(ctx context.Context, hostname string, records []domain.RequiredDNSRecord) error
}

// Service is the domain status state machine. All API-facing domain
// operations run through it.
type Service struct {
	store     Store
	preflight *dns.Checker
	verifier  *dns.Verifier
	identity  IdentityClient
	gen       *Generator
	publisher RecordPublisher // optional

	// checkParallelism bounds concurrent per-domain checks in List.
	checkParallelism int
}

// NewService creates the domain lifecycle service.
func NewService(store Store, preflight *dns.Checker, verifier *dns.Verifier, identity IdentityClient, gen *Generator) *Service {
	return &Service{
		store:            store,
		preflight:        preflight,
		verifier:         verifier,
		identity:         identity,
		gen:              gen,
		checkParallelism: 4,
	}
}

// SetPublisher wires an optional hosted-zone record publisher.
func (s *Service) SetPublisher(p RecordPublisher) { s.publisher = p }

// RegisterResult is returned from a successful domain registration.
type RegisterResult struct {
	Domain    *domain.Domain             `json:"domain"`
	Records   []domain.RequiredDNSRecord `json:"records"`
	Preflight dns.PreflightResult        `json:"preflight"`
}

// Register onboards a new domain for a user: validates the hostname, runs
// the pre-flight conflict check, generates the required records once, and
// persists the domain in pending status.
func (s *Service) Register(ctx context.Context, userID, hostname string) (*RegisterResult, error) {
	hostname = domain.NormalizeHostname(hostname)
	if err := domain.ValidateHostname(hostname); err != nil {
		return nil, err
	}

	if _, err := s.store.GetDomain(ctx, userID, hostname); err == nil {
		return nil, ErrDomainExists
	} else if err != ErrNotFound {
		return nil, fmt.Errorf("check existing domain: %w", err)
	}

	pre := s.preflight.Preflight(ctx, hostname)
	if !pre.CanReceiveEmails {
		return nil, &ConflictError{Hostname: hostname, Reason: pre.Error}
	}

	// The token is bound at creation time and never regenerated: all later
	// verification calls re-read it through the stored required records.
	token := s.gen.Token(hostname, userID)
	records := s.gen.RequiredRecords(hostname, token)

	now := time.Now().UTC()
	d := &domain.Domain{
		ID:                uuid.New().String(),
		UserID:            userID,
		Hostname:          hostname,
		Status:            domain.DomainPending,
		CanReceiveEmails:  true,
		HasMXRecords:      pre.HasMXRecords,
		Provider:          pre.Provider,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for i := range records {
		records[i].ID = uuid.New().String()
		records[i].DomainID = d.ID
	}

	if err := s.store.CreateDomain(ctx, d, records); err != nil {
		return nil, err
	}

	// Kick off provider-side verification. Best effort: SES identity
	// creation failing now just means the first check starts it over.
	if err := s.identity.CreateIdentity(ctx, hostname); err != nil {
		logger.Warn("ses identity creation failed", "hostname", hostname, "error", err)
	}

	logger.Info("domain registered", "hostname", hostname, "user_id", userID, "domain_id", d.ID)
	return &RegisterResult{Domain: d, Records: records, Preflight: pre}, nil
}

// CheckResult is the outcome of one verification pass over a domain.
type CheckResult struct {
	Domain    *domain.Domain     `json:"domain"`
	Records   []dns.RecordResult `json:"records,omitempty"`
	SESStatus ses.IdentityStatus `json:"ses_status,omitempty"`
}

// Check re-verifies a domain's required DNS records and syncs the SES
// identity status, then applies the resulting lifecycle transition.
// Idempotent and safe under concurrent invocation: every write is a
// single-row upsert and the transition guard is monotonic.
func (s *Service) Check(ctx context.Context, userID, hostname string) (*CheckResult, error) {
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}
	return s.check(ctx, d)
}

func (s *Service) check(ctx context.Context, d *domain.Domain) (*CheckResult, error) {
	records, err := s.store.ListRequiredRecords(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("list required records: %w", err)
	}

	specs := make([]dns.RecordSpec, len(records))
	for i, rec := range records {
		specs[i] = dns.RecordSpec{Type: rec.Type, Name: rec.Name, Value: rec.Value}
	}

	now := time.Now().UTC()
	results := s.verifier.VerifyRecords(ctx, specs)

	allVerified := len(records) > 0
	for i, res := range results {
		if err := s.store.MarkRecordVerified(ctx, records[i].ID, res.IsVerified, now); err != nil {
			logger.Warn("record bookkeeping failed", "record_id", records[i].ID, "error", err)
		}
		if records[i].Required && !res.IsVerified {
			allVerified = false
		}
	}

	sesStatus, err := s.identity.GetIdentityStatus(ctx, d.Hostname)
	if err != nil {
		// API failure: report Error, keep the stored status. Stale but
		// correct beats a wrong transition.
		logger.Warn("ses identity status failed", "hostname", d.Hostname, "error", err)
	}

	next := d.Status
	switch {
	case sesStatus == ses.IdentityFailed:
		// Explicit provider failure wins regardless of DNS state.
		next = domain.DomainFailed
	case sesStatus == ses.IdentitySuccess && allVerified:
		next = domain.DomainVerified
	}
	if !d.CanTransitionTo(next) {
		next = d.Status
	}

	update := CheckUpdate{
		DomainID:       d.ID,
		Status:         next,
		LastDNSCheckAt: &now,
	}
	if sesStatus != ses.IdentityError {
		update.LastSESCheckAt = &now
	}
	if err := s.store.UpdateDomainCheck(ctx, update); err != nil {
		return nil, fmt.Errorf("persist check result: %w", err)
	}

	if next != d.Status {
		logger.Info("domain status changed", "hostname", d.Hostname, "from", d.Status, "to", next)
	}
	d.Status = next
	d.LastDNSCheckAt = &now
	if update.LastSESCheckAt != nil {
		d.LastSESCheckAt = update.LastSESCheckAt
	}

	return &CheckResult{Domain: d, Records: results, SESStatus: sesStatus}, nil
}

// CheckByID runs a check on a domain fetched by primary key. Used by the
// scheduled checker, which lists domains across users.
func (s *Service) CheckByID(ctx context.Context, domainID string) (*CheckResult, error) {
	d, err := s.store.GetDomainByID(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, d)
}

// Retry moves a failed domain back to pending and immediately re-checks.
func (s *Service) Retry(ctx context.Context, userID, hostname string) (*CheckResult, error) {
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DomainFailed {
		return nil, ErrNotRetryable
	}
	if err := s.store.UpdateDomainStatus(ctx, d.ID, domain.DomainPending); err != nil {
		return nil, fmt.Errorf("reset status: %w", err)
	}
	d.Status = domain.DomainPending
	return s.check(ctx, d)
}

// List returns the user's domains. With check set, each domain gets a
// fresh verification pass (bounded concurrency); a failed check falls back
// to the stored row so one flaky lookup never fails the whole listing.
func (s *Service) List(ctx context.Context, userID string, check bool) ([]CheckResult, error) {
	stored, err := s.store.ListDomains(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]CheckResult, len(stored))
	if !check {
		for i := range stored {
			out[i] = CheckResult{Domain: &stored[i]}
		}
		return out, nil
	}

	sem := make(chan struct{}, s.checkParallelism)
	var wg sync.WaitGroup
	for i := range stored {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := s.check(ctx, &stored[i])
			if err != nil {
				logger.Warn("listing check failed", "hostname", stored[i].Hostname, "error", err)
				out[i] = CheckResult{Domain: &stored[i]}
				return
			}
			out[i] = *res
		}(i)
	}
	wg.Wait()

	return out, nil
}

// Records returns the required DNS records for a domain, for display.
func (s *Service) Records(ctx context.Context, userID, hostname string) ([]domain.RequiredDNSRecord, error) {
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}
	return s.store.ListRequiredRecords(ctx, d.ID)
}

// SetCatchAll enables or disables domain-level catch-all routing. Catch-all
// is an acceptance flag read at inbound-message time; it is deliberately
// not expressed as provider receipt rules, so no reconciliation runs here.
func (s *Service) SetCatchAll(ctx context.Context, userID, hostname string, enabled bool, endpointID *string) (*domain.Domain, error) {
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return nil, err
	}

	if enabled {
		if endpointID == nil || *endpointID == "" {
			return nil, ErrMissingEndpoint
		}
		owned, err := s.store.EndpointOwnedBy(ctx, *endpointID, userID)
		if err != nil {
			return nil, fmt.Errorf("validate endpoint: %w", err)
		}
		if !owned {
			return nil, ErrEndpointNotOwned
		}
	} else {
		endpointID = nil
	}

	if err := s.store.SetCatchAll(ctx, d.ID, enabled, endpointID); err != nil {
		return nil, err
	}
	d.CatchAllEnabled = enabled
	d.CatchAllEndpoint = endpointID
	return d, nil
}

// Delete removes a domain that has no recipient addresses left. The SES
// identity is cleaned up best effort; a leftover identity is harmless.
func (s *Service) Delete(ctx context.Context, userID, hostname string) error {
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return err
	}

	n, err := s.store.CountAddresses(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("count addresses: %w", err)
	}
	if n > 0 {
		return ErrHasAddresses
	}

	if err := s.identity.DeleteIdentity(ctx, d.Hostname); err != nil {
		logger.Warn("ses identity cleanup failed", "hostname", d.Hostname, "error", err)
	}
	return s.store.DeleteDomain(ctx, d.ID)
}

// PublishRecords writes the required records into the user's hosted zone
// when a publisher is configured and the zone is reachable. Manual
// publication always remains available; errors here are advisory.
func (s *Service) PublishRecords(ctx context.Context, userID, hostname string) error {
	if s.publisher == nil {
		return fmt.Errorf("automatic record publication is not configured")
	}
	d, err := s.store.GetDomain(ctx, userID, domain.NormalizeHostname(hostname))
	if err != nil {
		return err
	}
	ok, err := s.publisher.CanPublish(ctx, d.Hostname)
	if err != nil {
		return fmt.Errorf("probe hosted zone: %w", err)
	}
	if !ok {
		return fmt.Errorf("no managed hosted zone found for %s", d.Hostname)
	}
	records, err := s.store.ListRequiredRecords(ctx, d.ID)
	if err != nil {
		return err
	}
	return s.publisher.PublishRequiredRecords(ctx, d.Hostname, records)
}
