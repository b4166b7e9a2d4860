package domains_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/inbound/internal/dns"
	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/ses"
)

const (
	testUser    = "user-1"
	testMXHost  = "inbound-smtp.us-east-1.amazonaws.com"
	testSecret  = "unit-test-secret"
	otherUserID = "user-2"
)

// memStore is an in-memory Store for unit testing.
type memStore struct {
	mu        sync.Mutex
	domains   map[string]*domain.Domain            // keyed by id
	records   map[string][]domain.RequiredDNSRecord // keyed by domain id
	addresses map[string]int                        // domain id -> count
	endpoints map[string]string                     // endpoint id -> owner user id
}

func newMemStore() *memStore {
	return &memStore{
		domains:   make(map[string]*domain.Domain),
		records:   make(map[string][]domain.RequiredDNSRecord),
		addresses: make(map[string]int),
		endpoints: make(map[string]string),
	}
}

func (m *memStore) GetDomain(_ context.Context, userID, hostname string) (*domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.domains {
		if d.UserID == userID && d.Hostname == hostname {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domains.ErrNotFound
}

func (m *memStore) GetDomainByID(_ context.Context, id string) (*domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[id]
	if !ok {
		return nil, domains.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) CreateDomain(_ context.Context, d *domain.Domain, records []domain.RequiredDNSRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.domains {
		if existing.UserID == d.UserID && existing.Hostname == d.Hostname {
			return domains.ErrDomainExists
		}
	}
	cp := *d
	m.domains[cp.ID] = &cp
	m.records[cp.ID] = append([]domain.RequiredDNSRecord(nil), records...)
	return nil
}

func (m *memStore) UpdateDomainCheck(_ context.Context, u domains.CheckUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[u.DomainID]
	if !ok {
		return domains.ErrNotFound
	}
	d.Status = u.Status
	if u.LastDNSCheckAt != nil {
		d.LastDNSCheckAt = u.LastDNSCheckAt
	}
	if u.LastSESCheckAt != nil {
		d.LastSESCheckAt = u.LastSESCheckAt
	}
	return nil
}

func (m *memStore) UpdateDomainStatus(_ context.Context, id string, status domain.DomainStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[id]
	if !ok {
		return domains.ErrNotFound
	}
	d.Status = status
	return nil
}

func (m *memStore) SetCatchAll(_ context.Context, id string, enabled bool, endpointID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[id]
	if !ok {
		return domains.ErrNotFound
	}
	d.CatchAllEnabled = enabled
	d.CatchAllEndpoint = endpointID
	return nil
}

func (m *memStore) ListDomains(_ context.Context, userID string) ([]domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Domain
	for _, d := range m.domains {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) ListDomainsForRecheck(_ context.Context, staleBefore time.Time, limit int) ([]domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Domain
	for _, d := range m.domains {
		if len(out) >= limit {
			break
		}
		if d.Status == domain.DomainPending ||
			(d.Status == domain.DomainVerified && (d.LastDNSCheckAt == nil || d.LastDNSCheckAt.Before(staleBefore))) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteDomain(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[id]; !ok {
		return domains.ErrNotFound
	}
	delete(m.domains, id)
	delete(m.records, id)
	return nil
}

func (m *memStore) ListRequiredRecords(_ context.Context, domainID string) ([]domain.RequiredDNSRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RequiredDNSRecord(nil), m.records[domainID]...), nil
}

func (m *memStore) MarkRecordVerified(_ context.Context, recordID string, verified bool, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for domainID, records := range m.records {
		for i := range records {
			if records[i].ID == recordID {
				records[i].Verified = verified
				records[i].LastCheckedAt = &checkedAt
				m.records[domainID] = records
				return nil
			}
		}
	}
	return domains.ErrNotFound
}

func (m *memStore) CountAddresses(_ context.Context, domainID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addresses[domainID], nil
}

func (m *memStore) EndpointOwnedBy(_ context.Context, endpointID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoints[endpointID] == userID, nil
}

// fakeIdentity is an IdentityClient returning canned statuses.
type fakeIdentity struct {
	mu      sync.Mutex
	status  ses.IdentityStatus
	err     error
	created []string
	deleted []string
}

func (f *fakeIdentity) GetIdentityStatus(_ context.Context, _ string) (ses.IdentityStatus, error) {
	if f.err != nil {
		return ses.IdentityError, f.err
	}
	return f.status, nil
}

func (f *fakeIdentity) CreateIdentity(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, hostname)
	return nil
}

func (f *fakeIdentity) DeleteIdentity(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, hostname)
	return nil
}

type fixture struct {
	store    *memStore
	resolver *dns.MockResolver
	identity *fakeIdentity
	gen      *domains.Generator
	svc      *domains.Service
}

func newFixture() *fixture {
	store := newMemStore()
	resolver := &dns.MockResolver{
		MXRecords:  map[string][]dns.MX{},
		TXTRecords: map[string][]string{},
		CNAMEs:     map[string]string{},
	}
	identity := &fakeIdentity{status: ses.IdentityPending}
	gen := domains.NewGenerator(testSecret, testMXHost, 10)
	svc := domains.NewService(
		store,
		dns.NewChecker(resolver, testMXHost),
		dns.NewVerifier(resolver),
		identity,
		gen,
	)
	return &fixture{store: store, resolver: resolver, identity: identity, gen: gen, svc: svc}
}

// publishRecords simulates the user publishing the required records in
// their zone, by loading them into the mock resolver.
func (f *fixture) publishRecords(hostname string, records []domain.RequiredDNSRecord) {
	for _, rec := range records {
		switch rec.Type {
		case domain.RecordTXT:
			f.resolver.TXTRecords[rec.Name] = append(f.resolver.TXTRecords[rec.Name], rec.Value)
		case domain.RecordMX:
			f.resolver.MXRecords[rec.Name] = append(f.resolver.MXRecords[rec.Name], dns.MX{Host: rec.Value, Pref: 10})
		}
	}
}

func TestRegisterNewDomain(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Register(context.Background(), testUser, "  Example.COM ")
	require.NoError(t, err)

	assert.Equal(t, "example.com", res.Domain.Hostname)
	assert.Equal(t, domain.DomainPending, res.Domain.Status)
	assert.True(t, res.Domain.CanReceiveEmails)
	assert.False(t, res.Domain.HasMXRecords)
	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.RecordTXT, res.Records[0].Type)
	assert.Equal(t, domain.RecordMX, res.Records[1].Type)
	assert.Equal(t, []string{"example.com"}, f.identity.created)
}

func TestRegisterInvalidHostname(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Register(context.Background(), testUser, "not a domain")
	assert.Error(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, testUser, "example.com")
	assert.ErrorIs(t, err, domains.ErrDomainExists)

	// A different user may onboard the same hostname.
	_, err = f.svc.Register(ctx, otherUserID, "example.com")
	assert.NoError(t, err)
}

func TestRegisterConflictingMX(t *testing.T) {
	f := newFixture()
	f.resolver.MXRecords["example.com"] = []dns.MX{{Host: "aspmx.l.google.com", Pref: 1}}

	_, err := f.svc.Register(context.Background(), testUser, "example.com")
	var conflict *domains.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "aspmx.l.google.com")
}

func TestCheckHappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)

	// Before publication nothing verifies and the domain stays pending.
	check, err := f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainPending, check.Domain.Status)
	for _, r := range check.Records {
		assert.False(t, r.IsVerified)
	}

	// User publishes both records and SES confirms the identity.
	f.publishRecords("example.com", res.Records)
	f.identity.status = ses.IdentitySuccess

	check, err = f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainVerified, check.Domain.Status)
	assert.Equal(t, ses.IdentitySuccess, check.SESStatus)
	for _, r := range check.Records {
		assert.True(t, r.IsVerified, "%s %s", r.Type, r.Name)
	}
	require.NotNil(t, check.Domain.LastDNSCheckAt)
	require.NotNil(t, check.Domain.LastSESCheckAt)
}

func TestCheckDNSVerifiedButSESPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)
	f.publishRecords("example.com", res.Records)

	check, err := f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainPending, check.Domain.Status, "DNS alone does not verify")
}

func TestCheckSESFailedWinsOverDNS(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)
	f.publishRecords("example.com", res.Records)
	f.identity.status = ses.IdentityFailed

	check, err := f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainFailed, check.Domain.Status)
}

func TestCheckNeverRegressesVerifiedToPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)
	f.publishRecords("example.com", res.Records)
	f.identity.status = ses.IdentitySuccess

	_, err = f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)

	// SES later answers with every non-failed transient status; the domain
	// must stay verified through all of them.
	for _, status := range []ses.IdentityStatus{
		ses.IdentityPending, ses.IdentityTemporaryFailure, ses.IdentityNotStarted,
	} {
		f.identity.status = status
		check, err := f.svc.Check(ctx, testUser, "example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.DomainVerified, check.Domain.Status, "status %s", status)
	}
}

func TestCheckSESAPIErrorKeepsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)
	f.publishRecords("example.com", res.Records)
	f.identity.status = ses.IdentitySuccess

	_, err = f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	d, _ := f.store.GetDomain(ctx, testUser, "example.com")
	firstSESCheck := d.LastSESCheckAt

	f.identity.err = assert.AnError
	check, err := f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainVerified, check.Domain.Status)
	assert.Equal(t, ses.IdentityError, check.SESStatus)

	d, _ = f.store.GetDomain(ctx, testUser, "example.com")
	assert.Equal(t, firstSESCheck, d.LastSESCheckAt, "failed sync must not advance the SES check time")
}

func TestRetry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)

	_, err = f.svc.Retry(ctx, testUser, "example.com")
	assert.ErrorIs(t, err, domains.ErrNotRetryable, "pending domains cannot be retried")

	f.identity.status = ses.IdentityFailed
	_, err = f.svc.Check(ctx, testUser, "example.com")
	require.NoError(t, err)

	// The user fixes their records and retries.
	f.publishRecords("example.com", res.Records)
	f.identity.status = ses.IdentitySuccess

	check, err := f.svc.Retry(ctx, testUser, "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainVerified, check.Domain.Status)
}

func TestListWithCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resA, err := f.svc.Register(ctx, testUser, "a.example")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, testUser, "b.example")
	require.NoError(t, err)

	f.publishRecords("a.example", resA.Records)
	f.identity.status = ses.IdentitySuccess

	results, err := f.svc.List(ctx, testUser, true)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byHost := map[string]domains.CheckResult{}
	for _, r := range results {
		byHost[r.Domain.Hostname] = r
	}
	assert.Equal(t, domain.DomainVerified, byHost["a.example"].Domain.Status)
	assert.Equal(t, domain.DomainPending, byHost["b.example"].Domain.Status)
}

func TestSetCatchAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.endpoints["ep-1"] = testUser
	f.store.endpoints["ep-2"] = otherUserID

	_, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)

	ep := "ep-1"
	d, err := f.svc.SetCatchAll(ctx, testUser, "example.com", true, &ep)
	require.NoError(t, err)
	assert.True(t, d.CatchAllEnabled)
	require.NotNil(t, d.CatchAllEndpoint)
	assert.Equal(t, "ep-1", *d.CatchAllEndpoint)

	foreign := "ep-2"
	_, err = f.svc.SetCatchAll(ctx, testUser, "example.com", true, &foreign)
	assert.ErrorIs(t, err, domains.ErrEndpointNotOwned)

	_, err = f.svc.SetCatchAll(ctx, testUser, "example.com", true, nil)
	assert.ErrorIs(t, err, domains.ErrMissingEndpoint)

	d, err = f.svc.SetCatchAll(ctx, testUser, "example.com", false, nil)
	require.NoError(t, err)
	assert.False(t, d.CatchAllEnabled)
	assert.Nil(t, d.CatchAllEndpoint)
}

func TestDeleteBlockedByAddresses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, testUser, "example.com")
	require.NoError(t, err)

	f.store.addresses[res.Domain.ID] = 2
	err = f.svc.Delete(ctx, testUser, "example.com")
	assert.ErrorIs(t, err, domains.ErrHasAddresses)

	f.store.addresses[res.Domain.ID] = 0
	require.NoError(t, f.svc.Delete(ctx, testUser, "example.com"))
	assert.Equal(t, []string{"example.com"}, f.identity.deleted)

	_, err = f.svc.Check(ctx, testUser, "example.com")
	assert.ErrorIs(t, err, domains.ErrNotFound)
}
