package dns

import (
	"context"
	"slices"
)

// MockResolver is a map-backed Resolver for tests. Keys are bare hostnames
// (no trailing dot). Names listed in Fail return ErrServFail; names listed
// in Timeout return ErrTimeout; anything absent returns ErrNotFound.
type MockResolver struct {
	MXRecords  map[string][]MX
	TXTRecords map[string][]string
	CNAMEs     map[string]string
	NSRecords  map[string][]string

	// Fail lists "type name" pairs that resolve to ErrServFail,
	// e.g. "txt _verify.example.com".
	Fail []string

	// Timeout lists "type name" pairs that resolve to ErrTimeout.
	Timeout []string
}

var _ Resolver = (*MockResolver)(nil)

func (m *MockResolver) check(ctx context.Context, qtype, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := qtype + " " + name
	if slices.Contains(m.Fail, key) {
		return ErrServFail
	}
	if slices.Contains(m.Timeout, key) {
		return ErrTimeout
	}
	return nil
}

func (m *MockResolver) LookupMX(ctx context.Context, name string) ([]MX, error) {
	if err := m.check(ctx, "mx", name); err != nil {
		return nil, err
	}
	records, ok := m.MXRecords[name]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (m *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if err := m.check(ctx, "txt", name); err != nil {
		return nil, err
	}
	records, ok := m.TXTRecords[name]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (m *MockResolver) LookupCNAME(ctx context.Context, name string) (string, error) {
	if err := m.check(ctx, "cname", name); err != nil {
		return "", err
	}
	target, ok := m.CNAMEs[name]
	if !ok {
		return "", ErrNotFound
	}
	return target, nil
}

func (m *MockResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	if err := m.check(ctx, "ns", name); err != nil {
		return nil, err
	}
	records, ok := m.NSRecords[name]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}
