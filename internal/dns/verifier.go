package dns

import (
	"context"
	"strings"
	"sync"

	"github.com/ignite/inbound/internal/domain"
)

// RecordSpec is one record to verify: its type, the name to resolve, and
// the value we expect to find there.
type RecordSpec struct {
	Type  domain.DNSRecordType
	Name  string
	Value string
}

// RecordResult reports the verification outcome for one RecordSpec. Value
// echoes the expected value so results can be rendered without joining
// back to the specs.
type RecordResult struct {
	Type       domain.DNSRecordType `json:"type"`
	Name       string               `json:"name"`
	Value      string               `json:"value"`
	IsVerified bool                 `json:"is_verified"`
	Error      string               `json:"error,omitempty"`
}

// Verifier re-resolves required DNS records and compares actual against
// expected values. Read-only and idempotent: safe to run on every page
// load or scheduled check.
type Verifier struct {
	resolver Resolver
}

// NewVerifier creates a DNS record verifier.
func NewVerifier(resolver Resolver) *Verifier {
	return &Verifier{resolver: resolver}
}

// VerifyRecords checks every spec concurrently and returns results in the
// same order. Total latency is bounded by the slowest single lookup. A
// resolver error for one record marks only that record unverified, with
// the error string populated; sibling records are unaffected.
func (v *Verifier) VerifyRecords(ctx context.Context, specs []RecordSpec) []RecordResult {
	results := make([]RecordResult, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec RecordSpec) {
			defer wg.Done()
			results[i] = v.verifyOne(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	return results
}

func (v *Verifier) verifyOne(ctx context.Context, spec RecordSpec) RecordResult {
	res := RecordResult{Type: spec.Type, Name: spec.Name, Value: spec.Value}

	switch spec.Type {
	case domain.RecordTXT:
		records, err := v.resolver.LookupTXT(ctx, spec.Name)
		if err != nil {
			if !IsNotFound(err) {
				res.Error = err.Error()
			}
			return res
		}
		res.IsVerified = txtMatches(records, spec.Value)

	case domain.RecordMX:
		records, err := v.resolver.LookupMX(ctx, spec.Name)
		if err != nil {
			if !IsNotFound(err) {
				res.Error = err.Error()
			}
			return res
		}
		res.IsVerified = mxMatches(records, spec.Value)

	default:
		res.Error = "unsupported record type " + string(spec.Type)
	}

	return res
}

// txtMatches reports whether expected equals any answer string. Resolvers
// already join character-string fragments, but some return fragments as
// separate answers, so the concatenation of all answers is accepted too.
func txtMatches(records []string, expected string) bool {
	var assembled strings.Builder
	for _, r := range records {
		if r == expected {
			return true
		}
		assembled.WriteString(r)
	}
	return assembled.String() == expected
}

// mxMatches compares by exchange hostname only; priority is ignored.
func mxMatches(records []MX, expected string) bool {
	want := strings.ToLower(strings.TrimSuffix(expected, "."))
	for _, mx := range records {
		if strings.ToLower(strings.TrimSuffix(mx.Host, ".")) == want {
			return true
		}
	}
	return false
}
