package dns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/inbound/internal/domain"
)

func TestVerifyRecordsAllVerified(t *testing.T) {
	v := NewVerifier(&MockResolver{
		TXTRecords: map[string][]string{
			"example.com": {"ignite-domain-verification=abc123", "v=spf1 -all"},
		},
		MXRecords: map[string][]MX{
			"example.com": {{Host: "inbound-smtp.us-east-1.amazonaws.com", Pref: 10}},
		},
	})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordTXT, Name: "example.com", Value: "ignite-domain-verification=abc123"},
		{Type: domain.RecordMX, Name: "example.com", Value: "inbound-smtp.us-east-1.amazonaws.com"},
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.IsVerified, "%s %s", r.Type, r.Name)
		assert.Empty(t, r.Error)
	}
}

func TestVerifyRecordsMXPriorityIgnored(t *testing.T) {
	v := NewVerifier(&MockResolver{
		MXRecords: map[string][]MX{
			"example.com": {
				{Host: "backup.example.net", Pref: 20},
				{Host: "Inbound-SMTP.us-east-1.amazonaws.com.", Pref: 99},
			},
		},
	})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordMX, Name: "example.com", Value: "inbound-smtp.us-east-1.amazonaws.com"},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].IsVerified)
}

func TestVerifyRecordsTXTFragmentsAssembled(t *testing.T) {
	// Long TXT values can come back as separate answer strings.
	v := NewVerifier(&MockResolver{
		TXTRecords: map[string][]string{
			"example.com": {"ignite-domain-", "verification=abc123"},
		},
	})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordTXT, Name: "example.com", Value: "ignite-domain-verification=abc123"},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].IsVerified)
}

func TestVerifyRecordsMissingIsUnverifiedNotError(t *testing.T) {
	v := NewVerifier(&MockResolver{})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordTXT, Name: "example.com", Value: "ignite-domain-verification=abc123"},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].IsVerified)
	assert.Empty(t, results[0].Error)
}

func TestVerifyRecordsErrorIsolation(t *testing.T) {
	// One failing lookup must not disturb the other records in the batch.
	v := NewVerifier(&MockResolver{
		TXTRecords: map[string][]string{
			"example.com": {"ignite-domain-verification=abc123"},
		},
		Fail: []string{"mx example.com"},
	})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordTXT, Name: "example.com", Value: "ignite-domain-verification=abc123"},
		{Type: domain.RecordMX, Name: "example.com", Value: "inbound-smtp.us-east-1.amazonaws.com"},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].IsVerified)
	assert.Empty(t, results[0].Error)
	assert.False(t, results[1].IsVerified)
	assert.NotEmpty(t, results[1].Error)
}

func TestVerifyRecordsWrongValue(t *testing.T) {
	v := NewVerifier(&MockResolver{
		TXTRecords: map[string][]string{
			"example.com": {"ignite-domain-verification=OLD-TOKEN"},
		},
	})

	results := v.VerifyRecords(context.Background(), []RecordSpec{
		{Type: domain.RecordTXT, Name: "example.com", Value: "ignite-domain-verification=abc123"},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].IsVerified)
}

func TestVerifyRecordsOrderPreserved(t *testing.T) {
	v := NewVerifier(&MockResolver{})
	specs := []RecordSpec{
		{Type: domain.RecordTXT, Name: "a.com", Value: "1"},
		{Type: domain.RecordMX, Name: "b.com", Value: "2"},
		{Type: domain.RecordTXT, Name: "c.com", Value: "3"},
	}
	results := v.VerifyRecords(context.Background(), specs)
	require.Len(t, results, 3)
	for i := range specs {
		assert.Equal(t, specs[i].Name, results[i].Name)
		assert.Equal(t, specs[i].Type, results[i].Type)
	}
}
