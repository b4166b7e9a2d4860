package domain

import (
	"strings"
	"time"
)

// DomainStatus enumerates the verification lifecycle of an inbound domain.
type DomainStatus string

const (
	DomainPending  DomainStatus = "pending"
	DomainVerified DomainStatus = "verified"
	DomainFailed   DomainStatus = "failed"
)

// Confidence grades how certain the provider detector is about its match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MailProvider is the mail host currently serving a domain, as inferred
// from its published MX/CNAME records.
type MailProvider struct {
	Name       string     `json:"name"`
	Confidence Confidence `json:"confidence"`
}

// Domain represents one onboarded hostname for one owning user.
type Domain struct {
	ID                string        `json:"id" db:"id"`
	UserID            string        `json:"user_id" db:"user_id"`
	Hostname          string        `json:"hostname" db:"hostname"`
	Status            DomainStatus  `json:"status" db:"status"`
	CanReceiveEmails  bool          `json:"can_receive_emails" db:"can_receive_emails"`
	HasMXRecords      bool          `json:"has_mx_records" db:"has_mx_records"`
	Provider          *MailProvider `json:"provider,omitempty" db:"provider"`
	VerificationToken string        `json:"-" db:"verification_token"`
	CatchAllEnabled   bool          `json:"catch_all_enabled" db:"catch_all_enabled"`
	CatchAllEndpoint  *string       `json:"catch_all_endpoint_id,omitempty" db:"catch_all_endpoint_id"`
	LastDNSCheckAt    *time.Time    `json:"last_dns_check_at,omitempty" db:"last_dns_check_at"`
	LastSESCheckAt    *time.Time    `json:"last_ses_check_at,omitempty" db:"last_ses_check_at"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo reports whether moving the domain to next is a legal
// lifecycle transition. A verified domain never silently returns to
// pending; only failed domains may be retried back to pending.
func (d *Domain) CanTransitionTo(next DomainStatus) bool {
	if d.Status == next {
		return true
	}
	switch d.Status {
	case DomainPending:
		return next == DomainVerified || next == DomainFailed
	case DomainVerified:
		return next == DomainFailed
	case DomainFailed:
		return next == DomainPending
	}
	return false
}

// DNSRecordType is the type of a DNS record the user must publish.
type DNSRecordType string

const (
	RecordTXT DNSRecordType = "TXT"
	RecordMX  DNSRecordType = "MX"
)

// RequiredDNSRecord is one record the user must publish to prove ownership
// of a domain or to enable mail routing for it. The value is surfaced
// verbatim to the user for publication in their own DNS zone.
type RequiredDNSRecord struct {
	ID            string        `json:"id" db:"id"`
	DomainID      string        `json:"domain_id" db:"domain_id"`
	Type          DNSRecordType `json:"type" db:"record_type"`
	Name          string        `json:"name" db:"name"`
	Value         string        `json:"value" db:"value"`
	Priority      *int          `json:"priority,omitempty" db:"priority"`
	Required      bool          `json:"required" db:"required"`
	Verified      bool          `json:"verified" db:"verified"`
	LastCheckedAt *time.Time    `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// NormalizeHostname lowercases and trims a hostname, dropping a single
// trailing dot if present.
func NormalizeHostname(hostname string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
}

// ValidateHostname checks a normalized hostname against RFC 1035 grammar:
// dot-separated labels of letters, digits and hyphens, no leading/trailing
// hyphen, 63 chars per label, 253 total, at least two labels.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return invalidf("hostname cannot be empty")
	}
	if len(hostname) > 253 {
		return invalidf("hostname too long (max 253 characters)")
	}
	labels := strings.Split(hostname, ".")
	if len(labels) < 2 {
		return invalidf("invalid hostname %q: must contain at least one dot", hostname)
	}
	for _, label := range labels {
		if len(label) == 0 {
			return invalidf("invalid hostname %q: empty label", hostname)
		}
		if len(label) > 63 {
			return invalidf("invalid hostname %q: label too long (max 63 characters)", hostname)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return invalidf("invalid hostname %q: labels cannot start or end with hyphen", hostname)
		}
		for _, c := range label {
			if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
				return invalidf("invalid hostname %q: invalid character %q", hostname, c)
			}
		}
	}
	return nil
}
