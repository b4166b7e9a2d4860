package domain

import (
	"strings"
	"time"
)

// RecipientAddress is one mailbox address on an onboarded domain, with a
// routing target. At most one of EndpointID / WebhookID is set; assigning
// one clears the other. Addresses are globally unique, not just per domain.
type RecipientAddress struct {
	ID             string    `json:"id" db:"id"`
	DomainID       string    `json:"domain_id" db:"domain_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Address        string    `json:"address" db:"address"`
	EndpointID     *string   `json:"endpoint_id,omitempty" db:"endpoint_id"`
	WebhookID      *string   `json:"webhook_id,omitempty" db:"webhook_id"`
	Active         bool      `json:"active" db:"active"`
	RuleConfigured bool      `json:"rule_configured" db:"rule_configured"`
	RuleName       string    `json:"rule_name,omitempty" db:"rule_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SplitAddress splits an email address into local part and domain part.
func SplitAddress(address string) (local, host string, err error) {
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", "", invalidf("invalid email address %q", address)
	}
	return address[:at], address[at+1:], nil
}

// NormalizeAddress lowercases and trims an email address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress checks that address is a plausible mailbox address and
// that its domain part equals hostname.
func ValidateAddress(address, hostname string) error {
	local, host, err := SplitAddress(address)
	if err != nil {
		return err
	}
	if len(local) > 64 {
		return invalidf("invalid email address %q: local part too long", address)
	}
	for _, c := range local {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '.' || c == '-' || c == '_' || c == '+') {
			return invalidf("invalid email address %q: invalid character %q", address, c)
		}
	}
	if host != hostname {
		return invalidf("address %q does not belong to domain %q", address, hostname)
	}
	return nil
}

// RoutingTargetKind discriminates the routing target variants.
type RoutingTargetKind string

const (
	TargetWebhook RoutingTargetKind = "webhook"
	TargetForward RoutingTargetKind = "forward"
	TargetGroup   RoutingTargetKind = "group"
)

// RoutingTarget is a tagged union describing where inbound mail for an
// address or catch-all should be delivered. Exactly one variant is set,
// selected by Kind. It is validated once at the boundary; downstream code
// may trust a validated value.
type RoutingTarget struct {
	Kind    RoutingTargetKind `json:"kind"`
	Webhook *WebhookTarget    `json:"webhook,omitempty"`
	Forward *ForwardTarget    `json:"forward,omitempty"`
	Group   *GroupTarget      `json:"group,omitempty"`
}

// WebhookTarget delivers parsed messages to an HTTP endpoint.
type WebhookTarget struct {
	URL string `json:"url"`
}

// ForwardTarget forwards raw messages to another mailbox.
type ForwardTarget struct {
	Address string `json:"address"`
}

// GroupTarget fans a message out to several forward addresses.
type GroupTarget struct {
	Addresses []string `json:"addresses"`
}

// Validate checks that exactly the variant named by Kind is populated.
func (t *RoutingTarget) Validate() error {
	switch t.Kind {
	case TargetWebhook:
		if t.Webhook == nil || t.Webhook.URL == "" {
			return invalidf("webhook target requires a url")
		}
		if t.Forward != nil || t.Group != nil {
			return invalidf("webhook target must not carry other variants")
		}
	case TargetForward:
		if t.Forward == nil || t.Forward.Address == "" {
			return invalidf("forward target requires an address")
		}
		if t.Webhook != nil || t.Group != nil {
			return invalidf("forward target must not carry other variants")
		}
	case TargetGroup:
		if t.Group == nil || len(t.Group.Addresses) == 0 {
			return invalidf("group target requires at least one address")
		}
		if t.Webhook != nil || t.Forward != nil {
			return invalidf("group target must not carry other variants")
		}
	default:
		return invalidf("unknown routing target kind %q", t.Kind)
	}
	return nil
}
