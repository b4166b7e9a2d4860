package dns

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/inbound/internal/domain"
)

// PreflightResult is the outcome of the onboarding conflict check.
type PreflightResult struct {
	CanReceiveEmails bool                 `json:"can_receive_emails"`
	HasMXRecords     bool                 `json:"has_mx_records"`
	Provider         *domain.MailProvider `json:"provider,omitempty"`
	Error            string               `json:"error,omitempty"`
}

// Checker decides whether a candidate hostname may be onboarded for inbound
// mail without breaking routing the user already depends on.
type Checker struct {
	resolver Resolver
	// inboundHost is our own MX routing endpoint; a domain whose MX already
	// points here is re-onboardable, not a conflict.
	inboundHost string
}

// NewChecker creates a pre-flight conflict checker.
func NewChecker(resolver Resolver, inboundHost string) *Checker {
	return &Checker{
		resolver:    resolver,
		inboundHost: strings.ToLower(strings.TrimSuffix(inboundHost, ".")),
	}
}

// Preflight resolves MX and apex CNAME records for hostname and classifies
// the result. Resolution failures (NXDOMAIN, timeout) are treated as "no
// conflicting records": a domain with nothing published is the common
// new-domain case, and rejecting it on a flaky lookup would strand users.
// No side effects.
func (c *Checker) Preflight(ctx context.Context, hostname string) PreflightResult {
	res := PreflightResult{CanReceiveEmails: true}

	mxRecords, err := c.resolver.LookupMX(ctx, hostname)
	if err != nil && !IsNotFound(err) && !IsTransient(err) {
		res.Error = fmt.Sprintf("mx lookup failed: %v", err)
	}

	var mxHosts []string
	for _, mx := range mxRecords {
		mxHosts = append(mxHosts, mx.Host)
	}

	var cnames []string
	if cname, err := c.resolver.LookupCNAME(ctx, hostname); err == nil && cname != "" {
		cnames = append(cnames, cname)
	}

	res.Provider = DetectProvider(mxHosts, cnames)
	res.HasMXRecords = len(mxRecords) > 0

	// An apex CNAME makes the required MX unpublishable (RFC 1034: a CNAME
	// may not coexist with other data at the same name).
	if len(cnames) > 0 {
		res.CanReceiveEmails = false
		res.Error = fmt.Sprintf("domain has a CNAME record at the apex pointing to %s, which conflicts with the required MX record", cnames[0])
		return res
	}

	for _, mx := range mxRecords {
		host := strings.ToLower(strings.TrimSuffix(mx.Host, "."))
		if host == c.inboundHost {
			continue
		}
		res.CanReceiveEmails = false
		name := "another mail provider"
		if res.Provider != nil {
			name = res.Provider.Name
		}
		res.Error = fmt.Sprintf("domain already has an MX record (%s) pointing at %s; taking over mail routing would break existing delivery", mx.Host, name)
		return res
	}

	return res
}
