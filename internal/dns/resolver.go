package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// MX is one MX answer: exchange hostname plus preference.
type MX struct {
	Host string
	Pref uint16
}

// Resolver resolves the record types this engine cares about. All methods
// return ErrNotFound for definitive empty answers and a transient error
// otherwise; callers decide which of the two is permissive for them.
// Implementations must be safe for concurrent use.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, name string) (string, error)
	LookupNS(ctx context.Context, name string) ([]string, error)
}

// Config controls query behavior for the miekg/dns-backed resolver.
type Config struct {
	// Nameservers to query as "host:port". Empty means the servers from
	// /etc/resolv.conf, falling back to public DNS.
	Nameservers []string

	// Timeout applies to each individual query. Default 5s.
	Timeout time.Duration

	// Retries is the number of extra attempts per nameserver. Default 1.
	Retries int
}

// Client implements Resolver using github.com/miekg/dns. No caching is
// performed; every call is a fresh query.
type Client struct {
	cfg    Config
	client *mdns.Client
}

// NewClient creates a DNS client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 1
	}
	if len(cfg.Nameservers) == 0 {
		cfg.Nameservers = systemNameservers()
	}
	return &Client{
		cfg:    cfg,
		client: &mdns.Client{Timeout: cfg.Timeout},
	}
}

// systemNameservers reads resolv.conf, falling back to public resolvers.
func systemNameservers() []string {
	conf, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		servers = append(servers, s)
	}
	return servers
}

func fqdn(name string) string {
	if !strings.HasSuffix(name, ".") {
		return name + "."
	}
	return name
}

// query runs one question against the configured nameservers with retries.
func (c *Client) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(fqdn(name), qtype)
	m.RecursionDesired = true

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		for _, server := range c.cfg.Nameservers {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			resp, _, err := c.client.ExchangeContext(ctx, m, server)
			if err != nil {
				if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
					lastErr = fmt.Errorf("%w: %s %s via %s", ErrTimeout, mdns.TypeToString[qtype], name, server)
				} else {
					lastErr = fmt.Errorf("dns exchange %s %s: %w", mdns.TypeToString[qtype], name, err)
				}
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError: // NXDOMAIN
				return nil, ErrNotFound
			case mdns.RcodeServerFailure:
				lastErr = fmt.Errorf("%w: %s %s", ErrServFail, mdns.TypeToString[qtype], name)
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %s for %s %s",
					mdns.RcodeToString[resp.Rcode], mdns.TypeToString[qtype], name)
			}
		}
	}
	if lastErr == nil {
		lastErr = ErrServFail
	}
	return nil, lastErr
}

// LookupMX returns MX records for name.
func (c *Client) LookupMX(ctx context.Context, name string) ([]MX, error) {
	resp, err := c.query(ctx, name, mdns.TypeMX)
	if err != nil {
		return nil, err
	}
	var out []MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			out = append(out, MX{Host: strings.TrimSuffix(mx.Mx, "."), Pref: mx.Preference})
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// LookupTXT returns TXT records for name. Character-string fragments of a
// single record are joined, per RFC 7208 §3.3.
func (c *Client) LookupTXT(ctx context.Context, name string) ([]string, error) {
	resp, err := c.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// LookupCNAME returns the canonical name that name aliases, without the
// trailing dot. ErrNotFound means there is no CNAME at this name.
func (c *Client) LookupCNAME(ctx context.Context, name string) (string, error) {
	resp, err := c.query(ctx, name, mdns.TypeCNAME)
	if err != nil {
		return "", err
	}
	for _, rr := range resp.Answer {
		if cname, ok := rr.(*mdns.CNAME); ok {
			return strings.TrimSuffix(cname.Target, "."), nil
		}
	}
	return "", ErrNotFound
}

// LookupNS returns the nameserver hostnames for name.
func (c *Client) LookupNS(ctx context.Context, name string) ([]string, error) {
	resp, err := c.query(ctx, name, mdns.TypeNS)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range resp.Answer {
		if ns, ok := rr.(*mdns.NS); ok {
			out = append(out, strings.TrimSuffix(ns.Ns, "."))
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
