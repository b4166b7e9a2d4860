package dns

import (
	"strings"

	"github.com/ignite/inbound/internal/domain"
)

// providerSignature maps a hostname suffix to a mail provider name.
// Suffix matches are high confidence; the keyword table below catches
// partial matches at medium confidence.
type providerSignature struct {
	suffix string
	name   string
}

var providerSuffixes = []providerSignature{
	{"aspmx.l.google.com", "Google Workspace"},
	{"googlemail.com", "Google Workspace"},
	{"google.com", "Google Workspace"},
	{"protection.outlook.com", "Microsoft 365"},
	{"olc.protection.outlook.com", "Microsoft 365"},
	{"zoho.com", "Zoho Mail"},
	{"zoho.eu", "Zoho Mail"},
	{"protonmail.ch", "Proton Mail"},
	{"messagingengine.com", "Fastmail"},
	{"fastmail.com", "Fastmail"},
	{"mail.icloud.com", "iCloud Mail"},
	{"yahoodns.net", "Yahoo Mail"},
	{"mimecast.com", "Mimecast"},
	{"pphosted.com", "Proofpoint"},
	{"mailgun.org", "Mailgun"},
	{"amazonaws.com", "Amazon SES"},
	{"secureserver.net", "GoDaddy"},
	{"emailsrvr.com", "Rackspace Email"},
	{"mxrecord.io", "Titan"},
}

var providerKeywords = []providerSignature{
	{"google", "Google Workspace"},
	{"outlook", "Microsoft 365"},
	{"zoho", "Zoho Mail"},
	{"proton", "Proton Mail"},
	{"fastmail", "Fastmail"},
	{"icloud", "iCloud Mail"},
	{"yahoo", "Yahoo Mail"},
	{"mimecast", "Mimecast"},
	{"barracuda", "Barracuda"},
	{"cpanel", "cPanel"},
}

// DetectProvider classifies the mail provider currently serving a domain
// from its resolved MX exchange hostnames and apex CNAME target. Pure
// function: no network access, deterministic, nil on empty input.
func DetectProvider(mxHosts []string, cnames []string) *domain.MailProvider {
	hosts := make([]string, 0, len(mxHosts)+len(cnames))
	for _, h := range mxHosts {
		if h = strings.ToLower(strings.TrimSuffix(h, ".")); h != "" {
			hosts = append(hosts, h)
		}
	}
	for _, h := range cnames {
		if h = strings.ToLower(strings.TrimSuffix(h, ".")); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return nil
	}

	for _, h := range hosts {
		for _, sig := range providerSuffixes {
			if h == sig.suffix || strings.HasSuffix(h, "."+sig.suffix) {
				return &domain.MailProvider{Name: sig.name, Confidence: domain.ConfidenceHigh}
			}
		}
	}

	for _, h := range hosts {
		for _, sig := range providerKeywords {
			if strings.Contains(h, sig.suffix) {
				return &domain.MailProvider{Name: sig.name, Confidence: domain.ConfidenceMedium}
			}
		}
	}

	// Records exist but match nothing we know: name the provider after the
	// registrable tail of the first exchange so the UI has something to show.
	return &domain.MailProvider{Name: providerNameFromHost(hosts[0]), Confidence: domain.ConfidenceLow}
}

// providerNameFromHost derives a display name from the last two labels of
// an unrecognized exchange hostname ("mx1.example-isp.net" -> "example-isp.net").
func providerNameFromHost(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
