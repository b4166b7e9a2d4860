package domains

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/ignite/inbound/internal/domain"
)

// TXTPrefix tags our ownership TXT record so it can coexist with SPF and
// other TXT data at the apex.
const TXTPrefix = "ignite-domain-verification="

// Generator produces the DNS records a user must publish for a domain.
// Tokens are HMAC-derived from (hostname, userID, secret): the same inputs
// always yield the same token, so generation is idempotent for the
// lifetime of the deployment secret.
type Generator struct {
	secret     []byte
	mxHost     string
	mxPriority int
}

// NewGenerator creates a verification record generator.
func NewGenerator(secret, mxHost string, mxPriority int) *Generator {
	return &Generator{
		secret:     []byte(secret),
		mxHost:     mxHost,
		mxPriority: mxPriority,
	}
}

// Token derives the ownership token for (hostname, userID). Deterministic
// and collision-resistant; never called again for an existing domain —
// later checks re-read the token stored at creation time, because
// regeneration would invalidate records the user already published.
func (g *Generator) Token(hostname, userID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(hostname))
	mac.Write([]byte{'|'})
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequiredRecords returns the ownership TXT and routing MX records for a
// hostname, in the order they are shown to the user.
func (g *Generator) RequiredRecords(hostname, token string) []domain.RequiredDNSRecord {
	priority := g.mxPriority
	return []domain.RequiredDNSRecord{
		{
			Type:     domain.RecordTXT,
			Name:     hostname,
			Value:    TXTPrefix + token,
			Required: true,
		},
		{
			Type:     domain.RecordMX,
			Name:     hostname,
			Value:    g.mxHost,
			Priority: &priority,
			Required: true,
		},
	}
}
