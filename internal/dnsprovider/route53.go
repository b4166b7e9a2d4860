// Package dnsprovider publishes required DNS records directly into a
// user's hosted zone when their DNS is managed somewhere we hold
// credentials for. Route53 is the only backend; domains hosted elsewhere
// simply fall back to manual publication.
package dnsprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	appconfig "github.com/ignite/inbound/internal/config"
	"github.com/ignite/inbound/internal/dns"
	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/pkg/logger"
)

// route53API is the slice of the Route53 API the publisher uses.
type route53API interface {
	ListHostedZonesByName(ctx context.Context, in *route53.ListHostedZonesByNameInput, opts ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Route53Publisher writes required records into Route53 hosted zones.
// It implements domains.RecordPublisher.
type Route53Publisher struct {
	api      route53API
	resolver dns.Resolver
}

// NewRoute53Publisher creates a publisher from app configuration, sharing
// the SES credentials since both live in the same AWS account.
func NewRoute53Publisher(ctx context.Context, cfg appconfig.SESConfig, resolver dns.Resolver) (*Route53Publisher, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Route53Publisher{
		api:      route53.NewFromConfig(awsCfg),
		resolver: resolver,
	}, nil
}

// NewRoute53PublisherWithAPI builds a publisher over an explicit API
// implementation. Used by tests.
func NewRoute53PublisherWithAPI(api route53API, resolver dns.Resolver) *Route53Publisher {
	return &Route53Publisher{api: api, resolver: resolver}
}

// CanPublish reports whether the hostname's zone is one we can write to:
// the public NS records must point at Route53 and the zone must exist in
// our account. Any lookup failure means "no", never an error surfaced to
// the user; manual publication always remains available.
func (p *Route53Publisher) CanPublish(ctx context.Context, hostname string) (bool, error) {
	nameservers, err := p.resolver.LookupNS(ctx, hostname)
	if err != nil {
		if dns.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("ns lookup for %s: %w", hostname, err)
	}

	onRoute53 := false
	for _, ns := range nameservers {
		if strings.Contains(strings.ToLower(ns), "awsdns") {
			onRoute53 = true
			break
		}
	}
	if !onRoute53 {
		return false, nil
	}

	_, err = p.hostedZoneID(ctx, hostname)
	if err != nil {
		logger.Debug("hosted zone not reachable", "hostname", hostname, "error", err)
		return false, nil
	}
	return true, nil
}

// PublishRequiredRecords upserts the records into the hosted zone. Upsert
// keeps the operation idempotent: re-publishing the same records is a
// no-op at the zone level.
func (p *Route53Publisher) PublishRequiredRecords(ctx context.Context, hostname string, records []domain.RequiredDNSRecord) error {
	zoneID, err := p.hostedZoneID(ctx, hostname)
	if err != nil {
		return err
	}

	var changes []r53types.Change
	for _, rec := range records {
		value := rec.Value
		switch rec.Type {
		case domain.RecordTXT:
			// Route53 wants TXT character-strings quoted.
			value = fmt.Sprintf("%q", value)
		case domain.RecordMX:
			prio := 10
			if rec.Priority != nil {
				prio = *rec.Priority
			}
			value = fmt.Sprintf("%d %s", prio, rec.Value)
		}
		changes = append(changes, r53types.Change{
			Action: r53types.ChangeActionUpsert,
			ResourceRecordSet: &r53types.ResourceRecordSet{
				Name: aws.String(rec.Name),
				Type: r53types.RRType(rec.Type),
				TTL:  aws.Int64(300),
				ResourceRecords: []r53types.ResourceRecord{
					{Value: aws.String(value)},
				},
			},
		})
	}
	if len(changes) == 0 {
		return nil
	}

	_, err = p.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: changes,
			Comment: aws.String("inbound verification records"),
		},
	})
	if err != nil {
		return fmt.Errorf("change record sets for %s: %w", hostname, err)
	}
	logger.Info("published required records", "hostname", hostname, "zone_id", zoneID, "records", len(changes))
	return nil
}

// hostedZoneID finds the public hosted zone matching hostname in our
// account. ListHostedZonesByName returns zones at or after the DNS name,
// so an exact match is checked explicitly.
func (p *Route53Publisher) hostedZoneID(ctx context.Context, hostname string) (string, error) {
	want := hostname + "."
	out, err := p.api.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  aws.String(hostname),
		MaxItems: aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("list hosted zones for %s: %w", hostname, err)
	}
	for _, zone := range out.HostedZones {
		if aws.ToString(zone.Name) == want && (zone.Config == nil || !zone.Config.PrivateZone) {
			// Zone IDs arrive as "/hostedzone/Z123...".
			id := aws.ToString(zone.Id)
			return strings.TrimPrefix(id, "/hostedzone/"), nil
		}
	}
	return "", fmt.Errorf("no hosted zone for %s", hostname)
}
