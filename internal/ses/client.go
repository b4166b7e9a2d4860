package ses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesclassic "github.com/aws/aws-sdk-go-v2/service/ses"
	classictypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	v2types "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/inbound/internal/config"
)

// identityAPI is the slice of the SES v2 API the client uses.
// Narrow on purpose so tests can substitute fakes.
type identityAPI interface {
	GetEmailIdentity(ctx context.Context, in *sesv2.GetEmailIdentityInput, opts ...func(*sesv2.Options)) (*sesv2.GetEmailIdentityOutput, error)
	CreateEmailIdentity(ctx context.Context, in *sesv2.CreateEmailIdentityInput, opts ...func(*sesv2.Options)) (*sesv2.CreateEmailIdentityOutput, error)
	DeleteEmailIdentity(ctx context.Context, in *sesv2.DeleteEmailIdentityInput, opts ...func(*sesv2.Options)) (*sesv2.DeleteEmailIdentityOutput, error)
}

// receiptAPI is the slice of the classic SES API holding receipt rules
// (the v2 API has no receipt rule surface).
type receiptAPI interface {
	DescribeReceiptRule(ctx context.Context, in *sesclassic.DescribeReceiptRuleInput, opts ...func(*sesclassic.Options)) (*sesclassic.DescribeReceiptRuleOutput, error)
	CreateReceiptRule(ctx context.Context, in *sesclassic.CreateReceiptRuleInput, opts ...func(*sesclassic.Options)) (*sesclassic.CreateReceiptRuleOutput, error)
	UpdateReceiptRule(ctx context.Context, in *sesclassic.UpdateReceiptRuleInput, opts ...func(*sesclassic.Options)) (*sesclassic.UpdateReceiptRuleOutput, error)
	DeleteReceiptRule(ctx context.Context, in *sesclassic.DeleteReceiptRuleInput, opts ...func(*sesclassic.Options)) (*sesclassic.DeleteReceiptRuleOutput, error)
}

// Client talks to AWS SES for domain identity verification status and
// inbound receipt rules.
type Client struct {
	identity identityAPI
	receipt  receiptAPI
	ruleSet  string
	topicARN string
	bucket   string
	region   string
}

// NewClient creates an SES client from app configuration.
func NewClient(ctx context.Context, cfg appconfig.SESConfig) (*Client, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{
		identity: sesv2.NewFromConfig(awsCfg),
		receipt:  sesclassic.NewFromConfig(awsCfg),
		ruleSet:  cfg.RuleSetName,
		topicARN: cfg.ProcessingTopicARN,
		bucket:   cfg.InboundBucket,
		region:   cfg.Region,
	}, nil
}

// NewClientWithAPIs builds a client over explicit API implementations.
// Used by tests and by callers that already hold configured SDK clients.
func NewClientWithAPIs(identity identityAPI, receipt receiptAPI, ruleSet, topicARN, bucket string) *Client {
	return &Client{
		identity: identity,
		receipt:  receipt,
		ruleSet:  ruleSet,
		topicARN: topicARN,
		bucket:   bucket,
	}
}

// GetIdentityStatus returns the SES verification status for a domain
// identity. An identity SES has never seen maps to NotStarted; an API
// failure maps to IdentityError with the error returned alongside so the
// caller can log it without mutating stored state.
func (c *Client) GetIdentityStatus(ctx context.Context, hostname string) (IdentityStatus, error) {
	out, err := c.identity.GetEmailIdentity(ctx, &sesv2.GetEmailIdentityInput{
		EmailIdentity: aws.String(hostname),
	})
	if err != nil {
		var nf *v2types.NotFoundException
		if errors.As(err, &nf) {
			return IdentityNotStarted, nil
		}
		return IdentityError, fmt.Errorf("get email identity %s: %w", hostname, err)
	}

	switch out.VerificationStatus {
	case v2types.VerificationStatusSuccess:
		return IdentitySuccess, nil
	case v2types.VerificationStatusFailed:
		return IdentityFailed, nil
	case v2types.VerificationStatusTemporaryFailure:
		return IdentityTemporaryFailure, nil
	case v2types.VerificationStatusNotStarted:
		return IdentityNotStarted, nil
	default:
		return IdentityPending, nil
	}
}

// CreateIdentity registers the domain as an SES identity so verification
// can begin. Creating an identity that already exists is not an error.
func (c *Client) CreateIdentity(ctx context.Context, hostname string) error {
	_, err := c.identity.CreateEmailIdentity(ctx, &sesv2.CreateEmailIdentityInput{
		EmailIdentity: aws.String(hostname),
	})
	if err != nil {
		var exists *v2types.AlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create email identity %s: %w", hostname, err)
	}
	return nil
}

// DeleteIdentity removes the domain identity. Deleting an identity that is
// already gone is not an error.
func (c *Client) DeleteIdentity(ctx context.Context, hostname string) error {
	_, err := c.identity.DeleteEmailIdentity(ctx, &sesv2.DeleteEmailIdentityInput{
		EmailIdentity: aws.String(hostname),
	})
	if err != nil {
		var nf *v2types.NotFoundException
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("delete email identity %s: %w", hostname, err)
	}
	return nil
}

// RuleName derives the deterministic receipt rule name for a hostname.
// Determinism is what makes create-or-update idempotent under retry.
func RuleName(hostname string) string {
	return "inbound-" + strings.ReplaceAll(hostname, ".", "-")
}

// CreateOrUpdateReceiptRule ensures the rule set holds exactly one rule for
// hostname accepting recipients, delivering to the fixed processing target
// (S3 drop + SNS notification). Issuing the same recipient list twice is a
// no-op update, never a duplicate.
func (c *Client) CreateOrUpdateReceiptRule(ctx context.Context, hostname string, recipients []string) (*RuleResult, error) {
	name := RuleName(hostname)
	rule := classictypes.ReceiptRule{
		Name:        aws.String(name),
		Enabled:     true,
		Recipients:  recipients,
		ScanEnabled: true,
		TlsPolicy:   classictypes.TlsPolicyOptional,
		Actions: []classictypes.ReceiptAction{
			{
				S3Action: &classictypes.S3Action{
					BucketName:      aws.String(c.bucket),
					ObjectKeyPrefix: aws.String(hostname + "/"),
					TopicArn:        aws.String(c.topicARN),
				},
			},
		},
	}

	_, err := c.receipt.DescribeReceiptRule(ctx, &sesclassic.DescribeReceiptRuleInput{
		RuleSetName: aws.String(c.ruleSet),
		RuleName:    aws.String(name),
	})
	if err != nil {
		var missing *classictypes.RuleDoesNotExistException
		if !errors.As(err, &missing) {
			return nil, fmt.Errorf("describe receipt rule %s: %w", name, err)
		}
		_, err = c.receipt.CreateReceiptRule(ctx, &sesclassic.CreateReceiptRuleInput{
			RuleSetName: aws.String(c.ruleSet),
			Rule:        &rule,
		})
		if err != nil {
			// Lost a create race with a concurrent reconciliation: fall
			// through to update so both callers converge.
			var exists *classictypes.AlreadyExistsException
			if !errors.As(err, &exists) {
				return nil, fmt.Errorf("create receipt rule %s: %w", name, err)
			}
		} else {
			return &RuleResult{Status: RuleCreated, RuleName: name}, nil
		}
	}

	_, err = c.receipt.UpdateReceiptRule(ctx, &sesclassic.UpdateReceiptRuleInput{
		RuleSetName: aws.String(c.ruleSet),
		Rule:        &rule,
	})
	if err != nil {
		return nil, fmt.Errorf("update receipt rule %s: %w", name, err)
	}
	return &RuleResult{Status: RuleUpdated, RuleName: name}, nil
}

// DeleteReceiptRule removes the rule for hostname. Returns false when no
// rule existed; that is success, not an error.
func (c *Client) DeleteReceiptRule(ctx context.Context, hostname string) (bool, error) {
	name := RuleName(hostname)
	_, err := c.receipt.DeleteReceiptRule(ctx, &sesclassic.DeleteReceiptRuleInput{
		RuleSetName: aws.String(c.ruleSet),
		RuleName:    aws.String(name),
	})
	if err != nil {
		var missing *classictypes.RuleDoesNotExistException
		if errors.As(err, &missing) {
			return false, nil
		}
		return false, fmt.Errorf("delete receipt rule %s: %w", name, err)
	}
	return true, nil
}
