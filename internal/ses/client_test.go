package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesclassic "github.com/aws/aws-sdk-go-v2/service/ses"
	classictypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	v2types "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentityAPI returns a canned verification status or error.
type fakeIdentityAPI struct {
	status v2types.VerificationStatus
	err    error
}

func (f *fakeIdentityAPI) GetEmailIdentity(_ context.Context, _ *sesv2.GetEmailIdentityInput, _ ...func(*sesv2.Options)) (*sesv2.GetEmailIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.GetEmailIdentityOutput{VerificationStatus: f.status}, nil
}

func (f *fakeIdentityAPI) CreateEmailIdentity(_ context.Context, _ *sesv2.CreateEmailIdentityInput, _ ...func(*sesv2.Options)) (*sesv2.CreateEmailIdentityOutput, error) {
	return &sesv2.CreateEmailIdentityOutput{}, f.err
}

func (f *fakeIdentityAPI) DeleteEmailIdentity(_ context.Context, _ *sesv2.DeleteEmailIdentityInput, _ ...func(*sesv2.Options)) (*sesv2.DeleteEmailIdentityOutput, error) {
	return &sesv2.DeleteEmailIdentityOutput{}, f.err
}

// fakeReceiptAPI records receipt rule calls against an in-memory rule map.
type fakeReceiptAPI struct {
	rules   map[string][]string // rule name -> recipients
	creates int
	updates int
	deletes int
}

func newFakeReceiptAPI() *fakeReceiptAPI {
	return &fakeReceiptAPI{rules: map[string][]string{}}
}

func (f *fakeReceiptAPI) DescribeReceiptRule(_ context.Context, in *sesclassic.DescribeReceiptRuleInput, _ ...func(*sesclassic.Options)) (*sesclassic.DescribeReceiptRuleOutput, error) {
	recipients, ok := f.rules[aws.ToString(in.RuleName)]
	if !ok {
		return nil, &classictypes.RuleDoesNotExistException{}
	}
	return &sesclassic.DescribeReceiptRuleOutput{
		Rule: &classictypes.ReceiptRule{Name: in.RuleName, Recipients: recipients},
	}, nil
}

func (f *fakeReceiptAPI) CreateReceiptRule(_ context.Context, in *sesclassic.CreateReceiptRuleInput, _ ...func(*sesclassic.Options)) (*sesclassic.CreateReceiptRuleOutput, error) {
	name := aws.ToString(in.Rule.Name)
	if _, ok := f.rules[name]; ok {
		return nil, &classictypes.AlreadyExistsException{}
	}
	f.creates++
	f.rules[name] = in.Rule.Recipients
	return &sesclassic.CreateReceiptRuleOutput{}, nil
}

func (f *fakeReceiptAPI) UpdateReceiptRule(_ context.Context, in *sesclassic.UpdateReceiptRuleInput, _ ...func(*sesclassic.Options)) (*sesclassic.UpdateReceiptRuleOutput, error) {
	name := aws.ToString(in.Rule.Name)
	if _, ok := f.rules[name]; !ok {
		return nil, &classictypes.RuleDoesNotExistException{}
	}
	f.updates++
	f.rules[name] = in.Rule.Recipients
	return &sesclassic.UpdateReceiptRuleOutput{}, nil
}

func (f *fakeReceiptAPI) DeleteReceiptRule(_ context.Context, in *sesclassic.DeleteReceiptRuleInput, _ ...func(*sesclassic.Options)) (*sesclassic.DeleteReceiptRuleOutput, error) {
	name := aws.ToString(in.RuleName)
	if _, ok := f.rules[name]; !ok {
		return nil, &classictypes.RuleDoesNotExistException{}
	}
	f.deletes++
	delete(f.rules, name)
	return &sesclassic.DeleteReceiptRuleOutput{}, nil
}

func testClient(identity identityAPI, receipt receiptAPI) *Client {
	return NewClientWithAPIs(identity, receipt, "ignite-inbound", "arn:aws:sns:us-east-1:123:inbound-mail", "ignite-inbound-mail")
}

func TestGetIdentityStatusMapping(t *testing.T) {
	cases := []struct {
		ses  v2types.VerificationStatus
		want IdentityStatus
	}{
		{v2types.VerificationStatusSuccess, IdentitySuccess},
		{v2types.VerificationStatusFailed, IdentityFailed},
		{v2types.VerificationStatusPending, IdentityPending},
		{v2types.VerificationStatusTemporaryFailure, IdentityTemporaryFailure},
		{v2types.VerificationStatusNotStarted, IdentityNotStarted},
	}
	for _, tc := range cases {
		c := testClient(&fakeIdentityAPI{status: tc.ses}, newFakeReceiptAPI())
		status, err := c.GetIdentityStatus(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, tc.want, status)
	}
}

func TestGetIdentityStatusNotFound(t *testing.T) {
	c := testClient(&fakeIdentityAPI{err: &v2types.NotFoundException{}}, newFakeReceiptAPI())
	status, err := c.GetIdentityStatus(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, IdentityNotStarted, status)
}

func TestGetIdentityStatusAPIError(t *testing.T) {
	c := testClient(&fakeIdentityAPI{err: errors.New("throttled")}, newFakeReceiptAPI())
	status, err := c.GetIdentityStatus(context.Background(), "example.com")
	assert.Error(t, err)
	assert.Equal(t, IdentityError, status)
}

func TestCreateIdentityAlreadyExists(t *testing.T) {
	c := testClient(&fakeIdentityAPI{err: &v2types.AlreadyExistsException{}}, newFakeReceiptAPI())
	assert.NoError(t, c.CreateIdentity(context.Background(), "example.com"))
}

func TestRuleName(t *testing.T) {
	assert.Equal(t, "inbound-example-com", RuleName("example.com"))
	assert.Equal(t, "inbound-mail-example-co-uk", RuleName("mail.example.co.uk"))
}

func TestCreateOrUpdateReceiptRule(t *testing.T) {
	receipt := newFakeReceiptAPI()
	c := testClient(&fakeIdentityAPI{}, receipt)
	ctx := context.Background()

	res, err := c.CreateOrUpdateReceiptRule(ctx, "example.com", []string{"a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, RuleCreated, res.Status)
	assert.Equal(t, "inbound-example-com", res.RuleName)
	assert.Equal(t, []string{"a@example.com"}, receipt.rules["inbound-example-com"])

	// Second call with a grown list must update in place, never duplicate.
	res, err = c.CreateOrUpdateReceiptRule(ctx, "example.com", []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, RuleUpdated, res.Status)
	assert.Len(t, receipt.rules, 1)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, receipt.rules["inbound-example-com"])
	assert.Equal(t, 1, receipt.creates)
	assert.Equal(t, 1, receipt.updates)
}

func TestCreateOrUpdateReceiptRuleIdempotent(t *testing.T) {
	receipt := newFakeReceiptAPI()
	c := testClient(&fakeIdentityAPI{}, receipt)
	ctx := context.Background()

	// At-least-once retry with the same list: same provider state after.
	for i := 0; i < 3; i++ {
		_, err := c.CreateOrUpdateReceiptRule(ctx, "example.com", []string{"a@example.com"})
		require.NoError(t, err)
	}
	assert.Len(t, receipt.rules, 1)
	assert.Equal(t, []string{"a@example.com"}, receipt.rules["inbound-example-com"])
}

func TestDeleteReceiptRule(t *testing.T) {
	receipt := newFakeReceiptAPI()
	c := testClient(&fakeIdentityAPI{}, receipt)
	ctx := context.Background()

	// Deleting a rule that never existed is success, not an error.
	existed, err := c.DeleteReceiptRule(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = c.CreateOrUpdateReceiptRule(ctx, "example.com", []string{"a@example.com"})
	require.NoError(t, err)

	existed, err = c.DeleteReceiptRule(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Empty(t, receipt.rules)
}
