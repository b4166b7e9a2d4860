package ses

// IdentityStatus is the verification state SES reports for a domain
// identity, normalized from the sesv2 vocabulary.
type IdentityStatus string

const (
	IdentitySuccess          IdentityStatus = "Success"
	IdentityFailed           IdentityStatus = "Failed"
	IdentityPending          IdentityStatus = "Pending"
	IdentityTemporaryFailure IdentityStatus = "TemporaryFailure"
	IdentityNotStarted       IdentityStatus = "NotStarted"

	// IdentityError means the SES API call itself failed. Callers must not
	// change stored state on it; stale-but-correct beats wrong.
	IdentityError IdentityStatus = "Error"
)

// RuleStatus reports what a receipt rule write actually did.
type RuleStatus string

const (
	RuleCreated RuleStatus = "created"
	RuleUpdated RuleStatus = "updated"
)

// RuleResult is the outcome of a create-or-update receipt rule call.
type RuleResult struct {
	Status   RuleStatus `json:"status"`
	RuleName string     `json:"rule_name"`
}
