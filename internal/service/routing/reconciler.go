package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/pkg/logger"
	"github.com/ignite/inbound/internal/ses"
)

// RuleProvider is the slice of the SES client the reconciler needs.
type RuleProvider interface {
	CreateOrUpdateReceiptRule(ctx context.Context, hostname string, recipients []string) (*ses.RuleResult, error)
	DeleteReceiptRule(ctx context.Context, hostname string) (bool, error)
}

// ReconcileResult reports what a reconciliation run did. A non-empty
// Warning means the provider call succeeded but some local bookkeeping
// did not; the next run repairs it.
type ReconcileResult struct {
	RuleName   string   `json:"rule_name,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Deleted    bool     `json:"deleted,omitempty"`
	Warning    string   `json:"warning,omitempty"`
}

// Reconciler converges the provider-side receipt rule for a domain with
// the stored active address set.
type Reconciler struct {
	store    Store
	provider RuleProvider
}

// NewReconciler creates a reconciler over the given store and provider.
func NewReconciler(store Store, provider RuleProvider) *Reconciler {
	return &Reconciler{store: store, provider: provider}
}

// Reconcile recomputes the full desired rule for the domain and replaces
// the provider state wholesale. The active address list is read fresh from
// the store, never taken from the caller, so a run that lost a mutation
// race still converges on the true list the next time anything mutates.
//
// Non-empty list: one create-or-update carrying every active recipient.
// Empty list: delete the rule outright rather than leaving an enabled
// rule with no recipients, which the provider would treat as match-all.
func (r *Reconciler) Reconcile(ctx context.Context, dom *domain.Domain) (*ReconcileResult, error) {
	all, err := r.store.ListAddresses(ctx, dom.ID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for %s: %w", dom.Hostname, err)
	}

	var active, inactive []domain.RecipientAddress
	for _, a := range all {
		if a.Active {
			active = append(active, a)
		} else {
			inactive = append(inactive, a)
		}
	}

	if len(active) == 0 {
		if _, err := r.provider.DeleteReceiptRule(ctx, dom.Hostname); err != nil {
			return nil, fmt.Errorf("deleting receipt rule for %s: %w", dom.Hostname, err)
		}
		res := &ReconcileResult{Deleted: true}
		res.Warning = r.markAll(ctx, dom, inactive, "", false)
		return res, nil
	}

	recipients := make([]string, len(active))
	for i, a := range active {
		recipients[i] = a.Address
	}

	rule, err := r.provider.CreateOrUpdateReceiptRule(ctx, dom.Hostname, recipients)
	if err != nil {
		// The rule never applied; make the stored flags reflect that so
		// the API can show the addresses as not yet live.
		r.markAll(ctx, dom, active, "", false)
		return nil, fmt.Errorf("applying receipt rule for %s: %w", dom.Hostname, err)
	}

	res := &ReconcileResult{RuleName: rule.RuleName, Recipients: recipients}
	warn := r.markAll(ctx, dom, active, rule.RuleName, true)
	if w := r.markAll(ctx, dom, inactive, "", false); w != "" {
		if warn != "" {
			warn += "; " + w
		} else {
			warn = w
		}
	}
	res.Warning = warn
	return res, nil
}

// markAll persists the rule-configured flag on every affected address.
// Failures here don't fail the reconciliation: the provider state is
// already correct, and the flags converge on the next run. The returned
// string lists what couldn't be recorded, empty when everything stuck.
func (r *Reconciler) markAll(ctx context.Context, dom *domain.Domain, addrs []domain.RecipientAddress, ruleName string, configured bool) string {
	var failed []string
	for _, a := range addrs {
		if a.RuleConfigured == configured && a.RuleName == ruleName {
			continue
		}
		if err := r.store.MarkAddressRuleConfigured(ctx, a.ID, ruleName, configured); err != nil {
			logger.Warn("rule bookkeeping failed", "hostname", dom.Hostname, "address", a.Address, "error", err)
			failed = append(failed, a.Address)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	return fmt.Sprintf("rule applied but state not recorded for: %s", strings.Join(failed, ", "))
}
