// Package routing keeps the provider-side receipt rule state for each
// domain converged with the locally stored recipient address set, and
// resolves which target an inbound message should be delivered to.
//
// Every address mutation funnels into one reconciliation entry point that
// recomputes the full desired rule from the store and replaces the
// provider state wholesale. No deltas, no locks: concurrent mutations may
// race, and a later reconciliation self-heals to the true address list.
package routing
