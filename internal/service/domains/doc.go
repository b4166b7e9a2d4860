// Package domains implements the domain verification lifecycle.
//
// The service layer is the single orchestrator for taking a hostname from
// "just entered" to "verified and receiving mail": pre-flight conflict
// checking, required-record generation, DNS re-verification, and SES
// identity sync all run through it. It depends on the Store interface
// defined in this package and should never import from api/.
//
// Every operation is idempotent and safe to call concurrently with itself;
// all state lives in the store, DNS, and SES, never in memory between calls.
package domains
