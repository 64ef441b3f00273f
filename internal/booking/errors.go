// Package booking implements the slot reservation core: the draft selection
// manager, bundle assembly, price reconciliation, the readiness pipeline and
// the hold lifecycle.  Everything here is transport-agnostic; HTTP handlers
// translate the sentinel errors below into status codes.
package booking

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySelection is returned by bundle assembly when no screen in the
// draft has a positive slot count.  Recoverable: the advertiser keeps
// editing the selection.
var ErrEmptySelection = errors.New("selection is empty")

// ErrMissingName is returned by bundle assembly when the bundle name is
// blank after trimming.
var ErrMissingName = errors.New("bundle name is required")

// ErrCapacityNotPassed is returned when a later pipeline stage is invoked
// before the capacity check has passed for the current bundle.  Stages run
// strictly in order; policy acceptance against stale capacity is meaningless.
var ErrCapacityNotPassed = errors.New("capacity check has not passed")

// ErrPolicyNotAccepted is returned by the price-lock stage when the
// advertiser has not yet accepted the policy terms.  There is no timeout and
// no automatic retry; the stage blocks until an explicit acceptance arrives.
var ErrPolicyNotAccepted = errors.New("policy terms not accepted")

// ErrPriceDriftUnaccepted is returned by the price-lock stage when the live
// price has drifted from the bundle's snapshot and the advertiser has not
// explicitly accepted the change.
var ErrPriceDriftUnaccepted = errors.New("price drift not accepted")

// ErrProposalNotReady is returned by hold acquisition when any readiness
// flag is still false.
var ErrProposalNotReady = errors.New("proposal is not ready")

// ErrBundleChanged is returned when a pipeline stage is invoked for a
// proposal whose bundle has since been re-assembled.  The proposal has been
// reset to pending; the caller must restart from the capacity check.
var ErrBundleChanged = errors.New("bundle changed since proposal was opened")

// ErrStaleHold is returned by commit when any hold in the proposal is
// missing, expired or otherwise not ACTIVE.  Fatal to the proposal: the
// caller must re-run the readiness pipeline against fresh inventory.
var ErrStaleHold = errors.New("hold set is stale or expired")

// ErrHoldExpired is returned when an operation references a proposal whose
// countdown has already elapsed.
var ErrHoldExpired = errors.New("hold has expired")

// ErrProposalClosed is returned when a mutation targets a proposal in a
// terminal state (COMMITTED, EXPIRED, RELEASED or FAILED).
var ErrProposalClosed = errors.New("proposal is closed")

// ScreenCapacity is the per-screen outcome of a capacity check.  Failing
// screens carry the live available count so the caller can renegotiate the
// selection instead of guessing.
type ScreenCapacity struct {
	ScreenID  uint64 `json:"screen_id"`
	Available uint32 `json:"available"`
	Requested uint32 `json:"requested"`
	Passed    bool   `json:"passed"`
}

// CapacityError reports the screens that failed a capacity check.  The
// pipeline never partially proceeds: one failing screen fails the whole
// check.
type CapacityError struct {
	Failures []ScreenCapacity
}

func (e *CapacityError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("screen %d: requested %d, available %d", f.ScreenID, f.Requested, f.Available))
	}
	return "insufficient capacity: " + strings.Join(parts, "; ")
}

// AsCapacityError unwraps a CapacityError from err, if present.
func AsCapacityError(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
