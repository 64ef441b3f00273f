package model

import "time"

// Proposal status values.  PENDING while readiness checks are in progress,
// READY once capacity, policy and price have all passed, LOCKED when holds
// are active, then COMMITTED, EXPIRED or FAILED terminally.  RELEASED marks
// an explicit user cancellation.
const (
    ProposalPending   = "PENDING"
    ProposalReady     = "READY"
    ProposalLocked    = "LOCKED"
    ProposalCommitted = "COMMITTED"
    ProposalExpired   = "EXPIRED"
    ProposalReleased  = "RELEASED"
    ProposalFailed    = "FAILED"
)

// Proposal tracks a bundle's passage through the readiness pipeline and the
// hold set acquired at the end of it.  The three readiness flags are only
// meaningful for the bundle generation recorded in BundleID; a re-assembled
// bundle resets all of them.
//
// Fields:
//  ID                  – uuid primary key.
//  CampaignID          – campaign the proposal belongs to.
//  BundleID            – bundle generation the flags apply to.
//  CapacityOK          – capacity check passed for this bundle.
//  PolicyOK            – advertiser explicitly accepted the policy terms.
//  PolicyAcceptedAt    – when the terms were accepted.
//  PriceLocked         – price-lock stage passed.
//  PriceDriftAccepted  – advertiser accepted a non-locked price aggregate.
//  Status              – see status constants above.
//  HoldExpiresAt       – the single countdown shared by all holds.
//  CommitToken         – set when the proposal is committed.
//  CreatedAt/UpdatedAt – timestamps.
type Proposal struct {
    ID                 string     // proposals.id (uuid)
    CampaignID         uint64     // proposals.campaign_id
    BundleID           uint64     // proposals.bundle_id
    CapacityOK         bool       // proposals.capacity_ok
    PolicyOK           bool       // proposals.policy_ok
    PolicyAcceptedAt   *time.Time // proposals.policy_accepted_at (nullable)
    PriceLocked        bool       // proposals.price_locked
    PriceDriftAccepted bool       // proposals.price_drift_accepted
    Status             string     // proposals.status
    HoldExpiresAt      *time.Time // proposals.hold_expires_at (nullable)
    CommitToken        *string    // proposals.commit_token (nullable)
    CreatedAt          time.Time  // proposals.created_at
    UpdatedAt          time.Time  // proposals.updated_at
}

// Ready reports whether all three readiness gates have passed.
func (p Proposal) Ready() bool {
    return p.CapacityOK && p.PolicyOK && p.PriceLocked
}

// HoldRemaining returns how long the proposal's holds have left at the given
// instant, or zero if no countdown is running or it has elapsed.
func (p Proposal) HoldRemaining(now time.Time) time.Duration {
    if p.HoldExpiresAt == nil {
        return 0
    }
    d := p.HoldExpiresAt.Sub(now)
    if d < 0 {
        return 0
    }
    return d
}
