package model

import "time"

// Hold status values.  ACTIVE holds subtract their slots from every other
// campaign's availability; COMMITTED holds subtract permanently; EXPIRED and
// RELEASED holds never count.
const (
    HoldActive    = "ACTIVE"
    HoldExpired   = "EXPIRED"
    HoldCommitted = "COMMITTED"
    HoldReleased  = "RELEASED"
)

// SlotHold is a time-boxed exclusive reservation of slots on one screen for
// one campaign.  At most one ACTIVE hold may exist per (campaign, screen)
// pair; the whole pipeline exists to protect that invariant.  All holds
// belonging to a proposal share a single expiry instant.
//
// Fields:
//  ID         – primary key identifier.
//  CampaignID – campaign the hold belongs to.
//  ScreenID   – screen whose slots are held.
//  ProposalID – proposal that acquired the hold.
//  SlotsHeld  – number of slots removed from the pool.
//  HoldToken  – opaque token returned to the client for correlation.
//  Status     – ACTIVE, EXPIRED, COMMITTED or RELEASED.
//  ExpiresAt  – absolute expiry; never extended after acquisition.
//  CreatedAt  – creation timestamp.
type SlotHold struct {
    ID         uint64    // slot_holds.id
    CampaignID uint64    // slot_holds.campaign_id
    ScreenID   uint64    // slot_holds.screen_id
    ProposalID string    // slot_holds.proposal_id
    SlotsHeld  uint32    // slot_holds.slots_held
    HoldToken  string    // slot_holds.hold_token
    Status     string    // slot_holds.status
    ExpiresAt  time.Time // slot_holds.expires_at
    CreatedAt  time.Time // slot_holds.created_at
}

// ActiveAt reports whether the hold still blocks inventory at the given
// instant.  A hold past its expiry is treated as expired even if the sweeper
// has not flipped its status yet.
func (h SlotHold) ActiveAt(now time.Time) bool {
    return h.Status == HoldActive && h.ExpiresAt.After(now)
}
