// Package queue defines message payloads exchanged over the message broker.
package queue

// ProposalCommittedEvent is published when a proposal is successfully
// committed.  It carries enough information for downstream consumers
// (invoicing, analytics, notifications) to act without querying the primary
// database.
type ProposalCommittedEvent struct {
    ProposalID   string       `json:"proposal_id"`
    CommitToken  string       `json:"commit_token"`
    CampaignID   uint64       `json:"campaign_id"`
    CampaignName string       `json:"campaign_name"`
    AdvertiserID uint64       `json:"advertiser_id"`
    StartDate    string       `json:"start_date"`
    EndDate      string       `json:"end_date"`
    Screens      []HeldScreen `json:"screens"`
    TotalSlots   uint32       `json:"total_slots"`
    CommittedAt  string       `json:"committed_at"`
}

// HeldScreen is one committed screen inside a ProposalCommittedEvent.
type HeldScreen struct {
    ScreenID  uint64 `json:"screen_id"`
    SlotsHeld uint32 `json:"slots_held"`
}
