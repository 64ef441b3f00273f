package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// CommitResult is what the payment step receives: the token identifying the
// committed proposal plus the holds that were finalized.
type CommitResult struct {
	CommitToken string           `json:"commit_token"`
	Holds       []model.SlotHold `json:"holds"`
}

// Notifier receives a successful commit after the transaction has been
// applied.  Implementations must not block the request path; failures are
// the notifier's problem to log.
type Notifier interface {
	ProposalCommitted(campaign model.Campaign, prop model.Proposal, holds []model.SlotHold)
}

// Committer finalizes a locked proposal into a payment-ready state.  Commit
// succeeds only while every hold in the proposal is ACTIVE and the shared
// countdown has not elapsed; committed holds leave the pool permanently,
// independent of any clock.
type Committer struct {
	holds     HoldStore
	proposals ProposalStore
	campaigns CampaignStore
	clk       clock.Clock
	notifier  Notifier
}

// NewCommitter constructs a Committer.  notifier may be nil when no
// downstream consumer is configured.
func NewCommitter(holds HoldStore, proposals ProposalStore, campaigns CampaignStore, clk clock.Clock, notifier Notifier) *Committer {
	if holds == nil || proposals == nil || campaigns == nil || clk == nil {
		panic("nil dependency passed to NewCommitter")
	}
	return &Committer{holds: holds, proposals: proposals, campaigns: campaigns, clk: clk, notifier: notifier}
}

// Commit verifies the proposal's hold set under the same transactional
// boundary holds were acquired in, then flips everything to COMMITTED and
// returns a commit token.  A proposal with zero, expired or partially
// expired holds fails with ErrStaleHold and must restart the readiness
// pipeline.
func (c *Committer) Commit(ctx context.Context, campaign model.Campaign, prop *model.Proposal) (CommitResult, error) {
	switch prop.Status {
	case model.ProposalLocked:
	case model.ProposalCommitted:
		return CommitResult{}, ErrProposalClosed
	default:
		return CommitResult{}, ErrStaleHold
	}
	now := c.clk.Now()
	if prop.HoldExpiresAt == nil || !prop.HoldExpiresAt.After(now) {
		return CommitResult{}, ErrStaleHold
	}
	var result CommitResult
	err := c.holds.WithTx(ctx, func(txCtx context.Context) error {
		holds, err := c.holds.ListByProposal(txCtx, prop.ID)
		if err != nil {
			return err
		}
		if len(holds) == 0 {
			return ErrStaleHold
		}
		for _, h := range holds {
			if !h.ActiveAt(now) {
				return ErrStaleHold
			}
		}
		changed, err := c.holds.UpdateStatusByProposal(txCtx, prop.ID, model.HoldActive, model.HoldCommitted)
		if err != nil {
			return err
		}
		if changed != int64(len(holds)) {
			// Some hold slipped out of ACTIVE between the read and the
			// update; treat the whole set as stale.
			return ErrStaleHold
		}
		token := uuid.NewString()
		prop.Status = model.ProposalCommitted
		prop.CommitToken = &token
		if err := c.proposals.Update(txCtx, prop); err != nil {
			return err
		}
		if err := c.campaigns.UpdateStatus(txCtx, campaign.ID, model.CampaignCommitted); err != nil {
			return err
		}
		for i := range holds {
			holds[i].Status = model.HoldCommitted
		}
		result = CommitResult{CommitToken: token, Holds: holds}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	if c.notifier != nil {
		c.notifier.ProposalCommitted(campaign, *prop, result.Holds)
	}
	return result, nil
}
