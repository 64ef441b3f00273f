package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// Pipeline is the three-stage readiness gate a bundle passes before holds
// can be acquired: capacity check, explicit policy acceptance, price lock.
// Stages run strictly in order and are individually re-runnable; whenever
// the bundle is re-assembled the proposal resets to PENDING, because policy
// acceptance against stale capacity is meaningless.
type Pipeline struct {
	proposals ProposalStore
	bundles   BundleStore
	inv       SnapshotProvider
	pricer    *Pricer
	clk       clock.Clock
}

// NewPipeline constructs a Pipeline.  All dependencies must be non-nil.
func NewPipeline(proposals ProposalStore, bundles BundleStore, inv SnapshotProvider, pricer *Pricer, clk clock.Clock) *Pipeline {
	if proposals == nil || bundles == nil || inv == nil || pricer == nil || clk == nil {
		panic("nil dependency passed to NewPipeline")
	}
	return &Pipeline{proposals: proposals, bundles: bundles, inv: inv, pricer: pricer, clk: clk}
}

// Open returns the campaign's live proposal, creating one when none exists.
// A LOCKED proposal for the current bundle with time left on its countdown
// is returned as-is so a resumed session picks up its existing holds instead
// of acquiring duplicates; a LOCKED proposal whose bundle has since been
// re-assembled is reset instead of being presented as still locked.  In
// every other case the capacity check runs against a fresh
// inventory read; a capacity failure is returned alongside the (still
// PENDING) proposal so the caller can renegotiate the selection.
func (p *Pipeline) Open(ctx context.Context, campaign model.Campaign) (*model.Proposal, error) {
	bundle, err := p.bundles.GetByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	prop, err := p.proposals.GetOpenByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	now := p.clk.Now()
	if prop != nil {
		if prop.Status == model.ProposalLocked && prop.BundleID == bundle.ID && prop.HoldExpiresAt != nil && prop.HoldExpiresAt.After(now) {
			return prop, nil
		}
		if prop.BundleID != bundle.ID {
			resetProposal(prop, bundle.ID)
		}
	} else {
		prop = &model.Proposal{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			BundleID:   bundle.ID,
			Status:     model.ProposalPending,
			CreatedAt:  now,
		}
		if err := p.proposals.Create(ctx, prop); err != nil {
			return nil, err
		}
	}
	capErr := p.runCapacity(ctx, campaign, bundle, prop)
	if err := p.proposals.Update(ctx, prop); err != nil {
		return nil, err
	}
	return prop, capErr
}

// runCapacity re-checks the bundle against a fresh inventory snapshot and
// records the outcome on the proposal.  The gate is max_allowed (available
// plus the campaign's own active holds) so a resumed session with live
// holds is not failed for inventory it already owns.
func (p *Pipeline) runCapacity(ctx context.Context, campaign model.Campaign, bundle *model.Bundle, prop *model.Proposal) error {
	ids := make([]uint64, 0, len(bundle.Items))
	for _, it := range bundle.Items {
		ids = append(ids, it.ScreenID)
	}
	snaps, err := p.inv.Query(ctx, campaign.ID, ids, campaign.Range())
	if err != nil {
		return err
	}
	var failures []ScreenCapacity
	for _, it := range bundle.Items {
		snap, ok := snaps[it.ScreenID]
		avail := uint32(0)
		if ok {
			avail = snap.MaxAllowed()
		}
		if it.SlotCount > avail {
			failures = append(failures, ScreenCapacity{
				ScreenID:  it.ScreenID,
				Available: avail,
				Requested: it.SlotCount,
				Passed:    false,
			})
		}
	}
	if len(failures) > 0 {
		prop.CapacityOK = false
		return &CapacityError{Failures: failures}
	}
	prop.CapacityOK = true
	return nil
}

// AcceptPolicy records the advertiser's explicit acceptance of the policy
// terms.  Only selectable once capacity has passed for the current bundle;
// there is no timeout, the stage simply waits for this call.
func (p *Pipeline) AcceptPolicy(ctx context.Context, campaign model.Campaign, prop *model.Proposal) error {
	if err := p.checkOpen(ctx, campaign, prop); err != nil {
		return err
	}
	if !prop.CapacityOK {
		return ErrCapacityNotPassed
	}
	now := p.clk.Now()
	prop.PolicyOK = true
	prop.PolicyAcceptedAt = &now
	return p.proposals.Update(ctx, prop)
}

// AcceptPriceChange records that the advertiser accepts the current price
// drift, unblocking the price-lock stage when the aggregate is not LOCKED.
func (p *Pipeline) AcceptPriceChange(ctx context.Context, campaign model.Campaign, prop *model.Proposal) error {
	if err := p.checkOpen(ctx, campaign, prop); err != nil {
		return err
	}
	if !prop.CapacityOK {
		return ErrCapacityNotPassed
	}
	prop.PriceDriftAccepted = true
	return p.proposals.Update(ctx, prop)
}

// PriceLock runs the final readiness stage.  It requires capacity and policy
// to have passed, then reconciles the bundle's price snapshot against live
// prices: a LOCKED aggregate (or a prior AcceptPriceChange) marks the
// proposal READY.  The returned report carries the figures the hold set will
// be priced with.
func (p *Pipeline) PriceLock(ctx context.Context, campaign model.Campaign, prop *model.Proposal) (PriceReport, error) {
	if err := p.checkOpen(ctx, campaign, prop); err != nil {
		return PriceReport{}, err
	}
	if !prop.CapacityOK {
		return PriceReport{}, ErrCapacityNotPassed
	}
	if !prop.PolicyOK {
		return PriceReport{}, ErrPolicyNotAccepted
	}
	bundle, err := p.bundles.GetByID(ctx, prop.BundleID)
	if err != nil {
		return PriceReport{}, err
	}
	report, err := p.pricer.Classify(ctx, *bundle)
	if err != nil {
		return PriceReport{}, err
	}
	if report.Aggregate != PriceLocked && !prop.PriceDriftAccepted {
		return report, ErrPriceDriftUnaccepted
	}
	prop.PriceLocked = true
	prop.Status = model.ProposalReady
	if err := p.proposals.Update(ctx, prop); err != nil {
		return PriceReport{}, err
	}
	return report, nil
}

// checkOpen rejects mutations on closed proposals and resets the state
// machine when the bundle has been re-assembled underneath the proposal.
func (p *Pipeline) checkOpen(ctx context.Context, campaign model.Campaign, prop *model.Proposal) error {
	switch prop.Status {
	case model.ProposalPending, model.ProposalReady, model.ProposalLocked:
	default:
		return ErrProposalClosed
	}
	bundle, err := p.bundles.GetByCampaign(ctx, campaign.ID)
	if err != nil {
		return err
	}
	if bundle.ID != prop.BundleID {
		resetProposal(prop, bundle.ID)
		if err := p.proposals.Update(ctx, prop); err != nil {
			return err
		}
		return ErrBundleChanged
	}
	return nil
}

// resetProposal rewinds a proposal to PENDING for a new bundle generation.
// All three readiness flags and the drift acceptance are cleared; nothing
// from the previous generation carries over.
func resetProposal(prop *model.Proposal, bundleID uint64) {
	prop.BundleID = bundleID
	prop.CapacityOK = false
	prop.PolicyOK = false
	prop.PolicyAcceptedAt = nil
	prop.PriceLocked = false
	prop.PriceDriftAccepted = false
	prop.Status = model.ProposalPending
}
