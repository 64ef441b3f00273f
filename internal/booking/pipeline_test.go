package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// pipelineFixture wires a Pipeline against in-memory stores with one bundle
// already assembled for the campaign.
type pipelineFixture struct {
	pipe      *Pipeline
	proposals *fakeProposalStore
	bundles   *fakeBundleStore
	inv       *fakeInventory
	campaign  model.Campaign
	bundle    *model.Bundle
}

func newPipelineFixture(t *testing.T, now time.Time, items []model.BundleItem, snaps map[uint64]model.InventorySnapshot, live map[uint64]model.Screen) *pipelineFixture {
	t.Helper()
	campaign := model.Campaign{ID: 7, Status: model.CampaignProposed}
	bundles := newFakeBundleStore()
	bundle := &model.Bundle{CampaignID: campaign.ID, Name: "fixture", Items: items, CreatedAt: now}
	if err := bundles.Replace(context.Background(), bundle); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	proposals := newFakeProposalStore()
	inv := &fakeInventory{snaps: snaps}
	pipe := NewPipeline(proposals, bundles, inv, NewPricer(&fakeScreenStore{screens: live}), clock.NewFixed(now))
	return &pipelineFixture{pipe: pipe, proposals: proposals, bundles: bundles, inv: inv, campaign: campaign, bundle: bundle}
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []model.BundleItem{{ScreenID: 1, SlotCount: 3, PricePerSlotCents: 1000}}
	roomy := map[uint64]model.InventorySnapshot{1: {ScreenID: 1, TotalSlots: 10, AvailableSlots: 10}}
	samePrice := map[uint64]model.Screen{1: {ID: 1, PricePerSlotCents: 1000}}

	t.Run("full pass marks proposal READY", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if !prop.CapacityOK || prop.Status != model.ProposalPending {
			t.Fatalf("expected capacity passed on PENDING proposal, got %+v", prop)
		}
		if err := f.pipe.AcceptPolicy(ctx, f.campaign, prop); err != nil {
			t.Fatalf("accept policy: %v", err)
		}
		if prop.PolicyAcceptedAt == nil || !prop.PolicyAcceptedAt.Equal(now) {
			t.Fatalf("expected policy timestamp %v, got %v", now, prop.PolicyAcceptedAt)
		}
		report, err := f.pipe.PriceLock(ctx, f.campaign, prop)
		if err != nil {
			t.Fatalf("price lock: %v", err)
		}
		if report.Aggregate != PriceLocked {
			t.Fatalf("expected LOCKED report, got %s", report.Aggregate)
		}
		if !prop.Ready() || prop.Status != model.ProposalReady {
			t.Fatalf("expected READY proposal, got %+v", prop)
		}
		stored, _ := f.proposals.Get(ctx, prop.ID)
		if !stored.Ready() {
			t.Fatalf("expected readiness persisted, got %+v", stored)
		}
	})

	t.Run("capacity failure returns detail with the proposal", func(t *testing.T) {
		f := newPipelineFixture(t, now, items,
			map[uint64]model.InventorySnapshot{1: {ScreenID: 1, TotalSlots: 10, AvailableSlots: 2}},
			samePrice)

		prop, err := f.pipe.Open(context.Background(), f.campaign)
		ce, ok := AsCapacityError(err)
		if !ok {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if len(ce.Failures) != 1 || ce.Failures[0].Available != 2 || ce.Failures[0].Requested != 3 {
			t.Fatalf("unexpected failure detail: %+v", ce.Failures)
		}
		if prop == nil || prop.CapacityOK {
			t.Fatalf("expected proposal with capacity not passed, got %+v", prop)
		}
	})

	t.Run("own holds do not fail the capacity gate", func(t *testing.T) {
		f := newPipelineFixture(t, now, items,
			map[uint64]model.InventorySnapshot{1: {ScreenID: 1, TotalSlots: 10, AvailableSlots: 0, OwnHeldSlots: 3}},
			samePrice)

		prop, err := f.pipe.Open(context.Background(), f.campaign)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !prop.CapacityOK {
			t.Fatalf("expected capacity passed against own holds")
		}
	})

	t.Run("policy before capacity is rejected", func(t *testing.T) {
		f := newPipelineFixture(t, now, items,
			map[uint64]model.InventorySnapshot{1: {ScreenID: 1, TotalSlots: 10, AvailableSlots: 2}},
			samePrice)
		ctx := context.Background()

		prop, _ := f.pipe.Open(ctx, f.campaign)
		if err := f.pipe.AcceptPolicy(ctx, f.campaign, prop); !errors.Is(err, ErrCapacityNotPassed) {
			t.Fatalf("expected ErrCapacityNotPassed, got %v", err)
		}
	})

	t.Run("price lock before policy is rejected", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := f.pipe.PriceLock(ctx, f.campaign, prop); !errors.Is(err, ErrPolicyNotAccepted) {
			t.Fatalf("expected ErrPolicyNotAccepted, got %v", err)
		}
	})

	t.Run("drifted price blocks lock until accepted", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy,
			map[uint64]model.Screen{1: {ID: 1, PricePerSlotCents: 1400}})
		ctx := context.Background()

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := f.pipe.AcceptPolicy(ctx, f.campaign, prop); err != nil {
			t.Fatalf("accept policy: %v", err)
		}
		report, err := f.pipe.PriceLock(ctx, f.campaign, prop)
		if !errors.Is(err, ErrPriceDriftUnaccepted) {
			t.Fatalf("expected ErrPriceDriftUnaccepted, got %v", err)
		}
		if report.Aggregate != PriceHiked {
			t.Fatalf("expected HIKED report alongside the error, got %s", report.Aggregate)
		}
		if err := f.pipe.AcceptPriceChange(ctx, f.campaign, prop); err != nil {
			t.Fatalf("accept price: %v", err)
		}
		if _, err := f.pipe.PriceLock(ctx, f.campaign, prop); err != nil {
			t.Fatalf("expected lock after acceptance, got %v", err)
		}
		if prop.Status != model.ProposalReady {
			t.Fatalf("expected READY, got %s", prop.Status)
		}
	})

	t.Run("reassembled bundle resets the proposal", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := f.pipe.AcceptPolicy(ctx, f.campaign, prop); err != nil {
			t.Fatalf("accept policy: %v", err)
		}

		// A new bundle generation lands underneath the proposal.
		next := &model.Bundle{CampaignID: f.campaign.ID, Name: "v2", Items: items, CreatedAt: now}
		if err := f.bundles.Replace(ctx, next); err != nil {
			t.Fatalf("replace bundle: %v", err)
		}

		if _, err := f.pipe.PriceLock(ctx, f.campaign, prop); !errors.Is(err, ErrBundleChanged) {
			t.Fatalf("expected ErrBundleChanged, got %v", err)
		}
		if prop.CapacityOK || prop.PolicyOK || prop.PriceLocked || prop.Status != model.ProposalPending {
			t.Fatalf("expected full reset to PENDING, got %+v", prop)
		}
		if prop.BundleID != next.ID {
			t.Fatalf("expected proposal moved to bundle %d, got %d", next.ID, prop.BundleID)
		}
	})

	t.Run("open resumes a locked proposal with time left", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		expires := now.Add(5 * time.Minute)
		locked := &model.Proposal{
			ID: "prop-1", CampaignID: f.campaign.ID, BundleID: f.bundle.ID,
			CapacityOK: true, PolicyOK: true, PriceLocked: true,
			Status: model.ProposalLocked, HoldExpiresAt: &expires,
		}
		if err := f.proposals.Create(ctx, locked); err != nil {
			t.Fatalf("seed: %v", err)
		}

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if prop.ID != locked.ID || prop.Status != model.ProposalLocked {
			t.Fatalf("expected the locked proposal back, got %+v", prop)
		}
	})

	t.Run("open resets a locked proposal whose bundle was reassembled", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		expires := now.Add(5 * time.Minute)
		locked := &model.Proposal{
			ID: "prop-1", CampaignID: f.campaign.ID, BundleID: f.bundle.ID,
			CapacityOK: true, PolicyOK: true, PriceLocked: true,
			Status: model.ProposalLocked, HoldExpiresAt: &expires,
		}
		if err := f.proposals.Create(ctx, locked); err != nil {
			t.Fatalf("seed: %v", err)
		}
		next := &model.Bundle{CampaignID: f.campaign.ID, Name: "v2", Items: items, CreatedAt: now}
		if err := f.bundles.Replace(ctx, next); err != nil {
			t.Fatalf("replace bundle: %v", err)
		}

		prop, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if prop.ID != locked.ID {
			t.Fatalf("expected the same proposal reused, got %+v", prop)
		}
		if prop.Status != model.ProposalPending || prop.PolicyOK || prop.PriceLocked {
			t.Fatalf("expected reset to PENDING, got %+v", prop)
		}
		if prop.BundleID != next.ID {
			t.Fatalf("expected proposal moved to bundle %d, got %d", next.ID, prop.BundleID)
		}
	})

	t.Run("open reuses a pending proposal instead of duplicating", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		first, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("first open: %v", err)
		}
		second, err := f.pipe.Open(ctx, f.campaign)
		if err != nil {
			t.Fatalf("second open: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected one proposal per campaign, got %s and %s", first.ID, second.ID)
		}
		if len(f.proposals.proposals) != 1 {
			t.Fatalf("expected 1 stored proposal, got %d", len(f.proposals.proposals))
		}
	})

	t.Run("terminal proposal rejects stage calls", func(t *testing.T) {
		f := newPipelineFixture(t, now, items, roomy, samePrice)
		ctx := context.Background()

		done := &model.Proposal{ID: "prop-2", CampaignID: f.campaign.ID, BundleID: f.bundle.ID, Status: model.ProposalCommitted}
		if err := f.proposals.Create(ctx, done); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := f.pipe.AcceptPolicy(ctx, f.campaign, done); !errors.Is(err, ErrProposalClosed) {
			t.Fatalf("expected ErrProposalClosed, got %v", err)
		}
	})
}
