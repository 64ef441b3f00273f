package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// holdFixture wires a HoldManager over in-memory stores with one READY
// proposal for campaign 7 and a bundle of the given items.
type holdFixture struct {
	mgr       *HoldManager
	holds     *fakeHoldStore
	proposals *fakeProposalStore
	clk       *clock.FixedClock
	campaign  model.Campaign
	prop      *model.Proposal
}

func newHoldFixture(t *testing.T, now time.Time, ttl time.Duration, screens map[uint64]model.Screen, items []model.BundleItem) *holdFixture {
	t.Helper()
	ctx := context.Background()
	campaign := model.Campaign{ID: 7, Status: model.CampaignProposed}
	bundles := newFakeBundleStore()
	bundle := &model.Bundle{CampaignID: campaign.ID, Name: "fixture", Items: items, CreatedAt: now}
	if err := bundles.Replace(ctx, bundle); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	proposals := newFakeProposalStore()
	prop := &model.Proposal{
		ID: "prop-1", CampaignID: campaign.ID, BundleID: bundle.ID,
		CapacityOK: true, PolicyOK: true, PriceLocked: true,
		Status: model.ProposalReady, CreatedAt: now,
	}
	if err := proposals.Create(ctx, prop); err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	holds := newFakeHoldStore(screens, proposals)
	clk := clock.NewFixed(now)
	return &holdFixture{
		mgr:       NewHoldManager(holds, proposals, bundles, clk, ttl),
		holds:     holds,
		proposals: proposals,
		clk:       clk,
		campaign:  campaign,
		prop:      prop,
	}
}

func TestHoldManager_Acquire(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute
	screens := map[uint64]model.Screen{
		1: {ID: 1, SlotsPerLoop: 10},
		2: {ID: 2, SlotsPerLoop: 8},
	}
	items := []model.BundleItem{
		{ScreenID: 1, SlotCount: 3, PricePerSlotCents: 1000},
		{ScreenID: 2, SlotCount: 2, PricePerSlotCents: 900},
	}

	t.Run("acquires one hold per screen with a shared expiry", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)

		acquired, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(acquired) != 2 {
			t.Fatalf("expected 2 holds, got %d", len(acquired))
		}
		want := now.Add(ttl)
		for _, h := range acquired {
			if !h.ExpiresAt.Equal(want) {
				t.Fatalf("expected shared expiry %v, got %v", want, h.ExpiresAt)
			}
			if h.Status != model.HoldActive || h.HoldToken == "" {
				t.Fatalf("expected ACTIVE hold with token, got %+v", h)
			}
		}
		if f.prop.Status != model.ProposalLocked {
			t.Fatalf("expected LOCKED proposal, got %s", f.prop.Status)
		}
		if f.prop.HoldExpiresAt == nil || !f.prop.HoldExpiresAt.Equal(want) {
			t.Fatalf("expected countdown at %v, got %v", want, f.prop.HoldExpiresAt)
		}
	})

	t.Run("reacquire reuses holds and never extends the countdown", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		ctx := context.Background()

		first, err := f.mgr.Acquire(ctx, f.campaign, f.prop)
		if err != nil {
			t.Fatalf("first acquire: %v", err)
		}

		f.clk.Advance(3 * time.Minute)
		second, err := f.mgr.Acquire(ctx, f.campaign, f.prop)
		if err != nil {
			t.Fatalf("second acquire: %v", err)
		}
		if len(second) != 2 || len(f.holds.holds) != 2 {
			t.Fatalf("expected the same 2 holds, got %d returned / %d stored", len(second), len(f.holds.holds))
		}
		for i := range second {
			if second[i].HoldToken != first[i].HoldToken {
				t.Fatalf("expected hold %d reused, got a new token", second[i].ID)
			}
			if !second[i].ExpiresAt.Equal(now.Add(ttl)) {
				t.Fatalf("expected original expiry kept, got %v", second[i].ExpiresAt)
			}
		}
	})

	t.Run("reacquire grows a hold whose bundle count increased", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		// Left over from an earlier bundle generation: 2 slots held where
		// the current bundle prices 3.
		f.holds.holds = append(f.holds.holds, model.SlotHold{
			ID: 50, CampaignID: f.campaign.ID, ScreenID: 1, ProposalID: "prop-0",
			SlotsHeld: 2, HoldToken: "tok-old", Status: model.HoldActive, ExpiresAt: now.Add(5 * time.Minute),
		})

		acquired, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var h1 model.SlotHold
		for _, h := range acquired {
			if h.ScreenID == 1 {
				h1 = h
			}
		}
		if h1.SlotsHeld != 3 || h1.HoldToken != "tok-old" {
			t.Fatalf("expected the old hold aligned to 3 slots, got %+v", h1)
		}
		if got := f.holds.holds[0].SlotsHeld; got != 3 {
			t.Fatalf("expected stored hold resized to 3, got %d", got)
		}
	})

	t.Run("reacquire shrinks a hold whose bundle count decreased", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.holds.holds = append(f.holds.holds, model.SlotHold{
			ID: 50, CampaignID: f.campaign.ID, ScreenID: 1, ProposalID: "prop-0",
			SlotsHeld: 5, HoldToken: "tok-old", Status: model.HoldActive, ExpiresAt: now.Add(5 * time.Minute),
		})

		acquired, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, h := range acquired {
			if h.ScreenID == 1 && h.SlotsHeld != 3 {
				t.Fatalf("expected hold shrunk to 3 slots, got %+v", h)
			}
		}
		if got := f.holds.holds[0].SlotsHeld; got != 3 {
			t.Fatalf("expected stored hold resized to 3, got %d", got)
		}
	})

	t.Run("growing a hold past availability fails whole", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.holds.holds = append(f.holds.holds,
			model.SlotHold{
				ID: 50, CampaignID: f.campaign.ID, ScreenID: 1, ProposalID: "prop-0",
				SlotsHeld: 1, HoldToken: "tok-old", Status: model.HoldActive, ExpiresAt: now.Add(5 * time.Minute),
			},
			model.SlotHold{
				ID: 51, CampaignID: 42, ScreenID: 1, ProposalID: "other",
				SlotsHeld: 8, Status: model.HoldActive, ExpiresAt: now.Add(time.Hour),
			},
		)

		_, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		ce, ok := AsCapacityError(err)
		if !ok {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if ce.Failures[0].ScreenID != 1 || ce.Failures[0].Available != 2 || ce.Failures[0].Requested != 3 {
			t.Fatalf("unexpected failure detail: %+v", ce.Failures)
		}
		if got := f.holds.holds[0].SlotsHeld; got != 1 {
			t.Fatalf("expected stale hold untouched, got %d slots", got)
		}
		if got := f.holds.activeHolds(2, now); got != 0 {
			t.Fatalf("expected no holds created, found %d on screen 2", got)
		}
	})

	t.Run("competitor holds shrink availability", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.holds.holds = append(f.holds.holds, model.SlotHold{
			ID: 99, CampaignID: 42, ScreenID: 1, ProposalID: "other",
			SlotsHeld: 8, Status: model.HoldActive, ExpiresAt: now.Add(time.Hour),
		})

		_, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		ce, ok := AsCapacityError(err)
		if !ok {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if len(ce.Failures) != 1 || ce.Failures[0].ScreenID != 1 || ce.Failures[0].Available != 2 {
			t.Fatalf("unexpected failure detail: %+v", ce.Failures)
		}
		// Nothing partial: screen 2 had room but must not be held either.
		if got := f.holds.activeHolds(2, now); got != 0 {
			t.Fatalf("expected no holds created, found %d on screen 2", got)
		}
		if f.prop.Status != model.ProposalReady {
			t.Fatalf("expected proposal untouched, got %s", f.prop.Status)
		}
	})

	t.Run("expired competitor holds do not block", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		// Past expiry but not yet swept: must not count.
		f.holds.holds = append(f.holds.holds, model.SlotHold{
			ID: 99, CampaignID: 42, ScreenID: 1, ProposalID: "other",
			SlotsHeld: 10, Status: model.HoldActive, ExpiresAt: now.Add(-time.Second),
		})

		if _, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop); err != nil {
			t.Fatalf("expected acquisition past an expired hold, got %v", err)
		}
	})

	t.Run("committed holds block permanently", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.holds.holds = append(f.holds.holds, model.SlotHold{
			ID: 99, CampaignID: 42, ScreenID: 2, ProposalID: "other",
			SlotsHeld: 7, Status: model.HoldCommitted, ExpiresAt: now.Add(-time.Hour),
		})

		_, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop)
		ce, ok := AsCapacityError(err)
		if !ok {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if ce.Failures[0].ScreenID != 2 || ce.Failures[0].Available != 1 {
			t.Fatalf("unexpected failure detail: %+v", ce.Failures)
		}
	})

	t.Run("rejects a proposal that is not ready", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.prop.PolicyOK = false

		if _, err := f.mgr.Acquire(context.Background(), f.campaign, f.prop); !errors.Is(err, ErrProposalNotReady) {
			t.Fatalf("expected ErrProposalNotReady, got %v", err)
		}
	})
}

func TestHoldManager_ReleaseAndExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute
	screens := map[uint64]model.Screen{1: {ID: 1, SlotsPerLoop: 10}}
	items := []model.BundleItem{{ScreenID: 1, SlotCount: 4, PricePerSlotCents: 1000}}

	t.Run("release frees slots immediately", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		ctx := context.Background()

		if _, err := f.mgr.Acquire(ctx, f.campaign, f.prop); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if err := f.mgr.Release(ctx, f.prop); err != nil {
			t.Fatalf("release: %v", err)
		}
		if f.prop.Status != model.ProposalReleased || f.prop.HoldExpiresAt != nil {
			t.Fatalf("expected RELEASED proposal without countdown, got %+v", f.prop)
		}
		if f.holds.holds[0].Status != model.HoldReleased {
			t.Fatalf("expected RELEASED hold, got %s", f.holds.holds[0].Status)
		}
		taken, _ := f.holds.SumUnavailable(ctx, 1, 42, now)
		if taken != 0 {
			t.Fatalf("expected slots back in the pool, %d still taken", taken)
		}
	})

	t.Run("release of a committed proposal is rejected", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		f.prop.Status = model.ProposalCommitted

		if err := f.mgr.Release(context.Background(), f.prop); !errors.Is(err, ErrProposalClosed) {
			t.Fatalf("expected ErrProposalClosed, got %v", err)
		}
	})

	t.Run("sweep expires due holds and their proposals", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		ctx := context.Background()

		if _, err := f.mgr.Acquire(ctx, f.campaign, f.prop); err != nil {
			t.Fatalf("acquire: %v", err)
		}

		f.clk.Advance(ttl + time.Second)
		n, err := f.mgr.ExpireDue(ctx)
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 expired hold, got %d", n)
		}
		if f.holds.holds[0].Status != model.HoldExpired {
			t.Fatalf("expected EXPIRED hold, got %s", f.holds.holds[0].Status)
		}
		stored, _ := f.proposals.Get(ctx, f.prop.ID)
		if stored.Status != model.ProposalExpired {
			t.Fatalf("expected EXPIRED proposal, got %s", stored.Status)
		}
	})

	t.Run("expiry is a no-op before the deadline", func(t *testing.T) {
		f := newHoldFixture(t, now, ttl, screens, items)
		ctx := context.Background()

		if _, err := f.mgr.Acquire(ctx, f.campaign, f.prop); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		f.clk.Advance(ttl - time.Second)
		n, err := f.mgr.ExpireDue(ctx)
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no expiries, got %d", n)
		}
	})
}
