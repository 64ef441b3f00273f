package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// DefaultHoldTTL is how long acquired holds block inventory before expiring.
const DefaultHoldTTL = 600 * time.Second

// HoldManager acquires, releases and expires slot holds.  All mutations of
// shared hold state run inside a single transaction with row locks on the
// affected screens, so two concurrent acquisitions can never jointly
// oversubscribe a screen.  The TTL is absolute from first acquisition:
// readiness re-checks and idempotent re-acquisitions never extend it.
type HoldManager struct {
	holds     HoldStore
	proposals ProposalStore
	bundles   BundleStore
	clk       clock.Clock
	ttl       time.Duration
}

// NewHoldManager constructs a HoldManager.  All dependencies must be
// non-nil; ttl defaults to DefaultHoldTTL when zero.
func NewHoldManager(holds HoldStore, proposals ProposalStore, bundles BundleStore, clk clock.Clock, ttl time.Duration) *HoldManager {
	if holds == nil || proposals == nil || bundles == nil || clk == nil {
		panic("nil dependency passed to NewHoldManager")
	}
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &HoldManager{holds: holds, proposals: proposals, bundles: bundles, clk: clk, ttl: ttl}
}

// TTL returns the configured hold duration.
func (m *HoldManager) TTL() time.Duration { return m.ttl }

// Acquire creates one hold per bundle screen for a READY proposal, reusing
// any ACTIVE hold the campaign already has on a screen so a resumed session
// never double-counts inventory.  A reused hold whose count disagrees with
// the current bundle item is aligned to it, so commit always finalizes
// exactly what the bundle prices.  Availability is re-validated under row
// locks immediately before each hold is written; the earlier capacity check
// is advisory only.  All holds in the proposal share one expiry instant.
func (m *HoldManager) Acquire(ctx context.Context, campaign model.Campaign, prop *model.Proposal) ([]model.SlotHold, error) {
	if !prop.Ready() {
		return nil, ErrProposalNotReady
	}
	switch prop.Status {
	case model.ProposalReady, model.ProposalLocked:
	default:
		return nil, ErrProposalClosed
	}
	bundle, err := m.bundles.GetByID(ctx, prop.BundleID)
	if err != nil {
		return nil, err
	}
	items := append([]model.BundleItem(nil), bundle.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ScreenID < items[j].ScreenID })

	now := m.clk.Now()
	expiresAt := now.Add(m.ttl)
	if prop.HoldExpiresAt != nil && prop.HoldExpiresAt.After(now) {
		// A countdown is already running for this proposal; new holds join
		// it rather than starting their own clock.
		expiresAt = *prop.HoldExpiresAt
	}

	var acquired []model.SlotHold
	err = m.holds.WithTx(ctx, func(txCtx context.Context) error {
		ids := make([]uint64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ScreenID)
		}
		screens, err := m.holds.LockScreens(txCtx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint64]model.Screen, len(screens))
		for _, sc := range screens {
			byID[sc.ID] = sc
		}
		var failures []ScreenCapacity
		var toCreate []model.SlotHold
		type resize struct {
			holdID uint64
			slots  uint32
		}
		var toResize []resize
		for _, it := range items {
			existing, err := m.holds.FindActive(txCtx, campaign.ID, it.ScreenID, now)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.SlotsHeld != it.SlotCount {
					// The bundle was re-assembled with a different count since
					// this hold was taken; align the hold rather than reuse a
					// stale count.  Growth re-validates availability under the
					// same row lock, shrink always succeeds.
					if it.SlotCount > existing.SlotsHeld {
						avail, ok, err := m.available(txCtx, byID, it.ScreenID, campaign.ID, now)
						if err != nil {
							return err
						}
						if !ok || it.SlotCount > avail {
							failures = append(failures, ScreenCapacity{ScreenID: it.ScreenID, Available: avail, Requested: it.SlotCount})
							continue
						}
					}
					toResize = append(toResize, resize{holdID: existing.ID, slots: it.SlotCount})
					existing.SlotsHeld = it.SlotCount
				}
				acquired = append(acquired, *existing)
				continue
			}
			avail, ok, err := m.available(txCtx, byID, it.ScreenID, campaign.ID, now)
			if err != nil {
				return err
			}
			if !ok || it.SlotCount > avail {
				failures = append(failures, ScreenCapacity{ScreenID: it.ScreenID, Available: avail, Requested: it.SlotCount})
				continue
			}
			token, err := randomToken(32)
			if err != nil {
				return err
			}
			toCreate = append(toCreate, model.SlotHold{
				CampaignID: campaign.ID,
				ScreenID:   it.ScreenID,
				ProposalID: prop.ID,
				SlotsHeld:  it.SlotCount,
				HoldToken:  token,
				Status:     model.HoldActive,
				ExpiresAt:  expiresAt,
				CreatedAt:  now,
			})
		}
		if len(failures) > 0 {
			// Inventory moved between the capacity check and now; nothing is
			// partially acquired, the transaction rolls back whole.
			return &CapacityError{Failures: failures}
		}
		for _, rs := range toResize {
			if err := m.holds.UpdateSlots(txCtx, rs.holdID, rs.slots); err != nil {
				return err
			}
		}
		for i := range toCreate {
			if err := m.holds.Create(txCtx, &toCreate[i]); err != nil {
				return err
			}
			acquired = append(acquired, toCreate[i])
		}
		prop.Status = model.ProposalLocked
		prop.HoldExpiresAt = &expiresAt
		return m.proposals.Update(txCtx, prop)
	})
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

// available returns how many slots the campaign may hold on a screen: the
// loop total minus everything other campaigns have taken.  ok is false when
// the screen is not among the locked rows.
func (m *HoldManager) available(ctx context.Context, byID map[uint64]model.Screen, screenID, campaignID uint64, now time.Time) (uint32, bool, error) {
	screen, ok := byID[screenID]
	if !ok {
		return 0, false, nil
	}
	taken, err := m.holds.SumUnavailable(ctx, screenID, campaignID, now)
	if err != nil {
		return 0, false, err
	}
	if screen.SlotsPerLoop <= taken {
		return 0, true, nil
	}
	return screen.SlotsPerLoop - taken, true, nil
}

// Release cancels every hold in the proposal immediately, with the same
// effect as expiry: slots return to the pool and the proposal needs a fresh
// readiness pass before holds can be acquired again.
func (m *HoldManager) Release(ctx context.Context, prop *model.Proposal) error {
	switch prop.Status {
	case model.ProposalCommitted:
		return ErrProposalClosed
	}
	return m.holds.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := m.holds.UpdateStatusByProposal(txCtx, prop.ID, model.HoldActive, model.HoldReleased); err != nil {
			return err
		}
		prop.Status = model.ProposalReleased
		prop.HoldExpiresAt = nil
		return m.proposals.Update(txCtx, prop)
	})
}

// ExpireDue flips every hold past its expiry to EXPIRED and closes the
// proposals whose countdown elapsed.  Expiry is the only automatic state
// transition in the system and always pairs with slot release: an EXPIRED
// hold stops counting against availability in the same transaction.
func (m *HoldManager) ExpireDue(ctx context.Context) (int64, error) {
	var n int64
	err := m.holds.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		n, err = m.holds.ExpireDue(txCtx, m.clk.Now())
		return err
	})
	return n, err
}

// Sweep runs ExpireDue on the given interval until ctx is cancelled.  Run
// it in a goroutine from main; TTL enforcement must not depend on any
// client being connected.
func (m *HoldManager) Sweep(ctx context.Context, interval time.Duration, logf func(format string, v ...any)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.ExpireDue(ctx); err != nil {
				logf("hold sweep failed: %v", err)
			} else if n > 0 {
				logf("hold sweep expired %d holds", n)
			}
		}
	}
}

// randomToken returns n random bytes hex-encoded, used for hold tokens.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
