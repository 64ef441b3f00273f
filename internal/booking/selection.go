package booking

import (
	"context"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// AdjustResult reports what a selection mutation actually did.  Out-of-range
// requests are clamped rather than rejected so the UI stays responsive, but
// the Clamped flag makes a denied request distinguishable from an honored
// one for callers and tests.
type AdjustResult struct {
	ScreenID  uint64 `json:"screen_id"`
	Requested int64  `json:"requested"`
	Applied   uint32 `json:"applied"`
	Clamped   bool   `json:"clamped"`
	Skipped   bool   `json:"skipped,omitempty"`
}

// SelectionManager owns the campaign's draft selection: the screen→slot map
// an advertiser builds up before assembling a bundle.  Every mutation is
// clamped against a fresh inventory snapshot and the resulting draft is
// persisted so an interrupted session resumes exactly where it left off.
type SelectionManager struct {
	drafts DraftStore
	inv    SnapshotProvider
	clk    clock.Clock
}

// NewSelectionManager constructs a SelectionManager.  All dependencies must
// be non-nil.
func NewSelectionManager(drafts DraftStore, inv SnapshotProvider, clk clock.Clock) *SelectionManager {
	if drafts == nil || inv == nil || clk == nil {
		panic("nil dependency passed to NewSelectionManager")
	}
	return &SelectionManager{drafts: drafts, inv: inv, clk: clk}
}

// Load returns the campaign's current draft selection, or an empty selection
// when none has been saved yet.
func (m *SelectionManager) Load(ctx context.Context, campaignID uint64) (model.Selection, error) {
	d, err := m.drafts.Load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Selection == nil {
		return model.Selection{}, nil
	}
	return d.Selection, nil
}

// Toggle flips a screen in or out of the selection.  Selecting a screen with
// capacity starts it at max(1, own held slots); deselecting floors at the
// slots the campaign already holds, since those cannot be walked away from
// here (release goes through the hold manager).
func (m *SelectionManager) Toggle(ctx context.Context, campaign model.Campaign, screenID uint64) (AdjustResult, error) {
	sel, err := m.Load(ctx, campaign.ID)
	if err != nil {
		return AdjustResult{}, err
	}
	snaps, err := m.inv.Query(ctx, campaign.ID, []uint64{screenID}, campaign.Range())
	if err != nil {
		return AdjustResult{}, err
	}
	res := toggleOne(sel, snaps, screenID)
	if err := m.save(ctx, campaign.ID, sel); err != nil {
		return AdjustResult{}, err
	}
	return res, nil
}

// Adjust changes a screen's slot count by delta, clamping the result into
// [own_held_slots, max_allowed].  A zero result removes the screen from the
// selection.
func (m *SelectionManager) Adjust(ctx context.Context, campaign model.Campaign, screenID uint64, delta int64) (AdjustResult, error) {
	sel, err := m.Load(ctx, campaign.ID)
	if err != nil {
		return AdjustResult{}, err
	}
	snaps, err := m.inv.Query(ctx, campaign.ID, []uint64{screenID}, campaign.Range())
	if err != nil {
		return AdjustResult{}, err
	}
	res := adjustOne(sel, snaps, screenID, delta)
	if err := m.save(ctx, campaign.ID, sel); err != nil {
		return AdjustResult{}, err
	}
	return res, nil
}

// BulkApply selects every candidate screen that still has capacity, for a
// "select recommended" action.  Screens with max_allowed == 0 are skipped
// and reported with Skipped set; already-selected screens are left alone.
func (m *SelectionManager) BulkApply(ctx context.Context, campaign model.Campaign, candidateIDs []uint64) ([]AdjustResult, error) {
	sel, err := m.Load(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	snaps, err := m.inv.Query(ctx, campaign.ID, candidateIDs, campaign.Range())
	if err != nil {
		return nil, err
	}
	results := make([]AdjustResult, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		snap, ok := snaps[id]
		if !ok || snap.MaxAllowed() == 0 {
			results = append(results, AdjustResult{ScreenID: id, Skipped: true})
			continue
		}
		if _, selected := sel[id]; selected {
			results = append(results, AdjustResult{ScreenID: id, Requested: int64(sel[id]), Applied: sel[id]})
			continue
		}
		results = append(results, toggleOne(sel, snaps, id))
	}
	if err := m.save(ctx, campaign.ID, sel); err != nil {
		return nil, err
	}
	return results, nil
}

// Reconcile re-clamps the whole selection against a fresh snapshot, dropping
// screens that are no longer in the candidate set.  Called whenever the
// inventory basis shifts, e.g. the campaign's date range was edited.
func (m *SelectionManager) Reconcile(ctx context.Context, campaign model.Campaign, candidateIDs []uint64) (model.Selection, []AdjustResult, error) {
	sel, err := m.Load(ctx, campaign.ID)
	if err != nil {
		return nil, nil, err
	}
	candidates := make(map[uint64]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		candidates[id] = struct{}{}
	}
	ids := make([]uint64, 0, len(sel))
	for id := range sel {
		ids = append(ids, id)
	}
	snaps, err := m.inv.Query(ctx, campaign.ID, ids, campaign.Range())
	if err != nil {
		return nil, nil, err
	}
	var changes []AdjustResult
	for id, count := range sel {
		if _, ok := candidates[id]; !ok {
			delete(sel, id)
			changes = append(changes, AdjustResult{ScreenID: id, Requested: int64(count), Applied: 0, Clamped: true})
			continue
		}
		snap, ok := snaps[id]
		if !ok {
			delete(sel, id)
			changes = append(changes, AdjustResult{ScreenID: id, Requested: int64(count), Applied: 0, Clamped: true})
			continue
		}
		applied := clampCount(int64(count), snap)
		if applied != count {
			setCount(sel, id, applied)
			changes = append(changes, AdjustResult{ScreenID: id, Requested: int64(count), Applied: applied, Clamped: true})
		}
	}
	if err := m.save(ctx, campaign.ID, sel); err != nil {
		return nil, nil, err
	}
	return sel, changes, nil
}

// Clear drops the campaign's draft entirely.
func (m *SelectionManager) Clear(ctx context.Context, campaignID uint64) error {
	return m.drafts.Clear(ctx, campaignID)
}

func (m *SelectionManager) save(ctx context.Context, campaignID uint64, sel model.Selection) error {
	return m.drafts.Save(ctx, model.Draft{
		CampaignID: campaignID,
		Selection:  sel,
		SavedAt:    m.clk.Now(),
	})
}

// toggleOne applies toggle semantics to sel in place and reports the result.
func toggleOne(sel model.Selection, snaps map[uint64]model.InventorySnapshot, screenID uint64) AdjustResult {
	snap, known := snaps[screenID]
	cur, selected := sel[screenID]
	if !selected {
		if !known || snap.MaxAllowed() == 0 {
			return AdjustResult{ScreenID: screenID, Skipped: true}
		}
		start := snap.OwnHeldSlots
		if start < 1 {
			start = 1
		}
		applied := clampCount(int64(start), snap)
		setCount(sel, screenID, applied)
		return AdjustResult{ScreenID: screenID, Requested: int64(start), Applied: applied, Clamped: applied != start}
	}
	// Deselect, but never below the slots already held.
	floor := uint32(0)
	if known {
		floor = snap.OwnHeldSlots
	}
	setCount(sel, screenID, floor)
	return AdjustResult{ScreenID: screenID, Requested: 0, Applied: floor, Clamped: floor != 0 && cur != floor}
}

// adjustOne applies a delta to sel in place, clamping into the legal range.
func adjustOne(sel model.Selection, snaps map[uint64]model.InventorySnapshot, screenID uint64, delta int64) AdjustResult {
	snap, known := snaps[screenID]
	if !known {
		return AdjustResult{ScreenID: screenID, Skipped: true}
	}
	requested := int64(sel[screenID]) + delta
	applied := clampCount(requested, snap)
	setCount(sel, screenID, applied)
	return AdjustResult{ScreenID: screenID, Requested: requested, Applied: applied, Clamped: int64(applied) != requested}
}

// clampCount clamps a requested count into [own_held_slots, max_allowed].
func clampCount(requested int64, snap model.InventorySnapshot) uint32 {
	lo := int64(snap.OwnHeldSlots)
	hi := int64(snap.MaxAllowed())
	if requested < lo {
		requested = lo
	}
	if requested > hi {
		requested = hi
	}
	return uint32(requested)
}

// setCount writes a count into the selection, removing the entry at zero so
// an unselected screen never lingers in the map.
func setCount(sel model.Selection, screenID uint64, count uint32) {
	if count == 0 {
		delete(sel, screenID)
		return
	}
	sel[screenID] = count
}
