package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

var errNotFound = errors.New("not found")

// fakeInventory serves canned snapshots keyed by screen id.
type fakeInventory struct {
	snaps map[uint64]model.InventorySnapshot
}

func (f *fakeInventory) Query(_ context.Context, _ uint64, screenIDs []uint64, _ model.DateRange) (map[uint64]model.InventorySnapshot, error) {
	out := make(map[uint64]model.InventorySnapshot, len(screenIDs))
	for _, id := range screenIDs {
		if s, ok := f.snaps[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// fakeDraftStore keeps drafts in memory keyed by campaign id.
type fakeDraftStore struct {
	drafts map[uint64]model.Draft
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[uint64]model.Draft)}
}

func (f *fakeDraftStore) Save(_ context.Context, d model.Draft) error {
	d.Selection = d.Selection.Clone()
	f.drafts[d.CampaignID] = d
	return nil
}

func (f *fakeDraftStore) Load(_ context.Context, campaignID uint64) (*model.Draft, error) {
	d, ok := f.drafts[campaignID]
	if !ok {
		return nil, nil
	}
	d.Selection = d.Selection.Clone()
	return &d, nil
}

func (f *fakeDraftStore) Clear(_ context.Context, campaignID uint64) error {
	delete(f.drafts, campaignID)
	return nil
}

// fakeScreenStore serves screens keyed by id.
type fakeScreenStore struct {
	screens map[uint64]model.Screen
}

func (f *fakeScreenStore) ListByIDs(_ context.Context, ids []uint64) ([]model.Screen, error) {
	out := make([]model.Screen, 0, len(ids))
	for _, id := range ids {
		if s, ok := f.screens[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeBundleStore keeps one bundle per campaign, like the real table.
type fakeBundleStore struct {
	nextID  uint64
	bundles map[uint64]model.Bundle // keyed by bundle id
}

func newFakeBundleStore() *fakeBundleStore {
	return &fakeBundleStore{nextID: 1, bundles: make(map[uint64]model.Bundle)}
}

func (f *fakeBundleStore) Replace(_ context.Context, b *model.Bundle) error {
	for id, old := range f.bundles {
		if old.CampaignID == b.CampaignID {
			delete(f.bundles, id)
		}
	}
	b.ID = f.nextID
	f.nextID++
	f.bundles[b.ID] = *b
	return nil
}

func (f *fakeBundleStore) GetByCampaign(_ context.Context, campaignID uint64) (*model.Bundle, error) {
	for _, b := range f.bundles {
		if b.CampaignID == campaignID {
			b := b
			return &b, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeBundleStore) GetByID(_ context.Context, id uint64) (*model.Bundle, error) {
	b, ok := f.bundles[id]
	if !ok {
		return nil, errNotFound
	}
	return &b, nil
}

// fakeProposalStore keeps proposals keyed by id.
type fakeProposalStore struct {
	proposals map[string]model.Proposal
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{proposals: make(map[string]model.Proposal)}
}

func (f *fakeProposalStore) Create(_ context.Context, p *model.Proposal) error {
	f.proposals[p.ID] = *p
	return nil
}

func (f *fakeProposalStore) Get(_ context.Context, id string) (*model.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (f *fakeProposalStore) GetOpenByCampaign(_ context.Context, campaignID uint64) (*model.Proposal, error) {
	for _, p := range f.proposals {
		if p.CampaignID != campaignID {
			continue
		}
		switch p.Status {
		case model.ProposalPending, model.ProposalReady, model.ProposalLocked:
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProposalStore) Update(_ context.Context, p *model.Proposal) error {
	if _, ok := f.proposals[p.ID]; !ok {
		return errNotFound
	}
	f.proposals[p.ID] = *p
	return nil
}

// fakeCampaignStore keeps campaigns keyed by id.
type fakeCampaignStore struct {
	campaigns map[uint64]model.Campaign
}

func (f *fakeCampaignStore) Get(_ context.Context, id uint64) (*model.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, errNotFound
	}
	return &c, nil
}

func (f *fakeCampaignStore) UpdateStatus(_ context.Context, id uint64, status string) error {
	c, ok := f.campaigns[id]
	if !ok {
		return errNotFound
	}
	c.Status = status
	f.campaigns[id] = c
	return nil
}

// fakeHoldStore keeps holds and screens in memory.  WithTx runs fn directly;
// the transactional guarantees of the real store are not what these tests
// exercise.  It also reaches into the proposal store for ExpireDue, mirroring
// the two UPDATEs the SQL implementation runs in one transaction.
type fakeHoldStore struct {
	nextID    uint64
	screens   map[uint64]model.Screen
	holds     []model.SlotHold
	proposals *fakeProposalStore
	failTx    error // when set, WithTx returns it without running fn
}

func newFakeHoldStore(screens map[uint64]model.Screen, proposals *fakeProposalStore) *fakeHoldStore {
	return &fakeHoldStore{nextID: 1, screens: screens, proposals: proposals}
}

func (f *fakeHoldStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.failTx != nil {
		return f.failTx
	}
	return fn(ctx)
}

func (f *fakeHoldStore) LockScreens(_ context.Context, ids []uint64) ([]model.Screen, error) {
	out := make([]model.Screen, 0, len(ids))
	for _, id := range ids {
		if s, ok := f.screens[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeHoldStore) SumUnavailable(_ context.Context, screenID, campaignID uint64, now time.Time) (uint32, error) {
	var sum uint32
	for _, h := range f.holds {
		if h.ScreenID != screenID {
			continue
		}
		if h.Status == model.HoldCommitted {
			sum += h.SlotsHeld
			continue
		}
		if h.Status == model.HoldActive && h.CampaignID != campaignID && h.ExpiresAt.After(now) {
			sum += h.SlotsHeld
		}
	}
	return sum, nil
}

func (f *fakeHoldStore) FindActive(_ context.Context, campaignID, screenID uint64, now time.Time) (*model.SlotHold, error) {
	for _, h := range f.holds {
		if h.CampaignID == campaignID && h.ScreenID == screenID && h.ActiveAt(now) {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldStore) Create(_ context.Context, h *model.SlotHold) error {
	h.ID = f.nextID
	f.nextID++
	f.holds = append(f.holds, *h)
	return nil
}

func (f *fakeHoldStore) UpdateSlots(_ context.Context, holdID uint64, slots uint32) error {
	for i := range f.holds {
		if f.holds[i].ID == holdID {
			f.holds[i].SlotsHeld = slots
			return nil
		}
	}
	return errNotFound
}

func (f *fakeHoldStore) ListByProposal(_ context.Context, proposalID string) ([]model.SlotHold, error) {
	var out []model.SlotHold
	for _, h := range f.holds {
		if h.ProposalID == proposalID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHoldStore) UpdateStatusByProposal(_ context.Context, proposalID, from, to string) (int64, error) {
	var n int64
	for i := range f.holds {
		if f.holds[i].ProposalID == proposalID && f.holds[i].Status == from {
			f.holds[i].Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakeHoldStore) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for i := range f.holds {
		if f.holds[i].Status == model.HoldActive && !f.holds[i].ExpiresAt.After(now) {
			f.holds[i].Status = model.HoldExpired
			n++
		}
	}
	if f.proposals != nil {
		for id, p := range f.proposals.proposals {
			if p.Status == model.ProposalLocked && p.HoldExpiresAt != nil && !p.HoldExpiresAt.After(now) {
				p.Status = model.ProposalExpired
				f.proposals.proposals[id] = p
			}
		}
	}
	return n, nil
}

// activeHolds counts holds still ACTIVE on a screen at the given instant.
func (f *fakeHoldStore) activeHolds(screenID uint64, now time.Time) int {
	n := 0
	for _, h := range f.holds {
		if h.ScreenID == screenID && h.ActiveAt(now) {
			n++
		}
	}
	return n
}
