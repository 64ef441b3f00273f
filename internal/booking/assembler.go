package booking

import (
	"context"
	"strings"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// Assembler freezes a draft selection into a named bundle with a captured
// price snapshot.  Assembly is the hand-off from exploratory selection to
// committed selection: everything downstream (pricing, readiness, holds)
// works off the bundle, never the live draft.
type Assembler struct {
	drafts    DraftStore
	screens   ScreenStore
	bundles   BundleStore
	campaigns CampaignStore
	clk       clock.Clock
}

// NewAssembler constructs an Assembler.  All dependencies must be non-nil.
func NewAssembler(drafts DraftStore, screens ScreenStore, bundles BundleStore, campaigns CampaignStore, clk clock.Clock) *Assembler {
	if drafts == nil || screens == nil || bundles == nil || campaigns == nil || clk == nil {
		panic("nil dependency passed to NewAssembler")
	}
	return &Assembler{drafts: drafts, screens: screens, bundles: bundles, campaigns: campaigns, clk: clk}
}

// Assemble builds and persists a bundle from the campaign's current draft.
// It fails with ErrEmptySelection when no screen has a positive count and
// with ErrMissingName on a blank name.  Re-assembling for the same campaign
// replaces any prior bundle, so at most one bundle exists per campaign.  The
// price snapshot is the live per-slot price of every selected screen at this
// moment.
func (a *Assembler) Assemble(ctx context.Context, campaign model.Campaign, name string) (*model.Bundle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}
	draft, err := a.drafts.Load(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Selection.TotalSlots() == 0 {
		return nil, ErrEmptySelection
	}
	sel := draft.Selection
	screens, err := a.screens.ListByIDs(ctx, sel.ScreenIDs())
	if err != nil {
		return nil, err
	}
	prices := make(map[uint64]uint32, len(screens))
	for _, sc := range screens {
		prices[sc.ID] = sc.PricePerSlotCents
	}
	items := make([]model.BundleItem, 0, len(sel))
	for id, count := range sel {
		if count == 0 {
			continue
		}
		price, ok := prices[id]
		if !ok {
			// Screen disappeared between selection and assembly; drop it
			// rather than freezing a price that does not exist.
			continue
		}
		items = append(items, model.BundleItem{
			ScreenID:          id,
			SlotCount:         count,
			PricePerSlotCents: price,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}
	b := &model.Bundle{
		CampaignID: campaign.ID,
		Name:       name,
		Items:      items,
		CreatedAt:  a.clk.Now(),
	}
	if err := a.bundles.Replace(ctx, b); err != nil {
		return nil, err
	}
	if campaign.Status == model.CampaignDraft {
		if err := a.campaigns.UpdateStatus(ctx, campaign.ID, model.CampaignProposed); err != nil {
			return nil, err
		}
	}
	return b, nil
}
