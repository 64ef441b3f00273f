package booking

import (
	"context"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// Price drift classes.  LOCKED means live and snapshot prices agree within
// one currency unit on every screen; HIKED wins over REDUCED in the
// aggregate so an advertiser never silently benefits from one screen's drop
// while another screen got more expensive.
const (
	PriceLocked  = "LOCKED"
	PriceHiked   = "HIKED"
	PriceReduced = "REDUCED"
)

// driftThresholdCents is one currency unit: drift smaller than this counts
// as locked.
const driftThresholdCents = 100

// ScreenPriceDrift is the per-screen comparison of the bundle's snapshot
// price against the live price.
type ScreenPriceDrift struct {
	ScreenID      uint64 `json:"screen_id"`
	SnapshotCents uint32 `json:"snapshot_cents"`
	LiveCents     uint32 `json:"live_cents"`
	DeltaCents    int64  `json:"delta_cents"`
	Class         string `json:"class"`
}

// PriceReport is the outcome of one reconciliation pass: per-screen drift
// plus the aggregate class that gates the price-lock stage.
type PriceReport struct {
	Aggregate string             `json:"aggregate"`
	Screens   []ScreenPriceDrift `json:"screens"`
}

// Pricer compares a bundle's price snapshot against live screen prices.
// Reports are never cached: price can keep drifting while the advertiser is
// undecided, so every view recomputes from the live table.
type Pricer struct {
	screens ScreenStore
}

// NewPricer constructs a Pricer.
func NewPricer(screens ScreenStore) *Pricer {
	if screens == nil {
		panic("nil ScreenStore passed to NewPricer")
	}
	return &Pricer{screens: screens}
}

// Classify compares every bundle item's captured price with the screen's
// live price.  A screen missing from the live table is classified as HIKED
// with the full snapshot as delta, since it can no longer be bought at any
// price.
func (p *Pricer) Classify(ctx context.Context, bundle model.Bundle) (PriceReport, error) {
	ids := make([]uint64, 0, len(bundle.Items))
	for _, it := range bundle.Items {
		ids = append(ids, it.ScreenID)
	}
	screens, err := p.screens.ListByIDs(ctx, ids)
	if err != nil {
		return PriceReport{}, err
	}
	live := make(map[uint64]uint32, len(screens))
	for _, sc := range screens {
		live[sc.ID] = sc.PricePerSlotCents
	}
	report := PriceReport{Aggregate: PriceLocked, Screens: make([]ScreenPriceDrift, 0, len(bundle.Items))}
	for _, it := range bundle.Items {
		d := ScreenPriceDrift{
			ScreenID:      it.ScreenID,
			SnapshotCents: it.PricePerSlotCents,
			Class:         PriceLocked,
		}
		cur, ok := live[it.ScreenID]
		if ok {
			d.LiveCents = cur
			d.DeltaCents = int64(cur) - int64(it.PricePerSlotCents)
		} else {
			d.DeltaCents = int64(it.PricePerSlotCents)
		}
		switch {
		case d.DeltaCents >= driftThresholdCents || !ok:
			d.Class = PriceHiked
		case d.DeltaCents <= -driftThresholdCents:
			d.Class = PriceReduced
		}
		report.Screens = append(report.Screens, d)
		switch d.Class {
		case PriceHiked:
			report.Aggregate = PriceHiked
		case PriceReduced:
			if report.Aggregate != PriceHiked {
				report.Aggregate = PriceReduced
			}
		}
	}
	return report, nil
}
