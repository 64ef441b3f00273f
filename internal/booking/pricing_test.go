package booking

import (
	"context"
	"testing"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

func TestPricer_Classify(t *testing.T) {
	t.Parallel()

	bundle := model.Bundle{
		ID:         1,
		CampaignID: 7,
		Items: []model.BundleItem{
			{ScreenID: 1, SlotCount: 3, PricePerSlotCents: 1000},
			{ScreenID: 2, SlotCount: 2, PricePerSlotCents: 2000},
		},
	}

	classify := func(t *testing.T, live map[uint64]model.Screen) PriceReport {
		t.Helper()
		p := NewPricer(&fakeScreenStore{screens: live})
		report, err := p.Classify(context.Background(), bundle)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return report
	}

	t.Run("unchanged prices aggregate LOCKED", func(t *testing.T) {
		report := classify(t, map[uint64]model.Screen{
			1: {ID: 1, PricePerSlotCents: 1000},
			2: {ID: 2, PricePerSlotCents: 2000},
		})
		if report.Aggregate != PriceLocked {
			t.Fatalf("expected LOCKED, got %s", report.Aggregate)
		}
	})

	t.Run("sub-unit drift still counts as locked", func(t *testing.T) {
		report := classify(t, map[uint64]model.Screen{
			1: {ID: 1, PricePerSlotCents: 1099},
			2: {ID: 2, PricePerSlotCents: 1901},
		})
		if report.Aggregate != PriceLocked {
			t.Fatalf("expected LOCKED, got %s", report.Aggregate)
		}
		for _, d := range report.Screens {
			if d.Class != PriceLocked {
				t.Fatalf("expected per-screen LOCKED, got %+v", d)
			}
		}
	})

	t.Run("hike on one screen wins over reduction on another", func(t *testing.T) {
		report := classify(t, map[uint64]model.Screen{
			1: {ID: 1, PricePerSlotCents: 1100}, // +100, hiked
			2: {ID: 2, PricePerSlotCents: 1500}, // -500, reduced
		})
		if report.Aggregate != PriceHiked {
			t.Fatalf("expected HIKED aggregate, got %s", report.Aggregate)
		}
		if report.Screens[0].Class != PriceHiked || report.Screens[1].Class != PriceReduced {
			t.Fatalf("expected per-screen HIKED/REDUCED, got %+v", report.Screens)
		}
	})

	t.Run("pure reduction aggregates REDUCED", func(t *testing.T) {
		report := classify(t, map[uint64]model.Screen{
			1: {ID: 1, PricePerSlotCents: 800},
			2: {ID: 2, PricePerSlotCents: 2000},
		})
		if report.Aggregate != PriceReduced {
			t.Fatalf("expected REDUCED, got %s", report.Aggregate)
		}
	})

	t.Run("screen missing from catalog classifies HIKED", func(t *testing.T) {
		report := classify(t, map[uint64]model.Screen{
			1: {ID: 1, PricePerSlotCents: 1000},
		})
		if report.Aggregate != PriceHiked {
			t.Fatalf("expected HIKED, got %s", report.Aggregate)
		}
		if report.Screens[1].DeltaCents != 2000 {
			t.Fatalf("expected full snapshot as delta, got %+v", report.Screens[1])
		}
	})
}
