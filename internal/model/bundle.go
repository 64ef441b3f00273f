package model

import "time"

// Bundle freezes a named selection for a campaign together with a price
// snapshot.  Once written it is immutable; re-assembling for the same
// campaign replaces the previous bundle wholesale rather than editing it.
//
// Fields:
//  ID         – primary key identifier.
//  CampaignID – campaign the bundle belongs to (unique per campaign).
//  Name       – advertiser-chosen bundle name.
//  Items      – one entry per selected screen.
//  CreatedAt  – assembly timestamp.
type Bundle struct {
    ID         uint64       // bundles.id
    CampaignID uint64       // bundles.campaign_id
    Name       string       // bundles.name
    Items      []BundleItem // bundle_items rows
    CreatedAt  time.Time    // bundles.created_at
}

// BundleItem records one screen's slot count and the price captured at
// assembly time.  The captured price is the snapshot that price
// reconciliation later compares against the live price.
type BundleItem struct {
    ID                uint64 // bundle_items.id
    BundleID          uint64 // bundle_items.bundle_id
    ScreenID          uint64 // bundle_items.screen_id
    SlotCount         uint32 // bundle_items.slot_count
    PricePerSlotCents uint32 // bundle_items.price_per_slot_cents (snapshot)
}

// Selection rebuilds the screen→slots map from the bundle's items.
func (b Bundle) Selection() Selection {
    sel := make(Selection, len(b.Items))
    for _, it := range b.Items {
        sel[it.ScreenID] = it.SlotCount
    }
    return sel
}

// SnapshotPrice returns the captured per-slot price for a screen and whether
// the screen is part of the bundle.
func (b Bundle) SnapshotPrice(screenID uint64) (uint32, bool) {
    for _, it := range b.Items {
        if it.ScreenID == screenID {
            return it.PricePerSlotCents, true
        }
    }
    return 0, false
}
