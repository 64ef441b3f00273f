package model

import "time"

// InventorySnapshot is the per-screen result of an availability query for a
// campaign and date range.  AvailableSlots already excludes every other
// campaign's active holds; OwnHeldSlots counts slots this campaign itself
// holds, which it may re-commit without competing for them.
//
// Fields:
//  ScreenID          – screen the snapshot describes.
//  TotalSlots        – the screen's slots_per_loop.
//  AvailableSlots    – slots free for this campaign to take right now.
//  OwnHeldSlots      – slots this campaign already has on active hold.
//  PricePerSlotCents – live list price at query time.
//  BlockedFrom       – maintenance cutoff copied from the screen, if any.
//  AvailableUntil    – hard availability end copied from the screen, if any.
type InventorySnapshot struct {
    ScreenID          uint64
    TotalSlots        uint32
    AvailableSlots    uint32
    OwnHeldSlots      uint32
    PricePerSlotCents uint32
    BlockedFrom       *time.Time
    AvailableUntil    *time.Time
}

// MaxAllowed is the ceiling a selection may request for this screen: what is
// free plus what the campaign already legitimately holds.
func (s InventorySnapshot) MaxAllowed() uint32 {
    return s.AvailableSlots + s.OwnHeldSlots
}
