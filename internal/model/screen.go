package model

import "time"

// Screen describes a physical advertising display.  Screens loop through a
// fixed number of ad slots; a campaign buys some of those slots for a date
// range.  Screen records are owned by the inventory side of the system and
// are immutable as far as the reservation pipeline is concerned.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – human readable label shown to advertisers.
//  City              – city where the screen is installed.
//  Venue             – venue or street description.
//  Resolution        – panel resolution, informational only.
//  SlotsPerLoop      – total cyclic ad slots the screen plays.
//  PricePerSlotCents – list price per slot per day, in cents.
//  Active            – whether the screen is currently sellable.
//  BlockedFrom       – optional maintenance cutoff; no availability on or
//                      after this date.
//  AvailableUntil    – optional hard end of availability.
//  CreatedAt         – when the record was created.
//  UpdatedAt         – when the record was last updated.
type Screen struct {
    ID                uint64     // screens.id
    Name              string     // screens.name
    City              string     // screens.city
    Venue             string     // screens.venue
    Resolution        string     // screens.resolution
    SlotsPerLoop      uint32     // screens.slots_per_loop
    PricePerSlotCents uint32     // screens.price_per_slot_cents
    Active            bool       // screens.is_active
    BlockedFrom       *time.Time // screens.blocked_from (nullable)
    AvailableUntil    *time.Time // screens.available_until (nullable)
    CreatedAt         time.Time  // screens.created_at
    UpdatedAt         time.Time  // screens.updated_at
}
