package model

import "time"

// Selection maps screen IDs to requested slot counts for one campaign draft.
// A screen with a zero count is treated as unselected and is never stored.
// The map is mutated only through the draft selection manager, which clamps
// every entry against the latest inventory snapshot.
type Selection map[uint64]uint32

// Clone returns an independent copy of the selection.
func (s Selection) Clone() Selection {
    out := make(Selection, len(s))
    for id, n := range s {
        out[id] = n
    }
    return out
}

// TotalSlots sums the requested slot counts across all screens.
func (s Selection) TotalSlots() uint32 {
    var total uint32
    for _, n := range s {
        total += n
    }
    return total
}

// ScreenIDs returns the selected screen IDs in unspecified order.
func (s Selection) ScreenIDs() []uint64 {
    ids := make([]uint64, 0, len(s))
    for id := range s {
        ids = append(ids, id)
    }
    return ids
}

// Draft is the persisted form of an in-progress selection.  It round-trips
// through the draft store verbatim so an interrupted session can resume
// without re-discovering screens.
type Draft struct {
    CampaignID uint64    `json:"campaign_id"`
    Selection  Selection `json:"selection"`
    SavedAt    time.Time `json:"saved_at"`
}
