package model

import "time"

// CampaignStatus enumerates the lifecycle of a campaign as far as the
// reservation pipeline cares: DRAFT while the advertiser is still picking
// screens, PROPOSED once a bundle exists, COMMITTED after a successful
// commit handoff.
const (
    CampaignDraft     = "DRAFT"
    CampaignProposed  = "PROPOSED"
    CampaignCommitted = "COMMITTED"
)

// Campaign is an advertiser's booking context.  Its date range defines the
// window every inventory query, capacity check and hold applies to.
//
// Fields:
//  ID           – primary key identifier.
//  AdvertiserID – owner of the campaign (from the JWT subject).
//  Name         – campaign title.
//  StartDate    – first day ads run (inclusive).
//  EndDate      – last day ads run (inclusive).
//  Status       – DRAFT, PROPOSED or COMMITTED.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Campaign struct {
    ID           uint64    // campaigns.id
    AdvertiserID uint64    // campaigns.advertiser_id
    Name         string    // campaigns.name
    StartDate    time.Time // campaigns.start_date
    EndDate      time.Time // campaigns.end_date
    Status       string    // campaigns.status
    CreatedAt    time.Time // campaigns.created_at
    UpdatedAt    time.Time // campaigns.updated_at
}

// DateRange is the half of a campaign that inventory queries need.  Both
// bounds are inclusive dates, times truncated to midnight UTC.
type DateRange struct {
    Start time.Time
    End   time.Time
}

// Days returns the number of billable days in the range, minimum 1.
func (d DateRange) Days() int {
    n := int(d.End.Sub(d.Start).Hours()/24) + 1
    if n < 1 {
        return 1
    }
    return n
}

// Range returns the campaign's date range.
func (c Campaign) Range() DateRange {
    return DateRange{Start: c.StartDate, End: c.EndDate}
}
