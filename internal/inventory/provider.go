// Package inventory implements the snapshot provider the reservation
// pipeline queries for live availability.  A snapshot is advisory: the hold
// manager re-validates under row locks before any slot is actually taken.
package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/clock"
	"github.com/iliyamo/screen-slot-reservation/internal/model"
	"github.com/iliyamo/screen-slot-reservation/internal/repository"
)

// Provider answers per-screen availability queries for a campaign and date
// range.  Available slots exclude every unexpired ACTIVE hold and every
// COMMITTED hold; the requesting campaign's own ACTIVE holds are reported
// separately so callers can compute max_allowed.
type Provider struct {
	db      *sql.DB
	screens *repository.ScreenRepo
	clk     clock.Clock
}

// NewProvider constructs a Provider.
func NewProvider(db *sql.DB, screens *repository.ScreenRepo, clk clock.Clock) *Provider {
	if db == nil || screens == nil || clk == nil {
		panic("nil dependency passed to inventory.NewProvider")
	}
	return &Provider{db: db, screens: screens, clk: clk}
}

// Query returns one snapshot per known screen id.  Screens that are
// inactive, in maintenance within the range, or past their availability end
// report zero available slots; they stay in the result so callers can show
// why the screen cannot be booked.
func (p *Provider) Query(ctx context.Context, campaignID uint64, screenIDs []uint64, dr model.DateRange) (map[uint64]model.InventorySnapshot, error) {
	out := make(map[uint64]model.InventorySnapshot, len(screenIDs))
	if len(screenIDs) == 0 {
		return out, nil
	}
	screens, err := p.screens.ListByIDs(ctx, screenIDs)
	if err != nil {
		return nil, err
	}
	now := p.clk.Now()
	held, own, err := p.holdSums(ctx, campaignID, screenIDs, now)
	if err != nil {
		return nil, err
	}
	for _, sc := range screens {
		snap := model.InventorySnapshot{
			ScreenID:          sc.ID,
			TotalSlots:        sc.SlotsPerLoop,
			PricePerSlotCents: sc.PricePerSlotCents,
			OwnHeldSlots:      own[sc.ID],
			BlockedFrom:       sc.BlockedFrom,
			AvailableUntil:    sc.AvailableUntil,
		}
		if sellable(sc, dr) {
			taken := held[sc.ID]
			if sc.SlotsPerLoop > taken {
				snap.AvailableSlots = sc.SlotsPerLoop - taken
			}
		} else {
			snap.OwnHeldSlots = 0
		}
		out[sc.ID] = snap
	}
	return out, nil
}

// holdSums returns, per screen, the slots removed from the pool (all
// unexpired ACTIVE holds plus all COMMITTED holds) and separately the
// requesting campaign's own unexpired ACTIVE slots.
func (p *Provider) holdSums(ctx context.Context, campaignID uint64, screenIDs []uint64, now time.Time) (held, own map[uint64]uint32, err error) {
	held = make(map[uint64]uint32, len(screenIDs))
	own = make(map[uint64]uint32, len(screenIDs))
	q := `SELECT screen_id,
	             COALESCE(SUM(slots_held), 0),
	             COALESCE(SUM(CASE WHEN campaign_id = ? AND status = 'ACTIVE' THEN slots_held ELSE 0 END), 0)
	      FROM slot_holds
	      WHERE screen_id IN (` + placeholders(len(screenIDs)) + `)
	        AND ((status = 'ACTIVE' AND expires_at > ?) OR status = 'COMMITTED')
	      GROUP BY screen_id`
	args := make([]interface{}, 0, len(screenIDs)+2)
	args = append(args, campaignID)
	for _, id := range screenIDs {
		args = append(args, id)
	}
	args = append(args, now.UTC())
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var total, mine uint32
		if err := rows.Scan(&id, &total, &mine); err != nil {
			return nil, nil, err
		}
		held[id] = total
		own[id] = mine
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return held, own, nil
}

// sellable reports whether a screen can serve the whole date range.
func sellable(sc model.Screen, dr model.DateRange) bool {
	if !sc.Active {
		return false
	}
	if sc.BlockedFrom != nil && !sc.BlockedFrom.After(dr.End) {
		return false
	}
	if sc.AvailableUntil != nil && sc.AvailableUntil.Before(dr.End) {
		return false
	}
	return true
}

// placeholders mirrors the repository helper for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = append(b, '?')
	}
	return string(b)
}
