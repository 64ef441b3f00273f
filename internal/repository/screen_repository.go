package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// ScreenRepo encapsulates database operations for the screens table.  The
// reservation pipeline treats screens as read-only; rows are seeded and
// maintained by the inventory side of the system.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo constructs a ScreenRepo given a DB handle.
func NewScreenRepo(db *sql.DB) *ScreenRepo { return &ScreenRepo{db: db} }

// DB exposes the underlying handle for callers that need to begin their own
// transactions.
func (r *ScreenRepo) DB() *sql.DB { return r.db }

const screenColumns = `id, name, city, venue, resolution, slots_per_loop, price_per_slot_cents, is_active, blocked_from, available_until, created_at, updated_at`

func scanScreen(row interface{ Scan(dest ...interface{}) error }) (model.Screen, error) {
	var s model.Screen
	err := row.Scan(&s.ID, &s.Name, &s.City, &s.Venue, &s.Resolution, &s.SlotsPerLoop,
		&s.PricePerSlotCents, &s.Active, &s.BlockedFrom, &s.AvailableUntil, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetByID returns a single screen or ErrScreenNotFound.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	q := `SELECT ` + screenColumns + ` FROM screens WHERE id = ?`
	s, err := scanScreen(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByIDs returns the screens whose ids appear in ids.  Unknown ids are
// silently absent from the result; callers compare lengths when that
// matters.  An empty input returns an empty slice without touching the DB.
func (r *ScreenRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Screen, error) {
	if len(ids) == 0 {
		return []model.Screen{}, nil
	}
	q := `SELECT ` + screenColumns + ` FROM screens WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var screens []model.Screen
	for rows.Next() {
		s, err := scanScreen(rows)
		if err != nil {
			return nil, err
		}
		screens = append(screens, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return screens, nil
}

// ListActive returns sellable screens, optionally filtered by city.  Used by
// the public browse endpoints; results are safe to cache briefly since the
// table changes rarely.
func (r *ScreenRepo) ListActive(ctx context.Context, city string) ([]model.Screen, error) {
	q := `SELECT ` + screenColumns + ` FROM screens WHERE is_active = 1`
	args := []interface{}{}
	if city != "" {
		q += ` AND city = ?`
		args = append(args, city)
	}
	q += ` ORDER BY city, name`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	screens := []model.Screen{}
	for rows.Next() {
		s, err := scanScreen(rows)
		if err != nil {
			return nil, err
		}
		screens = append(screens, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return screens, nil
}
