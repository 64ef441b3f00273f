package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// HoldRepo provides data access to the slot_holds table and the row-lock
// boundary every hold mutation runs behind.  Availability sums always
// filter on `expires_at > now` in addition to status, so a hold past its
// deadline never blocks inventory even before the sweeper has reaped it.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo constructs a HoldRepo given a DB handle.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// WithTx runs fn inside a transaction.  Re-entrant: a context already
// carrying a transaction joins it instead of opening a nested one.
func (r *HoldRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// LockScreens takes exclusive row locks on the given screens for the
// duration of the surrounding transaction.  Ids are locked in ascending
// order so concurrent acquisitions over overlapping sets cannot deadlock.
func (r *HoldRepo) LockScreens(ctx context.Context, ids []uint64) ([]model.Screen, error) {
	if len(ids) == 0 {
		return []model.Screen{}, nil
	}
	q := `SELECT ` + screenColumns + ` FROM screens WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
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

// SumUnavailable returns the slots on a screen that are out of the pool from
// the given campaign's point of view: other campaigns' unexpired ACTIVE
// holds plus every COMMITTED hold (including the campaign's own, which are
// spent for good).
func (r *HoldRepo) SumUnavailable(ctx context.Context, screenID, campaignID uint64, now time.Time) (uint32, error) {
	const q = `SELECT COALESCE(SUM(slots_held), 0) FROM slot_holds
	           WHERE screen_id = ?
	             AND ((status = 'ACTIVE' AND campaign_id <> ? AND expires_at > ?) OR status = 'COMMITTED')`
	var total uint32
	if err := conn(ctx, r.db).QueryRowContext(ctx, q, screenID, campaignID, now.UTC()).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// FindActive returns the campaign's unexpired ACTIVE hold on a screen, or
// nil when none exists.  The partial unique index on (campaign_id,
// screen_id, status='ACTIVE') guarantees at most one row.
func (r *HoldRepo) FindActive(ctx context.Context, campaignID, screenID uint64, now time.Time) (*model.SlotHold, error) {
	const q = `SELECT id, campaign_id, screen_id, proposal_id, slots_held, hold_token, status, expires_at, created_at
	           FROM slot_holds
	           WHERE campaign_id = ? AND screen_id = ? AND status = 'ACTIVE' AND expires_at > ?`
	var h model.SlotHold
	err := conn(ctx, r.db).QueryRowContext(ctx, q, campaignID, screenID, now.UTC()).Scan(
		&h.ID, &h.CampaignID, &h.ScreenID, &h.ProposalID, &h.SlotsHeld, &h.HoldToken, &h.Status, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// Create inserts a hold and populates its ID.
func (r *HoldRepo) Create(ctx context.Context, h *model.SlotHold) error {
	const q = `INSERT INTO slot_holds (campaign_id, screen_id, proposal_id, slots_held, hold_token, status, expires_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		h.CampaignID, h.ScreenID, h.ProposalID, h.SlotsHeld, h.HoldToken, h.Status,
		h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// UpdateSlots rewrites a hold's slot count in place, used when the bundle
// behind an ACTIVE hold was re-assembled with a different count.  The caller
// is expected to hold the screen's row lock.
func (r *HoldRepo) UpdateSlots(ctx context.Context, holdID uint64, slots uint32) error {
	const q = `UPDATE slot_holds SET slots_held = ? WHERE id = ?`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, slots, holdID)
	return err
}

// ListByProposal returns every hold belonging to a proposal, any status.
func (r *HoldRepo) ListByProposal(ctx context.Context, proposalID string) ([]model.SlotHold, error) {
	const q = `SELECT id, campaign_id, screen_id, proposal_id, slots_held, hold_token, status, expires_at, created_at
	           FROM slot_holds WHERE proposal_id = ? ORDER BY screen_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.SlotHold
	for rows.Next() {
		var h model.SlotHold
		if err := rows.Scan(&h.ID, &h.CampaignID, &h.ScreenID, &h.ProposalID, &h.SlotsHeld, &h.HoldToken, &h.Status, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}

// UpdateStatusByProposal flips every hold of the proposal currently in
// status from to status to, returning how many rows changed.
func (r *HoldRepo) UpdateStatusByProposal(ctx context.Context, proposalID, from, to string) (int64, error) {
	const q = `UPDATE slot_holds SET status = ? WHERE proposal_id = ? AND status = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, to, proposalID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireDue transitions every ACTIVE hold past its expiry to EXPIRED and
// closes LOCKED proposals whose countdown elapsed, in one transaction.
// Expired slots reappear in availability automatically because every
// availability sum filters on status and expiry.
func (r *HoldRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	err := withTx(ctx, r.db, func(txCtx context.Context) error {
		c := conn(txCtx, r.db)
		res, err := c.ExecContext(txCtx,
			`UPDATE slot_holds SET status = 'EXPIRED' WHERE status = 'ACTIVE' AND expires_at <= ?`, now.UTC())
		if err != nil {
			return err
		}
		expired, err = res.RowsAffected()
		if err != nil {
			return err
		}
		_, err = c.ExecContext(txCtx,
			`UPDATE proposals SET status = 'EXPIRED', updated_at = ? WHERE status = 'LOCKED' AND hold_expires_at <= ?`,
			now.UTC(), now.UTC())
		return err
	})
	return expired, err
}
