package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// BundleRepo persists bundles and their items.  A bundle is immutable once
// written; Replace swaps the whole record inside one transaction so at most
// one bundle ever exists per campaign.
type BundleRepo struct {
	db *sql.DB
}

// NewBundleRepo constructs a BundleRepo given a DB handle.
func NewBundleRepo(db *sql.DB) *BundleRepo { return &BundleRepo{db: db} }

// Replace deletes any prior bundle for the campaign and inserts b with its
// items, populating b.ID.  Idempotent per campaign by construction.
func (r *BundleRepo) Replace(ctx context.Context, b *model.Bundle) error {
	return withTx(ctx, r.db, func(txCtx context.Context) error {
		c := conn(txCtx, r.db)
		// bundle_items has ON DELETE CASCADE on bundle_id.
		if _, err := c.ExecContext(txCtx, `DELETE FROM bundles WHERE campaign_id = ?`, b.CampaignID); err != nil {
			return err
		}
		res, err := c.ExecContext(txCtx,
			`INSERT INTO bundles (campaign_id, name, created_at) VALUES (?, ?, ?)`,
			b.CampaignID, b.Name, b.CreatedAt.UTC())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		if len(b.Items) == 0 {
			return nil
		}
		query := `INSERT INTO bundle_items (bundle_id, screen_id, slot_count, price_per_slot_cents) VALUES `
		args := make([]interface{}, 0, len(b.Items)*4)
		for i := range b.Items {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			b.Items[i].BundleID = b.ID
			args = append(args, b.ID, b.Items[i].ScreenID, b.Items[i].SlotCount, b.Items[i].PricePerSlotCents)
		}
		_, err = c.ExecContext(txCtx, query, args...)
		return err
	})
}

// GetByCampaign returns the campaign's bundle with items, or
// ErrBundleNotFound when the campaign has not assembled one.
func (r *BundleRepo) GetByCampaign(ctx context.Context, campaignID uint64) (*model.Bundle, error) {
	return r.get(ctx, `SELECT id, campaign_id, name, created_at FROM bundles WHERE campaign_id = ?`, campaignID)
}

// GetByID returns a bundle by primary key with items.
func (r *BundleRepo) GetByID(ctx context.Context, id uint64) (*model.Bundle, error) {
	return r.get(ctx, `SELECT id, campaign_id, name, created_at FROM bundles WHERE id = ?`, id)
}

func (r *BundleRepo) get(ctx context.Context, q string, arg uint64) (*model.Bundle, error) {
	c := conn(ctx, r.db)
	var b model.Bundle
	err := c.QueryRowContext(ctx, q, arg).Scan(&b.ID, &b.CampaignID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBundleNotFound
		}
		return nil, err
	}
	rows, err := c.QueryContext(ctx,
		`SELECT id, bundle_id, screen_id, slot_count, price_per_slot_cents FROM bundle_items WHERE bundle_id = ? ORDER BY screen_id`,
		b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.BundleItem
		if err := rows.Scan(&it.ID, &it.BundleID, &it.ScreenID, &it.SlotCount, &it.PricePerSlotCents); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}
