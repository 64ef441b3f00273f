package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// CampaignRepo provides data access to the campaigns table.  All timestamps
// are UTC; the date range columns are DATE values truncated to midnight.
type CampaignRepo struct {
	db *sql.DB
}

// NewCampaignRepo constructs a CampaignRepo given a DB handle.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// Create inserts a new campaign in DRAFT status and populates its ID.
func (r *CampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	const q = `INSERT INTO campaigns (advertiser_id, name, start_date, end_date, status) VALUES (?, ?, ?, ?, ?)`
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		c.AdvertiserID, c.Name, c.StartDate.UTC().Format("2006-01-02"), c.EndDate.UTC().Format("2006-01-02"), c.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// Get returns a campaign by id or ErrCampaignNotFound.
func (r *CampaignRepo) Get(ctx context.Context, id uint64) (*model.Campaign, error) {
	const q = `SELECT id, advertiser_id, name, start_date, end_date, status, created_at, updated_at
	           FROM campaigns WHERE id = ?`
	var c model.Campaign
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.AdvertiserID, &c.Name, &c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetForAdvertiser returns a campaign only when it belongs to the given
// advertiser; otherwise ErrForbidden (existing) or ErrCampaignNotFound.
func (r *CampaignRepo) GetForAdvertiser(ctx context.Context, id, advertiserID uint64) (*model.Campaign, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AdvertiserID != advertiserID {
		return nil, ErrForbidden
	}
	return c, nil
}

// UpdateStatus sets the campaign's status.  Participates in a transaction
// carried by ctx so commit handoff can flip campaign and holds atomically.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// UpdateDates edits the campaign's date range.  The caller is responsible
// for reconciling the draft selection afterwards, since the inventory basis
// changes with the range.
func (r *CampaignRepo) UpdateDates(ctx context.Context, id uint64, dr model.DateRange) error {
	const q = `UPDATE campaigns SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		dr.Start.UTC().Format("2006-01-02"), dr.End.UTC().Format("2006-01-02"), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
