package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// ProposalRepo provides data access to the proposals table.
type ProposalRepo struct {
	db *sql.DB
}

// NewProposalRepo constructs a ProposalRepo given a DB handle.
func NewProposalRepo(db *sql.DB) *ProposalRepo { return &ProposalRepo{db: db} }

const proposalColumns = `id, campaign_id, bundle_id, capacity_ok, policy_ok, policy_accepted_at, price_locked, price_drift_accepted, status, hold_expires_at, commit_token, created_at, updated_at`

func scanProposal(row interface{ Scan(dest ...interface{}) error }) (model.Proposal, error) {
	var p model.Proposal
	err := row.Scan(&p.ID, &p.CampaignID, &p.BundleID, &p.CapacityOK, &p.PolicyOK, &p.PolicyAcceptedAt,
		&p.PriceLocked, &p.PriceDriftAccepted, &p.Status, &p.HoldExpiresAt, &p.CommitToken, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new proposal row.  The caller supplies the uuid id.
func (r *ProposalRepo) Create(ctx context.Context, p *model.Proposal) error {
	const q = `INSERT INTO proposals (id, campaign_id, bundle_id, capacity_ok, policy_ok, policy_accepted_at,
	           price_locked, price_drift_accepted, status, hold_expires_at, commit_token, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := p.CreatedAt.UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		p.ID, p.CampaignID, p.BundleID, p.CapacityOK, p.PolicyOK, nullTime(p.PolicyAcceptedAt),
		p.PriceLocked, p.PriceDriftAccepted, p.Status, nullTime(p.HoldExpiresAt), p.CommitToken, now, now)
	return err
}

// Get returns a proposal by id or ErrProposalNotFound.
func (r *ProposalRepo) Get(ctx context.Context, id string) (*model.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = ?`
	p, err := scanProposal(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetOpenByCampaign returns the campaign's proposal in a non-terminal state
// (PENDING, READY or LOCKED), or nil when none exists.  The pipeline keeps
// at most one such row per campaign.
func (r *ProposalRepo) GetOpenByCampaign(ctx context.Context, campaignID uint64) (*model.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals
	      WHERE campaign_id = ? AND status IN ('PENDING', 'READY', 'LOCKED')
	      ORDER BY created_at DESC LIMIT 1`
	p, err := scanProposal(conn(ctx, r.db).QueryRowContext(ctx, q, campaignID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Update writes every mutable column of the proposal back.  Participates in
// a transaction carried by ctx.
func (r *ProposalRepo) Update(ctx context.Context, p *model.Proposal) error {
	const q = `UPDATE proposals SET bundle_id = ?, capacity_ok = ?, policy_ok = ?, policy_accepted_at = ?,
	           price_locked = ?, price_drift_accepted = ?, status = ?, hold_expires_at = ?, commit_token = ?, updated_at = ?
	           WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		p.BundleID, p.CapacityOK, p.PolicyOK, nullTime(p.PolicyAcceptedAt),
		p.PriceLocked, p.PriceDriftAccepted, p.Status, nullTime(p.HoldExpiresAt), p.CommitToken,
		time.Now().UTC(), p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProposalNotFound
	}
	return nil
}

// nullTime converts an optional time into a driver-friendly value.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
