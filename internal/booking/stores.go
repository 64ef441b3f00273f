package booking

import (
	"context"
	"time"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// SnapshotProvider supplies live per-screen availability for a campaign and
// date range.  The map contains one entry per requested screen that exists;
// unknown screens are simply absent.  Implementations must exclude expired
// holds from every count even if a sweeper has not reaped them yet.
type SnapshotProvider interface {
	Query(ctx context.Context, campaignID uint64, screenIDs []uint64, dr model.DateRange) (map[uint64]model.InventorySnapshot, error)
}

// DraftStore persists the in-progress selection so a session survives
// interruption.  The draft is stored and restored verbatim.
type DraftStore interface {
	Save(ctx context.Context, d model.Draft) error
	Load(ctx context.Context, campaignID uint64) (*model.Draft, error)
	Clear(ctx context.Context, campaignID uint64) error
}

// ScreenStore exposes the read side of the screens table that the core
// needs: live prices at assembly and reconciliation time.
type ScreenStore interface {
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Screen, error)
}

// BundleStore persists bundles.  Replace is idempotent per campaign: any
// prior bundle for the same campaign is removed in the same transaction.
type BundleStore interface {
	Replace(ctx context.Context, b *model.Bundle) error
	GetByCampaign(ctx context.Context, campaignID uint64) (*model.Bundle, error)
	GetByID(ctx context.Context, id uint64) (*model.Bundle, error)
}

// ProposalStore persists proposals and their readiness flags.
type ProposalStore interface {
	Create(ctx context.Context, p *model.Proposal) error
	Get(ctx context.Context, id string) (*model.Proposal, error)
	// GetOpenByCampaign returns the campaign's proposal in a non-terminal
	// state (PENDING, READY or LOCKED), or nil when none exists.
	GetOpenByCampaign(ctx context.Context, campaignID uint64) (*model.Proposal, error)
	Update(ctx context.Context, p *model.Proposal) error
}

// CampaignStore is the slice of campaign persistence the core needs.
type CampaignStore interface {
	Get(ctx context.Context, id uint64) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

// HoldStore serializes all mutations of shared hold state.  WithTx runs fn
// inside a single database transaction; every other method participates in
// the transaction carried by ctx when one is present.  LockScreens must take
// exclusive row locks in ascending id order so concurrent acquisitions for
// overlapping screen sets cannot deadlock.
type HoldStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockScreens(ctx context.Context, ids []uint64) ([]model.Screen, error)
	// SumUnavailable returns the slots on a screen that are out of the pool
	// from the given campaign's point of view: other campaigns' unexpired
	// ACTIVE holds plus every COMMITTED hold.
	SumUnavailable(ctx context.Context, screenID, campaignID uint64, now time.Time) (uint32, error)
	FindActive(ctx context.Context, campaignID, screenID uint64, now time.Time) (*model.SlotHold, error)
	Create(ctx context.Context, h *model.SlotHold) error
	// UpdateSlots rewrites how many slots an existing hold keeps out of the
	// pool.  Callers must hold the screen's row lock.
	UpdateSlots(ctx context.Context, holdID uint64, slots uint32) error
	ListByProposal(ctx context.Context, proposalID string) ([]model.SlotHold, error)
	// UpdateStatusByProposal flips every hold of the proposal currently in
	// status from to status to, returning how many rows changed.
	UpdateStatusByProposal(ctx context.Context, proposalID, from, to string) (int64, error)
	// ExpireDue flips every ACTIVE hold past its expiry to EXPIRED and every
	// LOCKED proposal past its countdown to EXPIRED, atomically.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
