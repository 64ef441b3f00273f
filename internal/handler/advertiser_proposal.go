package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/booking"
    "github.com/iliyamo/screen-slot-reservation/internal/model"
)

// OpenProposal handles POST /v1/proposals.  For a campaign with a live
// proposal it returns that proposal with its remaining countdown instead of
// creating a duplicate; otherwise it opens a fresh one and immediately runs
// the capacity stage.  A capacity failure still returns the proposal so the
// client can renegotiate the selection and retry.
func (h *AdvertiserHandler) OpenProposal(c echo.Context) error {
    var body struct {
        CampaignID uint64 `json:"campaign_id"`
    }
    if err := c.Bind(&body); err != nil || body.CampaignID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "campaign_id is required"})
    }
    campaign, err := h.ownedCampaign(c, body.CampaignID)
    if campaign == nil {
        return err
    }
    prop, err := h.Pipeline.Open(c.Request().Context(), *campaign)
    if err != nil {
        if ce, ok := booking.AsCapacityError(err); ok && prop != nil {
            return c.JSON(http.StatusConflict, echo.Map{
                "item":     h.proposalView(*prop),
                "error":    "insufficient capacity",
                "failures": ce.Failures,
            })
        }
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": h.proposalView(*prop)})
}

// GetProposal handles GET /v1/proposals/:id.
func (h *AdvertiserHandler) GetProposal(c echo.Context) error {
    _, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"item": h.proposalView(*prop)})
}

// AcceptPolicy handles POST /v1/proposals/:id/accept-policy.
func (h *AdvertiserHandler) AcceptPolicy(c echo.Context) error {
    campaign, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    if err := h.Pipeline.AcceptPolicy(c.Request().Context(), *campaign, prop); err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": h.proposalView(*prop)})
}

// AcceptPriceChange handles POST /v1/proposals/:id/accept-price.  Accepting
// drift applies only to the current bundle generation; reassembly resets it.
func (h *AdvertiserHandler) AcceptPriceChange(c echo.Context) error {
    campaign, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    if err := h.Pipeline.AcceptPriceChange(c.Request().Context(), *campaign, prop); err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": h.proposalView(*prop)})
}

// LockProposal handles POST /v1/proposals/:id/lock.  It runs the price-lock
// stage and, when the proposal comes out READY, acquires TTL holds on every
// bundled screen in one transaction.  Unaccepted price drift returns the
// classification report so the client can prompt before retrying.
func (h *AdvertiserHandler) LockProposal(c echo.Context) error {
    campaign, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    ctx := c.Request().Context()
    report, err := h.Pipeline.PriceLock(ctx, *campaign, prop)
    if err != nil {
        if errors.Is(err, booking.ErrPriceDriftUnaccepted) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error":  "price drift not accepted",
                "report": report,
            })
        }
        return bookingError(c, err)
    }
    holds, err := h.Holds.Acquire(ctx, *campaign, prop)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "item":   h.proposalView(*prop),
        "holds":  holdViews(holds),
        "report": report,
    })
}

// ReleaseProposal handles POST /v1/proposals/:id/release.  Releasing frees
// the held slots immediately instead of waiting for the TTL sweep.
func (h *AdvertiserHandler) ReleaseProposal(c echo.Context) error {
    _, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    if err := h.Holds.Release(c.Request().Context(), prop); err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": h.proposalView(*prop)})
}

// CommitProposal handles POST /v1/proposals/:id/commit.  The commit
// verifies every hold is still active, converts them to COMMITTED and hands
// back an opaque token for the downstream contract flow.
func (h *AdvertiserHandler) CommitProposal(c echo.Context) error {
    campaign, prop, err := h.proposalFromPath(c)
    if prop == nil {
        return err
    }
    res, err := h.Committer.Commit(c.Request().Context(), *campaign, prop)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "item":         h.proposalView(*prop),
        "commit_token": res.CommitToken,
        "holds":        holdViews(res.Holds),
    })
}

// ownedCampaign loads a campaign by id with the ownership check, writing
// the error response itself like campaignFromPath does.
func (h *AdvertiserHandler) ownedCampaign(c echo.Context, id uint64) (*model.Campaign, error) {
    advertiserID, err := getAdvertiserID(c)
    if err != nil {
        return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    campaign, err := h.Campaigns.GetForAdvertiser(c.Request().Context(), id, advertiserID)
    if err != nil {
        return nil, campaignLookupError(c, err)
    }
    return campaign, nil
}

// proposalView projects a proposal together with its live countdown.
func (h *AdvertiserHandler) proposalView(p model.Proposal) echo.Map {
    m := echo.Map{
        "id":                   p.ID,
        "campaign_id":          p.CampaignID,
        "bundle_id":            p.BundleID,
        "capacity_ok":          p.CapacityOK,
        "policy_ok":            p.PolicyOK,
        "price_locked":         p.PriceLocked,
        "price_drift_accepted": p.PriceDriftAccepted,
        "status":               p.Status,
    }
    if p.HoldExpiresAt != nil {
        m["hold_expires_at"] = p.HoldExpiresAt.UTC().Format(time.RFC3339)
        m["hold_remaining_seconds"] = int64(p.HoldRemaining(time.Now().UTC()) / time.Second)
    }
    return m
}

// holdViews projects acquired holds for API responses.  The hold token is
// included so the client can present it to support when investigating a
// contested slot.
func holdViews(holds []model.SlotHold) []echo.Map {
    out := make([]echo.Map, 0, len(holds))
    for _, hld := range holds {
        out = append(out, echo.Map{
            "screen_id":  hld.ScreenID,
            "slots_held": hld.SlotsHeld,
            "hold_token": hld.HoldToken,
            "status":     hld.Status,
            "expires_at": hld.ExpiresAt.UTC().Format(time.RFC3339),
        })
    }
    return out
}
