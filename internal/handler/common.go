package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/booking"
    "github.com/iliyamo/screen-slot-reservation/internal/model"
    "github.com/iliyamo/screen-slot-reservation/internal/repository"
)

// AdvertiserHandler groups the services and repositories behind the
// advertiser-facing reservation API: campaign management, draft selection
// editing, bundle assembly and the readiness/hold/commit pipeline.  All
// methods assume JWT authentication and role validation have already been
// performed by middleware.
type AdvertiserHandler struct {
    Campaigns *repository.CampaignRepo
    Proposals *repository.ProposalRepo
    Bundles   *repository.BundleRepo
    Inventory booking.SnapshotProvider
    Selection *booking.SelectionManager
    Assembler *booking.Assembler
    Pricer    *booking.Pricer
    Pipeline  *booking.Pipeline
    Holds     *booking.HoldManager
    Committer *booking.Committer
}

// NewAdvertiserHandler constructs an AdvertiserHandler and panics if any
// dependency is nil.
func NewAdvertiserHandler(campaigns *repository.CampaignRepo, proposals *repository.ProposalRepo, bundles *repository.BundleRepo, inv booking.SnapshotProvider, sel *booking.SelectionManager, asm *booking.Assembler, pricer *booking.Pricer, pipe *booking.Pipeline, holds *booking.HoldManager, committer *booking.Committer) *AdvertiserHandler {
    if campaigns == nil || proposals == nil || bundles == nil || inv == nil || sel == nil || asm == nil || pricer == nil || pipe == nil || holds == nil || committer == nil {
        panic("nil dependency passed to NewAdvertiserHandler")
    }
    return &AdvertiserHandler{
        Campaigns: campaigns,
        Proposals: proposals,
        Bundles:   bundles,
        Inventory: inv,
        Selection: sel,
        Assembler: asm,
        Pricer:    pricer,
        Pipeline:  pipe,
        Holds:     holds,
        Committer: committer,
    }
}

// getAdvertiserID extracts the advertiser_id from echo.Context and converts
// it to uint64.  JWTAuth stores JSON-decoded claims, so the value usually
// arrives as float64.
func getAdvertiserID(c echo.Context) (uint64, error) {
    v := c.Get("advertiser_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid advertiser_id in context")
}

// campaignFromPath loads the campaign in the :id path parameter and checks
// ownership against the authenticated advertiser.  On failure it writes the
// error response and returns a nil campaign; callers simply return the
// error value.
func (h *AdvertiserHandler) campaignFromPath(c echo.Context) (*model.Campaign, error) {
    advertiserID, err := getAdvertiserID(c)
    if err != nil {
        return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign id"})
    }
    campaign, err := h.Campaigns.GetForAdvertiser(c.Request().Context(), id, advertiserID)
    if err != nil {
        return nil, campaignLookupError(c, err)
    }
    return campaign, nil
}

// campaignLookupError writes the response for a failed campaign lookup.
func campaignLookupError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrCampaignNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "campaign not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// proposalFromPath loads the proposal in the :id path parameter and its
// owning campaign, checking ownership.  On failure it writes the response
// and returns nils.
func (h *AdvertiserHandler) proposalFromPath(c echo.Context) (*model.Campaign, *model.Proposal, error) {
    advertiserID, err := getAdvertiserID(c)
    if err != nil {
        return nil, nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id := c.Param("id")
    if id == "" {
        return nil, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid proposal id"})
    }
    ctx := c.Request().Context()
    prop, err := h.Proposals.Get(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrProposalNotFound) {
            return nil, nil, c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
        }
        return nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    campaign, err := h.Campaigns.GetForAdvertiser(ctx, prop.CampaignID, advertiserID)
    if err != nil {
        return nil, nil, campaignLookupError(c, err)
    }
    return campaign, prop, nil
}

// bookingError translates a booking-layer failure into an HTTP response.
// Capacity failures carry the per-screen detail so the client can
// renegotiate the selection.
func bookingError(c echo.Context, err error) error {
    if ce, ok := booking.AsCapacityError(err); ok {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":    "insufficient capacity",
            "failures": ce.Failures,
        })
    }
    switch {
    case errors.Is(err, booking.ErrEmptySelection):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "selection is empty"})
    case errors.Is(err, booking.ErrMissingName):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "bundle name is required"})
    case errors.Is(err, booking.ErrCapacityNotPassed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "capacity check has not passed"})
    case errors.Is(err, booking.ErrPolicyNotAccepted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "policy terms not accepted"})
    case errors.Is(err, booking.ErrPriceDriftUnaccepted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "price drift not accepted"})
    case errors.Is(err, booking.ErrProposalNotReady):
        return c.JSON(http.StatusConflict, echo.Map{"error": "proposal is not ready"})
    case errors.Is(err, booking.ErrBundleChanged):
        return c.JSON(http.StatusConflict, echo.Map{"error": "bundle changed, pipeline reset"})
    case errors.Is(err, booking.ErrStaleHold), errors.Is(err, booking.ErrHoldExpired):
        return c.JSON(http.StatusConflict, echo.Map{"error": "hold set is stale or expired"})
    case errors.Is(err, booking.ErrProposalClosed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "proposal is closed"})
    case errors.Is(err, repository.ErrBundleNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "bundle not found"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
