package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/model"
    "github.com/iliyamo/screen-slot-reservation/internal/repository"
)

// AssembleBundle handles POST /v1/campaigns/:id/bundle.  It freezes the
// current draft selection into a named bundle with per-screen price
// snapshots and moves the campaign into PROPOSED.  Reassembling replaces
// the previous bundle, which later forces the readiness pipeline to reset.
func (h *AdvertiserHandler) AssembleBundle(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    if campaign.Status == model.CampaignCommitted {
        return c.JSON(http.StatusConflict, echo.Map{"error": "campaign already committed"})
    }
    var body struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    bundle, err := h.Assembler.Assemble(c.Request().Context(), *campaign, body.Name)
    if err != nil {
        return bookingError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": bundleView(*bundle)})
}

// GetBundle handles GET /v1/campaigns/:id/bundle.
func (h *AdvertiserHandler) GetBundle(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    bundle, err := h.Bundles.GetByCampaign(c.Request().Context(), campaign.ID)
    if err != nil {
        if errors.Is(err, repository.ErrBundleNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "bundle not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": bundleView(*bundle)})
}

// BundlePricing handles GET /v1/campaigns/:id/bundle/pricing.  The report
// compares the bundle's snapshot prices against live catalog prices and is
// always computed fresh; a session resumed days later sees today's drift,
// not the drift at assembly time.
func (h *AdvertiserHandler) BundlePricing(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    ctx := c.Request().Context()
    bundle, err := h.Bundles.GetByCampaign(ctx, campaign.ID)
    if err != nil {
        if errors.Is(err, repository.ErrBundleNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "bundle not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    report, err := h.Pricer.Classify(ctx, *bundle)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to classify prices"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "bundle_id": bundle.ID,
        "report":    report,
    })
}

// bundleView projects a bundle with its items and snapshot total.
func bundleView(b model.Bundle) echo.Map {
    items := make([]echo.Map, 0, len(b.Items))
    var totalCents uint64
    for _, it := range b.Items {
        items = append(items, echo.Map{
            "screen_id":            it.ScreenID,
            "slot_count":           it.SlotCount,
            "price_per_slot_cents": it.PricePerSlotCents,
        })
        totalCents += uint64(it.SlotCount) * uint64(it.PricePerSlotCents)
    }
    return echo.Map{
        "id":                   b.ID,
        "campaign_id":          b.CampaignID,
        "name":                 b.Name,
        "items":                items,
        "snapshot_total_cents": totalCents,
    }
}
