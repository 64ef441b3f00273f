package handler

import (
    "errors"
    "net/http"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/model"
)

// CampaignInventory handles GET /v1/campaigns/:id/inventory.  The
// screen_ids query parameter limits the lookup; without it the snapshot
// covers the screens already present in the draft selection.  Every
// snapshot is computed live, so a stale browse list never inflates the
// caps a later mutation is clamped against.
func (h *AdvertiserHandler) CampaignInventory(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    ctx := c.Request().Context()
    screenIDs, err := parseScreenIDs(c.QueryParam("screen_ids"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen_ids"})
    }
    if len(screenIDs) == 0 {
        sel, err := h.Selection.Load(ctx, campaign.ID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
        }
        screenIDs = sel.ScreenIDs()
    }
    snaps, err := h.Inventory.Query(ctx, campaign.ID, screenIDs, campaign.Range())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to query inventory"})
    }
    items := make([]echo.Map, 0, len(snaps))
    for _, id := range screenIDs {
        snap, ok := snaps[id]
        if !ok {
            continue
        }
        items = append(items, snapshotView(snap))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetSelection handles GET /v1/campaigns/:id/selection.
func (h *AdvertiserHandler) GetSelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    sel, err := h.Selection.Load(c.Request().Context(), campaign.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
    }
    return c.JSON(http.StatusOK, selectionView(sel))
}

// ToggleSelection handles POST /v1/campaigns/:id/selection/toggle.  An
// unselected screen joins the draft at its starting count; a selected one
// drops back out (or floors at the already-held count).
func (h *AdvertiserHandler) ToggleSelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    var body struct {
        ScreenID uint64 `json:"screen_id"`
    }
    if err := c.Bind(&body); err != nil || body.ScreenID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "screen_id is required"})
    }
    res, err := h.Selection.Toggle(c.Request().Context(), *campaign, body.ScreenID)
    if err != nil {
        return bookingError(c, err)
    }
    return h.selectionResult(c, campaign.ID, []interface{}{res})
}

// AdjustSelection handles POST /v1/campaigns/:id/selection/adjust.  The
// delta may be negative; the applied count is clamped into the valid range
// and the response reports whether clamping occurred.
func (h *AdvertiserHandler) AdjustSelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    var body struct {
        ScreenID uint64 `json:"screen_id"`
        Delta    int64  `json:"delta"`
    }
    if err := c.Bind(&body); err != nil || body.ScreenID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "screen_id is required"})
    }
    if body.Delta == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "delta must be non-zero"})
    }
    res, err := h.Selection.Adjust(c.Request().Context(), *campaign, body.ScreenID, body.Delta)
    if err != nil {
        return bookingError(c, err)
    }
    return h.selectionResult(c, campaign.ID, []interface{}{res})
}

// BulkApplySelection handles POST /v1/campaigns/:id/selection/bulk.  Each
// candidate screen is added at its starting count; screens already in the
// draft are left untouched and reported as skipped.
func (h *AdvertiserHandler) BulkApplySelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    var body struct {
        ScreenIDs []uint64 `json:"screen_ids"`
    }
    if err := c.Bind(&body); err != nil || len(body.ScreenIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "screen_ids is required"})
    }
    results, err := h.Selection.BulkApply(c.Request().Context(), *campaign, body.ScreenIDs)
    if err != nil {
        return bookingError(c, err)
    }
    out := make([]interface{}, len(results))
    for i, r := range results {
        out[i] = r
    }
    return h.selectionResult(c, campaign.ID, out)
}

// ReconcileSelection handles POST /v1/campaigns/:id/selection/reconcile.
// Called after the candidate set or the campaign dates change: screens no
// longer offered are dropped and surviving counts are re-clamped against
// fresh inventory.
func (h *AdvertiserHandler) ReconcileSelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    var body struct {
        ScreenIDs []uint64 `json:"screen_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    sel, changes, err := h.Selection.Reconcile(c.Request().Context(), *campaign, body.ScreenIDs)
    if err != nil {
        return bookingError(c, err)
    }
    resp := selectionView(sel)
    resp["changes"] = changes
    return c.JSON(http.StatusOK, resp)
}

// ClearSelection handles DELETE /v1/campaigns/:id/selection.
func (h *AdvertiserHandler) ClearSelection(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    if err := h.Selection.Clear(c.Request().Context(), campaign.ID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear selection"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "selection cleared"})
}

// selectionResult reloads the draft after a mutation so the client always
// sees the authoritative state alongside the per-screen outcomes.
func (h *AdvertiserHandler) selectionResult(c echo.Context, campaignID uint64, results []interface{}) error {
    sel, err := h.Selection.Load(c.Request().Context(), campaignID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
    }
    resp := selectionView(sel)
    resp["results"] = results
    return c.JSON(http.StatusOK, resp)
}

// selectionView projects a draft selection as a stable, sorted item list.
func selectionView(sel model.Selection) echo.Map {
    ids := sel.ScreenIDs()
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    items := make([]echo.Map, 0, len(ids))
    for _, id := range ids {
        items = append(items, echo.Map{"screen_id": id, "slot_count": sel[id]})
    }
    return echo.Map{
        "items":       items,
        "total_slots": sel.TotalSlots(),
    }
}

// snapshotView projects an inventory snapshot.
func snapshotView(s model.InventorySnapshot) echo.Map {
    m := echo.Map{
        "screen_id":            s.ScreenID,
        "total_slots":          s.TotalSlots,
        "available_slots":      s.AvailableSlots,
        "own_held_slots":       s.OwnHeldSlots,
        "max_allowed":          s.MaxAllowed(),
        "price_per_slot_cents": s.PricePerSlotCents,
    }
    if s.BlockedFrom != nil {
        m["blocked_from"] = s.BlockedFrom.Format(time.DateOnly)
    }
    if s.AvailableUntil != nil {
        m["available_until"] = s.AvailableUntil.Format(time.DateOnly)
    }
    return m
}

// parseScreenIDs splits a comma separated id list from a query parameter.
func parseScreenIDs(raw string) ([]uint64, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil, nil
    }
    parts := strings.Split(raw, ",")
    ids := make([]uint64, 0, len(parts))
    for _, p := range parts {
        id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
        if err != nil {
            return nil, err
        }
        if id == 0 {
            return nil, errors.New("screen id must be positive")
        }
        ids = append(ids, id)
    }
    return ids, nil
}
