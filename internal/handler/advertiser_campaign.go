package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/model"
)

// CreateCampaign handles POST /v1/campaigns.  The request body carries the
// campaign name and inclusive date range; the advertiser comes from the
// JWT.  New campaigns start in DRAFT with an empty selection.
func (h *AdvertiserHandler) CreateCampaign(c echo.Context) error {
    advertiserID, err := getAdvertiserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Name      string `json:"name"`
        StartDate string `json:"start_date"`
        EndDate   string `json:"end_date"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    start, end, err := parseDateRange(body.StartDate, body.EndDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    campaign := &model.Campaign{
        AdvertiserID: advertiserID,
        Name:         body.Name,
        StartDate:    start,
        EndDate:      end,
        Status:       model.CampaignDraft,
    }
    if err := h.Campaigns.Create(c.Request().Context(), campaign); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create campaign"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": campaignView(*campaign)})
}

// GetCampaign handles GET /v1/campaigns/:id.  Besides the campaign row it
// reports whether an open proposal exists, which lets a resumed session
// jump straight back into the pipeline.
func (h *AdvertiserHandler) GetCampaign(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    resp := echo.Map{"item": campaignView(*campaign)}
    if prop, err := h.Proposals.GetOpenByCampaign(c.Request().Context(), campaign.ID); err == nil && prop != nil {
        resp["open_proposal_id"] = prop.ID
    }
    return c.JSON(http.StatusOK, resp)
}

// UpdateCampaignDates handles PATCH /v1/campaigns/:id/dates.  Editing the
// range shifts the inventory basis, so the response reminds the client to
// reconcile its draft selection; committed campaigns cannot be edited.
func (h *AdvertiserHandler) UpdateCampaignDates(c echo.Context) error {
    campaign, err := h.campaignFromPath(c)
    if campaign == nil {
        return err
    }
    if campaign.Status == model.CampaignCommitted {
        return c.JSON(http.StatusConflict, echo.Map{"error": "campaign already committed"})
    }
    var body struct {
        StartDate string `json:"start_date"`
        EndDate   string `json:"end_date"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    start, end, err := parseDateRange(body.StartDate, body.EndDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if err := h.Campaigns.UpdateDates(c.Request().Context(), campaign.ID, model.DateRange{Start: start, End: end}); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update campaign"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "start_date":       start.Format(time.DateOnly),
        "end_date":         end.Format(time.DateOnly),
        "reconcile_needed": true,
    })
}

// campaignView is the JSON projection of a campaign.
func campaignView(cp model.Campaign) echo.Map {
    return echo.Map{
        "id":         cp.ID,
        "name":       cp.Name,
        "start_date": cp.StartDate.Format(time.DateOnly),
        "end_date":   cp.EndDate.Format(time.DateOnly),
        "status":     cp.Status,
    }
}

// parseDateRange parses and validates an inclusive YYYY-MM-DD range.
func parseDateRange(startStr, endStr string) (start, end time.Time, err error) {
    start, err = time.ParseInLocation(time.DateOnly, startStr, time.UTC)
    if err != nil {
        return start, end, errors.New("invalid start_date, expected YYYY-MM-DD")
    }
    end, err = time.ParseInLocation(time.DateOnly, endStr, time.UTC)
    if err != nil {
        return start, end, errors.New("invalid end_date, expected YYYY-MM-DD")
    }
    if end.Before(start) {
        return start, end, errors.New("end_date must not be before start_date")
    }
    return start, end, nil
}
