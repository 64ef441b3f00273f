package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screen-slot-reservation/internal/model"
    "github.com/iliyamo/screen-slot-reservation/internal/repository"
)

// PublicHandler exposes unauthenticated browse endpoints over the screen
// catalog.  Responses contain only catalog data, never live availability,
// so they are safe to serve through the response cache.
type PublicHandler struct {
    Screens *repository.ScreenRepo
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(screens *repository.ScreenRepo) *PublicHandler {
    if screens == nil {
        panic("nil ScreenRepo passed to NewPublicHandler")
    }
    return &PublicHandler{Screens: screens}
}

// publicScreen is the sanitized projection returned to guests.
type publicScreen struct {
    ID                uint64  `json:"id"`
    Name              string  `json:"name"`
    City              string  `json:"city"`
    Venue             string  `json:"venue"`
    Resolution        string  `json:"resolution"`
    SlotsPerLoop      uint32  `json:"slots_per_loop"`
    PricePerSlotCents uint32  `json:"price_per_slot_cents"`
    AvailableUntil    *string `json:"available_until,omitempty"`
}

func toPublicScreen(s model.Screen) publicScreen {
    out := publicScreen{
        ID:                s.ID,
        Name:              s.Name,
        City:              s.City,
        Venue:             s.Venue,
        Resolution:        s.Resolution,
        SlotsPerLoop:      s.SlotsPerLoop,
        PricePerSlotCents: s.PricePerSlotCents,
    }
    if s.AvailableUntil != nil {
        d := s.AvailableUntil.UTC().Format(time.DateOnly)
        out.AvailableUntil = &d
    }
    return out
}

// ListScreens handles GET /v1/screens.  It returns all active screens,
// optionally filtered with the ?city= query parameter.
func (h *PublicHandler) ListScreens(c echo.Context) error {
    screens, err := h.Screens.ListActive(c.Request().Context(), c.QueryParam("city"))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load screens"})
    }
    items := make([]publicScreen, 0, len(screens))
    for _, s := range screens {
        items = append(items, toPublicScreen(s))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetScreen handles GET /v1/screens/:id.  It returns the sanitized detail
// of a single screen or 404 when it does not exist or is inactive.
func (h *PublicHandler) GetScreen(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
    }
    screen, err := h.Screens.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == repository.ErrScreenNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load screen"})
    }
    if !screen.Active {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toPublicScreen(*screen)})
}
