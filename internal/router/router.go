package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/screen-slot-reservation/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/screen-slot-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems probe this endpoint to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  The
// PublicHandler returns sanitized screen data for browsing; no JWT or role
// middleware applies here.  Optional middleware (typically the Redis
// response cache) is applied to these routes only, since authenticated
// responses must never be cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
    // Browse the screen catalog, optionally filtered with ?city=.
    e.GET("/v1/screens", p.ListScreens, mw...)
    // Screen details by id.
    e.GET("/v1/screens/:id", p.GetScreen, mw...)
}

// RegisterAdvertiser registers the advertiser-facing reservation API.  All
// routes live under /v1 behind JWT authentication and the ADVERTISER role;
// identity is taken from the token, never from the request body.
func RegisterAdvertiser(e *echo.Echo, a *handler.AdvertiserHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADVERTISER"))
    g.Use(mw...)

    // Campaign lifecycle.
    g.POST("/campaigns", a.CreateCampaign)
    g.GET("/campaigns/:id", a.GetCampaign)
    g.PATCH("/campaigns/:id/dates", a.UpdateCampaignDates)

    // Live inventory snapshots for the campaign's date range.
    g.GET("/campaigns/:id/inventory", a.CampaignInventory)

    // Draft selection editing.  Every mutation is clamped server-side and
    // the persisted draft is returned so the client can re-render.
    g.GET("/campaigns/:id/selection", a.GetSelection)
    g.DELETE("/campaigns/:id/selection", a.ClearSelection)
    g.POST("/campaigns/:id/selection/toggle", a.ToggleSelection)
    g.POST("/campaigns/:id/selection/adjust", a.AdjustSelection)
    g.POST("/campaigns/:id/selection/bulk", a.BulkApplySelection)
    g.POST("/campaigns/:id/selection/reconcile", a.ReconcileSelection)

    // Bundle assembly and live price classification.
    g.POST("/campaigns/:id/bundle", a.AssembleBundle)
    g.GET("/campaigns/:id/bundle", a.GetBundle)
    g.GET("/campaigns/:id/bundle/pricing", a.BundlePricing)

    // Proposal readiness pipeline, holds and commit.
    g.POST("/proposals", a.OpenProposal)
    g.GET("/proposals/:id", a.GetProposal)
    g.POST("/proposals/:id/accept-policy", a.AcceptPolicy)
    g.POST("/proposals/:id/accept-price", a.AcceptPriceChange)
    g.POST("/proposals/:id/lock", a.LockProposal)
    g.POST("/proposals/:id/release", a.ReleaseProposal)
    g.POST("/proposals/:id/commit", a.CommitProposal)
}
