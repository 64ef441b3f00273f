package middleware

// identity.go defines helper functions shared across middleware files.  It
// provides an identity extraction function that pulls the advertiser id
// stored by JWTAuth out of the Echo context.  When no token is present,
// "guest" is returned so rate-limit keys still partition sensibly.

import (
    "fmt"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts an advertiser identifier from the context.  It
// returns "guest" when the request is unauthenticated.
func currentUserID(c echo.Context) string {
    v := c.Get("advertiser_id")
    if v == nil {
        return "guest"
    }
    switch id := v.(type) {
    case string:
        if id != "" {
            return id
        }
    case float64:
        return fmt.Sprintf("%.0f", id)
    case uint64:
        return fmt.Sprintf("%d", id)
    }
    return "guest"
}
