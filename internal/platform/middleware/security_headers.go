package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// SecurityConfig holds the header settings that differ per deployment.
type SecurityConfig struct {
	// HSTSMaxAge turns on Strict-Transport-Security when positive. Plain-HTTP
	// development servers leave it at zero.
	HSTSMaxAge time.Duration
}

var jsonAPIHeaders = []struct{ name, value string }{
	{echo.HeaderXContentTypeOptions, "nosniff"},
	{echo.HeaderXFrameOptions, "DENY"},
	{echo.HeaderXXSSProtection, "0"},
	{echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'"},
	{echo.HeaderReferrerPolicy, "no-referrer"},
}

// SecurityHeaders hardens every response. Anything under /api/ carries
// patient or billing data and is never stored by caches; ops endpoints may
// be revalidated.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge/time.Second)) + "; includeSubDomains"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range jsonAPIHeaders {
				h.Set(kv.name, kv.value)
			}
			if hsts != "" {
				h.Set(echo.HeaderStrictTransportSecurity, hsts)
			}
			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set(echo.HeaderCacheControl, "no-store")
			} else {
				h.Set(echo.HeaderCacheControl, "no-cache")
			}
			return next(c)
		}
	}
}
