package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths reachable without a session: infrastructure
// endpoints and the login, recovery and self-registration flows.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

const publicAuthPrefix = "/api/v1/auth/"

// AuthSkipper returns true for requests whose route should skip
// authentication. It matches on the registered route, not the raw URL.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, publicAuthPrefix)
}
