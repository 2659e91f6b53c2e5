package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabada911/hakibavuong/internal/token"
)

const identityKey = "identity"

type Middleware struct {
	Tokens *token.Issuer
}

// RequireAuth checks the bearer token and stores the resolved identity in
// the echo context for handlers downstream.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "Token không hợp lệ.")
		}

		id, err := m.Tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Token không hợp lệ.")
		}

		c.Set(identityKey, id)
		return next(c)
	}
}

// RequireRoles gates a route to users holding one of the given coarse roles.
// Chain after RequireAuth.
func (m *Middleware) RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || id.Type != token.TypeUser {
				return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền truy cập.")
			}
			for _, r := range roles {
				if id.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền truy cập.")
		}
	}
}

// RequireCustomer gates a route to shopper tokens. Chain after RequireAuth.
func (m *Middleware) RequireCustomer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok || !id.IsCustomer() {
			return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền truy cập.")
		}
		return next(c)
	}
}

func IdentityFrom(c echo.Context) (*token.Identity, bool) {
	id, ok := c.Get(identityKey).(*token.Identity)
	return id, ok
}

// SetIdentity is a test hook for handler tests that skip the middleware.
func SetIdentity(c echo.Context, id *token.Identity) {
	c.Set(identityKey, id)
}
