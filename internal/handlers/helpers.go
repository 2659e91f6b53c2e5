package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/middleware/auth"
	"github.com/dabada911/hakibavuong/internal/token"
)

func identity(c echo.Context) (*token.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Token không hợp lệ.")
	}
	return id, nil
}

func customerIdentity(c echo.Context) (*token.Identity, error) {
	id, err := identity(c)
	if err != nil {
		return nil, err
	}
	if !id.IsCustomer() {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Token không hợp lệ.")
	}
	return id, nil
}

func userIdentity(c echo.Context) (*token.Identity, error) {
	id, err := identity(c)
	if err != nil {
		return nil, err
	}
	if id.Type != token.TypeUser {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Token không hợp lệ.")
	}
	return id, nil
}

func publish(c echo.Context, p *events.Producer, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
