package handler

import (
	"log/slog"
	"net/http"

	"github.com/flexmatch/flexmatch-api/internal/middleware"
	"github.com/flexmatch/flexmatch-api/internal/realtime"
	"github.com/flexmatch/flexmatch-api/internal/repository"
	"github.com/labstack/echo/v4"
)

// PresenceHandler marks users online and offline so the notification
// consumer knows when to forward a realtime copy.
type PresenceHandler struct {
	registry      realtime.Registry
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewPresenceHandler(registry realtime.Registry, notifications repository.NotificationRepository, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{registry: registry, notifications: notifications, logger: logger}
}

func (h *PresenceHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	authed := e.Group("/api/v1", middleware.JWTAuth(jwtSecret))
	authed.POST("/presence/connect", h.Connect)
	authed.POST("/presence/disconnect", h.Disconnect)
	authed.GET("/notifications", h.ListNotifications)
}

func (h *PresenceHandler) Connect(c echo.Context) error {
	userID, _ := c.Get("user_id").(uint)
	if err := h.registry.Connect(c.Request().Context(), userID); err != nil {
		h.logger.Error("presence connect failed", "user_id", userID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot register presence")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "online"})
}

func (h *PresenceHandler) Disconnect(c echo.Context) error {
	userID, _ := c.Get("user_id").(uint)
	if err := h.registry.Disconnect(c.Request().Context(), userID); err != nil {
		h.logger.Error("presence disconnect failed", "user_id", userID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot remove presence")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "offline"})
}

func (h *PresenceHandler) ListNotifications(c echo.Context) error {
	userID, _ := c.Get("user_id").(uint)
	notifications, err := h.notifications.FindByRecipient(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load notifications")
	}
	return c.JSON(http.StatusOK, notifications)
}
