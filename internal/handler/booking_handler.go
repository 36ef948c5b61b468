package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flexmatch/flexmatch-api/internal/dto"
	"github.com/flexmatch/flexmatch-api/internal/middleware"
	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	bookings := e.Group("/api/v1/bookings")

	// Gateway redirect targets, reachable without a token: the browser
	// arrives here straight from the hosted checkout page.
	bookings.GET("/success", h.BookingSuccess)
	bookings.GET("/cancel", h.BookingCancelRedirect)

	authed := bookings.Group("", middleware.JWTAuth(jwtSecret))
	authed.POST("/payment-session", h.CreateReservation)
	authed.GET("/my-bookings", h.MyBookings)
	authed.GET("/provider-bookings", h.ProviderBookings,
		middleware.RequireRole(models.RoleCoach, models.RoleHealthSpecialist, models.RoleGymOwner, models.RoleSportFieldOwner))
	authed.PATCH("/:id/cancel", h.CancelBooking,
		middleware.RequireRole(models.RoleClient, models.RoleAdmin))
	authed.PATCH("/:id/complete", h.CompleteBooking,
		middleware.RequireRole(models.RoleCoach, models.RoleHealthSpecialist, models.RoleGymOwner, models.RoleSportFieldOwner, models.RoleAdmin))
	authed.GET("/:id", h.GetBooking, middleware.RequireRole(models.RoleAdmin))
}

func requester(c echo.Context) service.Requester {
	id, _ := c.Get("user_id").(uint)
	role, _ := c.Get("role").(string)
	return service.Requester{ID: id, Role: models.Role(role)}
}

// toHTTPError maps the service error taxonomy onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, service.ErrFieldNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAllowed):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDayUnavailable),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrAlreadyCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *BookingHandler) CreateReservation(c echo.Context) error {
	var req dto.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.CreateReservation(c.Request().Context(), service.CreateReservationInput{
		UserID:        requester(c).ID,
		ServiceID:     req.ServiceID,
		SportFieldID:  req.SportFieldID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Participants:  req.Participants,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ReservationResponse{
		Booking: dto.ToBookingResponse(result.Booking),
		Session: result.Session,
	})
}

func (h *BookingHandler) BookingSuccess(c echo.Context) error {
	id, err := bookingQueryParam(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.ConfirmSuccessRedirect(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) BookingCancelRedirect(c echo.Context) error {
	id, err := bookingQueryParam(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.CancelRedirect(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := bookingPathParam(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), id, requester(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	id, err := bookingPathParam(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.CompleteBooking(c.Request().Context(), id, requester(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := bookingPathParam(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) MyBookings(c echo.Context) error {
	bookings, err := h.svc.ListUserBookings(c.Request().Context(), requester(c).ID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) ProviderBookings(c echo.Context) error {
	bookings, err := h.svc.ListProviderBookings(c.Request().Context(), requester(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func toBookingResponses(bookings []models.Booking) []dto.BookingResponse {
	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}
	return resp
}

func bookingPathParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}

func bookingQueryParam(c echo.Context) (uint, error) {
	raw := c.QueryParam("booking")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "booking id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}
