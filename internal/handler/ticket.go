package handler

import (
	"errors"
	"net/http"
	"strconv"

	"event-tickets/internal/dto"
	"event-tickets/internal/service"

	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	ticketService     service.TicketService
	redemptionService service.RedemptionService
}

func NewTicketHandler(ticketService service.TicketService, redemptionService service.RedemptionService) *TicketHandler {
	return &TicketHandler{
		ticketService:     ticketService,
		redemptionService: redemptionService,
	}
}

func (h *TicketHandler) ListTickets(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	resp, err := h.ticketService.List(ctx, limit, c.QueryParam("cursor"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return plainFailure(c, http.StatusBadRequest, err.Error())
		}
		return internalError("Failed to load tickets")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) CreateTicket(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateTicketRequest
	if err := c.Bind(&req); err != nil {
		return plainFailure(c, http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return plainFailure(c, http.StatusBadRequest, err.Error())
	}

	resp, err := h.ticketService.CreateManual(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return plainFailure(c, http.StatusBadRequest, err.Error())
		}
		return internalError("Failed to create ticket")
	}

	return c.JSON(http.StatusCreated, resp)
}

func (h *TicketHandler) ValidateTicket(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.redemptionService.Validate(ctx, c.QueryParam("code"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return validFailure(c, http.StatusBadRequest, "Missing ticket code")
		}
		return validFailure(c, http.StatusInternalServerError, "Validation failed")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) RedeemTicket(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RedeemRequest
	if err := c.Bind(&req); err != nil {
		return successFailure(c, http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return successFailure(c, http.StatusBadRequest, "Missing ticket code")
	}

	count := 1
	if req.RedeemCount != nil {
		count = *req.RedeemCount
	}

	resp, err := h.redemptionService.Redeem(ctx, req.Code, count)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return successFailure(c, http.StatusBadRequest, err.Error())
		}
		return successFailure(c, http.StatusInternalServerError, "Redemption failed")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) SendTicket(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SendTicketRequest
	if err := c.Bind(&req); err != nil {
		return successFailure(c, http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return successFailure(c, http.StatusBadRequest, "Missing ticket code")
	}

	resp, err := h.ticketService.SendByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return successFailure(c, http.StatusBadRequest, err.Error())
		}
		return successFailure(c, http.StatusInternalServerError, "Email dispatch failed")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.ticketService.Stats(ctx)
	if err != nil {
		return internalError("Failed to load stats")
	}

	return c.JSON(http.StatusOK, resp)
}
