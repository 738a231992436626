package handler

import (
	"net/http"

	"event-tickets/internal/dto"

	"github.com/labstack/echo/v4"
)

func successFailure(c echo.Context, status int, msg string) error {
	ok := false
	return c.JSON(status, dto.ErrorResponse{Success: &ok, Error: msg})
}

func validFailure(c echo.Context, status int, msg string) error {
	ok := false
	return c.JSON(status, dto.ErrorResponse{Valid: &ok, Error: msg})
}

func plainFailure(c echo.Context, status int, msg string) error {
	return c.JSON(status, dto.ErrorResponse{Error: msg})
}

func internalError(msg string) error {
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}
