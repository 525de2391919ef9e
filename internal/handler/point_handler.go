package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

func parseID(v string) (int64, error) {
	return strconv.ParseInt(v, 10, 64)
}

type PointHandler struct {
	uc *usecase.PointUsecase
}

func NewPointHandler(uc *usecase.PointUsecase) *PointHandler {
	return &PointHandler{uc: uc}
}

func (h *PointHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/points/:userId", h.balance)
	e.GET("/points/:userId/history", h.history)
}

func (h *PointHandler) balance(c echo.Context) error {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}

	out, err := h.uc.Balance(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PointHandler) history(c echo.Context) error {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	out, err := h.uc.History(c.Request().Context(), userID, page, 50)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
