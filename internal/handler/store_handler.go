package handler

import (
	"net/http"
	"time"

	"app/internal/catalog"
	"app/internal/domain/model"

	"github.com/labstack/echo/v4"
)

type StoreHandler struct {
	store *catalog.Store
}

func NewStoreHandler(store *catalog.Store) *StoreHandler {
	return &StoreHandler{store: store}
}

type BusinessHoursResponse struct {
	IsOpen          bool                      `json:"is_open"`
	ClosedReason    string                    `json:"closed_reason,omitempty"`
	CurrentTime     time.Time                 `json:"current_time"`
	BusinessHours   map[string]model.DayHours `json:"business_hours"`
	ClosedDays      []int                     `json:"closed_days"`
	TemporaryClosed bool                      `json:"temporary_closed"`
	IsBusy          bool                      `json:"is_busy"`
	BreakStart      string                    `json:"break_start,omitempty"`
	BreakEnd        string                    `json:"break_end,omitempty"`
}

func (h *StoreHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/business-hours", h.businessHours)
}

func (h *StoreHandler) businessHours(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()

	open, reason, err := h.store.IsOpen(ctx, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	cfg, err := h.store.Snapshot(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	hours, err := cfg.BusinessHours()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	days, err := cfg.ClosedDays()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, BusinessHoursResponse{
		IsOpen:          open,
		ClosedReason:    reason,
		CurrentTime:     now,
		BusinessHours:   hours,
		ClosedDays:      days,
		TemporaryClosed: cfg.TemporaryClosed,
		IsBusy:          cfg.IsBusy,
		BreakStart:      cfg.BreakStart,
		BreakEnd:        cfg.BreakEnd,
	})
}
