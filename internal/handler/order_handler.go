package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

type OrderHandler struct {
	orders      *usecase.OrderUsecase
	fulfillment *usecase.FulfillmentUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, fulfillment *usecase.FulfillmentUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, fulfillment: fulfillment}
}

type OrderCreateRequest struct {
	UserID        *int64                        `json:"user_id"`
	CustomerName  string                        `json:"customer_name"`
	Phone         string                        `json:"phone"`
	Address       string                        `json:"address"`
	Items         []usecase.PlaceOrderItemInput `json:"items"`
	UsedPoints    int64                         `json:"used_points"`
	CouponCode    string                        `json:"coupon_code"`
	PaymentMethod string                        `json:"payment_method"`
	OrderType     string                        `json:"order_type"`
}

type OrderCreateResponse struct {
	OrderNo      string `json:"order_no"`
	EarnedPoints int64  `json:"earned_points"`
}

type OrderEditRequest struct {
	CustomerName *string                       `json:"customer_name"`
	Phone        *string                       `json:"phone"`
	Address      *string                       `json:"address"`
	Items        []usecase.PlaceOrderItemInput `json:"items"`
}

type OrderStatusUpdateRequest struct {
	Status           string `json:"status"`
	EstimatedMinutes int    `json:"estimated_time"`
	RiderID          *int64 `json:"rider_id"`
	Reason           string `json:"reason"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.POST("/orders", h.create(cfg))
	e.GET("/orders/:orderNo", h.detail)
	e.PUT("/orders/:orderNo", h.edit)
	e.POST("/orders/:orderNo/cancel", h.cancel)
	e.GET("/orders/user/:userId", h.listByUser)
	e.GET("/orders/phone/:phone", h.listByPhone)

	// POS/スタッフ側の操作
	staff := e.Group("/orders", middleware.AuthStaff(cfg))
	staff.GET("", h.list)
	staff.POST("/:orderNo/status", h.updateStatus)
}

func (h *OrderHandler) create(cfg config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req OrderCreateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
		}

		// スタッフが立てた注文は営業時間ゲートを通さない
		_, isStaff := middleware.StaffFromAuthHeader(cfg.JWTSecret, c.Request().Header.Get("Authorization"))

		out, err := h.orders.PlaceOrder(c.Request().Context(), usecase.PlaceOrderInput{
			UserID:        req.UserID,
			CustomerName:  req.CustomerName,
			Phone:         req.Phone,
			Address:       req.Address,
			Items:         req.Items,
			UsedPoints:    req.UsedPoints,
			CouponCode:    req.CouponCode,
			PaymentMethod: req.PaymentMethod,
			OrderType:     req.OrderType,
			StaffOrder:    isStaff,
		})
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, OrderCreateResponse{
			OrderNo:      out.OrderNo,
			EarnedPoints: out.EarnedPoints,
		})
	}
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.orders.GetOrder(c.Request().Context(), c.Param("orderNo"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) edit(c echo.Context) error {
	var req OrderEditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.orders.EditOrder(c.Request().Context(), c.Param("orderNo"), usecase.EditOrderInput{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		Items:        req.Items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	var req OrderCancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.fulfillment.Cancel(c.Request().Context(), c.Param("orderNo"), req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	status, err := h.fulfillment.UpdateStatus(c.Request().Context(), c.Param("orderNo"), usecase.UpdateStatusInput{
		Status:           req.Status,
		EstimatedMinutes: req.EstimatedMinutes,
		RiderID:          req.RiderID,
		Reason:           req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}

func (h *OrderHandler) list(c echo.Context) error {
	f := repository.OrderListFilter{Page: 1, Limit: 50}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		f.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		f.Limit = l
	}
	f.Status = c.QueryParam("status")
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		f.To = &t
	}

	out, err := h.orders.ListOrders(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listByUser(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}

	out, err := h.orders.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listByPhone(c echo.Context) error {
	out, err := h.orders.ListByPhone(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
