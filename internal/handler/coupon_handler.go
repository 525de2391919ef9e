package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CouponHandler struct {
	uc *usecase.CouponUsecase
}

func NewCouponHandler(uc *usecase.CouponUsecase) *CouponHandler {
	return &CouponHandler{uc: uc}
}

type CouponValidateRequest struct {
	Code      string `json:"code"`
	UserID    int64  `json:"user_id"`
	CartTotal int64  `json:"cart_total"`
}

type CouponClaimRequest struct {
	Code   string `json:"code"`
	UserID int64  `json:"user_id"`
}

type WelcomeCouponRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *CouponHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.POST("/coupons/validate", h.validate)
	e.POST("/coupons/redeem", h.claim)
	e.GET("/coupons/user/:userId", h.listMine)

	// 会員登録システムから呼ばれる発行フック
	staff := e.Group("/coupons", middleware.AuthStaff(cfg))
	staff.POST("/welcome", h.welcome)
}

func (h *CouponHandler) validate(c echo.Context) error {
	var req CouponValidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Validate(c.Request().Context(), req.Code, req.UserID, req.CartTotal)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) claim(c echo.Context) error {
	var req CouponClaimRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Claim(c.Request().Context(), req.Code, req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) welcome(c echo.Context) error {
	var req WelcomeCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.IssueWelcomeCoupon(c.Request().Context(), req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) listMine(c echo.Context) error {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}

	out, err := h.uc.ListMyCoupons(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
