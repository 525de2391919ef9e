package handler

import (
	"net/http"

	"app/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// POS端末の常時接続チャンネル。upgrade後はhubが面倒を見る。
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			// POSは店内LAN・固定アプリからの接続なのでOriginは見ない
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.serve)
}

func (h *WSHandler) serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	// 切断までブロックする
	h.hub.Serve(c.Request().Context(), conn)
	return nil
}
