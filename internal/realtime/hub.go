package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

const (
	// client → server
	EventRegisterPOS = "register-pos"

	// server → client
	EventNewOrder      = "new-order"      // 新規注文（受諾ポップアップを出す）
	EventRestoreOrders = "restore-orders" // 再接続時の進行中注文の一括復元（ポップアップなし）
	EventStatusChanged = "order-status-changed"
)

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type StatusChangedPayload struct {
	OrderNo string `json:"order_no"`
	Status  string `json:"status"`
}

// ソケット1本の抽象。本番はgorilla/websocket、テストはフェイク。
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// 再接続時に流し直す注文の供給元。
// PENDINGは個別のnew-orderとして（判断ポップアップを出し直すため）、
// 受諾済み〜配達中はrestore-ordersの一括として返す。
type OrderFeed interface {
	PendingOrders(ctx context.Context) ([]any, error)
	ActiveOrders(ctx context.Context) ([]any, error)
}

type session struct {
	id   string
	conn Conn
	send chan Message

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
		_ = s.conn.Close()
	})
}

// Hubは接続中のPOSソケット一覧を持ち、全員にイベントを配る。
// 配送保証はat-least-once。重複排除はPOS側の処理済みIDセットの責務。
type Hub struct {
	feed   OrderFeed
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(feed OrderFeed) *Hub {
	return &Hub{
		feed:     feed,
		logger:   log.New("realtime"),
		sessions: make(map[string]*session),
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcastは登録済みの全ソケットへ送る。詰まっているソケットには待たずスキップする
// （注文パイプラインをソケットでブロックしない）。
func (h *Hub) Broadcast(event string, data any) {
	msg := Message{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		select {
		case s.send <- msg:
		default:
			h.logger.Warnf("pos %s send buffer full, dropping %s", s.id, event)
		}
	}
}

// Serveは接続1本ぶんの読みループ。register-posを受けたら配信対象に加えて
// 進行中の注文をリプレイする。戻るのは切断時。
func (h *Hub) Serve(ctx context.Context, conn Conn) {
	s := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, 64),
	}
	go h.writeLoop(s)
	defer func() {
		h.unregister(s)
		s.close()
	}()

	registered := false
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Event {
		case EventRegisterPOS:
			if !registered {
				h.register(s)
				registered = true
			}
			// 再登録でもリプレイはやり直す（POS側の再同期要求として扱う）
			h.replay(ctx, s)
		default:
			// 知らないイベントは無視
		}
	}
}

func (h *Hub) writeLoop(s *session) {
	for msg := range s.send {
		if err := s.conn.WriteJSON(msg); err != nil {
			h.logger.Warnf("pos %s write failed: %v", s.id, err)
			h.unregister(s)
			s.close()
			return
		}
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.logger.Infof("pos registered: %s (%d connected)", s.id, h.Count())
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

// 再接続したPOSへの流し直し。
// restore-orders: 受諾済みの進行中注文（アラートなしで画面復元）
// new-order: まだ誰も受けていないPENDING（判断ポップアップを出し直す）
func (h *Hub) replay(ctx context.Context, s *session) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	active, err := h.feed.ActiveOrders(ctx)
	if err != nil {
		h.logger.Errorf("replay active orders failed: %v", err)
	} else if len(active) > 0 {
		h.sendTo(s, Message{Event: EventRestoreOrders, Data: active})
	}

	pending, err := h.feed.PendingOrders(ctx)
	if err != nil {
		h.logger.Errorf("replay pending orders failed: %v", err)
		return
	}
	for _, o := range pending {
		h.sendTo(s, Message{Event: EventNewOrder, Data: o})
	}
}

func (h *Hub) sendTo(s *session, msg Message) {
	select {
	case s.send <- msg:
	default:
		h.logger.Warnf("pos %s send buffer full during replay", s.id)
	}
}
