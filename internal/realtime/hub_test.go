package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =====================
// fakes
// =====================

// fakeConnはチャンネル駆動のConn。readsに積んだメッセージを順に返し、
// 書き込みはwrittenに貯める。
type fakeConn struct {
	reads chan Message

	mu      sync.Mutex
	written []Message
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan Message, 8)}
}

func (c *fakeConn) ReadJSON(v any) error {
	msg, ok := <-c.reads
	if !ok {
		return io.EOF
	}
	*(v.(*Message)) = msg
	return nil
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	c.written = append(c.written, v.(Message))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) disconnect() { close(c.reads) }

func (c *fakeConn) writtenMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.written...)
}

// 条件が満たされるまで短く待つ（writeLoopが非同期なので）
func (c *fakeConn) waitForMessages(t *testing.T, n int) []Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := c.writtenMessages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, len(c.writtenMessages()))
	return nil
}

type fakeFeed struct {
	pending []any
	active  []any
	err     error
}

func (f *fakeFeed) PendingOrders(ctx context.Context) ([]any, error) { return f.pending, f.err }
func (f *fakeFeed) ActiveOrders(ctx context.Context) ([]any, error)  { return f.active, f.err }

// =====================
// tests
// =====================

func TestHub_Register_ReplaysActiveAndPending(t *testing.T) {
	feed := &fakeFeed{
		active:  []any{"order-95", "order-96"},
		pending: []any{"order-100", "order-101"},
	}
	h := NewHub(feed)

	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		h.Serve(context.Background(), conn)
		close(done)
	}()

	conn.reads <- Message{Event: EventRegisterPOS}

	// 進行中は一括のrestore-orders、PENDINGは1件ずつnew-order
	msgs := conn.waitForMessages(t, 3)
	assert.Equal(t, EventRestoreOrders, msgs[0].Event)
	assert.Equal(t, []any{"order-95", "order-96"}, msgs[0].Data)
	assert.Equal(t, EventNewOrder, msgs[1].Event)
	assert.Equal(t, "order-100", msgs[1].Data)
	assert.Equal(t, EventNewOrder, msgs[2].Event)
	assert.Equal(t, "order-101", msgs[2].Data)

	assert.Equal(t, 1, h.Count())

	conn.disconnect()
	<-done
	assert.Equal(t, 0, h.Count())
}

func TestHub_Register_NoActiveOrders_SkipsRestoreBatch(t *testing.T) {
	feed := &fakeFeed{pending: []any{"order-100"}}
	h := NewHub(feed)

	conn := newFakeConn()
	go h.Serve(context.Background(), conn)

	conn.reads <- Message{Event: EventRegisterPOS}

	msgs := conn.waitForMessages(t, 1)
	assert.Equal(t, EventNewOrder, msgs[0].Event)

	conn.disconnect()
}

func TestHub_Broadcast_ReachesRegisteredOnly(t *testing.T) {
	h := NewHub(&fakeFeed{})

	registered := newFakeConn()
	silent := newFakeConn() // 接続はしたがregister-posを送っていない

	go h.Serve(context.Background(), registered)
	go h.Serve(context.Background(), silent)

	registered.reads <- Message{Event: EventRegisterPOS}

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, h.Count())

	h.Broadcast(EventNewOrder, "order-102")

	msgs := registered.waitForMessages(t, 1)
	assert.Equal(t, EventNewOrder, msgs[0].Event)
	assert.Equal(t, "order-102", msgs[0].Data)

	// 未登録ソケットには何も流れない
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, len(silent.writtenMessages()))

	registered.disconnect()
	silent.disconnect()
}

func TestHub_Broadcast_MultiplePOS_AllReceive(t *testing.T) {
	h := NewHub(&fakeFeed{})

	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, c := range conns {
		go h.Serve(context.Background(), c)
		c.reads <- Message{Event: EventRegisterPOS}
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() < len(conns) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, len(conns), h.Count())

	h.Broadcast(EventStatusChanged, StatusChangedPayload{OrderNo: "101", Status: "ACCEPTED"})

	for _, c := range conns {
		msgs := c.waitForMessages(t, 1)
		assert.Equal(t, EventStatusChanged, msgs[0].Event)
	}

	for _, c := range conns {
		c.disconnect()
	}
}

func TestHub_ReRegister_ReplaysAgain(t *testing.T) {
	feed := &fakeFeed{pending: []any{"order-100"}}
	h := NewHub(feed)

	conn := newFakeConn()
	go h.Serve(context.Background(), conn)

	// POS側の再同期要求：register-posをもう1回
	conn.reads <- Message{Event: EventRegisterPOS}
	conn.reads <- Message{Event: EventRegisterPOS}

	msgs := conn.waitForMessages(t, 2)
	assert.Equal(t, EventNewOrder, msgs[0].Event)
	assert.Equal(t, EventNewOrder, msgs[1].Event)

	// 二重登録はしない
	assert.Equal(t, 1, h.Count())

	conn.disconnect()
}

func TestHub_UnknownEvent_Ignored(t *testing.T) {
	h := NewHub(&fakeFeed{})

	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		h.Serve(context.Background(), conn)
		close(done)
	}()

	conn.reads <- Message{Event: "ping"}
	conn.reads <- Message{Event: EventRegisterPOS}

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, h.Count())

	conn.disconnect()
	<-done
}

func TestHub_Disconnect_Unregisters(t *testing.T) {
	feed := &fakeFeed{}
	h := NewHub(feed)

	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		h.Serve(context.Background(), conn)
		close(done)
	}()

	conn.reads <- Message{Event: EventRegisterPOS}

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	conn.disconnect()
	<-done
	assert.Equal(t, 0, h.Count())

	// 切断後のBroadcastは誰にも届かないがパニックもしない
	h.Broadcast(EventNewOrder, "order-103")
}
