package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus-cravings/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClient struct {
	conn     *websocket.Conn
	messages chan models.Message
}

func (c *testClient) expect(t *testing.T) models.Message {
	t.Helper()
	select {
	case msg := <-c.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return models.Message{}
	}
}

func (c *testClient) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c.messages:
		t.Fatalf("unexpected message %v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

type harness struct {
	hub     *Hub
	server  *httptest.Server
	cancel  context.CancelFunc
	clients []*testClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hub := NewHub([]string{"*"}, discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rooms []string
		if id := r.URL.Query().Get("orderId"); id != "" {
			rooms = append(rooms, OrderRoom(id))
		}
		if r.URL.Path == "/ws/admin" {
			rooms = append(rooms, AdminRoom)
		}
		_ = hub.Serve(w, r, rooms...)
	}))
	return &harness{hub: hub, server: server, cancel: cancel}
}

func (h *harness) dial(t *testing.T, path string) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	client := &testClient{conn: conn, messages: make(chan models.Message, 16)}
	go func() {
		defer close(client.messages)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg models.Message
			if json.Unmarshal(data, &msg) == nil {
				client.messages <- msg
			}
		}
	}()
	h.clients = append(h.clients, client)

	want := len(h.clients)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == want }, 2*time.Second, 10*time.Millisecond)
	return client
}

func (h *harness) close() {
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.cancel()
	h.server.Close()
	for _, c := range h.clients {
		for range c.messages {
		}
	}
}

func statusEvent(orderID string) models.OrderEvent {
	return models.OrderEvent{ID: "e1", Type: models.EventStatusUpdate, OrderID: orderID, OrderNumber: "CC-1", Status: models.StatusReady}
}

func TestNewOrderReachesEveryone(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.close()

	admin := h.dial(t, "/ws/admin")
	customer := h.dial(t, "/ws?orderId=abc")
	idle := h.dial(t, "/ws")

	require.NoError(t, h.hub.Publish(context.Background(), models.OrderEvent{Type: models.EventNewOrder, OrderID: "xyz"}))

	for _, c := range []*testClient{admin, customer, idle} {
		msg := c.expect(t)
		assert.Equal(t, string(models.EventNewOrder), msg.Event)
	}
}

func TestStatusUpdatesAreRoutedByRoom(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.close()

	admin := h.dial(t, "/ws/admin")
	mine := h.dial(t, "/ws?orderId=abc")
	other := h.dial(t, "/ws?orderId=def")

	require.NoError(t, h.hub.Publish(context.Background(), statusEvent("abc")))

	msg := mine.expect(t)
	assert.Equal(t, string(models.EventStatusUpdate), msg.Event)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", payload["orderId"])
	assert.Equal(t, "ready", payload["status"])

	admin.expect(t)
	other.expectNothing(t)
}

func TestJoinAndLeaveOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.close()

	c := h.dial(t, "/ws")
	require.NoError(t, c.conn.WriteJSON(map[string]string{"event": "join-order", "orderId": "abc"}))

	received := func() bool {
		_ = h.hub.Publish(context.Background(), statusEvent("abc"))
		select {
		case <-c.messages:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}
	require.Eventually(t, received, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.conn.WriteJSON(map[string]string{"event": "leave-order", "orderId": "abc"}))
	require.Eventually(t, func() bool { return !received() }, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.close()

	c := h.dial(t, "/ws")
	require.NoError(t, c.conn.Close())
	assert.Eventually(t, func() bool { return h.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil, discard())
	for i := 0; i < publishBuffer; i++ {
		require.NoError(t, hub.Publish(context.Background(), statusEvent("abc")))
	}
	assert.ErrorIs(t, hub.Publish(context.Background(), statusEvent("abc")), ErrDropped)
}

func TestPublishAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub := NewHub(nil, discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, hub.Publish(context.Background(), statusEvent("abc")), ErrClosed)
}
